package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-portal-api/internal/models"
)

const (
	notificationColumns = `id, recipient_id, recipient_kind, title, message, channel, is_read, status, created_at, updated_at`
	taskColumns         = `id, recipient_id, recipient_kind, email, subject, message, channel, status, attempts, last_error, next_attempt_at, created_at, updated_at`
)

// NotificationRepository persists in-app notifications and the delivery outbox.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification record. Re-inserting an existing id is a no-op
// so redelivered outbox tasks do not duplicate messages.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.Status == "" {
		n.Status = models.NotificationSent
	}
	const query = `INSERT INTO notifications (id, recipient_id, recipient_kind, title, message, channel, is_read, status, created_at, updated_at)
VALUES (:id, :recipient_id, :recipient_kind, :title, :message, :channel, :is_read, :status, :created_at, :updated_at)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns notifications matching filter, newest first, with total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var conditions []string
	var args []interface{}
	if filter.RecipientID != "" {
		conditions = append(conditions, fmt.Sprintf("recipient_id = $%d", len(args)+1))
		args = append(args, filter.RecipientID)
	}
	if filter.RecipientKind != "" {
		conditions = append(conditions, fmt.Sprintf("recipient_kind = $%d", len(args)+1))
		args = append(args, filter.RecipientKind)
	}
	if filter.Channel != "" {
		conditions = append(conditions, fmt.Sprintf("channel = $%d", len(args)+1))
		args = append(args, filter.Channel)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, pageSize := models.Normalize(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d", notificationColumns, clause, pageSize, (page-1)*pageSize)
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead flags a notification owned by recipientID as read. It returns
// sql.ErrNoRows when no such notification exists.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) (*models.Notification, error) {
	query := `UPDATE notifications SET is_read = TRUE, updated_at = $3 WHERE id = $1 AND recipient_id = $2 RETURNING ` + notificationColumns
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id, recipientID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &n, nil
}

// CreateTasks persists outbox tasks in a single transaction.
func (r *NotificationRepository) CreateTasks(ctx context.Context, tasks []*models.NotificationTask) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification tasks tx: %w", err)
	}
	const query = `INSERT INTO notification_tasks (id, recipient_id, recipient_kind, email, subject, message, channel, status, attempts, next_attempt_at, created_at, updated_at)
VALUES (:id, :recipient_id, :recipient_kind, :email, :subject, :message, :channel, :status, :attempts, :next_attempt_at, :created_at, :updated_at)`
	now := time.Now().UTC()
	for _, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		task.Status = models.NotificationPending
		task.CreatedAt = now
		task.UpdatedAt = now
		if task.NextAttemptAt.IsZero() {
			task.NextAttemptAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, task); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("create notification task: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification tasks tx: %w", err)
	}
	return nil
}

// FindTask fetches an outbox task.
func (r *NotificationRepository) FindTask(ctx context.Context, id string) (*models.NotificationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM notification_tasks WHERE id = $1`
	var task models.NotificationTask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find notification task: %w", err)
	}
	return &task, nil
}

// ClaimDueTasks leases up to limit pending tasks whose next attempt is due by
// pushing their next_attempt_at to leaseUntil. Concurrent claimers skip rows
// already locked by another instance.
func (r *NotificationRepository) ClaimDueTasks(ctx context.Context, now, leaseUntil time.Time, limit int) ([]models.NotificationTask, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `UPDATE notification_tasks SET next_attempt_at = $2, updated_at = $1
WHERE id IN (
	SELECT id FROM notification_tasks
	WHERE status = 'pending' AND next_attempt_at <= $1
	ORDER BY next_attempt_at ASC
	LIMIT $3
	FOR UPDATE SKIP LOCKED
)
RETURNING ` + taskColumns
	var tasks []models.NotificationTask
	if err := r.db.SelectContext(ctx, &tasks, query, now, leaseUntil, limit); err != nil {
		return nil, fmt.Errorf("claim due notification tasks: %w", err)
	}
	return tasks, nil
}

// MarkTaskSent records a successful delivery.
func (r *NotificationRepository) MarkTaskSent(ctx context.Context, id string) error {
	const query = `UPDATE notification_tasks SET status = 'sent', attempts = attempts + 1, last_error = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification task sent: %w", err)
	}
	return nil
}

// RecordTaskFailure increments attempts and schedules the next try.
func (r *NotificationRepository) RecordTaskFailure(ctx context.Context, id, reason string, next time.Time) error {
	const query = `UPDATE notification_tasks SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3, updated_at = $4 WHERE id = $1 AND status = 'pending'`
	if _, err := r.db.ExecContext(ctx, query, id, reason, next, time.Now().UTC()); err != nil {
		return fmt.Errorf("record notification task failure: %w", err)
	}
	return nil
}

// MarkTaskFailed gives up on a task.
func (r *NotificationRepository) MarkTaskFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE notification_tasks SET status = 'failed', last_error = $2, updated_at = $3 WHERE id = $1 AND status = 'pending'`
	if _, err := r.db.ExecContext(ctx, query, id, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification task failed: %w", err)
	}
	return nil
}
