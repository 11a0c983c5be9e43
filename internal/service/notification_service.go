package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

type notificationStore interface {
	CreateTasks(ctx context.Context, tasks []*models.NotificationTask) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, recipientID string) (*models.Notification, error)
}

type adminDirectory interface {
	ListContactsByRole(ctx context.Context, role models.UserRole) ([]models.Contact, error)
	ContactsByIDs(ctx context.Context, ids []string) ([]models.Contact, error)
}

type contactDirectory interface {
	ListContacts(ctx context.Context) ([]models.Contact, error)
	ContactsByIDs(ctx context.Context, ids []string) ([]models.Contact, error)
}

type taskDispatcher interface {
	Enqueue(task models.NotificationTask) error
	LeaseUntil(now time.Time) time.Time
}

// NotificationService writes notification tasks to the outbox and hands them
// to the dispatcher. It also serves the stored in-app notifications.
type NotificationService struct {
	store      notificationStore
	admins     adminDirectory
	students   contactDirectory
	faculty    contactDirectory
	dispatcher taskDispatcher
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(store notificationStore, admins adminDirectory, students, faculty contactDirectory, dispatcher taskDispatcher, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{store: store, admins: admins, students: students, faculty: faculty, dispatcher: dispatcher, validator: validate, logger: logger}
}

// Notify persists one task per recipient and channel, then queues them for
// delivery. Recipients without an email address are skipped for email.
func (s *NotificationService) Notify(ctx context.Context, recipients []models.Contact, subject, message string, channels ...models.Channel) (int, error) {
	now := time.Now().UTC()
	next := s.dispatcher.LeaseUntil(now)
	tasks := make([]*models.NotificationTask, 0, len(recipients)*len(channels))
	for _, r := range recipients {
		for _, ch := range channels {
			if ch == models.ChannelEmail && r.Email == "" {
				continue
			}
			tasks = append(tasks, &models.NotificationTask{
				RecipientID:   r.ID,
				RecipientKind: r.Kind,
				Email:         r.Email,
				Subject:       subject,
				Message:       message,
				Channel:       ch,
				NextAttemptAt: next,
			})
		}
	}
	if len(tasks) == 0 {
		return 0, nil
	}
	if err := s.store.CreateTasks(ctx, tasks); err != nil {
		return 0, err
	}
	for _, task := range tasks {
		if err := s.dispatcher.Enqueue(*task); err != nil {
			s.logger.Warn("notification left for sweep", zap.String("task_id", task.ID), zap.Error(err))
		}
	}
	return len(tasks), nil
}

// NotifyAdmins sends the message to every active administrator.
func (s *NotificationService) NotifyAdmins(ctx context.Context, subject, message string, channels ...models.Channel) (int, error) {
	admins, err := s.admins.ListContactsByRole(ctx, models.RoleAdmin)
	if err != nil {
		return 0, err
	}
	if len(admins) == 0 {
		s.logger.Warn("no administrators to notify", zap.String("subject", subject))
		return 0, nil
	}
	return s.Notify(ctx, admins, subject, message, channels...)
}

// Send delivers an administrative message to explicit recipients.
func (s *NotificationService) Send(ctx context.Context, req dto.SendNotificationRequest) (*dto.DispatchSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid notification payload")
	}

	var (
		contacts []models.Contact
		err      error
	)
	switch req.RecipientKind {
	case models.RecipientStudent:
		contacts, err = s.students.ContactsByIDs(ctx, req.RecipientIDs)
	case models.RecipientFaculty:
		contacts, err = s.faculty.ContactsByIDs(ctx, req.RecipientIDs)
	default:
		contacts, err = s.admins.ContactsByIDs(ctx, req.RecipientIDs)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipients")
	}
	if len(contacts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no matching recipients")
	}
	return s.dispatch(ctx, contacts, req.Title, req.Message, req.Channel)
}

// Broadcast delivers an administrative message to all students or all faculty.
func (s *NotificationService) Broadcast(ctx context.Context, req dto.BroadcastRequest) (*dto.DispatchSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid broadcast payload")
	}

	dir := s.students
	if req.Audience == "faculty" {
		dir = s.faculty
	}
	contacts, err := dir.ListContacts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipients")
	}
	return s.dispatch(ctx, contacts, req.Title, req.Message, req.Channel)
}

func (s *NotificationService) dispatch(ctx context.Context, contacts []models.Contact, title, message, delivery string) (*dto.DispatchSummary, error) {
	queued, err := s.Notify(ctx, contacts, title, message, channelsFor(delivery)...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue notifications")
	}
	s.logger.Sugar().Infow("notifications queued", "recipients", len(contacts), "tasks", queued)
	return &dto.DispatchSummary{Recipients: len(contacts), Queued: queued}, nil
}

// List returns stored notifications for administrators.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page, size := models.Normalize(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListForRecipient returns the caller's in-app notifications.
func (s *NotificationService) ListForRecipient(ctx context.Context, claims *models.JWTClaims, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	return s.List(ctx, models.NotificationFilter{
		RecipientID:   claims.UserID,
		RecipientKind: recipientKindFor(claims.Role),
		Channel:       models.ChannelInApp,
		Page:          page,
		PageSize:      pageSize,
	})
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id string, claims *models.JWTClaims) (*models.Notification, error) {
	n, err := s.store.MarkRead(ctx, id, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return n, nil
}

func channelsFor(delivery string) []models.Channel {
	switch delivery {
	case dto.DeliveryEmail:
		return []models.Channel{models.ChannelEmail}
	case dto.DeliveryInApp:
		return []models.Channel{models.ChannelInApp}
	default:
		return []models.Channel{models.ChannelEmail, models.ChannelInApp}
	}
}

func recipientKindFor(role models.UserRole) models.RecipientKind {
	switch role {
	case models.RoleAdmin:
		return models.RecipientAdmin
	case models.RoleFaculty:
		return models.RecipientFaculty
	default:
		return models.RecipientStudent
	}
}
