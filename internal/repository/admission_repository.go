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

const admissionColumns = `id, student_id, course_id, status, documents, created_at, updated_at`

// AdmissionRepository handles persistence of admission applications.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs the repository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

// CreateIfAbsent inserts the application unless one exists for the same
// student and course. It reports whether a row was inserted.
func (r *AdmissionRepository) CreateIfAbsent(ctx context.Context, admission *models.Admission) (bool, error) {
	if admission.ID == "" {
		admission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	admission.CreatedAt = now
	admission.UpdatedAt = now
	if admission.Status == "" {
		admission.Status = models.AdmissionStatusPending
	}
	if admission.Documents == nil {
		admission.Documents = models.Documents{}
	}
	const query = `INSERT INTO admissions (id, student_id, course_id, status, documents, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT ON CONSTRAINT admissions_student_course_key DO NOTHING RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query, admission.ID, admission.StudentID, admission.CourseID, admission.Status, admission.Documents, admission.CreatedAt, admission.UpdatedAt).Scan(&insertedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("create admission: %w", err)
	}
	return true, nil
}

// FindByID fetches an application with names resolved.
func (r *AdmissionRepository) FindByID(ctx context.Context, id string) (*models.AdmissionDetail, error) {
	query := `SELECT ` + prefixed("a", admissionColumns) + `, s.name AS student_name, s.email AS student_email, c.name AS course_name
FROM admissions a
JOIN students s ON s.id = a.student_id
JOIN courses c ON c.id = a.course_id
WHERE a.id = $1`
	var admission models.AdmissionDetail
	if err := r.db.GetContext(ctx, &admission, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find admission by id: %w", err)
	}
	return &admission, nil
}

// UpdateStatus sets the review status. It returns sql.ErrNoRows when the application is absent.
func (r *AdmissionRepository) UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE admissions SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update admission status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admission status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns applications matching filter, newest first, with total count.
func (r *AdmissionRepository) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionDetail, int, error) {
	base := `FROM admissions a
JOIN students s ON s.id = a.student_id
JOIN courses c ON c.id = a.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("a.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, pageSize := models.Normalize(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s, s.name AS student_name, s.email AS student_email, c.name AS course_name %s%s ORDER BY a.created_at DESC LIMIT %d OFFSET %d",
		prefixed("a", admissionColumns), base, clause, pageSize, (page-1)*pageSize)

	var admissions []models.AdmissionDetail
	if err := r.db.SelectContext(ctx, &admissions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list admissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count admissions: %w", err)
	}
	return admissions, total, nil
}
