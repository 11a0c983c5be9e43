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

const resultColumns = `id, student_id, course_id, semester, marks, grade, uploaded_by, uploaded_at, created_at, updated_at`

// ResultRepository handles persistence of semester results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Upsert inserts a result or, when (student, course, semester) already exists,
// overwrites its marks and grade in place. The original uploader is kept.
func (r *ResultRepository) Upsert(ctx context.Context, result *models.Result) (*models.Result, error) {
	now := time.Now().UTC()
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.UploadedAt.IsZero() {
		result.UploadedAt = now
	}
	query := `INSERT INTO results (id, student_id, course_id, semester, marks, grade, uploaded_by, uploaded_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT ON CONSTRAINT results_student_course_semester_key
DO UPDATE SET marks = EXCLUDED.marks, grade = EXCLUDED.grade, updated_at = EXCLUDED.updated_at
RETURNING ` + resultColumns
	var stored models.Result
	if err := r.db.GetContext(ctx, &stored, query, result.ID, result.StudentID, result.CourseID, result.Semester, result.Marks, result.Grade, result.UploadedBy, result.UploadedAt, now); err != nil {
		return nil, fmt.Errorf("upsert result: %w", err)
	}
	return &stored, nil
}

// FindByID fetches a result.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE id = $1`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find result by id: %w", err)
	}
	return &result, nil
}

// UpdateMarks sets marks and grade. It returns sql.ErrNoRows when the result is absent.
func (r *ResultRepository) UpdateMarks(ctx context.Context, id string, marks float64, grade string) (*models.Result, error) {
	query := `UPDATE results SET marks = $2, grade = $3, updated_at = $4 WHERE id = $1 RETURNING ` + resultColumns
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id, marks, grade, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update result marks: %w", err)
	}
	return &result, nil
}

// Delete removes a result. It returns sql.ErrNoRows when nothing was deleted.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete result rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns results matching filter with names resolved. A negative Page
// disables pagination.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, int, error) {
	base := `FROM results r
JOIN students s ON s.id = r.student_id
JOIN courses c ON c.id = r.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("r.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("r.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	listQuery := fmt.Sprintf("SELECT %s, s.name AS student_name, c.name AS course_name %s%s ORDER BY s.name ASC, c.name ASC, r.semester ASC",
		prefixed("r", resultColumns), base, clause)
	if filter.Page >= 0 {
		page, pageSize := models.Normalize(filter.Page, filter.PageSize)
		listQuery += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	}

	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}
	return results, total, nil
}
