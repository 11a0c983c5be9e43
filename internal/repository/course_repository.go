package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-portal-api/internal/models"
)

const courseColumns = `id, name, department_id, category_id, registration_fee, full_fee, form_url, created_at, updated_at`

// CourseRepository handles persistence of courses, departments and categories.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID fetches a course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// FindByName matches the course name exactly, ignoring case.
func (r *CourseRepository) FindByName(ctx context.Context, name string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE LOWER(name) = LOWER($1) ORDER BY created_at ASC LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by name: %w", err)
	}
	return &course, nil
}

// List returns the whole catalog with department and category names.
func (r *CourseRepository) List(ctx context.Context) ([]models.CourseDetail, error) {
	const query = `SELECT c.id, c.name, c.department_id, c.category_id, c.registration_fee, c.full_fee, c.form_url, c.created_at, c.updated_at,
d.name AS department_name, cat.name AS category_name
FROM courses c
JOIN departments d ON d.id = c.department_id
JOIN categories cat ON cat.id = c.category_id
ORDER BY c.name ASC`
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, department_id, category_id, registration_fee, full_fee, form_url, created_at, updated_at)
VALUES (:id, :name, :department_id, :category_id, :registration_fee, :full_fee, :form_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update replaces the mutable course fields. It returns sql.ErrNoRows when the course is absent.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, department_id = :department_id, category_id = :category_id,
registration_fee = :registration_fee, full_fee = :full_fee, form_url = :form_url, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateDepartment inserts a department.
func (r *CourseRepository) CreateDepartment(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	dept.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO departments (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, dept.ID, dept.Name, dept.CreatedAt); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// ListDepartments returns every department.
func (r *CourseRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var depts []models.Department
	if err := r.db.SelectContext(ctx, &depts, `SELECT id, name, created_at FROM departments ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return depts, nil
}

// CreateCategory inserts a category.
func (r *CourseRepository) CreateCategory(ctx context.Context, cat *models.Category) error {
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	cat.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, cat.ID, cat.Name, cat.CreatedAt); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// ListCategories returns every category.
func (r *CourseRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := r.db.SelectContext(ctx, &cats, `SELECT id, name, created_at FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
