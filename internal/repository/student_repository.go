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

const studentColumns = `id, roll_number, name, email, mobile, password_hash, father_name, mother_name, address, city, state, pin_code, dob, gender, category, created_at, updated_at`

// StudentRepository handles persistence for students and their enrolled course set.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// FindByEmail fetches a student by email, ignoring case.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE LOWER(email) = LOWER($1)`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by email: %w", err)
	}
	return &student, nil
}

// FindByName matches the full name exactly, ignoring case. The oldest match wins
// when names collide.
func (r *StudentRepository) FindByName(ctx context.Context, name string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE LOWER(name) = LOWER($1) ORDER BY created_at ASC LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student by name: %w", err)
	}
	return &student, nil
}

// Create inserts a student account.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, roll_number, name, email, mobile, password_hash, father_name, mother_name, address, city, state, pin_code, dob, gender, category, created_at, updated_at)
VALUES (:id, :roll_number, :name, :email, :mobile, :password_hash, :father_name, :mother_name, :address, :city, :state, :pin_code, :dob, :gender, :category, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update replaces the profile fields. Email and password hash are not touched.
// It returns sql.ErrNoRows when the student is absent.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET roll_number = :roll_number, name = :name, mobile = :mobile, father_name = :father_name,
mother_name = :mother_name, address = :address, city = :city, state = :state, pin_code = :pin_code, dob = :dob,
gender = :gender, category = :category, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns students ordered by name with the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Student, int, error) {
	clause, args := accountSearch(filter.Search, "name", "email", "roll_number")
	page, pageSize := models.Normalize(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY name ASC LIMIT %d OFFSET %d", studentColumns, clause, pageSize, (page-1)*pageSize)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// accountSearch builds a case-insensitive substring match across columns.
func accountSearch(search string, columns ...string) (string, []interface{}) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("LOWER(COALESCE(%s, '')) LIKE $1", col)
	}
	return " WHERE " + strings.Join(parts, " OR "), []interface{}{"%" + strings.ToLower(search) + "%"}
}

// ListContacts returns every student's addressing info.
func (r *StudentRepository) ListContacts(ctx context.Context) ([]models.Contact, error) {
	const query = `SELECT id, name, email FROM students ORDER BY created_at`
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query); err != nil {
		return nil, fmt.Errorf("list student contacts: %w", err)
	}
	for i := range contacts {
		contacts[i].Kind = models.RecipientStudent
	}
	return contacts, nil
}

// ContactsByIDs returns addressing info for the given students.
func (r *StudentRepository) ContactsByIDs(ctx context.Context, ids []string) ([]models.Contact, error) {
	if len(ids) == 0 {
		return []models.Contact{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, email FROM students WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build student contacts query: %w", err)
	}
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list student contacts: %w", err)
	}
	for i := range contacts {
		contacts[i].Kind = models.RecipientStudent
	}
	return contacts, nil
}

// AddCourse enrolls the student in a course. It reports false when the
// student was already enrolled.
func (r *StudentRepository) AddCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `INSERT INTO student_courses (student_id, course_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT (student_id, course_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, studentID, courseID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add student course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add student course rows: %w", err)
	}
	return affected > 0, nil
}

// ListCourses returns the student's enrolled courses.
func (r *StudentRepository) ListCourses(ctx context.Context, studentID string) ([]models.EnrolledCourse, error) {
	const query = `SELECT c.id, c.name, c.department_id, c.category_id, c.registration_fee, c.full_fee, c.form_url, c.created_at, c.updated_at,
d.name AS department_name, cat.name AS category_name, sc.enrolled_at
FROM student_courses sc
JOIN courses c ON c.id = sc.course_id
JOIN departments d ON d.id = c.department_id
JOIN categories cat ON cat.id = c.category_id
WHERE sc.student_id = $1
ORDER BY sc.enrolled_at DESC`
	var courses []models.EnrolledCourse
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}
