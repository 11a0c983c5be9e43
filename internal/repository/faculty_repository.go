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

const facultyColumns = `id, faculty_code, name, email, mobile, password_hash, department, designation, active, created_at, updated_at`

// FacultyRepository persists faculty accounts.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// FindByEmail fetches a faculty member by email, ignoring case.
func (r *FacultyRepository) FindByEmail(ctx context.Context, email string) (*models.Faculty, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculty WHERE LOWER(email) = LOWER($1)`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by email: %w", err)
	}
	return &faculty, nil
}

// FindByID fetches a faculty member.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	query := `SELECT ` + facultyColumns + ` FROM faculty WHERE id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find faculty by id: %w", err)
	}
	return &faculty, nil
}

// Create inserts a faculty account.
func (r *FacultyRepository) Create(ctx context.Context, faculty *models.Faculty) error {
	if faculty.ID == "" {
		faculty.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	faculty.CreatedAt = now
	faculty.UpdatedAt = now
	const query = `INSERT INTO faculty (id, faculty_code, name, email, mobile, password_hash, department, designation, active, created_at, updated_at)
VALUES (:id, :faculty_code, :name, :email, :mobile, :password_hash, :department, :designation, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("create faculty: %w", err)
	}
	return nil
}

// Update replaces the editable faculty fields. It returns sql.ErrNoRows when
// the faculty member is absent.
func (r *FacultyRepository) Update(ctx context.Context, faculty *models.Faculty) error {
	faculty.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faculty SET name = :name, mobile = :mobile, department = :department, designation = :designation,
active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, faculty)
	if err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update faculty rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns faculty ordered by name with the total count.
func (r *FacultyRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Faculty, int, error) {
	clause, args := accountSearch(filter.Search, "name", "email", "faculty_code")
	page, pageSize := models.Normalize(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM faculty%s ORDER BY name ASC LIMIT %d OFFSET %d", facultyColumns, clause, pageSize, (page-1)*pageSize)
	var faculty []models.Faculty
	if err := r.db.SelectContext(ctx, &faculty, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculty: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM faculty"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculty: %w", err)
	}
	return faculty, total, nil
}

// ListContacts returns addressing info for active faculty.
func (r *FacultyRepository) ListContacts(ctx context.Context) ([]models.Contact, error) {
	const query = `SELECT id, name, email FROM faculty WHERE active ORDER BY created_at`
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query); err != nil {
		return nil, fmt.Errorf("list faculty contacts: %w", err)
	}
	for i := range contacts {
		contacts[i].Kind = models.RecipientFaculty
	}
	return contacts, nil
}

// ContactsByIDs returns addressing info for the given faculty members.
func (r *FacultyRepository) ContactsByIDs(ctx context.Context, ids []string) ([]models.Contact, error) {
	if len(ids) == 0 {
		return []models.Contact{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, email FROM faculty WHERE active AND id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build faculty contacts query: %w", err)
	}
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list faculty contacts: %w", err)
	}
	for i := range contacts {
		contacts[i].Kind = models.RecipientFaculty
	}
	return contacts, nil
}
