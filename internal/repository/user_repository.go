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

const userColumns = `id, email, password_hash, full_name, role, active, created_at, updated_at`

// UserRepository provides database access for administrator accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListContactsByRole returns every active holder of role.
func (r *UserRepository) ListContactsByRole(ctx context.Context, role models.UserRole) ([]models.Contact, error) {
	const query = `SELECT id, full_name AS name, email FROM users WHERE role = $1 AND active ORDER BY created_at`
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	for i := range contacts {
		contacts[i].Kind = models.RecipientAdmin
	}
	return contacts, nil
}

// ContactsByIDs returns active administrators among ids.
func (r *UserRepository) ContactsByIDs(ctx context.Context, ids []string) ([]models.Contact, error) {
	if len(ids) == 0 {
		return []models.Contact{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, full_name AS name, email FROM users WHERE active AND id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build admin contacts query: %w", err)
	}
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list admin contacts: %w", err)
	}
	for i := range contacts {
		contacts[i].Kind = models.RecipientAdmin
	}
	return contacts, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at) VALUES (:id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
