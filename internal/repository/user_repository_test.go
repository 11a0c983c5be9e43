package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestListContactsByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "email"}).
		AddRow("a1", "Root Admin", "root@college.local").
		AddRow("a2", "Registrar", "registrar@college.local")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name AS name, email FROM users WHERE role = $1 AND active")).
		WithArgs(models.RoleAdmin).
		WillReturnRows(rows)

	contacts, err := repo.ListContactsByRole(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, models.RecipientAdmin, contacts[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserContactsByIDsExpandsIn(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name AS name, email FROM users WHERE active AND id IN ($1, $2)")).
		WithArgs("a1", "a2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow("a1", "Root", "root@college.local"))

	contacts, err := repo.ContactsByIDs(context.Background(), []string{"a1", "a2"})
	require.NoError(t, err)
	assert.Len(t, contacts, 1)

	empty, err := repo.ContactsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "root@college.local", PasswordHash: "hash", FullName: "Root", Role: models.RoleAdmin, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
