package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/models"
)

func TestCreateAdmissionIfAbsent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db)

	mock.ExpectQuery("ON CONFLICT ON CONSTRAINT admissions_student_course_key DO NOTHING RETURNING id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("adm-1"))
	mock.ExpectQuery("ON CONFLICT ON CONSTRAINT admissions_student_course_key DO NOTHING RETURNING id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	first := &models.Admission{StudentID: "s1", CourseID: "c1", Documents: models.Documents{{Name: "marksheet.pdf", URL: "/uploads/a.pdf"}}}
	inserted, err := repo.CreateIfAbsent(context.Background(), first)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, models.AdmissionStatusPending, first.Status)

	inserted, err = repo.CreateIfAbsent(context.Background(), &models.Admission{StudentID: "s1", CourseID: "c1"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAdmissionStatusMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db)

	mock.ExpectExec("UPDATE admissions SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.AdmissionStatusApproved)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDocumentsScan(t *testing.T) {
	var docs models.Documents
	require.NoError(t, docs.Scan([]byte(`[{"name":"id.pdf","url":"/uploads/id.pdf"}]`)))
	require.Len(t, docs, 1)
	assert.Equal(t, "id.pdf", docs[0].Name)

	require.NoError(t, docs.Scan(nil))
	assert.Empty(t, docs)
	assert.Error(t, docs.Scan(42))
}
