package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/models"
)

var resultRowColumns = []string{"id", "student_id", "course_id", "semester", "marks", "grade", "uploaded_by", "uploaded_at", "created_at", "updated_at"}

func TestUpsertResultUsesUniqueKey(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	now := time.Now().UTC()
	uploader := "admin-1"
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT ON CONSTRAINT results_student_course_semester_key\nDO UPDATE SET marks = EXCLUDED.marks, grade = EXCLUDED.grade")).
		WithArgs(sqlmock.AnyArg(), "s1", "c1", "3", 72.5, "B+", "admin-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(resultRowColumns).AddRow("r-existing", "s1", "c1", "3", 72.5, "B+", "admin-0", now, now, now))

	stored, err := repo.Upsert(context.Background(), &models.Result{StudentID: "s1", CourseID: "c1", Semester: "3", Marks: 72.5, Grade: "B+", UploadedBy: &uploader})
	require.NoError(t, err)
	assert.Equal(t, "r-existing", stored.ID)
	assert.Equal(t, "admin-0", *stored.UploadedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteResultMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM results WHERE id = $1")).WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "r1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListResultsWithoutPagination(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	now := time.Now()
	cols := append(append([]string{}, resultRowColumns...), "student_name", "course_name")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.course_id = $1 ORDER BY s.name ASC, c.name ASC, r.semester ASC")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("r1", "s1", "c1", "1", 91.0, "A+", nil, now, now, now, "Jane Doe", "Physics"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM results r")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.ResultFilter{CourseID: "c1", Page: -1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Jane Doe", items[0].StudentName)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
