package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/models"
	"github.com/noah-isme/college-portal-api/pkg/database"
)

var studentRowColumns = []string{"id", "roll_number", "name", "email", "mobile", "password_hash", "father_name", "mother_name", "address", "city", "state", "pin_code", "dob", "gender", "category", "created_at", "updated_at"}

func TestFindStudentByNameIgnoresCase(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("s1", nil, "Jane Doe", "jane@college.local", "9999999999", "hash", "", "", "", "", "", "", nil, "F", "GEN", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = LOWER($1) ORDER BY created_at ASC LIMIT 1")).
		WithArgs("jane doe").
		WillReturnRows(rows)

	student, err := repo.FindByName(context.Background(), "jane doe")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
	assert.Nil(t, student.RollNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStudentByNameMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students WHERE LOWER\\(name\\)").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByName(context.Background(), "Ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAddCourseIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	insert := regexp.QuoteMeta("INSERT INTO student_courses (student_id, course_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT (student_id, course_id) DO NOTHING")
	mock.ExpectExec(insert).WithArgs("s1", "c1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs("s1", "c1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddCourse(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddCourse(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students (id, roll_number, name, email, mobile, password_hash")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Name: "Jane Doe", Email: "jane@college.local", Mobile: "9999999999", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudentDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnError(&pq.Error{Code: database.UniqueViolation, Constraint: "students_email_key"})

	err := repo.Create(context.Background(), &models.Student{Name: "Jane Doe", Email: "jane@college.local"})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err, ""))
}

func TestUpdateStudentMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET roll_number").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Student{ID: "missing", Name: "Ghost"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListStudentsSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE LOWER(COALESCE(name, '')) LIKE $1 OR LOWER(COALESCE(email, '')) LIKE $1")).
		WithArgs("%jane%").
		WillReturnRows(sqlmock.NewRows(studentRowColumns).
			AddRow("s1", "R1", "Jane Doe", "jane@college.local", "9999999999", "hash", "", "", "", "", "", "", nil, "F", "GEN", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE")).
		WithArgs("%jane%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.AccountFilter{Search: " Jane "})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "R1", *students[0].RollNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
