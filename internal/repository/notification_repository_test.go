package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/models"
)

func TestCreateTasksCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notification_tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notification_tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tasks := []*models.NotificationTask{
		{RecipientID: "s1", RecipientKind: models.RecipientStudent, Email: "jane@college.local", Subject: "Payment Successful", Message: "m", Channel: models.ChannelEmail},
		{RecipientID: "s1", RecipientKind: models.RecipientStudent, Message: "m", Channel: models.ChannelInApp},
	}
	require.NoError(t, repo.CreateTasks(context.Background(), tasks))
	for _, task := range tasks {
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, models.NotificationPending, task.Status)
		assert.False(t, task.NextAttemptAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTasksRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notification_tasks").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.CreateTasks(context.Background(), []*models.NotificationTask{{RecipientID: "s1", Message: "m", Channel: models.ChannelInApp}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadScopesToRecipient(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND recipient_id = $2")).
		WithArgs("n1", "other", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.MarkRead(context.Background(), "n1", "other")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDueTasks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Now().UTC()
	cols := []string{"id", "recipient_id", "recipient_kind", "email", "subject", "message", "channel", "status", "attempts", "last_error", "next_attempt_at", "created_at", "updated_at"}
	lease := now.Add(time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(now, lease, 100).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("t1", "s1", "student", "", "", "hello", "in-app", "pending", 2, "smtp down", now, now, now))

	tasks, err := repo.ClaimDueTasks(context.Background(), now, lease, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].Attempts)
	assert.Equal(t, "smtp down", *tasks[0].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNotificationIgnoresRedelivery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	insert := regexp.QuoteMeta("INSERT INTO notifications") + "(.|\n)*" + regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")
	mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 0))

	n := &models.Notification{ID: "task-1", RecipientID: "s1", RecipientKind: models.RecipientStudent, Title: "Payment Successful", Message: "m", Channel: models.ChannelInApp}
	require.NoError(t, repo.Create(context.Background(), n))
	require.NoError(t, repo.Create(context.Background(), n))
	assert.Equal(t, "task-1", n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
