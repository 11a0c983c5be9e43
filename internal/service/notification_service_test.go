package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

// fakeOutbox backs both the producer and the dispatcher in tests.
type fakeOutbox struct {
	mu            sync.Mutex
	tasks         map[string]*models.NotificationTask
	notifications map[string]models.Notification
	claimable     []models.NotificationTask
	createErr     error
	failures      []string
	seq           int
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{tasks: map[string]*models.NotificationTask{}, notifications: map[string]models.Notification{}}
}

func (f *fakeOutbox) CreateTasks(ctx context.Context, tasks []*models.NotificationTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, t := range tasks {
		f.seq++
		if t.ID == "" {
			t.ID = fmt.Sprintf("task-%d", f.seq)
		}
		t.Status = models.NotificationPending
		cp := *t
		f.tasks[t.ID] = &cp
	}
	return nil
}

func (f *fakeOutbox) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.notifications {
		if filter.RecipientID != "" && n.RecipientID != filter.RecipientID {
			continue
		}
		if filter.Channel != "" && n.Channel != filter.Channel {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (f *fakeOutbox) MarkRead(ctx context.Context, id, recipientID string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, sql.ErrNoRows
	}
	n.IsRead = true
	f.notifications[id] = n
	return &n, nil
}

func (f *fakeOutbox) FindTask(ctx context.Context, id string) (*models.NotificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeOutbox) ClaimDueTasks(ctx context.Context, now, leaseUntil time.Time, limit int) ([]models.NotificationTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.claimable
	f.claimable = nil
	return out, nil
}

func (f *fakeOutbox) MarkTaskSent(ctx context.Context, id string) error {
	return f.setStatus(id, models.NotificationSent, nil)
}

func (f *fakeOutbox) RecordTaskFailure(ctx context.Context, id, reason string, next time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		t.Attempts++
		t.LastError = &reason
		t.NextAttemptAt = next
	}
	f.failures = append(f.failures, reason)
	return nil
}

func (f *fakeOutbox) MarkTaskFailed(ctx context.Context, id, reason string) error {
	return f.setStatus(id, models.NotificationFailed, &reason)
}

func (f *fakeOutbox) setStatus(id string, status models.NotificationStatus, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		t.Status = status
		t.LastError = reason
	}
	return nil
}

func (f *fakeOutbox) Create(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.notifications[n.ID]; !exists {
		f.notifications[n.ID] = *n
	}
	return nil
}

func (f *fakeOutbox) task(id string) models.NotificationTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.tasks[id]
}

type fakeDispatcher struct {
	enqueued []models.NotificationTask
	err      error
}

func (f *fakeDispatcher) Enqueue(task models.NotificationTask) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, task)
	return nil
}

func (f *fakeDispatcher) LeaseUntil(now time.Time) time.Time {
	return now.Add(2 * time.Minute)
}

type fakeDirectory struct {
	contacts []models.Contact
	admins   []models.Contact
}

func (f *fakeDirectory) ListContacts(ctx context.Context) ([]models.Contact, error) {
	return f.contacts, nil
}

func (f *fakeDirectory) ListContactsByRole(ctx context.Context, role models.UserRole) ([]models.Contact, error) {
	return f.admins, nil
}

func (f *fakeDirectory) ContactsByIDs(ctx context.Context, ids []string) ([]models.Contact, error) {
	pool := append(append([]models.Contact{}, f.contacts...), f.admins...)
	var out []models.Contact
	for _, id := range ids {
		for _, c := range pool {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func newTestNotificationService(outbox *fakeOutbox, dispatcher *fakeDispatcher, students, faculty, admins *fakeDirectory) *NotificationService {
	return NewNotificationService(outbox, admins, students, faculty, dispatcher, nil, nil)
}

func TestNotifyCreatesTaskPerChannel(t *testing.T) {
	outbox := newFakeOutbox()
	dispatcher := &fakeDispatcher{}
	svc := newTestNotificationService(outbox, dispatcher, &fakeDirectory{}, &fakeDirectory{}, &fakeDirectory{})

	recipients := []models.Contact{
		{ID: "s1", Name: "Asha", Email: "asha@college.test", Kind: models.RecipientStudent},
		{ID: "s2", Name: "Ravi", Kind: models.RecipientStudent},
	}
	before := time.Now().UTC()
	queued, err := svc.Notify(context.Background(), recipients, "Hello", "Body", models.ChannelEmail, models.ChannelInApp)
	require.NoError(t, err)

	assert.Equal(t, 3, queued)
	require.Len(t, dispatcher.enqueued, 3)
	for _, task := range dispatcher.enqueued {
		assert.NotEmpty(t, task.ID)
		assert.True(t, task.NextAttemptAt.After(before.Add(time.Minute)))
		if task.RecipientID == "s2" {
			assert.Equal(t, models.ChannelInApp, task.Channel)
		}
	}
}

func TestNotifyKeepsTasksWhenQueueUnavailable(t *testing.T) {
	outbox := newFakeOutbox()
	dispatcher := &fakeDispatcher{err: errors.New("queue stopped")}
	svc := newTestNotificationService(outbox, dispatcher, &fakeDirectory{}, &fakeDirectory{}, &fakeDirectory{})

	queued, err := svc.Notify(context.Background(), []models.Contact{{ID: "s1", Email: "a@b.test"}}, "Hi", "Body", models.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
	assert.Len(t, outbox.tasks, 1)
}

func TestNotifyAdminsWithoutAdmins(t *testing.T) {
	outbox := newFakeOutbox()
	svc := newTestNotificationService(outbox, &fakeDispatcher{}, &fakeDirectory{}, &fakeDirectory{}, &fakeDirectory{})

	queued, err := svc.NotifyAdmins(context.Background(), "New Registration Payment", "x", models.ChannelEmail)
	require.NoError(t, err)
	assert.Zero(t, queued)
	assert.Empty(t, outbox.tasks)
}

func TestSendResolvesRecipientsByKind(t *testing.T) {
	outbox := newFakeOutbox()
	dispatcher := &fakeDispatcher{}
	faculty := &fakeDirectory{contacts: []models.Contact{{ID: "7b0c7a0e-2d7b-4a53-9d55-3a5b4a6f0c11", Email: "f@college.test", Kind: models.RecipientFaculty}}}
	svc := newTestNotificationService(outbox, dispatcher, &fakeDirectory{}, faculty, &fakeDirectory{})

	summary, err := svc.Send(context.Background(), dto.SendNotificationRequest{
		RecipientIDs:  []string{"7b0c7a0e-2d7b-4a53-9d55-3a5b4a6f0c11"},
		RecipientKind: models.RecipientFaculty,
		Title:         "Exam duty",
		Message:       "Room 4",
		Channel:       dto.DeliveryBoth,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Recipients)
	assert.Equal(t, 2, summary.Queued)
}

func TestSendUnknownRecipients(t *testing.T) {
	svc := newTestNotificationService(newFakeOutbox(), &fakeDispatcher{}, &fakeDirectory{}, &fakeDirectory{}, &fakeDirectory{})

	_, err := svc.Send(context.Background(), dto.SendNotificationRequest{
		RecipientIDs:  []string{"7b0c7a0e-2d7b-4a53-9d55-3a5b4a6f0c11"},
		RecipientKind: models.RecipientStudent,
		Title:         "t",
		Message:       "m",
		Channel:       dto.DeliveryInApp,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestBroadcastRejectsUnknownAudience(t *testing.T) {
	svc := newTestNotificationService(newFakeOutbox(), &fakeDispatcher{}, &fakeDirectory{}, &fakeDirectory{}, &fakeDirectory{})

	_, err := svc.Broadcast(context.Background(), dto.BroadcastRequest{Audience: "parents", Title: "t", Message: "m", Channel: dto.DeliveryEmail})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestBroadcastToStudents(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	students := &fakeDirectory{contacts: []models.Contact{{ID: "s1", Email: "s1@college.test"}, {ID: "s2", Email: "s2@college.test"}}}
	svc := newTestNotificationService(newFakeOutbox(), dispatcher, students, &fakeDirectory{}, &fakeDirectory{})

	summary, err := svc.Broadcast(context.Background(), dto.BroadcastRequest{Audience: "students", Title: "Holiday", Message: "Closed Friday", Channel: dto.DeliveryInApp})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Queued)
}

func TestMarkReadOnlyOwnNotification(t *testing.T) {
	outbox := newFakeOutbox()
	outbox.notifications["n1"] = models.Notification{ID: "n1", RecipientID: "s1", Channel: models.ChannelInApp}
	svc := newTestNotificationService(outbox, &fakeDispatcher{}, &fakeDirectory{}, &fakeDirectory{}, &fakeDirectory{})

	_, err := svc.MarkRead(context.Background(), "n1", &models.JWTClaims{UserID: "s2", Role: models.RoleStudent})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	n, err := svc.MarkRead(context.Background(), "n1", &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.True(t, n.IsRead)
}

func TestListForRecipientFiltersInApp(t *testing.T) {
	outbox := newFakeOutbox()
	outbox.notifications["n1"] = models.Notification{ID: "n1", RecipientID: "s1", Channel: models.ChannelInApp}
	outbox.notifications["n2"] = models.Notification{ID: "n2", RecipientID: "s1", Channel: models.ChannelEmail}
	outbox.notifications["n3"] = models.Notification{ID: "n3", RecipientID: "s2", Channel: models.ChannelInApp}
	svc := newTestNotificationService(outbox, &fakeDispatcher{}, &fakeDirectory{}, &fakeDirectory{}, &fakeDirectory{})

	items, pagination, err := svc.ListForRecipient(context.Background(), &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n1", items[0].ID)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}

// recordingNotifier captures calls made by services that fan out notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	direct []notifyCall
	admins []notifyCall
	err    error
}

type notifyCall struct {
	Recipients []models.Contact
	Subject    string
	Message    string
	Channels   []models.Channel
}

func (r *recordingNotifier) Notify(ctx context.Context, recipients []models.Contact, subject, message string, channels ...models.Channel) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.direct = append(r.direct, notifyCall{Recipients: recipients, Subject: subject, Message: message, Channels: channels})
	return len(recipients) * len(channels), nil
}

func (r *recordingNotifier) NotifyAdmins(ctx context.Context, subject, message string, channels ...models.Channel) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	r.admins = append(r.admins, notifyCall{Subject: subject, Message: message, Channels: channels})
	return len(channels), nil
}
