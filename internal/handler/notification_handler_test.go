package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

type notificationServiceMock struct {
	sent      dto.SendNotificationRequest
	broadcast dto.BroadcastRequest
	claims    *models.JWTClaims
	readID    string
	readErr   error
	page      int
}

func (m *notificationServiceMock) Send(ctx context.Context, req dto.SendNotificationRequest) (*dto.DispatchSummary, error) {
	m.sent = req
	return &dto.DispatchSummary{Recipients: len(req.RecipientIDs), Queued: len(req.RecipientIDs)}, nil
}

func (m *notificationServiceMock) Broadcast(ctx context.Context, req dto.BroadcastRequest) (*dto.DispatchSummary, error) {
	m.broadcast = req
	return &dto.DispatchSummary{Recipients: 3, Queued: 6}, nil
}

func (m *notificationServiceMock) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	return []models.Notification{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *notificationServiceMock) ListForRecipient(ctx context.Context, claims *models.JWTClaims, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	m.claims = claims
	m.page = page
	return []models.Notification{}, &models.Pagination{Page: page, PageSize: pageSize}, nil
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, id string, claims *models.JWTClaims) (*models.Notification, error) {
	m.readID = id
	m.claims = claims
	if m.readErr != nil {
		return nil, m.readErr
	}
	return &models.Notification{ID: id, IsRead: true}, nil
}

func TestNotificationHandlerSendAccepted(t *testing.T) {
	svc := &notificationServiceMock{}
	body := jsonBody(t, dto.SendNotificationRequest{
		RecipientIDs:  []string{"5d1f8b8e-8f3a-4d8e-9a43-3c1f4b2a6a02"},
		RecipientKind: models.RecipientStudent,
		Title:         "Exam",
		Message:       "Exam schedule published",
		Channel:       dto.DeliveryBoth,
	})
	c, w := newContext(http.MethodPost, "/admin/notifications", body, adminClaims())

	NewNotificationHandler(svc).Send(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "Exam", svc.sent.Title)
	assert.Contains(t, w.Body.String(), `"queued":1`)
}

func TestNotificationHandlerBroadcastInvalidBody(t *testing.T) {
	c, w := newContext(http.MethodPost, "/admin/notifications/broadcast", nil, adminClaims())
	NewNotificationHandler(&notificationServiceMock{}).Broadcast(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandlerMineUsesCaller(t *testing.T) {
	svc := &notificationServiceMock{}
	c, w := newContext(http.MethodGet, "/student/notifications?page=2", nil, studentClaims())

	NewNotificationHandler(svc).Mine(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.claims)
	assert.Equal(t, "stu-1", svc.claims.UserID)
	assert.Equal(t, 2, svc.page)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	svc := &notificationServiceMock{}
	c, w := newContext(http.MethodPut, "/student/notifications/n-1", nil, studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	NewNotificationHandler(svc).MarkRead(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "n-1", svc.readID)

	svc.readErr = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	c, w = newContext(http.MethodPut, "/student/notifications/n-2", nil, studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "n-2"}}
	NewNotificationHandler(svc).MarkRead(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
