package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
	"github.com/noah-isme/college-portal-api/pkg/response"
)

type notificationService interface {
	Send(ctx context.Context, req dto.SendNotificationRequest) (*dto.DispatchSummary, error)
	Broadcast(ctx context.Context, req dto.BroadcastRequest) (*dto.DispatchSummary, error)
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error)
	ListForRecipient(ctx context.Context, claims *models.JWTClaims, page, pageSize int) ([]models.Notification, *models.Pagination, error)
	MarkRead(ctx context.Context, id string, claims *models.JWTClaims) (*models.Notification, error)
}

// NotificationHandler exposes notification endpoints.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(svc notificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// Send godoc
// @Summary Notify specific recipients
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SendNotificationRequest true "Notification"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/notifications [post]
func (h *NotificationHandler) Send(c *gin.Context) {
	var req dto.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notification payload"))
		return
	}
	summary, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, summary)
}

// Broadcast godoc
// @Summary Notify all students or all faculty
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BroadcastRequest true "Broadcast"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req dto.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid broadcast payload"))
		return
	}
	summary, err := h.service.Broadcast(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, summary)
}

// List godoc
// @Summary List delivered notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param recipient_id query string false "Recipient ID"
// @Param recipient_kind query string false "student, faculty or admin"
// @Param channel query string false "email or in-app"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	filter := models.NotificationFilter{
		RecipientID:   c.Query("recipient_id"),
		RecipientKind: models.RecipientKind(c.Query("recipient_kind")),
		Channel:       models.Channel(c.Query("channel")),
		Page:          parseQueryInt(c, "page", 1),
		PageSize:      parseQueryInt(c, "page_size", 20),
	}
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Mine godoc
// @Summary List my in-app notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /student/notifications [get]
func (h *NotificationHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, pagination, err := h.service.ListForRecipient(c.Request.Context(), claims, parseQueryInt(c, "page", 1), parseQueryInt(c, "page_size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/notifications/{id} [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
