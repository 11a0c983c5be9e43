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

type paymentService interface {
	CreateIntent(ctx context.Context, studentID string, req dto.CreatePaymentRequest) (*dto.PaymentIntent, error)
	Verify(ctx context.Context, req dto.VerifyPaymentRequest) (*models.Payment, error)
	MarkFailed(ctx context.Context, orderID string) (*models.Payment, error)
	History(ctx context.Context, studentID string) ([]models.PaymentDetail, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error)
	Receipt(ctx context.Context, paymentID, studentID string) ([]byte, string, error)
	StudentCourses(ctx context.Context, studentID string) ([]models.EnrolledCourse, error)
	RegisteredCourses(ctx context.Context, studentID string) ([]models.CourseDetail, error)
}

// PaymentHandler exposes fee payment endpoints.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// CreateIntent godoc
// @Summary Start a fee payment
// @Description Creates a gateway order for the registration or full fee of a course
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /student/payments/intent [post]
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	intent, err := h.service.CreateIntent(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, intent)
}

// Verify godoc
// @Summary Confirm a payment
// @Description Verifies the gateway signature and completes the payment
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.VerifyPaymentRequest true "Gateway callback"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /student/payments/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}
	payment, err := h.service.Verify(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// History godoc
// @Summary List my completed payments
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/payments/history [get]
func (h *PaymentHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payments, err := h.service.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Receipt godoc
// @Summary Download a payment receipt
// @Tags Payments
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /student/payments/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	data, filename, err := h.service.Receipt(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, filename, "application/pdf", data)
}

// StudentCourses godoc
// @Summary List my enrolled courses
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/courses [get]
func (h *PaymentHandler) StudentCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courses, err := h.service.StudentCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// RegisteredCourses godoc
// @Summary List courses with a paid registration fee
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/registered-courses [get]
func (h *PaymentHandler) RegisteredCourses(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courses, err := h.service.RegisteredCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Student ID"
// @Param course_id query string false "Course ID"
// @Param status query string false "pending, completed or failed"
// @Param fee_kind query string false "registration or fullFee"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter := models.PaymentFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Status:    models.PaymentStatus(c.Query("status")),
		FeeKind:   models.FeeKind(c.Query("fee_kind")),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	}
	payments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// MarkFailed godoc
// @Summary Mark a pending payment as failed
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Gateway order ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/payments/{orderId}/fail [post]
func (h *PaymentHandler) MarkFailed(c *gin.Context) {
	payment, err := h.service.MarkFailed(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}
