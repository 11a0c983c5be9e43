package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
	"github.com/noah-isme/college-portal-api/pkg/response"
)

const maxDocumentBytes = 10 * 1024 * 1024

type admissionService interface {
	Apply(ctx context.Context, studentID string, req dto.ApplyAdmissionRequest) (*models.Admission, error)
	ListMine(ctx context.Context, studentID string) ([]models.AdmissionDetail, error)
	ListAll(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionDetail, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateAdmissionStatusRequest) (*models.AdmissionDetail, error)
	UploadDocument(ctx context.Context, studentID, filename string, r io.Reader) (*models.Document, error)
}

// AdmissionHandler exposes admission application endpoints.
type AdmissionHandler struct {
	service admissionService
}

// NewAdmissionHandler constructs an admission handler.
func NewAdmissionHandler(svc admissionService) *AdmissionHandler {
	return &AdmissionHandler{service: svc}
}

// Apply godoc
// @Summary Apply for admission
// @Description Requires a completed registration fee payment for the course
// @Tags Admissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ApplyAdmissionRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /student/admissions [post]
func (h *AdmissionHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApplyAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid admission payload"))
		return
	}
	admission, err := h.service.Apply(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admission)
}

// Mine godoc
// @Summary List my admissions
// @Tags Admissions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/admissions [get]
func (h *AdmissionHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// UploadDocument godoc
// @Summary Upload an admission document
// @Tags Admissions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "PDF, JPG or PNG document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student/admissions/documents [post]
func (h *AdmissionHandler) UploadDocument(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	data, header, err := readUpload(c, "file", maxDocumentBytes)
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.service.UploadDocument(c.Request.Context(), claims.UserID, header.Filename, bytes.NewReader(data))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List admissions
// @Tags Admissions
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param course_id query string false "Course ID"
// @Param student_id query string false "Student ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/admissions [get]
func (h *AdmissionHandler) List(c *gin.Context) {
	filter := models.AdmissionFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Status:    models.AdmissionStatus(c.Query("status")),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	}
	items, pagination, err := h.service.ListAll(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// UpdateStatus godoc
// @Summary Review an admission
// @Tags Admissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admission ID"
// @Param payload body dto.UpdateAdmissionStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/admissions/{id} [put]
func (h *AdmissionHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateAdmissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	detail, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
