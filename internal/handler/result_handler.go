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

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type resultService interface {
	Ingest(ctx context.Context, data []byte, uploaderID string) (*dto.IngestReport, error)
	UpsertSingle(ctx context.Context, req dto.UpsertResultRequest, uploaderID string) (*models.Result, error)
	Update(ctx context.Context, id string, req dto.UpdateResultRequest) (*models.Result, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, *models.Pagination, error)
	StudentResults(ctx context.Context, studentID string) ([]models.ResultDetail, error)
	Template() ([]byte, error)
	Export(ctx context.Context, filter models.ResultFilter, format string) ([]byte, string, error)
}

// ResultHandler exposes exam result endpoints.
type ResultHandler struct {
	service   resultService
	maxUpload int64
}

// NewResultHandler constructs a result handler. Uploads above maxUpload bytes are rejected.
func NewResultHandler(svc resultService, maxUpload int64) *ResultHandler {
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	return &ResultHandler{service: svc, maxUpload: maxUpload}
}

// Upload godoc
// @Summary Upload a results spreadsheet
// @Description Ingests an xlsx workbook row by row. Valid rows are saved even when other rows fail.
// @Tags Results
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Results workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/results/upload [post]
func (h *ResultHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	data, _, err := readUpload(c, "file", h.maxUpload)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.Ingest(c.Request.Context(), data, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Upsert godoc
// @Summary Create or replace a single result
// @Tags Results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpsertResultRequest true "Result payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/results [post]
func (h *ResultHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpsertResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid result payload"))
		return
	}
	result, err := h.service.UpsertSingle(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Update result marks
// @Tags Results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Result ID"
// @Param payload body dto.UpdateResultRequest true "Marks"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/results/{id} [put]
func (h *ResultHandler) Update(c *gin.Context) {
	var req dto.UpdateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid result payload"))
		return
	}
	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a result
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param id path string true "Result ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Result deleted successfully"}, nil)
}

// List godoc
// @Summary List results
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Student ID"
// @Param course_id query string false "Course ID"
// @Param semester query string false "Semester"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/results [get]
func (h *ResultHandler) List(c *gin.Context) {
	items, pagination, err := h.service.List(c.Request.Context(), resultFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Template godoc
// @Summary Download the upload template
// @Tags Results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary
// @Router /admin/results/template [get]
func (h *ResultHandler) Template(c *gin.Context) {
	data, err := h.service.Template()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, "results_template.xlsx", xlsxContentType, data)
}

// Export godoc
// @Summary Export results
// @Tags Results
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "csv or xlsx"
// @Param course_id query string false "Course ID"
// @Param semester query string false "Semester"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/results/export [get]
func (h *ResultHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	data, contentType, err := h.service.Export(c.Request.Context(), resultFilter(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, "results."+format, contentType, data)
}

// Mine godoc
// @Summary List my results
// @Tags Results
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/results [get]
func (h *ResultHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.StudentResults(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

func resultFilter(c *gin.Context) models.ResultFilter {
	return models.ResultFilter{
		StudentID: c.Query("student_id"),
		CourseID:  c.Query("course_id"),
		Semester:  c.Query("semester"),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", 20),
	}
}
