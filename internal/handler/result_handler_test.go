package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

type resultServiceMock struct {
	ingested  []byte
	uploader  string
	updatedID string
	deletedID string
	deleteErr error
	filter    models.ResultFilter
	format    string
	studentID string
}

func (m *resultServiceMock) Ingest(ctx context.Context, data []byte, uploaderID string) (*dto.IngestReport, error) {
	m.ingested = data
	m.uploader = uploaderID
	return &dto.IngestReport{TotalProcessed: 2, SuccessCount: 1, ErrorCount: 1, Errors: []string{"Row 3: Student \"Ghost\" not found"}}, nil
}

func (m *resultServiceMock) UpsertSingle(ctx context.Context, req dto.UpsertResultRequest, uploaderID string) (*models.Result, error) {
	m.uploader = uploaderID
	return &models.Result{ID: "res-1", StudentID: req.StudentID, CourseID: req.CourseID, Semester: req.Semester}, nil
}

func (m *resultServiceMock) Update(ctx context.Context, id string, req dto.UpdateResultRequest) (*models.Result, error) {
	m.updatedID = id
	return &models.Result{ID: id}, nil
}

func (m *resultServiceMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return m.deleteErr
}

func (m *resultServiceMock) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, *models.Pagination, error) {
	m.filter = filter
	return []models.ResultDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *resultServiceMock) StudentResults(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	m.studentID = studentID
	return []models.ResultDetail{}, nil
}

func (m *resultServiceMock) Template() ([]byte, error) {
	return []byte("PK"), nil
}

func (m *resultServiceMock) Export(ctx context.Context, filter models.ResultFilter, format string) ([]byte, string, error) {
	m.filter = filter
	m.format = format
	if format != "csv" && format != "xlsx" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or xlsx")
	}
	return []byte("student_name,course_title,semester,marks,grade\n"), "text/csv", nil
}

func TestResultHandlerUploadPassesWorkbook(t *testing.T) {
	svc := &resultServiceMock{}
	c, w := multipartContext(t, "/admin/results/upload", "file", "results.xlsx", []byte("workbook-bytes"), adminClaims())

	NewResultHandler(svc, 1024).Upload(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("workbook-bytes"), svc.ingested)
	assert.Equal(t, "adm-1", svc.uploader)
	assert.Contains(t, w.Body.String(), `"error_count":1`)
}

func TestResultHandlerUploadRejectsOversizedFile(t *testing.T) {
	svc := &resultServiceMock{}
	c, w := multipartContext(t, "/admin/results/upload", "file", "results.xlsx", []byte(strings.Repeat("x", 64)), adminClaims())

	NewResultHandler(svc, 16).Upload(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.ingested)
	assert.Contains(t, w.Body.String(), "file too large")
}

func TestResultHandlerUploadWithoutFile(t *testing.T) {
	c, w := multipartContext(t, "/admin/results/upload", "other", "results.xlsx", []byte("data"), adminClaims())

	NewResultHandler(&resultServiceMock{}, 1024).Upload(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No file uploaded")
}

func TestResultHandlerUpsertUsesCaller(t *testing.T) {
	svc := &resultServiceMock{}
	marks := 72.5
	body := jsonBody(t, dto.UpsertResultRequest{StudentID: "5d1f8b8e-8f3a-4d8e-9a43-3c1f4b2a6a02", CourseID: "5d1f8b8e-8f3a-4d8e-9a43-3c1f4b2a6a01", Semester: "2", Marks: &marks})
	c, w := newContext(http.MethodPost, "/admin/results", body, adminClaims())

	NewResultHandler(svc, 0).Upsert(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "adm-1", svc.uploader)
}

func TestResultHandlerUpdateAndDelete(t *testing.T) {
	svc := &resultServiceMock{}
	marks := 40.0
	c, w := newContext(http.MethodPut, "/admin/results/res-1", jsonBody(t, dto.UpdateResultRequest{Marks: &marks}), adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "res-1"}}
	NewResultHandler(svc, 0).Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "res-1", svc.updatedID)

	svc.deleteErr = appErrors.Clone(appErrors.ErrNotFound, "Result not found")
	c, w = newContext(http.MethodDelete, "/admin/results/res-2", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "res-2"}}
	NewResultHandler(svc, 0).Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "res-2", svc.deletedID)
}

func TestResultHandlerExport(t *testing.T) {
	svc := &resultServiceMock{}
	c, w := newContext(http.MethodGet, "/admin/results/export?course_id=c-1&semester=3", nil, adminClaims())

	NewResultHandler(svc, 0).Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "c-1", svc.filter.CourseID)
	assert.Equal(t, "3", svc.filter.Semester)
	assert.Equal(t, "attachment; filename=results.csv", w.Header().Get("Content-Disposition"))

	c, w = newContext(http.MethodGet, "/admin/results/export?format=pdf", nil, adminClaims())
	NewResultHandler(svc, 0).Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultHandlerTemplateAndMine(t *testing.T) {
	svc := &resultServiceMock{}
	c, w := newContext(http.MethodGet, "/admin/results/template", nil, adminClaims())
	NewResultHandler(svc, 0).Template(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	c, w = newContext(http.MethodGet, "/student/results", nil, studentClaims())
	NewResultHandler(svc, 0).Mine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.studentID)
}
