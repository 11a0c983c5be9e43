package handler

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

type admissionServiceMock struct {
	applyErr  error
	studentID string
	filename  string
	content   []byte
	statusID  string
	status    models.AdmissionStatus
	filter    models.AdmissionFilter
}

func (m *admissionServiceMock) Apply(ctx context.Context, studentID string, req dto.ApplyAdmissionRequest) (*models.Admission, error) {
	m.studentID = studentID
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	return &models.Admission{ID: "adm-app-1", StudentID: studentID, CourseID: req.CourseID, Status: models.AdmissionStatusPending}, nil
}

func (m *admissionServiceMock) ListMine(ctx context.Context, studentID string) ([]models.AdmissionDetail, error) {
	m.studentID = studentID
	return []models.AdmissionDetail{}, nil
}

func (m *admissionServiceMock) ListAll(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionDetail, *models.Pagination, error) {
	m.filter = filter
	return []models.AdmissionDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *admissionServiceMock) UpdateStatus(ctx context.Context, id string, req dto.UpdateAdmissionStatusRequest) (*models.AdmissionDetail, error) {
	m.statusID = id
	m.status = req.Status
	return &models.AdmissionDetail{}, nil
}

func (m *admissionServiceMock) UploadDocument(ctx context.Context, studentID, filename string, r io.Reader) (*models.Document, error) {
	m.studentID = studentID
	m.filename = filename
	m.content, _ = io.ReadAll(r)
	return &models.Document{Name: filename, URL: "/uploads/admissions/" + studentID + "/" + filename}, nil
}

func TestAdmissionHandlerApply(t *testing.T) {
	svc := &admissionServiceMock{}
	body := jsonBody(t, dto.ApplyAdmissionRequest{CourseID: "5d1f8b8e-8f3a-4d8e-9a43-3c1f4b2a6a01"})
	c, w := newContext(http.MethodPost, "/student/admissions", body, studentClaims())

	NewAdmissionHandler(svc).Apply(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "stu-1", svc.studentID)
}

func TestAdmissionHandlerApplyWithoutRegistration(t *testing.T) {
	svc := &admissionServiceMock{applyErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "Please pay the registration fee before applying for admission")}
	body := jsonBody(t, dto.ApplyAdmissionRequest{CourseID: "5d1f8b8e-8f3a-4d8e-9a43-3c1f4b2a6a01"})
	c, w := newContext(http.MethodPost, "/student/admissions", body, studentClaims())

	NewAdmissionHandler(svc).Apply(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Contains(t, w.Body.String(), "Please pay the registration fee")
}

func TestAdmissionHandlerUploadDocument(t *testing.T) {
	svc := &admissionServiceMock{}
	c, w := multipartContext(t, "/student/admissions/documents", "file", "marksheet.pdf", []byte("%PDF"), studentClaims())

	NewAdmissionHandler(svc).UploadDocument(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "marksheet.pdf", svc.filename)
	assert.Equal(t, []byte("%PDF"), svc.content)
	assert.Contains(t, w.Body.String(), "/uploads/admissions/stu-1/marksheet.pdf")
}

func TestAdmissionHandlerUpdateStatus(t *testing.T) {
	svc := &admissionServiceMock{}
	body := jsonBody(t, dto.UpdateAdmissionStatusRequest{Status: models.AdmissionStatusApproved})
	c, w := newContext(http.MethodPut, "/admin/admissions/a-1", body, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}

	NewAdmissionHandler(svc).UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a-1", svc.statusID)
	assert.Equal(t, models.AdmissionStatusApproved, svc.status)
}

func TestAdmissionHandlerListFilters(t *testing.T) {
	svc := &admissionServiceMock{}
	c, w := newContext(http.MethodGet, "/admin/admissions?status=pending&page=3", nil, adminClaims())

	NewAdmissionHandler(svc).List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AdmissionStatusPending, svc.filter.Status)
	assert.Equal(t, 3, svc.filter.Page)
}
