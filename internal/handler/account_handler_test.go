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

type accountServiceMock struct {
	gotID      string
	filter     models.AccountFilter
	profile    dto.ProfileRequest
	update     dto.UpdateStudentRequest
	facultyReq dto.FacultyRequest
	facultyUpd dto.UpdateFacultyRequest
	err        error
}

func (m *accountServiceMock) ListStudents(ctx context.Context, filter models.AccountFilter) ([]models.Student, *models.Pagination, error) {
	m.filter = filter
	return []models.Student{{ID: "stu-1", Name: "Asha"}}, &models.Pagination{Page: filter.Page, PageSize: 20, TotalCount: 1}, m.err
}

func (m *accountServiceMock) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	return &models.Student{ID: id, Name: "Asha"}, nil
}

func (m *accountServiceMock) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.Student, error) {
	m.gotID, m.update = id, req
	return &models.Student{ID: id, Name: req.Name}, m.err
}

func (m *accountServiceMock) UpdateProfile(ctx context.Context, studentID string, req dto.ProfileRequest) (*models.Student, error) {
	m.gotID, m.profile = studentID, req
	return &models.Student{ID: studentID, Name: req.Name}, m.err
}

func (m *accountServiceMock) ListFaculty(ctx context.Context, filter models.AccountFilter) ([]models.Faculty, *models.Pagination, error) {
	m.filter = filter
	return []models.Faculty{{ID: "fac-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, m.err
}

func (m *accountServiceMock) CreateFaculty(ctx context.Context, req dto.FacultyRequest) (*models.Faculty, error) {
	m.facultyReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Faculty{ID: "fac-2", Email: req.Email, Active: true}, nil
}

func (m *accountServiceMock) UpdateFaculty(ctx context.Context, id string, req dto.UpdateFacultyRequest) (*models.Faculty, error) {
	m.gotID, m.facultyUpd = id, req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Faculty{ID: id, Name: req.Name}, nil
}

func TestAccountHandlerProfileUsesToken(t *testing.T) {
	svc := &accountServiceMock{}
	c, w := newContext(http.MethodGet, "/student/profile", nil, studentClaims())

	NewAccountHandler(svc).Profile(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.gotID)

	c, w = newContext(http.MethodGet, "/student/profile", nil, nil)
	NewAccountHandler(svc).Profile(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountHandlerUpdateProfile(t *testing.T) {
	svc := &accountServiceMock{}
	body := jsonBody(t, dto.ProfileRequest{Name: "Asha K", Mobile: "99", StudentDetails: dto.StudentDetails{State: "MH"}})
	c, w := newContext(http.MethodPut, "/student/profile", body, studentClaims())

	NewAccountHandler(svc).UpdateProfile(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.gotID)
	assert.Equal(t, "MH", svc.profile.State)

	c, w = newContext(http.MethodPut, "/student/profile", strings.NewReader("{"), studentClaims())
	NewAccountHandler(svc).UpdateProfile(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandlerListStudentsQuery(t *testing.T) {
	svc := &accountServiceMock{}
	c, w := newContext(http.MethodGet, "/admin/students?search=asha&page=2&page_size=5", nil, adminClaims())

	NewAccountHandler(svc).ListStudents(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AccountFilter{Search: "asha", Page: 2, PageSize: 5}, svc.filter)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestAccountHandlerGetStudentNotFound(t *testing.T) {
	svc := &accountServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "Student not found")}
	c, w := newContext(http.MethodGet, "/admin/students/nope", nil, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	NewAccountHandler(svc).GetStudent(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "nope", svc.gotID)
}

func TestAccountHandlerUpdateStudent(t *testing.T) {
	svc := &accountServiceMock{}
	roll := "CS-7"
	body := jsonBody(t, dto.UpdateStudentRequest{ProfileRequest: dto.ProfileRequest{Name: "Asha", Mobile: "1"}, RollNumber: &roll})
	c, w := newContext(http.MethodPut, "/admin/students/stu-1", body, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	NewAccountHandler(svc).UpdateStudent(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.update.RollNumber)
	assert.Equal(t, "CS-7", *svc.update.RollNumber)
}

func TestAccountHandlerCreateFaculty(t *testing.T) {
	svc := &accountServiceMock{}
	body := jsonBody(t, dto.FacultyRequest{FacultyCode: "F-1", Name: "Prof", Email: "prof@example.com", Mobile: "1", Password: "longenough", Department: "CS", Designation: "Lecturer"})
	c, w := newContext(http.MethodPost, "/admin/faculty", body, adminClaims())

	NewAccountHandler(svc).CreateFaculty(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "F-1", svc.facultyReq.FacultyCode)
	assert.NotContains(t, w.Body.String(), "longenough")
}

func TestAccountHandlerCreateFacultyConflict(t *testing.T) {
	svc := &accountServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "User already exists")}
	c, w := newContext(http.MethodPost, "/admin/faculty", jsonBody(t, dto.FacultyRequest{Email: "prof@example.com"}), adminClaims())

	NewAccountHandler(svc).CreateFaculty(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAccountHandlerUpdateFaculty(t *testing.T) {
	svc := &accountServiceMock{}
	active := false
	body := jsonBody(t, dto.UpdateFacultyRequest{Name: "Prof", Mobile: "1", Department: "CS", Designation: "HOD", Active: &active})
	c, w := newContext(http.MethodPut, "/admin/faculty/fac-1", body, adminClaims())
	c.Params = gin.Params{{Key: "id", Value: "fac-1"}}

	NewAccountHandler(svc).UpdateFaculty(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fac-1", svc.gotID)
	require.NotNil(t, svc.facultyUpd.Active)
	assert.False(t, *svc.facultyUpd.Active)
}
