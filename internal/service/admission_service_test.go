package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
	"github.com/noah-isme/college-portal-api/pkg/storage"
)

type fakeAdmissionStore struct {
	items map[string]*models.Admission
}

func (f *fakeAdmissionStore) CreateIfAbsent(ctx context.Context, admission *models.Admission) (bool, error) {
	for _, a := range f.items {
		if a.StudentID == admission.StudentID && a.CourseID == admission.CourseID {
			return false, nil
		}
	}
	admission.ID = "adm-" + admission.StudentID
	cp := *admission
	f.items[admission.ID] = &cp
	return true, nil
}

func (f *fakeAdmissionStore) FindByID(ctx context.Context, id string) (*models.AdmissionDetail, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.AdmissionDetail{Admission: *a, StudentName: "Asha Rao", StudentEmail: "asha@college.test", CourseName: "BSc Physics"}, nil
}

func (f *fakeAdmissionStore) UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus) error {
	a, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	return nil
}

func (f *fakeAdmissionStore) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionDetail, int, error) {
	var out []models.AdmissionDetail
	for _, a := range f.items {
		if filter.StudentID != "" && a.StudentID != filter.StudentID {
			continue
		}
		out = append(out, models.AdmissionDetail{Admission: *a})
	}
	return out, len(out), nil
}

type admissionFixture struct {
	svc      *AdmissionService
	store    *fakeAdmissionStore
	payments *fakePaymentStore
	notifier *recordingNotifier
}

func newAdmissionFixture(t *testing.T) *admissionFixture {
	store := &fakeAdmissionStore{items: map[string]*models.Admission{}}
	payments := newFakePaymentStore()
	courses := &fakeCourses{courses: map[string]models.Course{
		testCourseID: {ID: testCourseID, Name: "BSc Physics", RegistrationFee: 500, FullFee: 5000},
	}}
	students := &fakeStudents{students: map[string]models.Student{
		testStudentID: {ID: testStudentID, Name: "Asha Rao", Email: "asha@college.test"},
	}}
	docs, err := storage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	notify := &recordingNotifier{}
	svc := NewAdmissionService(store, payments, courses, students, docs, notify, nil, nil)
	return &admissionFixture{svc: svc, store: store, payments: payments, notifier: notify}
}

func (f *admissionFixture) payRegistration() {
	_ = f.payments.Create(context.Background(), &models.Payment{
		StudentID: testStudentID, CourseID: testCourseID, FeeKind: models.FeeKindRegistration,
		Status: models.PaymentStatusCompleted, GatewayOrderID: "order_reg",
	})
}

func TestApplyRequiresRegistrationFee(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.svc.Apply(context.Background(), testStudentID, dto.ApplyAdmissionRequest{CourseID: testCourseID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Equal(t, "Please pay the registration fee before applying for admission", appErrors.FromError(err).Message)
	assert.Empty(t, f.store.items)
	assert.Empty(t, f.notifier.direct)
}

func TestApplyCreatesPendingAdmissionAndNotifies(t *testing.T) {
	f := newAdmissionFixture(t)
	f.payRegistration()

	admission, err := f.svc.Apply(context.Background(), testStudentID, dto.ApplyAdmissionRequest{
		CourseID:  testCourseID,
		Documents: []models.Document{{Name: "marksheet.pdf", URL: "/uploads/a/marksheet.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusPending, admission.Status)
	assert.Len(t, admission.Documents, 1)

	require.Len(t, f.notifier.direct, 2)
	assert.Equal(t, "Admission Applied", f.notifier.direct[0].Subject)
	assert.Equal(t, "Your admission application for BSc Physics has been submitted and is under review.", f.notifier.direct[0].Message)
	require.Len(t, f.notifier.admins, 2)
	assert.Equal(t, "Student Asha Rao applied for BSc Physics. Review the application.", f.notifier.admins[0].Message)
}

func TestApplyTwiceConflicts(t *testing.T) {
	f := newAdmissionFixture(t)
	f.payRegistration()
	req := dto.ApplyAdmissionRequest{CourseID: testCourseID}

	_, err := f.svc.Apply(context.Background(), testStudentID, req)
	require.NoError(t, err)
	_, err = f.svc.Apply(context.Background(), testStudentID, req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyApplied))
	assert.Len(t, f.store.items, 1)
}

func TestApplyUnknownCourse(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.svc.Apply(context.Background(), testStudentID, dto.ApplyAdmissionRequest{CourseID: "0d1f8b8e-8f4e-4c43-9a51-0f2f7b1e6a09"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateStatusApprovedAsksForFullFee(t *testing.T) {
	f := newAdmissionFixture(t)
	f.payRegistration()
	admission, err := f.svc.Apply(context.Background(), testStudentID, dto.ApplyAdmissionRequest{CourseID: testCourseID})
	require.NoError(t, err)
	f.notifier.direct = nil

	detail, err := f.svc.UpdateStatus(context.Background(), admission.ID, dto.UpdateAdmissionStatusRequest{Status: models.AdmissionStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusApproved, detail.Status)

	require.Len(t, f.notifier.direct, 2)
	assert.Equal(t, "Admission Update", f.notifier.direct[0].Subject)
	assert.Equal(t, "Your admission for BSc Physics is approved. Please pay the full fee.", f.notifier.direct[0].Message)
	assert.Equal(t, "Admission approved", f.notifier.direct[1].Message)
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), "adm-x", dto.UpdateAdmissionStatusRequest{Status: "waitlisted"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.UpdateStatus(context.Background(), "adm-x", dto.UpdateAdmissionStatusRequest{Status: models.AdmissionStatusRejected})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUploadDocument(t *testing.T) {
	f := newAdmissionFixture(t)

	doc, err := f.svc.UploadDocument(context.Background(), testStudentID, "Mark Sheet.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Mark Sheet.pdf", doc.Name)
	assert.True(t, strings.HasPrefix(doc.URL, "/uploads/admissions/"+testStudentID+"/"))
	assert.True(t, strings.HasSuffix(doc.URL, "-Mark_Sheet.pdf"))

	_, err = f.svc.UploadDocument(context.Background(), testStudentID, "payload.exe", strings.NewReader("MZ"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUploadDocumentWritesFile(t *testing.T) {
	dir := t.TempDir()
	docs, err := storage.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	svc := NewAdmissionService(&fakeAdmissionStore{}, newFakePaymentStore(), &fakeCourses{}, &fakeStudents{}, docs, &recordingNotifier{}, nil, nil)

	doc, err := svc.UploadDocument(context.Background(), "stu-9", "id.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(doc.URL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}
