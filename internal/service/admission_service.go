package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
	"github.com/noah-isme/college-portal-api/pkg/storage"
)

type admissionStore interface {
	CreateIfAbsent(ctx context.Context, admission *models.Admission) (bool, error)
	FindByID(ctx context.Context, id string) (*models.AdmissionDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus) error
	List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionDetail, int, error)
}

type registrationChecker interface {
	HasCompleted(ctx context.Context, studentID, courseID string, kind models.FeeKind) (bool, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type documentStorage interface {
	SaveStream(folder, originalName string, r io.Reader) (*storage.StoredFile, error)
}

var allowedDocumentExt = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}

// AdmissionService manages admission applications.
type AdmissionService struct {
	admissions admissionStore
	payments   registrationChecker
	courses    courseReader
	students   studentReader
	documents  documentStorage
	notifier   notifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAdmissionService constructs the admission service.
func NewAdmissionService(admissions admissionStore, payments registrationChecker, courses courseReader, students studentReader, documents documentStorage, notify notifier, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{
		admissions: admissions,
		payments:   payments,
		courses:    courses,
		students:   students,
		documents:  documents,
		notifier:   notify,
		validator:  validate,
		logger:     logger,
	}
}

// Apply submits an application. The registration fee for the course must be paid
// and a student may apply to a course only once.
func (s *AdmissionService) Apply(ctx context.Context, studentID string, req dto.ApplyAdmissionRequest) (*models.Admission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid admission payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	paid, err := s.payments.HasCompleted(ctx, studentID, course.ID, models.FeeKindRegistration)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration payment")
	}
	if !paid {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "Please pay the registration fee before applying for admission")
	}

	admission := &models.Admission{
		StudentID: studentID,
		CourseID:  course.ID,
		Status:    models.AdmissionStatusPending,
		Documents: models.Documents(req.Documents),
	}
	created, err := s.admissions.CreateIfAbsent(ctx, admission)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit application")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrAlreadyApplied, "")
	}

	s.logger.Info("admission submitted", zap.String("admission_id", admission.ID), zap.String("course_id", course.ID))
	s.notifyApplied(ctx, studentID, course.Name)
	return admission, nil
}

func (s *AdmissionService) notifyApplied(ctx context.Context, studentID, courseName string) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Error("failed to load applicant for notification", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	applicant := []models.Contact{{ID: student.ID, Name: student.Name, Email: student.Email, Kind: models.RecipientStudent}}

	s.enqueue(ctx, applicant, "Admission Applied",
		fmt.Sprintf("Your admission application for %s has been submitted and is under review.", courseName), models.ChannelEmail)
	s.enqueue(ctx, applicant, "Admission Applied",
		fmt.Sprintf("Admission application submitted for %s", courseName), models.ChannelInApp)

	if _, err := s.notifier.NotifyAdmins(ctx, "New Admission Application",
		fmt.Sprintf("Student %s applied for %s. Review the application.", student.Name, courseName), models.ChannelEmail); err != nil {
		s.logger.Error("failed to queue admin admission email", zap.Error(err))
	}
	if _, err := s.notifier.NotifyAdmins(ctx, "New Admission Application",
		fmt.Sprintf("New admission application from %s for %s", student.Name, courseName), models.ChannelInApp); err != nil {
		s.logger.Error("failed to queue admin admission notification", zap.Error(err))
	}
}

func (s *AdmissionService) enqueue(ctx context.Context, to []models.Contact, subject, message string, channel models.Channel) {
	if _, err := s.notifier.Notify(ctx, to, subject, message, channel); err != nil {
		s.logger.Error("failed to queue admission notification", zap.String("channel", string(channel)), zap.Error(err))
	}
}

// ListMine returns the student's applications, newest first.
func (s *AdmissionService) ListMine(ctx context.Context, studentID string) ([]models.AdmissionDetail, error) {
	items, _, err := s.admissions.List(ctx, models.AdmissionFilter{StudentID: studentID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admissions")
	}
	return items, nil
}

// ListAll returns applications for administrators.
func (s *AdmissionService) ListAll(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionDetail, *models.Pagination, error) {
	items, total, err := s.admissions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admissions")
	}
	page, size := models.Normalize(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateStatus records a review decision and informs the student.
func (s *AdmissionService) UpdateStatus(ctx context.Context, id string, req dto.UpdateAdmissionStatusRequest) (*models.AdmissionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid admission status")
	}
	if err := s.admissions.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, notFoundOrInternal(err, "Admission not found", "failed to update admission")
	}
	detail, err := s.admissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Admission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}

	s.logger.Info("admission status updated", zap.String("admission_id", id), zap.String("status", string(req.Status)))

	message := fmt.Sprintf("Your admission for %s is %s.", detail.CourseName, req.Status)
	if req.Status == models.AdmissionStatusApproved {
		message += " Please pay the full fee."
	}
	applicant := []models.Contact{{ID: detail.StudentID, Name: detail.StudentName, Email: detail.StudentEmail, Kind: models.RecipientStudent}}
	s.enqueue(ctx, applicant, "Admission Update", message, models.ChannelEmail)
	s.enqueue(ctx, applicant, "Admission Update", fmt.Sprintf("Admission %s", req.Status), models.ChannelInApp)
	return detail, nil
}

// UploadDocument stores a supporting document for a later application.
func (s *AdmissionService) UploadDocument(ctx context.Context, studentID, filename string, r io.Reader) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedDocumentExt[ext] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "documents must be pdf, jpg or png files")
	}
	stored, err := s.documents.SaveStream("admissions/"+studentID, filename, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	s.logger.Debug("admission document stored", zap.String("student_id", studentID), zap.String("path", stored.Path))
	return &models.Document{Name: filepath.Base(filename), URL: stored.URL}, nil
}
