package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	"github.com/noah-isme/college-portal-api/pkg/database"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type studentEmailLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
}

type facultyEmailLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.Faculty, error)
}

type studentAccountStore interface {
	studentEmailLookup
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	List(ctx context.Context, filter models.AccountFilter) ([]models.Student, int, error)
}

type facultyAccountStore interface {
	facultyEmailLookup
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	Create(ctx context.Context, faculty *models.Faculty) error
	Update(ctx context.Context, faculty *models.Faculty) error
	List(ctx context.Context, filter models.AccountFilter) ([]models.Faculty, int, error)
}

// AccountService manages student and faculty records on behalf of
// administrators and students editing their own profile.
type AccountService struct {
	admins    authAdminRepository
	students  studentAccountStore
	faculty   facultyAccountStore
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(admins authAdminRepository, students studentAccountStore, faculty facultyAccountStore, notify notifier, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{admins: admins, students: students, faculty: faculty, notifier: notify, validator: validate, logger: logger}
}

// ListStudents pages through students ordered by name.
func (s *AccountService) ListStudents(ctx context.Context, filter models.AccountFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page, size := models.Normalize(filter.Page, filter.PageSize)
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetStudent returns one student. It also serves a student's own profile.
func (s *AccountService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "Student not found", "failed to load student")
	}
	return student, nil
}

// UpdateStudent replaces a student's profile, including the roll number.
func (s *AccountService) UpdateStudent(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	return s.saveProfile(ctx, id, req.ProfileRequest, func(st *models.Student) {
		st.RollNumber = optionalString(req.RollNumber)
	})
}

// UpdateProfile lets a student edit their own profile. The roll number is
// assigned by administrators and kept as is.
func (s *AccountService) UpdateProfile(ctx context.Context, studentID string, req dto.ProfileRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid profile payload")
	}
	return s.saveProfile(ctx, studentID, req, nil)
}

func (s *AccountService) saveProfile(ctx context.Context, id string, req dto.ProfileRequest, extra func(*models.Student)) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "Student not found", "failed to load student")
	}
	student.Name = strings.TrimSpace(req.Name)
	student.Mobile = strings.TrimSpace(req.Mobile)
	if err := applyStudentDetails(student, req.StudentDetails); err != nil {
		return nil, err
	}
	if extra != nil {
		extra(student)
	}
	if err := s.students.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, accountWriteError(err, "failed to update student")
	}
	return student, nil
}

// ListFaculty pages through faculty ordered by name.
func (s *AccountService) ListFaculty(ctx context.Context, filter models.AccountFilter) ([]models.Faculty, *models.Pagination, error) {
	faculty, total, err := s.faculty.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	page, size := models.Normalize(filter.Page, filter.PageSize)
	return faculty, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateFaculty adds an active faculty account and emails its owner.
func (s *AccountService) CreateFaculty(ctx context.Context, req dto.FacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid faculty payload")
	}
	email := normalizeEmail(req.Email)
	if err := ensureEmailFree(ctx, email, s.admins, s.students, s.faculty); err != nil {
		return nil, err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	faculty := &models.Faculty{
		FacultyCode:  strings.TrimSpace(req.FacultyCode),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Mobile:       strings.TrimSpace(req.Mobile),
		PasswordHash: hash,
		Department:   strings.TrimSpace(req.Department),
		Designation:  strings.TrimSpace(req.Designation),
		Active:       true,
	}
	if err := s.faculty.Create(ctx, faculty); err != nil {
		return nil, accountWriteError(err, "failed to create faculty")
	}

	s.logger.Info("faculty account created", zap.String("faculty_id", faculty.ID))
	welcome(ctx, s.notifier, s.logger, models.Contact{ID: faculty.ID, Name: faculty.Name, Email: faculty.Email, Kind: models.RecipientFaculty},
		"Faculty Account Created",
		fmt.Sprintf("Hello %s, your faculty account has been created. You can login with your email and password.", faculty.Name),
		models.ChannelEmail)
	return faculty, nil
}

// UpdateFaculty edits a faculty account. Deactivated faculty cannot log in.
func (s *AccountService) UpdateFaculty(ctx context.Context, id string, req dto.UpdateFacultyRequest) (*models.Faculty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid faculty payload")
	}
	faculty, err := s.faculty.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "Faculty not found", "failed to load faculty")
	}
	faculty.Name = strings.TrimSpace(req.Name)
	faculty.Mobile = strings.TrimSpace(req.Mobile)
	faculty.Department = strings.TrimSpace(req.Department)
	faculty.Designation = strings.TrimSpace(req.Designation)
	if req.Active != nil {
		faculty.Active = *req.Active
	}
	if err := s.faculty.Update(ctx, faculty); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Faculty not found")
		}
		return nil, accountWriteError(err, "failed to update faculty")
	}
	return faculty, nil
}

// ensureEmailFree rejects an address already held by any kind of account,
// since login resolves an email across administrators, students and faculty.
func ensureEmailFree(ctx context.Context, email string, admins authAdminRepository, students studentEmailLookup, faculty facultyEmailLookup) error {
	lookups := []func() error{
		func() error { _, err := admins.FindByEmail(ctx, email); return err },
		func() error { _, err := students.FindByEmail(ctx, email); return err },
		func() error { _, err := faculty.FindByEmail(ctx, email); return err },
	}
	for _, find := range lookups {
		err := find()
		switch {
		case err == nil:
			return appErrors.Clone(appErrors.ErrConflict, "User already exists")
		case !errors.Is(err, sql.ErrNoRows):
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
		}
	}
	return nil
}

func accountWriteError(err error, message string) error {
	if database.IsUniqueViolation(err, "") {
		return appErrors.Clone(appErrors.ErrConflict, "an account with the same email, mobile or code already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func applyStudentDetails(student *models.Student, d dto.StudentDetails) error {
	student.FatherName = strings.TrimSpace(d.FatherName)
	student.MotherName = strings.TrimSpace(d.MotherName)
	student.Address = strings.TrimSpace(d.Address)
	student.City = strings.TrimSpace(d.City)
	student.State = strings.TrimSpace(d.State)
	student.PinCode = strings.TrimSpace(d.PinCode)
	student.Gender = strings.TrimSpace(d.Gender)
	student.Category = strings.TrimSpace(d.Category)
	student.DOB = nil
	if d.DOB != "" {
		dob, err := time.Parse(dateLayout, d.DOB)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "dob must be formatted as YYYY-MM-DD")
		}
		student.DOB = &dob
	}
	return nil
}

func welcome(ctx context.Context, notify notifier, logger *zap.Logger, to models.Contact, subject, message string, channels ...models.Channel) {
	if notify == nil {
		return
	}
	if _, err := notify.Notify(ctx, []models.Contact{to}, subject, message, channels...); err != nil {
		logger.Error("failed to queue welcome notification", zap.String("recipient_id", to.ID), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
