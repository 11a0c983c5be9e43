package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	"github.com/noah-isme/college-portal-api/pkg/database"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
)

const (
	courseCatalogKey     = "courses:all"
	courseCachePattern   = "courses:*"
	departmentCatalogKey = "courses:departments"
	categoryCatalogKey   = "courses:categories"
)

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context) ([]models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	CreateDepartment(ctx context.Context, dept *models.Department) error
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateCategory(ctx context.Context, cat *models.Category) error
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string)
}

// CourseService serves the course catalog with optional caching.
type CourseService struct {
	courses   courseStore
	cache     catalogCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the catalog service. cache may be nil.
func NewCourseService(courses courseStore, cache catalogCache, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, cache: cache, validator: validate, logger: logger}
}

// List returns every course with department and category names.
func (s *CourseService) List(ctx context.Context) ([]models.CourseDetail, error) {
	var cached []models.CourseDetail
	if s.cache != nil && s.cache.Get(ctx, courseCatalogKey, &cached) {
		return cached, nil
	}
	items, err := s.courses.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if items == nil {
		items = []models.CourseDetail{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, courseCatalogKey, items, 0)
	}
	return items, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, req dto.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	course := courseFromRequest(req)
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, catalogWriteError(err, "failed to create course")
	}
	s.invalidate(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("name", course.Name))
	return course, nil
}

// Update replaces a course's details and fee structure.
func (s *CourseService) Update(ctx context.Context, id string, req dto.CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	course := courseFromRequest(req)
	course.ID = id
	if err := s.courses.Update(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, catalogWriteError(err, "failed to update course")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// ListDepartments returns every department.
func (s *CourseService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var cached []models.Department
	if s.cache != nil && s.cache.Get(ctx, departmentCatalogKey, &cached) {
		return cached, nil
	}
	items, err := s.courses.ListDepartments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	if s.cache != nil {
		s.cache.Set(ctx, departmentCatalogKey, items, 0)
	}
	return items, nil
}

// CreateDepartment adds a department.
func (s *CourseService) CreateDepartment(ctx context.Context, req dto.NamedRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid department payload")
	}
	dept := &models.Department{Name: req.Name}
	if err := s.courses.CreateDepartment(ctx, dept); err != nil {
		return nil, catalogWriteError(err, "failed to create department")
	}
	s.invalidate(ctx)
	return dept, nil
}

// ListCategories returns every category.
func (s *CourseService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if s.cache != nil && s.cache.Get(ctx, categoryCatalogKey, &cached) {
		return cached, nil
	}
	items, err := s.courses.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	if s.cache != nil {
		s.cache.Set(ctx, categoryCatalogKey, items, 0)
	}
	return items, nil
}

// CreateCategory adds a category.
func (s *CourseService) CreateCategory(ctx context.Context, req dto.NamedRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid category payload")
	}
	cat := &models.Category{Name: req.Name}
	if err := s.courses.CreateCategory(ctx, cat); err != nil {
		return nil, catalogWriteError(err, "failed to create category")
	}
	s.invalidate(ctx)
	return cat, nil
}

func (s *CourseService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, courseCachePattern)
	}
}

func courseFromRequest(req dto.CourseRequest) *models.Course {
	return &models.Course{
		Name:            req.Name,
		DepartmentID:    req.DepartmentID,
		CategoryID:      req.CategoryID,
		RegistrationFee: req.RegistrationFee,
		FullFee:         req.FullFee,
		FormURL:         req.FormURL,
	}
}

func catalogWriteError(err error, message string) error {
	switch {
	case database.IsUniqueViolation(err, ""):
		return appErrors.Clone(appErrors.ErrConflict, "name already exists")
	case database.IsForeignKeyViolation(err):
		return appErrors.Clone(appErrors.ErrValidation, "department or category does not exist")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
