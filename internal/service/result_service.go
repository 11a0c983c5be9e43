package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/college-portal-api/internal/dto"
	"github.com/noah-isme/college-portal-api/internal/models"
	appErrors "github.com/noah-isme/college-portal-api/pkg/errors"
	"github.com/noah-isme/college-portal-api/pkg/export"
	applog "github.com/noah-isme/college-portal-api/pkg/logger"
)

type resultStore interface {
	Upsert(ctx context.Context, result *models.Result) (*models.Result, error)
	FindByID(ctx context.Context, id string) (*models.Result, error)
	UpdateMarks(ctx context.Context, id string, marks float64, grade string) (*models.Result, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, int, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByName(ctx context.Context, name string) (*models.Student, error)
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByName(ctx context.Context, name string) (*models.Course, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var resultColumns = []string{ColumnStudentName, ColumnCourseTitle, ColumnSemester, ColumnMarks}

// rowError is a per-row ingestion failure reported back to the uploader verbatim.
type rowError string

func (e rowError) Error() string { return string(e) }

func rowErrorf(format string, args ...interface{}) error {
	return rowError(fmt.Sprintf(format, args...))
}

// ResultService ingests and manages student results.
type ResultService struct {
	results   resultStore
	students  studentLookup
	courses   courseLookup
	csv       datasetRenderer
	xlsx      datasetRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs the result service.
func NewResultService(results resultStore, students studentLookup, courses courseLookup, csv, xlsx datasetRenderer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{results: results, students: students, courses: courses, csv: csv, xlsx: xlsx, metrics: metrics, validator: validate, logger: logger}
}

// Ingest processes every row of an uploaded workbook. Rows are handled in
// order and independently; a failing row never undoes earlier rows.
func (s *ResultService) Ingest(ctx context.Context, data []byte, uploaderID string) (*dto.IngestReport, error) {
	rows, err := export.ReadFirstSheet(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid spreadsheet")
	}

	report := &dto.IngestReport{Results: []models.Result{}, Errors: []string{}}
	for _, raw := range rows {
		result, err := s.ingestRow(ctx, NormalizeRow(raw), uploaderID)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			s.metrics.RecordResultRow("error")
			continue
		}
		report.Results = append(report.Results, *result)
		s.metrics.RecordResultRow("success")
	}
	report.TotalProcessed = len(rows)
	report.SuccessCount = len(report.Results)
	report.ErrorCount = len(report.Errors)

	applog.WithContext(ctx, s.logger).Info("results spreadsheet ingested",
		zap.String("uploaded_by", uploaderID),
		zap.Int("rows", report.TotalProcessed),
		zap.Int("succeeded", report.SuccessCount),
		zap.Int("failed", report.ErrorCount),
	)
	return report, nil
}

func (s *ResultService) ingestRow(ctx context.Context, row map[string]string, uploaderID string) (*models.Result, error) {
	name := row[ColumnStudentName]
	title := row[ColumnCourseTitle]
	semRaw := row[ColumnSemester]
	marksRaw := row[ColumnMarks]
	if name == "" || title == "" || semRaw == "" || marksRaw == "" {
		encoded, _ := json.Marshal(row)
		return nil, rowErrorf("Missing required fields in row: %s", encoded)
	}

	student, err := s.students.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rowErrorf("Student not found with name: %s", name)
		}
		return nil, rowErrorf("Error processing row for student %s: %v", name, err)
	}
	course, err := s.courses.FindByName(ctx, title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rowErrorf("Course not found with name: %s", title)
		}
		return nil, rowErrorf("Error processing row for student %s: %v", name, err)
	}
	semester, ok := parseSemester(semRaw)
	if !ok {
		return nil, rowErrorf("Invalid semester value for student %s: %s", name, semRaw)
	}
	marks, ok := parseMarks(marksRaw)
	if !ok {
		return nil, rowErrorf("Invalid marks value for student %s: %s", name, marksRaw)
	}

	uploader := uploaderID
	saved, err := s.results.Upsert(ctx, &models.Result{
		StudentID:  student.ID,
		CourseID:   course.ID,
		Semester:   strconv.Itoa(semester),
		Marks:      marks,
		Grade:      GradeFor(marks),
		UploadedBy: &uploader,
	})
	if err != nil {
		return nil, rowErrorf("Error processing row for student %s: %v", name, err)
	}
	return saved, nil
}

// UpsertSingle creates or replaces one result keyed by student, course and semester.
func (s *ResultService) UpsertSingle(ctx context.Context, req dto.UpsertResultRequest, uploaderID string) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid result payload")
	}
	semester, ok := parseSemester(req.Semester)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must be between 1 and 8")
	}
	marks := roundMarks(*req.Marks)
	if !validMarks(marks) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "marks must be between 0 and 100")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, notFoundOrInternal(err, "student not found", "failed to load student")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}

	uploader := uploaderID
	saved, err := s.results.Upsert(ctx, &models.Result{
		StudentID:  req.StudentID,
		CourseID:   req.CourseID,
		Semester:   strconv.Itoa(semester),
		Marks:      marks,
		Grade:      GradeFor(marks),
		UploadedBy: &uploader,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save result")
	}
	return saved, nil
}

// Update changes the marks of a result and recomputes its grade.
func (s *ResultService) Update(ctx context.Context, id string, req dto.UpdateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "marks are required")
	}
	marks := roundMarks(*req.Marks)
	if !validMarks(marks) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "marks must be between 0 and 100")
	}
	updated, err := s.results.UpdateMarks(ctx, id, marks, GradeFor(marks))
	if err != nil {
		return nil, notFoundOrInternal(err, "result not found", "failed to update result")
	}
	return updated, nil
}

// Delete removes a result.
func (s *ResultService) Delete(ctx context.Context, id string) error {
	if err := s.results.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "result not found", "failed to delete result")
	}
	return nil
}

// List returns results matching filter.
func (s *ResultService) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, *models.Pagination, error) {
	items, total, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	page, size := models.Normalize(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// StudentResults returns every result of one student.
func (s *ResultService) StudentResults(ctx context.Context, studentID string) ([]models.ResultDetail, error) {
	items, _, err := s.results.List(ctx, models.ResultFilter{StudentID: studentID, Page: -1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}
	return items, nil
}

// Template renders the upload template workbook with an instruction row and an example row.
func (s *ResultService) Template() ([]byte, error) {
	data, err := s.xlsx.Render(export.Dataset{
		Headers: resultColumns,
		Rows: []map[string]string{
			{ColumnStudentName: "Student Full Name", ColumnCourseTitle: "Course Name", ColumnSemester: "Semester Number (1-8)", ColumnMarks: "Marks (0-100)"},
			{ColumnStudentName: "John Doe", ColumnCourseTitle: "Computer Science", ColumnSemester: "1", ColumnMarks: "85"},
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render template")
	}
	return data, nil
}

// Export renders all results matching filter as CSV or XLSX.
func (s *ResultService) Export(ctx context.Context, filter models.ResultFilter, format string) ([]byte, string, error) {
	renderer := s.csv
	contentType := "text/csv"
	switch format {
	case "", FormatCSV:
	case FormatXLSX:
		renderer = s.xlsx
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or xlsx")
	}

	filter.Page = -1
	items, _, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load results")
	}

	dataset := export.Dataset{Headers: append(append([]string{}, resultColumns...), "grade"), Rows: make([]map[string]string, 0, len(items))}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, map[string]string{
			ColumnStudentName: item.StudentName,
			ColumnCourseTitle: item.CourseName,
			ColumnSemester:    item.Semester,
			ColumnMarks:       strconv.FormatFloat(item.Marks, 'f', -1, 64),
			"grade":           item.Grade,
		})
	}
	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return data, contentType, nil
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
