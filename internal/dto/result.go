package dto

import "github.com/noah-isme/college-portal-api/internal/models"

// IngestReport summarises a spreadsheet upload. Successful rows stay written
// even when later rows fail.
type IngestReport struct {
	Results        []models.Result `json:"results"`
	Errors         []string        `json:"errors"`
	TotalProcessed int             `json:"total_processed"`
	SuccessCount   int             `json:"success_count"`
	ErrorCount     int             `json:"error_count"`
}

// UpsertResultRequest creates or replaces a single result.
type UpsertResultRequest struct {
	StudentID string   `json:"student_id" validate:"required,uuid"`
	CourseID  string   `json:"course_id" validate:"required,uuid"`
	Semester  string   `json:"semester" validate:"required"`
	Marks     *float64 `json:"marks" validate:"required"`
}

// UpdateResultRequest changes the marks of an existing result. The grade is recomputed.
type UpdateResultRequest struct {
	Marks *float64 `json:"marks" validate:"required"`
}
