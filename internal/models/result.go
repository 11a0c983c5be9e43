package models

import "time"

// Result is a student's marks for one course semester.
type Result struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	Semester   string    `db:"semester" json:"semester"`
	Marks      float64   `db:"marks" json:"marks"`
	Grade      string    `db:"grade" json:"grade"`
	UploadedBy *string   `db:"uploaded_by" json:"uploaded_by,omitempty"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ResultDetail enriches Result with student and course names.
type ResultDetail struct {
	Result
	StudentName string `db:"student_name" json:"student_name"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// ResultFilter captures filtering criteria for listing results.
type ResultFilter struct {
	StudentID string
	CourseID  string
	Semester  string
	Page      int
	PageSize  int
}
