package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AdmissionStatus is the review state of an application.
type AdmissionStatus string

const (
	AdmissionStatusPending  AdmissionStatus = "pending"
	AdmissionStatusApproved AdmissionStatus = "approved"
	AdmissionStatusRejected AdmissionStatus = "rejected"
)

// Document is a supporting file attached to an application.
type Document struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required"`
}

// Documents is persisted as a JSONB array.
type Documents []Document

// Value marshals documents to JSON for persistence.
func (d Documents) Value() (driver.Value, error) {
	if d == nil {
		d = Documents{}
	}
	data, err := json.Marshal([]Document(d))
	if err != nil {
		return nil, fmt.Errorf("marshal admission documents: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON array into documents.
func (d *Documents) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*d = Documents{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for Documents", value)
	}
	out := Documents{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("unmarshal admission documents: %w", err)
		}
	}
	*d = out
	return nil
}

// Admission is a student's application to a course.
type Admission struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	CourseID  string          `db:"course_id" json:"course_id"`
	Status    AdmissionStatus `db:"status" json:"status"`
	Documents Documents       `db:"documents" json:"documents"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// AdmissionDetail enriches Admission with student and course names.
type AdmissionDetail struct {
	Admission
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	CourseName   string `db:"course_name" json:"course_name"`
}

// AdmissionFilter captures filtering criteria for listing admissions.
type AdmissionFilter struct {
	StudentID string
	CourseID  string
	Status    AdmissionStatus
	Page      int
	PageSize  int
}
