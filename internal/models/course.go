package models

import "time"

// Department groups courses.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Category classifies courses (UG, PG, diploma ...).
type Category struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Course is an offered programme with its fee structure in whole rupees.
type Course struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	DepartmentID    string    `db:"department_id" json:"department_id"`
	CategoryID      string    `db:"category_id" json:"category_id"`
	RegistrationFee int64     `db:"registration_fee" json:"registration_fee"`
	FullFee         int64     `db:"full_fee" json:"full_fee"`
	FormURL         *string   `db:"form_url" json:"form_url,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// FeeFor returns the amount owed for the fee kind.
func (c Course) FeeFor(kind FeeKind) int64 {
	if kind == FeeKindFull {
		return c.FullFee
	}
	return c.RegistrationFee
}

// CourseDetail enriches Course with department and category names.
type CourseDetail struct {
	Course
	DepartmentName string `db:"department_name" json:"department_name"`
	CategoryName   string `db:"category_name" json:"category_name"`
}

// EnrolledCourse is a course in a student's enrolled set.
type EnrolledCourse struct {
	CourseDetail
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
