package models

import "time"

// Student is a learner account. Name lookups used by result ingestion are case-insensitive.
type Student struct {
	ID           string     `db:"id" json:"id"`
	RollNumber   *string    `db:"roll_number" json:"roll_number,omitempty"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	Mobile       string     `db:"mobile" json:"mobile"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FatherName   string     `db:"father_name" json:"father_name"`
	MotherName   string     `db:"mother_name" json:"mother_name"`
	Address      string     `db:"address" json:"address"`
	City         string     `db:"city" json:"city"`
	State        string     `db:"state" json:"state"`
	PinCode      string     `db:"pin_code" json:"pin_code"`
	DOB          *time.Time `db:"dob" json:"dob,omitempty"`
	Gender       string     `db:"gender" json:"gender"`
	Category     string     `db:"category" json:"category"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Faculty is a teaching staff account.
type Faculty struct {
	ID           string    `db:"id" json:"id"`
	FacultyCode  string    `db:"faculty_code" json:"faculty_code"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Mobile       string    `db:"mobile" json:"mobile"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Department   string    `db:"department" json:"department"`
	Designation  string    `db:"designation" json:"designation"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Contact is the minimal addressing information used for notifications.
type Contact struct {
	ID    string        `db:"id" json:"id"`
	Name  string        `db:"name" json:"name"`
	Email string        `db:"email" json:"email"`
	Kind  RecipientKind `db:"-" json:"kind"`
}

// AccountFilter pages through student or faculty accounts. Search matches
// name, email or code.
type AccountFilter struct {
	Search   string
	Page     int
	PageSize int
}
