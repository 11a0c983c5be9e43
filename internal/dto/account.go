package dto

// StudentDetails are the optional personal fields of a student profile.
type StudentDetails struct {
	FatherName string `json:"father_name" validate:"omitempty,max=255"`
	MotherName string `json:"mother_name" validate:"omitempty,max=255"`
	Address    string `json:"address" validate:"omitempty,max=1000"`
	City       string `json:"city" validate:"omitempty,max=128"`
	State      string `json:"state" validate:"omitempty,max=128"`
	PinCode    string `json:"pin_code" validate:"omitempty,max=16"`
	DOB        string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Gender     string `json:"gender" validate:"omitempty,max=16"`
	Category   string `json:"category" validate:"omitempty,max=64"`
}

// RegisterRequest signs up a student, or a faculty member when role is "faculty".
type RegisterRequest struct {
	Role        string  `json:"role" validate:"omitempty,oneof=student faculty"`
	Name        string  `json:"name" validate:"required,max=255"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	Mobile      string  `json:"mobile" validate:"required,max=32"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	RollNumber  *string `json:"roll_number" validate:"omitempty,max=64"`
	FacultyCode string  `json:"faculty_code" validate:"required_if=Role faculty,max=64"`
	Department  string  `json:"department" validate:"required_if=Role faculty,max=255"`
	Designation string  `json:"designation" validate:"required_if=Role faculty,max=255"`
	StudentDetails
}

// ProfileRequest is a student's edit of their own profile.
type ProfileRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Mobile string `json:"mobile" validate:"required,max=32"`
	StudentDetails
}

// UpdateStudentRequest is the administrative edit of a student record.
type UpdateStudentRequest struct {
	ProfileRequest
	RollNumber *string `json:"roll_number" validate:"omitempty,max=64"`
}

// FacultyRequest creates a faculty account.
type FacultyRequest struct {
	FacultyCode string `json:"faculty_code" validate:"required,max=64"`
	Name        string `json:"name" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Mobile      string `json:"mobile" validate:"required,max=32"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Department  string `json:"department" validate:"required,max=255"`
	Designation string `json:"designation" validate:"required,max=255"`
}

// UpdateFacultyRequest edits a faculty account. Email and password are fixed.
type UpdateFacultyRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Mobile      string `json:"mobile" validate:"required,max=32"`
	Department  string `json:"department" validate:"required,max=255"`
	Designation string `json:"designation" validate:"required,max=255"`
	Active      *bool  `json:"active"`
}
