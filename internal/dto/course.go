package dto

// CourseRequest creates or replaces a course.
type CourseRequest struct {
	Name            string  `json:"name" validate:"required,max=255"`
	DepartmentID    string  `json:"department_id" validate:"required,uuid"`
	CategoryID      string  `json:"category_id" validate:"required,uuid"`
	RegistrationFee int64   `json:"registration_fee" validate:"gte=0"`
	FullFee         int64   `json:"full_fee" validate:"gte=0"`
	FormURL         *string `json:"form_url" validate:"omitempty,url"`
}

// NamedRequest creates a department or category.
type NamedRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}
