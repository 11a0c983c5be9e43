package dto

import "github.com/noah-isme/college-portal-api/internal/models"

// ApplyAdmissionRequest submits an application with previously uploaded documents.
type ApplyAdmissionRequest struct {
	CourseID  string            `json:"course_id" validate:"required,uuid"`
	Documents []models.Document `json:"documents" validate:"omitempty,dive"`
}

// UpdateAdmissionStatusRequest is an administrative review decision.
type UpdateAdmissionStatusRequest struct {
	Status models.AdmissionStatus `json:"status" validate:"required,oneof=pending approved rejected"`
}
