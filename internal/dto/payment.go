package dto

import "github.com/noah-isme/college-portal-api/internal/models"

// CreatePaymentRequest starts a fee payment for a course.
type CreatePaymentRequest struct {
	CourseID string         `json:"course_id" validate:"required,uuid"`
	FeeKind  models.FeeKind `json:"fee_kind" validate:"required,oneof=registration fullFee"`
}

// PaymentIntent is what a checkout client needs to open the gateway widget.
type PaymentIntent struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	OrderID   string `json:"order_id"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Key       string `json:"key"`
}

// VerifyPaymentRequest carries the gateway checkout callback fields.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}
