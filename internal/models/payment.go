package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FeeKind distinguishes the registration fee from the full course fee.
type FeeKind string

const (
	FeeKindRegistration FeeKind = "registration"
	FeeKindFull         FeeKind = "fullFee"
)

// Label is the human readable fee name.
func (k FeeKind) Label() string {
	if k == FeeKindFull {
		return "Full fee"
	}
	return "Registration fee"
}

// PaymentStatus is the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentNotes are forwarded to the gateway and persisted as JSONB.
type PaymentNotes map[string]string

// Value marshals notes to JSON for persistence.
func (n PaymentNotes) Value() (driver.Value, error) {
	if n == nil {
		n = PaymentNotes{}
	}
	data, err := json.Marshal(map[string]string(n))
	if err != nil {
		return nil, fmt.Errorf("marshal payment notes: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into notes.
func (n *PaymentNotes) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*n = PaymentNotes{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for PaymentNotes", value)
	}
	out := PaymentNotes{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("unmarshal payment notes: %w", err)
		}
	}
	*n = out
	return nil
}

// Payment records one fee payment attempt. Amount is in whole rupees.
type Payment struct {
	ID               string        `db:"id" json:"id"`
	StudentID        string        `db:"student_id" json:"student_id"`
	CourseID         string        `db:"course_id" json:"course_id"`
	Amount           int64         `db:"amount" json:"amount"`
	FeeKind          FeeKind       `db:"fee_kind" json:"fee_kind"`
	Status           PaymentStatus `db:"status" json:"status"`
	GatewayOrderID   string        `db:"gateway_order_id" json:"gateway_order_id"`
	GatewayPaymentID *string       `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	GatewaySignature *string       `db:"gateway_signature" json:"-"`
	Currency         string        `db:"currency" json:"currency"`
	Receipt          string        `db:"receipt" json:"receipt"`
	Notes            PaymentNotes  `db:"notes" json:"notes"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentDetail enriches Payment with student and course names.
type PaymentDetail struct {
	Payment
	StudentName string `db:"student_name" json:"student_name"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// PaymentFilter captures filtering criteria for listing payments.
type PaymentFilter struct {
	StudentID string
	CourseID  string
	Status    PaymentStatus
	FeeKind   FeeKind
	Page      int
	PageSize  int
}
