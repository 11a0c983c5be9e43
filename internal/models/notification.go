package models

import "time"

// RecipientKind identifies which account table a recipient belongs to.
type RecipientKind string

const (
	RecipientStudent RecipientKind = "student"
	RecipientFaculty RecipientKind = "faculty"
	RecipientAdmin   RecipientKind = "admin"
)

// Channel is a delivery medium.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in-app"
)

// NotificationStatus tracks delivery.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is a stored in-app message or a record of an email sent.
type Notification struct {
	ID            string             `db:"id" json:"id"`
	RecipientID   string             `db:"recipient_id" json:"recipient_id"`
	RecipientKind RecipientKind      `db:"recipient_kind" json:"recipient_kind"`
	Title         string             `db:"title" json:"title"`
	Message       string             `db:"message" json:"message"`
	Channel       Channel            `db:"channel" json:"channel"`
	IsRead        bool               `db:"is_read" json:"is_read"`
	Status        NotificationStatus `db:"status" json:"status"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// NotificationFilter captures filtering criteria for listing notifications.
type NotificationFilter struct {
	RecipientID   string
	RecipientKind RecipientKind
	Channel       Channel
	Page          int
	PageSize      int
}

// NotificationTask is an outbox entry awaiting delivery.
type NotificationTask struct {
	ID            string             `db:"id" json:"id"`
	RecipientID   string             `db:"recipient_id" json:"recipient_id"`
	RecipientKind RecipientKind      `db:"recipient_kind" json:"recipient_kind"`
	Email         string             `db:"email" json:"email"`
	Subject       string             `db:"subject" json:"subject"`
	Message       string             `db:"message" json:"message"`
	Channel       Channel            `db:"channel" json:"channel"`
	Status        NotificationStatus `db:"status" json:"status"`
	Attempts      int                `db:"attempts" json:"attempts"`
	LastError     *string            `db:"last_error" json:"last_error,omitempty"`
	NextAttemptAt time.Time          `db:"next_attempt_at" json:"next_attempt_at"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}
