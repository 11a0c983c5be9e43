package dto

import "github.com/noah-isme/college-portal-api/internal/models"

// Delivery channels accepted by administrative sends.
const (
	DeliveryEmail = "email"
	DeliveryInApp = "in-app"
	DeliveryBoth  = "both"
)

// SendNotificationRequest targets explicit recipients.
type SendNotificationRequest struct {
	RecipientIDs  []string             `json:"recipient_ids" validate:"required,min=1,dive,uuid"`
	RecipientKind models.RecipientKind `json:"recipient_kind" validate:"required,oneof=student faculty admin"`
	Title         string               `json:"title" validate:"required,max=255"`
	Message       string               `json:"message" validate:"required"`
	Channel       string               `json:"channel" validate:"required,oneof=email in-app both"`
}

// BroadcastRequest targets every student or every faculty member.
type BroadcastRequest struct {
	Audience string `json:"audience" validate:"required,oneof=students faculty"`
	Title    string `json:"title" validate:"required,max=255"`
	Message  string `json:"message" validate:"required"`
	Channel  string `json:"channel" validate:"required,oneof=email in-app both"`
}

// DispatchSummary reports how many outbox tasks were queued.
type DispatchSummary struct {
	Recipients int `json:"recipients"`
	Queued     int `json:"queued"`
}
