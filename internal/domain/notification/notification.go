package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type is the outbound event vocabulary.
type Type string

const (
	TypeRequestReceived Type = "REQUEST_RECEIVED"
	TypeStatusChanged   Type = "STATUS_CHANGED"
	TypePaymentChanged  Type = "PAYMENT_CHANGED"
	TypeDisputeOpened   Type = "DISPUTE_OPENED"
	TypeDisputeResolved Type = "DISPUTE_RESOLVED"
	TypeReviewReceived  Type = "REVIEW_RECEIVED"
	TypeTradeOverdue    Type = "TRADE_OVERDUE"
)

// Notification is a best-effort outbound event. Delivery is decoupled from
// the state transition that produced it; a delivery failure never rolls the
// transition back.
type Notification struct {
	ID             int64     `json:"id"`
	NotificationID uuid.UUID `json:"notificationId"`
	RecipientID    uuid.UUID `json:"recipientId"`
	Type           Type      `json:"type"`
	Message        string    `json:"message"`
	RelatedType    string    `json:"relatedType,omitempty"`
	RelatedID      uuid.UUID `json:"relatedId,omitempty"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}

// New creates a notification record.
func New(recipientID uuid.UUID, typ Type, message, relatedType string, relatedID uuid.UUID) *Notification {
	return &Notification{
		NotificationID: uuid.New(),
		RecipientID:    recipientID,
		Type:           typ,
		Message:        message,
		RelatedType:    relatedType,
		RelatedID:      relatedID,
		CreatedAt:      time.Now().UTC(),
	}
}
