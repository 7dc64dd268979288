package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,Sink

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, error)
	MarkRead(ctx context.Context, notificationID, recipientID uuid.UUID) error
}

// Sink pushes a persisted notification toward the recipient (websocket,
// e-mail, mobile push). Best effort: errors are logged by the caller and
// go no further.
type Sink interface {
	Deliver(ctx context.Context, n *Notification) error
}
