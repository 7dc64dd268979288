package conversation

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for conversations.
type Repository interface {
	// Ensure creates the trade's conversation if missing and returns it
	// either way; safe to call repeatedly.
	Ensure(ctx context.Context, c *Conversation) (*Conversation, error)
	GetByTradeID(ctx context.Context, tradeID uuid.UUID) (*Conversation, error)
}
