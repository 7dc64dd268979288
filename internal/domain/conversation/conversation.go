package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the chat thread scoped to one trade. The core only
// guarantees the thread exists; message delivery lives elsewhere.
type Conversation struct {
	ID             int64     `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	TradeID        uuid.UUID `json:"tradeId"`
	RequesterID    uuid.UUID `json:"requesterId"`
	OwnerID        uuid.UUID `json:"ownerId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// New creates a conversation for a trade.
func New(tradeID, requesterID, ownerID uuid.UUID) *Conversation {
	return &Conversation{
		ConversationID: uuid.New(),
		TradeID:        tradeID,
		RequesterID:    requesterID,
		OwnerID:        ownerID,
		CreatedAt:      time.Now().UTC(),
	}
}
