package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfswap/shelfswap/internal/domain/conversation"
)

// ConversationRepository implements conversation.Repository.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// Ensure inserts the trade's conversation once; concurrent or repeated
// calls fall through to the existing row.
func (r *ConversationRepository) Ensure(ctx context.Context, c *conversation.Conversation) (*conversation.Conversation, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations
		(conversation_id, trade_id, requester_id, owner_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (trade_id) DO NOTHING
	`, c.ConversationID, c.TradeID, c.RequesterID, c.OwnerID, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r.GetByTradeID(ctx, c.TradeID)
}

func (r *ConversationRepository) GetByTradeID(ctx context.Context, tradeID uuid.UUID) (*conversation.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, conversation_id, trade_id, requester_id, owner_id, created_at
		FROM conversations WHERE trade_id=$1
	`, tradeID)
	var c conversation.Conversation
	if err := row.Scan(&c.ID, &c.ConversationID, &c.TradeID, &c.RequesterID, &c.OwnerID, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
