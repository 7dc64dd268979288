package review

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Review is one participant's rating of the other after a finished trade.
// At most one review per (trade, reviewer).
type Review struct {
	ID         int64     `json:"id"`
	ReviewID   uuid.UUID `json:"reviewId"`
	TradeID    uuid.UUID `json:"tradeId"`
	ReviewerID uuid.UUID `json:"reviewerId"`
	RevieweeID uuid.UUID `json:"revieweeId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// New validates and creates a review.
func New(tradeID, reviewerID, revieweeID uuid.UUID, rating int, comment string) (*Review, error) {
	if tradeID == uuid.Nil || reviewerID == uuid.Nil || revieweeID == uuid.Nil {
		return nil, errors.New("trade, reviewer and reviewee are required")
	}
	if reviewerID == revieweeID {
		return nil, errors.New("cannot review yourself")
	}
	if rating < 1 || rating > 5 {
		return nil, errors.New("rating must be between 1 and 5")
	}
	return &Review{
		ReviewID:   uuid.New(),
		TradeID:    tradeID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  time.Now().UTC(),
	}, nil
}
