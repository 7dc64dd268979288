package review

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for reviews. Create must enforce the
// one-review-per-trade-per-reviewer uniqueness at the storage level.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByTradeAndReviewer(ctx context.Context, tradeID, reviewerID uuid.UUID) (*Review, error)
	ListForReviewee(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]*Review, error)
}

// ErrDuplicate is returned by Create when the reviewer has already reviewed
// the trade.
var ErrDuplicate = errDuplicate{}

type errDuplicate struct{}

func (errDuplicate) Error() string { return "review already exists for this trade and reviewer" }
