package dispute

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls dispute listing.
type Filter struct {
	Status   *Status
	RaisedBy *uuid.UUID
	TradeID  *uuid.UUID
}

// Repository defines persistence for disputes. Create must enforce the
// one-dispute-per-trade uniqueness at the storage level.
type Repository interface {
	Create(ctx context.Context, d *Dispute) error
	GetByID(ctx context.Context, disputeID uuid.UUID) (*Dispute, error)
	GetByTradeID(ctx context.Context, tradeID uuid.UUID) (*Dispute, error)
	Update(ctx context.Context, d *Dispute) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Dispute, error)
}

// ErrDuplicate is returned by Create when a dispute already exists for the
// trade.
var ErrDuplicate = errDuplicate{}

type errDuplicate struct{}

func (errDuplicate) Error() string { return "dispute already exists for this trade" }
