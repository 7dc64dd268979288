package trade

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter controls trade listing.
type Filter struct {
	Kind   *Kind
	Status *Status
	UserID *uuid.UUID
	BookID *uuid.UUID
}

// Repository defines persistence for trades. Confirm and
// CompleteIfConfirmed are conditional single-statement updates: the
// confirmation flags are linearizable per trade, and the terminal
// transition elects exactly one winner under concurrent confirmations.
type Repository interface {
	Create(ctx context.Context, t *Trade) error
	GetByID(ctx context.Context, tradeID uuid.UUID) (*Trade, error)
	Update(ctx context.Context, t *Trade) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Trade, error)

	// ListPendingForBook returns every pending trade referencing the book
	// either as the requested or the offered side.
	ListPendingForBook(ctx context.Context, bookID uuid.UUID) ([]*Trade, error)
	// HasPendingForRequesterAndBook guards against duplicate requests.
	HasPendingForRequesterAndBook(ctx context.Context, requesterID, bookID uuid.UUID) (bool, error)

	// Confirm sets the party's confirmation flag while the trade status is
	// one of allowed, returning the updated trade, or nil when the
	// precondition no longer holds. Setting an already-set flag is a no-op
	// that still returns the trade.
	Confirm(ctx context.Context, tradeID uuid.UUID, party Party, allowed []Status) (*Trade, error)
	// CompleteIfConfirmed transitions to terminal when both flags are set
	// and the status is still one of allowed; reports whether this call
	// performed the transition.
	CompleteIfConfirmed(ctx context.Context, tradeID uuid.UUID, allowed []Status, terminal Status) (bool, error)

	// ListActiveBorrowsDueBefore feeds the overdue sweep.
	ListActiveBorrowsDueBefore(ctx context.Context, asOf time.Time) ([]*Trade, error)
	// MarkOverdue flips a still-active, past-due borrow to OVERDUE and
	// records the late fee; reports whether this call won the flip.
	MarkOverdue(ctx context.Context, tradeID uuid.UUID, lateFee float64, asOf time.Time) (bool, error)
}
