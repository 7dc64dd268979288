package book

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfswap/shelfswap/internal/apperr"
	domainBook "github.com/shelfswap/shelfswap/internal/domain/book"
)

// Exclusivity is the book-exclusivity contract consumed by the trade and
// dispute services: at most one non-terminal trade holds a book at a time.
type Exclusivity interface {
	TryReserve(ctx context.Context, bookIDs ...uuid.UUID) error
	Release(ctx context.Context, bookIDs ...uuid.UUID) error
	Consume(ctx context.Context, bookIDs ...uuid.UUID) error
}

// Guard enforces exclusivity via the repository's conditional updates.
// Reservation is a compare-and-set per book: of two concurrent attempts on
// the same book exactly one wins.
type Guard struct {
	books  domainBook.Repository
	logger zerolog.Logger
}

// NewGuard creates an exclusivity guard.
func NewGuard(books domainBook.Repository, logger zerolog.Logger) *Guard {
	return &Guard{
		books:  books,
		logger: logger.With().Str("service", "book_guard").Logger(),
	}
}

// TryReserve flips every referenced book to unavailable in one atomic step
// (one compare-and-set for a single book, one transaction for an exchange
// pair). A conflict means some book is already promised; callers must
// auto-cancel the losing trade.
func (g *Guard) TryReserve(ctx context.Context, bookIDs ...uuid.UUID) error {
	var (
		ok  bool
		err error
	)
	switch len(bookIDs) {
	case 1:
		ok, err = g.books.Reserve(ctx, bookIDs[0])
	case 2:
		ok, err = g.books.ReservePair(ctx, bookIDs[0], bookIDs[1])
	default:
		return fmt.Errorf("reserve expects one or two books, got %d", len(bookIDs))
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.Conflict(apperr.CodeBookUnavailable, "book is no longer available")
	}
	return nil
}

// Release restores books to available after a rejection, cancellation or
// borrow return.
func (g *Guard) Release(ctx context.Context, bookIDs ...uuid.UUID) error {
	if err := g.books.Release(ctx, bookIDs...); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Consume permanently freezes books whose trade completed. Irreversible.
func (g *Guard) Consume(ctx context.Context, bookIDs ...uuid.UUID) error {
	if err := g.books.Consume(ctx, bookIDs...); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
