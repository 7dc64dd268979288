package book

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Filter controls book listing.
type Filter struct {
	OwnerID   *uuid.UUID
	Mode      *Mode
	Status    *Status
	Available *bool
}

// Repository defines persistence for book listings. Reserve, Release and
// Consume are the exclusivity primitives: each is a single conditional
// update so two concurrent reservations of one book yield exactly one
// winner.
type Repository interface {
	Create(ctx context.Context, b *Book) error
	GetByID(ctx context.Context, bookID uuid.UUID) (*Book, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Book, error)
	Update(ctx context.Context, b *Book) error

	// Reserve flips an available book to unavailable/PENDING, reporting
	// whether this call won the flip.
	Reserve(ctx context.Context, bookID uuid.UUID) (bool, error)
	// ReservePair reserves both books atomically; either both flip or
	// neither does.
	ReservePair(ctx context.Context, first, second uuid.UUID) (bool, error)
	// Release restores reserved books to available/ACTIVE.
	Release(ctx context.Context, bookIDs ...uuid.UUID) error
	// Consume freezes books at COMPLETED/unavailable permanently.
	Consume(ctx context.Context, bookIDs ...uuid.UUID) error
}
