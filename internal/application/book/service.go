package book

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfswap/shelfswap/internal/apperr"
	domainBook "github.com/shelfswap/shelfswap/internal/domain/book"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

// Service handles book listings.
type Service struct {
	books  domainBook.Repository
	logger zerolog.Logger
}

// NewService creates a book service.
func NewService(books domainBook.Repository, logger zerolog.Logger) *Service {
	return &Service{
		books:  books,
		logger: logger.With().Str("service", "book").Logger(),
	}
}

// CreateParams carries listing input.
type CreateParams struct {
	Title              string
	Author             string
	Mode               domainBook.Mode
	Price              *float64
	ExchangePreference *string
	LoanPeriodDays     *int
}

// Create lists a book for the acting user.
func (s *Service) Create(ctx context.Context, actor domainUser.Actor, p CreateParams) (*domainBook.Book, error) {
	if actor.Suspended {
		return nil, apperr.Authorization(apperr.CodeAccountSuspended, "account is suspended")
	}
	b, err := domainBook.New(actor.UserID, p.Title, p.Author, p.Mode, domainBook.Terms{
		Price:              p.Price,
		ExchangePreference: p.ExchangePreference,
		LoanPeriodDays:     p.LoanPeriodDays,
	})
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidParam, "%s", err.Error())
	}
	if err := s.books.Create(ctx, b); err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Info().Str("book_id", b.BookID.String()).Str("owner_id", actor.UserID.String()).Msg("book listed")
	return b, nil
}

// Get returns one listing.
func (s *Service) Get(ctx context.Context, bookID uuid.UUID) (*domainBook.Book, error) {
	b, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if b == nil {
		return nil, apperr.NotFound("book not found")
	}
	return b, nil
}

// List returns listings matching the filter.
func (s *Service) List(ctx context.Context, filter domainBook.Filter, limit, offset int) ([]*domainBook.Book, error) {
	books, err := s.books.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return books, nil
}

// Delist withdraws the actor's own available listing.
func (s *Service) Delist(ctx context.Context, actor domainUser.Actor, bookID uuid.UUID) (*domainBook.Book, error) {
	if actor.Suspended {
		return nil, apperr.Authorization(apperr.CodeAccountSuspended, "account is suspended")
	}
	b, err := s.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID != actor.UserID {
		return nil, apperr.Authorization(apperr.CodeForbidden, "only the owner may delist a book")
	}
	if err := b.Delist(); err != nil {
		return nil, apperr.State(apperr.CodeInvalidState, "%s", err.Error())
	}
	if err := s.books.Update(ctx, b); err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Info().Str("book_id", b.BookID.String()).Msg("book delisted")
	return b, nil
}
