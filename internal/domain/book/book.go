package book

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode is the transaction mode a listing is offered under.
type Mode string

const (
	ModeExchange Mode = "EXCHANGE"
	ModeSell     Mode = "SELL"
	ModeBorrow   Mode = "BORROW"
)

// Status represents listing status. A book is frozen at COMPLETED forever
// once a sell or exchange finishes; borrow returns restore it to ACTIVE.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var (
	ErrInvalidTransition = errors.New("invalid book status transition")
	ErrNotDelistable     = errors.New("book has an active trade and cannot be delisted")
)

// Book represents one physical-book listing. IsAvailable is the single
// source of truth for whether the book can enter a new trade; it is false
// whenever any non-terminal trade references the book.
type Book struct {
	ID                 int64     `json:"id"`
	BookID             uuid.UUID `json:"bookId"`
	OwnerID            uuid.UUID `json:"ownerId"`
	Title              string    `json:"title"`
	Author             string    `json:"author"`
	Mode               Mode      `json:"mode"`
	Price              *float64  `json:"price,omitempty"`
	ExchangePreference *string   `json:"exchangePreference,omitempty"`
	LoanPeriodDays     *int      `json:"loanPeriodDays,omitempty"`
	IsAvailable        bool      `json:"isAvailable"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Terms carries the mode-specific listing terms.
type Terms struct {
	Price              *float64
	ExchangePreference *string
	LoanPeriodDays     *int
}

// New creates an active, available listing after validating the terms for
// the chosen mode.
func New(ownerID uuid.UUID, title, author string, mode Mode, terms Terms) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	if ownerID == uuid.Nil {
		return nil, errors.New("owner is required")
	}
	if err := ValidateMode(mode); err != nil {
		return nil, err
	}
	b := &Book{
		BookID:      uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Author:      strings.TrimSpace(author),
		Mode:        mode,
		IsAvailable: true,
		Status:      StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	b.UpdatedAt = b.CreatedAt
	switch mode {
	case ModeSell:
		if terms.Price == nil || *terms.Price <= 0 {
			return nil, errors.New("sell listing requires a positive price")
		}
		b.Price = terms.Price
	case ModeBorrow:
		if terms.LoanPeriodDays == nil || *terms.LoanPeriodDays <= 0 {
			return nil, errors.New("borrow listing requires a positive loan period in days")
		}
		b.LoanPeriodDays = terms.LoanPeriodDays
	case ModeExchange:
		b.ExchangePreference = terms.ExchangePreference
	}
	return b, nil
}

// CanTransitionTo validates listing status transition.
func (b *Book) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusActive:    {StatusPending, StatusCancelled},
		StatusPending:   {StatusActive, StatusCompleted},
		StatusCompleted: {},
		StatusCancelled: {},
	}
	allowed := transitions[b.Status]
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// Delist withdraws the listing. Only an available, active listing may be
// delisted; a book inside a trade must leave the trade first.
func (b *Book) Delist() error {
	if b.Status != StatusActive || !b.IsAvailable {
		return ErrNotDelistable
	}
	b.Status = StatusCancelled
	b.IsAvailable = false
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func ValidateMode(mode Mode) error {
	switch mode {
	case ModeExchange, ModeSell, ModeBorrow:
		return nil
	default:
		return errors.New("invalid book mode")
	}
}
