package trade

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind is the trade variant discriminant. All variants share one spine and
// one status vocabulary; variant-specific fields are populated per kind.
type Kind string

const (
	KindExchange Kind = "EXCHANGE"
	KindSell     Kind = "SELL"
	KindBorrow   Kind = "BORROW"
)

// Status represents trade status. COMPLETED, REJECTED, CANCELLED and
// RETURNED are terminal. ACTIVE, OVERDUE and DISPUTED are borrow-only
// status values; exchange and sell track disputes via the Disputed flag
// without leaving their own vocabulary.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusActive    Status = "ACTIVE"
	StatusOverdue   Status = "OVERDUE"
	StatusDisputed  Status = "DISPUTED"
	StatusCompleted Status = "COMPLETED"
	StatusReturned  Status = "RETURNED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus is the sell-variant payment flag. Payment is asserted by
// the seller out of band; there is no gateway integration.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// Party identifies which side of the trade a participant is on.
type Party string

const (
	PartyRequester Party = "REQUESTER"
	PartyOwner     Party = "OWNER"
)

var (
	ErrInvalidTransition = errors.New("invalid trade status transition")
	ErrNotParticipant    = errors.New("user is not a participant of this trade")
	ErrSelfTrade         = errors.New("cannot trade with yourself")
	ErrWrongKind         = errors.New("operation not defined for this trade kind")
	ErrNotConfirmable    = errors.New("trade is not in a confirmable state")
	ErrDisputed          = errors.New("trade is under dispute")
	ErrTerminal          = errors.New("trade is already closed")
)

// Trade is one transaction between a requester (buyer, borrower or
// exchange initiator) and the owner of the requested book.
type Trade struct {
	ID            int64      `json:"id"`
	TradeID       uuid.UUID  `json:"tradeId"`
	Kind          Kind       `json:"kind"`
	RequesterID   uuid.UUID  `json:"requesterId"`
	OwnerID       uuid.UUID  `json:"ownerId"`
	BookID        uuid.UUID  `json:"bookId"`
	OfferedBookID *uuid.UUID `json:"offeredBookId,omitempty"`

	Status             Status  `json:"status"`
	PriorStatus        *Status `json:"priorStatus,omitempty"`
	RequesterConfirmed bool    `json:"requesterConfirmed"`
	OwnerConfirmed     bool    `json:"ownerConfirmed"`
	Disputed           bool    `json:"disputed"`

	PaymentStatus *PaymentStatus `json:"paymentStatus,omitempty"`

	RequestedDays int        `json:"requestedDays,omitempty"`
	AgreedDays    int        `json:"agreedDays,omitempty"`
	BorrowedAt    *time.Time `json:"borrowedAt,omitempty"`
	DueAt         *time.Time `json:"dueAt,omitempty"`
	ReturnedAt    *time.Time `json:"returnedAt,omitempty"`
	LateFee       *float64   `json:"lateFee,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewParams carries creation input for any kind.
type NewParams struct {
	Kind          Kind
	RequesterID   uuid.UUID
	OwnerID       uuid.UUID
	BookID        uuid.UUID
	OfferedBookID *uuid.UUID
	RequestedDays int
}

// New creates a pending trade. Variant preconditions that need the book
// aggregate (mode match, availability) are the caller's job; everything
// expressible from the params alone is validated here.
func New(p NewParams) (*Trade, error) {
	if err := ValidateKind(p.Kind); err != nil {
		return nil, err
	}
	if p.RequesterID == uuid.Nil || p.OwnerID == uuid.Nil || p.BookID == uuid.Nil {
		return nil, errors.New("requester, owner and book are required")
	}
	if p.RequesterID == p.OwnerID {
		return nil, ErrSelfTrade
	}
	t := &Trade{
		TradeID:     uuid.New(),
		Kind:        p.Kind,
		RequesterID: p.RequesterID,
		OwnerID:     p.OwnerID,
		BookID:      p.BookID,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	t.UpdatedAt = t.CreatedAt
	switch p.Kind {
	case KindExchange:
		if p.OfferedBookID == nil || *p.OfferedBookID == uuid.Nil {
			return nil, errors.New("exchange requires an offered book")
		}
		if *p.OfferedBookID == p.BookID {
			return nil, errors.New("offered book must differ from the requested book")
		}
		t.OfferedBookID = p.OfferedBookID
	case KindSell:
		ps := PaymentPending
		t.PaymentStatus = &ps
	case KindBorrow:
		if p.RequestedDays <= 0 {
			return nil, errors.New("borrow requires a positive duration in days")
		}
		t.RequestedDays = p.RequestedDays
	}
	return t, nil
}

func ValidateKind(kind Kind) error {
	switch kind {
	case KindExchange, KindSell, KindBorrow:
		return nil
	default:
		return errors.New("invalid trade kind")
	}
}

var sharedTransitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:  {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusRejected:  {},
	StatusCancelled: {},
}

var borrowTransitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusRejected, StatusCancelled, StatusDisputed},
	StatusAccepted:  {StatusActive, StatusCancelled, StatusDisputed},
	StatusActive:    {StatusOverdue, StatusReturned, StatusDisputed},
	StatusOverdue:   {StatusReturned, StatusDisputed},
	StatusDisputed:  {StatusReturned, StatusCancelled},
	StatusReturned:  {},
	StatusRejected:  {},
	StatusCancelled: {},
}

// CanTransitionTo validates a status transition for this trade's kind.
func (t *Trade) CanTransitionTo(target Status) bool {
	table := sharedTransitions
	if t.Kind == KindBorrow {
		table = borrowTransitions
	}
	for _, s := range table[t.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no ordinary transition remains.
func (t *Trade) IsTerminal() bool {
	switch t.Status {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// IsDisputed is the single source of truth for "currently disputed" across
// all kinds; borrow mirrors it in the status value as well.
func (t *Trade) IsDisputed() bool {
	return t.Disputed || t.Status == StatusDisputed
}

// EffectiveStatus returns the lifecycle status the trade was in before it
// was parked at DISPUTED, or the current status otherwise.
func (t *Trade) EffectiveStatus() Status {
	if t.Status == StatusDisputed && t.PriorStatus != nil {
		return *t.PriorStatus
	}
	return t.Status
}

// HoldsBooks reports whether this trade currently holds a reservation on
// its book(s), i.e. whether release/consume is owed on a forced ending.
func (t *Trade) HoldsBooks() bool {
	switch t.EffectiveStatus() {
	case StatusAccepted, StatusActive, StatusOverdue:
		return true
	}
	return false
}

// IsParticipant reports whether the user is one of the two counterparties.
func (t *Trade) IsParticipant(userID uuid.UUID) bool {
	return userID == t.RequesterID || userID == t.OwnerID
}

// PartyOf resolves which side a participant is on.
func (t *Trade) PartyOf(userID uuid.UUID) (Party, error) {
	switch userID {
	case t.RequesterID:
		return PartyRequester, nil
	case t.OwnerID:
		return PartyOwner, nil
	default:
		return "", ErrNotParticipant
	}
}

// Counterparty returns the other participant.
func (t *Trade) Counterparty(userID uuid.UUID) (uuid.UUID, error) {
	switch userID {
	case t.RequesterID:
		return t.OwnerID, nil
	case t.OwnerID:
		return t.RequesterID, nil
	default:
		return uuid.Nil, ErrNotParticipant
	}
}

// BookIDs returns every listing referenced by the trade (two for exchange).
func (t *Trade) BookIDs() []uuid.UUID {
	ids := []uuid.UUID{t.BookID}
	if t.OfferedBookID != nil {
		ids = append(ids, *t.OfferedBookID)
	}
	return ids
}

func (t *Trade) touch() {
	t.UpdatedAt = time.Now().UTC()
}

// Accept moves a pending trade to accepted. For borrow, agreedDays records
// the owner's counter-offer; zero means "as requested".
func (t *Trade) Accept(agreedDays int) error {
	if t.IsDisputed() {
		return ErrDisputed
	}
	if !t.CanTransitionTo(StatusAccepted) {
		return ErrInvalidTransition
	}
	if t.Kind == KindBorrow {
		if agreedDays < 0 {
			return errors.New("agreed duration must not be negative")
		}
		if agreedDays == 0 {
			agreedDays = t.RequestedDays
		}
		t.AgreedDays = agreedDays
	}
	t.Status = StatusAccepted
	t.touch()
	return nil
}

// Reject declines a pending trade.
func (t *Trade) Reject() error {
	if t.IsDisputed() {
		return ErrDisputed
	}
	if !t.CanTransitionTo(StatusRejected) {
		return ErrInvalidTransition
	}
	t.Status = StatusRejected
	t.touch()
	return nil
}

// CancellableBy reports whether the given party may cancel from the current
// status. Sell lets either party back out before completion; exchange and
// borrow restrict cancellation of a pending request to the requester.
func (t *Trade) CancellableBy(party Party) bool {
	switch t.Status {
	case StatusPending:
		if t.Kind == KindSell {
			return true
		}
		return party == PartyRequester
	case StatusAccepted:
		return true
	}
	return false
}

// Cancel withdraws the trade.
func (t *Trade) Cancel() error {
	if t.IsDisputed() {
		return ErrDisputed
	}
	if !t.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition
	}
	t.Status = StatusCancelled
	t.touch()
	return nil
}

// MarkPaid asserts out-of-band payment on a sell trade. Re-marking is a
// no-op.
func (t *Trade) MarkPaid() error {
	if t.Kind != KindSell {
		return ErrWrongKind
	}
	if t.IsDisputed() {
		return ErrDisputed
	}
	if t.Status != StatusAccepted {
		return ErrInvalidTransition
	}
	ps := PaymentPaid
	t.PaymentStatus = &ps
	t.touch()
	return nil
}

// IsPaid reports whether a sell trade has had payment asserted.
func (t *Trade) IsPaid() bool {
	return t.PaymentStatus != nil && *t.PaymentStatus == PaymentPaid
}

// MarkHandedOver records the physical handover of a borrowed book; the due
// date is fixed here from the agreed duration.
func (t *Trade) MarkHandedOver(now time.Time) error {
	if t.Kind != KindBorrow {
		return ErrWrongKind
	}
	if t.IsDisputed() {
		return ErrDisputed
	}
	if !t.CanTransitionTo(StatusActive) {
		return ErrInvalidTransition
	}
	now = now.UTC()
	due := now.AddDate(0, 0, t.AgreedDays)
	t.BorrowedAt = &now
	t.DueAt = &due
	t.Status = StatusActive
	t.touch()
	return nil
}

// ConfirmableStatuses returns the statuses from which completion
// confirmations are accepted for this kind.
func (t *Trade) ConfirmableStatuses() []Status {
	if t.Kind == KindBorrow {
		return []Status{StatusActive, StatusOverdue}
	}
	return []Status{StatusAccepted}
}

// CanConfirm validates that a confirmation is currently allowed.
func (t *Trade) CanConfirm() error {
	if t.IsDisputed() {
		return ErrDisputed
	}
	if t.IsTerminal() {
		return ErrTerminal
	}
	for _, s := range t.ConfirmableStatuses() {
		if t.Status == s {
			return nil
		}
	}
	return ErrNotConfirmable
}

// ConfirmedBy reports whether the given party has already confirmed.
func (t *Trade) ConfirmedBy(party Party) bool {
	if party == PartyRequester {
		return t.RequesterConfirmed
	}
	return t.OwnerConfirmed
}

// BothConfirmed reports whether the dual-confirmation barrier has passed.
func (t *Trade) BothConfirmed() bool {
	return t.RequesterConfirmed && t.OwnerConfirmed
}

// TerminalSuccess is the status a fully confirmed trade ends in: borrowed
// books come back, everything else completes.
func (t *Trade) TerminalSuccess() Status {
	if t.Kind == KindBorrow {
		return StatusReturned
	}
	return StatusCompleted
}

// MarkDisputed parks the trade under dispute. Borrow moves to the explicit
// DISPUTED status, remembering where it was; the other kinds keep their
// status and only raise the flag.
func (t *Trade) MarkDisputed() error {
	if t.IsTerminal() {
		return ErrTerminal
	}
	if t.IsDisputed() {
		return ErrDisputed
	}
	t.Disputed = true
	if t.Kind == KindBorrow {
		prior := t.Status
		t.PriorStatus = &prior
		t.Status = StatusDisputed
	}
	t.touch()
	return nil
}

// ForceComplete ends a disputed trade as if both parties had confirmed.
// This is the dispute-resolution override and deliberately bypasses the
// ordinary transition table; it still refuses terminal trades.
func (t *Trade) ForceComplete(now time.Time) error {
	if t.IsTerminal() {
		return ErrTerminal
	}
	t.Disputed = false
	t.PriorStatus = nil
	t.Status = t.TerminalSuccess()
	if t.Kind == KindBorrow {
		now = now.UTC()
		t.ReturnedAt = &now
	}
	t.touch()
	return nil
}

// ForceCancel ends a disputed trade as cancelled. Dispute-resolution
// override, same contract as ForceComplete.
func (t *Trade) ForceCancel() error {
	if t.IsTerminal() {
		return ErrTerminal
	}
	t.Disputed = false
	t.PriorStatus = nil
	t.Status = StatusCancelled
	t.touch()
	return nil
}
