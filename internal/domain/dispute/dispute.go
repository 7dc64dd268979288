package dispute

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents dispute status.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// Outcome is the arbitrator's ruling. Resolved completes the underlying
// trade administratively; Closed cancels it. Either way the trade ends
// terminal and no book stays reserved - the human policy behind the ruling
// lives in the resolution notes.
type Outcome string

const (
	OutcomeResolved Outcome = "RESOLVED"
	OutcomeClosed   Outcome = "CLOSED"
)

var (
	ErrInvalidTransition = errors.New("invalid dispute status transition")
	ErrAlreadyResolved   = errors.New("dispute already resolved")
	ErrNotesRequired     = errors.New("resolution notes are required")
)

// Dispute is a contested trade, keyed one-to-one to its transaction.
type Dispute struct {
	ID              int64      `json:"id"`
	DisputeID       uuid.UUID  `json:"disputeId"`
	TradeID         uuid.UUID  `json:"tradeId"`
	RaisedBy        uuid.UUID  `json:"raisedBy"`
	AgainstID       uuid.UUID  `json:"againstId"`
	Reason          string     `json:"reason"`
	Status          Status     `json:"status"`
	AssignedTo      *uuid.UUID `json:"assignedTo,omitempty"`
	ResolvedBy      *uuid.UUID `json:"resolvedBy,omitempty"`
	ResolutionNotes *string    `json:"resolutionNotes,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// New opens a dispute against the counterparty of a trade.
func New(tradeID, raisedBy, againstID uuid.UUID, reason string) (*Dispute, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.New("reason is required")
	}
	if tradeID == uuid.Nil || raisedBy == uuid.Nil || againstID == uuid.Nil {
		return nil, errors.New("trade, raiser and respondent are required")
	}
	now := time.Now().UTC()
	return &Dispute{
		DisputeID: uuid.New(),
		TradeID:   tradeID,
		RaisedBy:  raisedBy,
		AgainstID: againstID,
		Reason:    reason,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransitionTo validates dispute status transition.
func (d *Dispute) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusOpen:       {StatusInProgress, StatusResolved, StatusClosed},
		StatusInProgress: {StatusResolved, StatusClosed},
		StatusResolved:   {},
		StatusClosed:     {},
	}
	for _, s := range transitions[d.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the dispute has been ruled on.
func (d *Dispute) IsTerminal() bool {
	return d.Status == StatusResolved || d.Status == StatusClosed
}

// Assign claims the dispute for an arbitrator.
func (d *Dispute) Assign(arbitratorID uuid.UUID) error {
	if !d.CanTransitionTo(StatusInProgress) {
		return ErrInvalidTransition
	}
	d.Status = StatusInProgress
	d.AssignedTo = &arbitratorID
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// Resolve records the arbitrator's ruling. A dispute is ruled on at most
// once and always with non-empty notes.
func (d *Dispute) Resolve(arbitratorID uuid.UUID, outcome Outcome, notes string) error {
	if d.IsTerminal() {
		return ErrAlreadyResolved
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ErrNotesRequired
	}
	target := StatusResolved
	if outcome == OutcomeClosed {
		target = StatusClosed
	} else if outcome != OutcomeResolved {
		return errors.New("invalid outcome")
	}
	if !d.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	d.Status = target
	d.ResolvedBy = &arbitratorID
	d.ResolutionNotes = &notes
	d.ResolvedAt = &now
	d.UpdatedAt = now
	return nil
}
