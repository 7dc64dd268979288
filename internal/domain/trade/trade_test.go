package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSell(t *testing.T) *Trade {
	t.Helper()
	tr, err := New(NewParams{
		Kind:        KindSell,
		RequesterID: uuid.New(),
		OwnerID:     uuid.New(),
		BookID:      uuid.New(),
	})
	require.NoError(t, err)
	return tr
}

func newBorrow(t *testing.T, days int) *Trade {
	t.Helper()
	tr, err := New(NewParams{
		Kind:          KindBorrow,
		RequesterID:   uuid.New(),
		OwnerID:       uuid.New(),
		BookID:        uuid.New(),
		RequestedDays: days,
	})
	require.NoError(t, err)
	return tr
}

func newExchange(t *testing.T) *Trade {
	t.Helper()
	offered := uuid.New()
	tr, err := New(NewParams{
		Kind:          KindExchange,
		RequesterID:   uuid.New(),
		OwnerID:       uuid.New(),
		BookID:        uuid.New(),
		OfferedBookID: &offered,
	})
	require.NoError(t, err)
	return tr
}

func TestNewValidation(t *testing.T) {
	id := uuid.New()

	_, err := New(NewParams{Kind: KindSell, RequesterID: id, OwnerID: id, BookID: uuid.New()})
	assert.ErrorIs(t, err, ErrSelfTrade)

	_, err = New(NewParams{Kind: Kind("GIFT"), RequesterID: uuid.New(), OwnerID: uuid.New(), BookID: uuid.New()})
	assert.Error(t, err)

	_, err = New(NewParams{Kind: KindBorrow, RequesterID: uuid.New(), OwnerID: uuid.New(), BookID: uuid.New()})
	assert.Error(t, err, "missing duration is a validation failure, not a default")

	_, err = New(NewParams{Kind: KindBorrow, RequesterID: uuid.New(), OwnerID: uuid.New(), BookID: uuid.New(), RequestedDays: -3})
	assert.Error(t, err)

	_, err = New(NewParams{Kind: KindExchange, RequesterID: uuid.New(), OwnerID: uuid.New(), BookID: uuid.New()})
	assert.Error(t, err, "exchange requires an offered book")

	same := uuid.New()
	_, err = New(NewParams{Kind: KindExchange, RequesterID: uuid.New(), OwnerID: uuid.New(), BookID: same, OfferedBookID: &same})
	assert.Error(t, err)

	sell := newSell(t)
	require.NotNil(t, sell.PaymentStatus)
	assert.Equal(t, PaymentPending, *sell.PaymentStatus)
	assert.Equal(t, StatusPending, sell.Status)
}

func TestSharedTransitionTable(t *testing.T) {
	tr := newSell(t)
	assert.True(t, tr.CanTransitionTo(StatusAccepted))
	assert.True(t, tr.CanTransitionTo(StatusRejected))
	assert.True(t, tr.CanTransitionTo(StatusCancelled))
	assert.False(t, tr.CanTransitionTo(StatusCompleted))
	assert.False(t, tr.CanTransitionTo(StatusActive), "ACTIVE is borrow-only")

	tr.Status = StatusAccepted
	assert.True(t, tr.CanTransitionTo(StatusCompleted))
	assert.True(t, tr.CanTransitionTo(StatusCancelled))
	assert.False(t, tr.CanTransitionTo(StatusRejected))

	for _, s := range []Status{StatusCompleted, StatusRejected, StatusCancelled} {
		tr.Status = s
		assert.True(t, tr.IsTerminal())
		assert.False(t, tr.CanTransitionTo(StatusAccepted))
	}
}

func TestBorrowTransitionTable(t *testing.T) {
	tr := newBorrow(t, 7)
	assert.True(t, tr.CanTransitionTo(StatusAccepted))
	assert.True(t, tr.CanTransitionTo(StatusDisputed))

	tr.Status = StatusAccepted
	assert.True(t, tr.CanTransitionTo(StatusActive))
	assert.False(t, tr.CanTransitionTo(StatusCompleted))

	tr.Status = StatusActive
	assert.True(t, tr.CanTransitionTo(StatusOverdue))
	assert.True(t, tr.CanTransitionTo(StatusReturned))
	assert.False(t, tr.CanTransitionTo(StatusCancelled))

	tr.Status = StatusOverdue
	assert.True(t, tr.CanTransitionTo(StatusReturned))
	assert.False(t, tr.CanTransitionTo(StatusActive))

	tr.Status = StatusReturned
	assert.True(t, tr.IsTerminal())
}

func TestAcceptRecordsCounterOffer(t *testing.T) {
	tr := newBorrow(t, 7)
	require.NoError(t, tr.Accept(10))
	assert.Equal(t, StatusAccepted, tr.Status)
	assert.Equal(t, 10, tr.AgreedDays)

	tr = newBorrow(t, 7)
	require.NoError(t, tr.Accept(0))
	assert.Equal(t, 7, tr.AgreedDays, "zero means as requested")

	tr = newBorrow(t, 7)
	assert.Error(t, tr.Accept(-1))

	tr = newSell(t)
	tr.Status = StatusAccepted
	assert.ErrorIs(t, tr.Accept(0), ErrInvalidTransition)
}

func TestMarkHandedOverFixesDueDate(t *testing.T) {
	tr := newBorrow(t, 7)
	require.NoError(t, tr.Accept(10))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, tr.MarkHandedOver(now))
	assert.Equal(t, StatusActive, tr.Status)
	require.NotNil(t, tr.DueAt)
	assert.Equal(t, now.AddDate(0, 0, 10), *tr.DueAt)

	assert.ErrorIs(t, tr.MarkHandedOver(now), ErrInvalidTransition)
	assert.ErrorIs(t, newSell(t).MarkHandedOver(now), ErrWrongKind)
}

func TestCancelPolicy(t *testing.T) {
	sell := newSell(t)
	assert.True(t, sell.CancellableBy(PartyRequester))
	assert.True(t, sell.CancellableBy(PartyOwner), "sell allows either party from pending")

	ex := newExchange(t)
	assert.True(t, ex.CancellableBy(PartyRequester))
	assert.False(t, ex.CancellableBy(PartyOwner), "exchange restricts pending cancellation to the requester")

	ex.Status = StatusAccepted
	assert.True(t, ex.CancellableBy(PartyOwner))

	ex.Status = StatusCompleted
	assert.False(t, ex.CancellableBy(PartyRequester))
}

func TestMarkPaid(t *testing.T) {
	tr := newSell(t)
	assert.ErrorIs(t, tr.MarkPaid(), ErrInvalidTransition, "payment only after acceptance")

	require.NoError(t, tr.Accept(0))
	require.NoError(t, tr.MarkPaid())
	assert.True(t, tr.IsPaid())
	require.NoError(t, tr.MarkPaid(), "re-marking is a no-op")

	assert.ErrorIs(t, newBorrow(t, 7).MarkPaid(), ErrWrongKind)
}

func TestConfirmableStatuses(t *testing.T) {
	sell := newSell(t)
	assert.ErrorIs(t, sell.CanConfirm(), ErrNotConfirmable)
	sell.Status = StatusAccepted
	assert.NoError(t, sell.CanConfirm())

	borrow := newBorrow(t, 7)
	borrow.Status = StatusAccepted
	assert.ErrorIs(t, borrow.CanConfirm(), ErrNotConfirmable, "borrow confirms return, not acceptance")
	borrow.Status = StatusActive
	assert.NoError(t, borrow.CanConfirm())
	borrow.Status = StatusOverdue
	assert.NoError(t, borrow.CanConfirm(), "overdue borrows can still be returned")

	sell.Status = StatusCompleted
	assert.ErrorIs(t, sell.CanConfirm(), ErrTerminal)
}

func TestTerminalSuccessPerKind(t *testing.T) {
	assert.Equal(t, StatusCompleted, newSell(t).TerminalSuccess())
	assert.Equal(t, StatusCompleted, newExchange(t).TerminalSuccess())
	assert.Equal(t, StatusReturned, newBorrow(t, 7).TerminalSuccess(), "a returned book is reusable")
}

func TestMarkDisputed(t *testing.T) {
	ex := newExchange(t)
	ex.Status = StatusAccepted
	require.NoError(t, ex.MarkDisputed())
	assert.True(t, ex.IsDisputed())
	assert.Equal(t, StatusAccepted, ex.Status, "exchange keeps its status under dispute")
	assert.ErrorIs(t, ex.MarkDisputed(), ErrDisputed)
	assert.ErrorIs(t, ex.Cancel(), ErrDisputed, "ordinary transitions are blocked while disputed")
	assert.ErrorIs(t, ex.CanConfirm(), ErrDisputed)

	borrow := newBorrow(t, 7)
	borrow.Status = StatusActive
	require.NoError(t, borrow.MarkDisputed())
	assert.Equal(t, StatusDisputed, borrow.Status, "borrow parks at the explicit status")
	require.NotNil(t, borrow.PriorStatus)
	assert.Equal(t, StatusActive, *borrow.PriorStatus)
	assert.Equal(t, StatusActive, borrow.EffectiveStatus())
	assert.True(t, borrow.HoldsBooks())

	done := newSell(t)
	done.Status = StatusCompleted
	assert.ErrorIs(t, done.MarkDisputed(), ErrTerminal)
}

func TestForceCompleteAndForceCancel(t *testing.T) {
	ex := newExchange(t)
	ex.Status = StatusAccepted
	require.NoError(t, ex.MarkDisputed())
	require.NoError(t, ex.ForceComplete(time.Now()))
	assert.Equal(t, StatusCompleted, ex.Status)
	assert.False(t, ex.Disputed)
	assert.ErrorIs(t, ex.ForceComplete(time.Now()), ErrTerminal)

	borrow := newBorrow(t, 7)
	borrow.Status = StatusActive
	require.NoError(t, borrow.MarkDisputed())
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, borrow.ForceComplete(now))
	assert.Equal(t, StatusReturned, borrow.Status)
	require.NotNil(t, borrow.ReturnedAt)
	assert.Nil(t, borrow.PriorStatus)

	sell := newSell(t)
	require.NoError(t, sell.MarkDisputed())
	require.NoError(t, sell.ForceCancel())
	assert.Equal(t, StatusCancelled, sell.Status)
	assert.False(t, sell.Disputed)
}

func TestParticipantHelpers(t *testing.T) {
	tr := newSell(t)
	p, err := tr.PartyOf(tr.RequesterID)
	require.NoError(t, err)
	assert.Equal(t, PartyRequester, p)

	other, err := tr.Counterparty(tr.RequesterID)
	require.NoError(t, err)
	assert.Equal(t, tr.OwnerID, other)

	_, err = tr.PartyOf(uuid.New())
	assert.ErrorIs(t, err, ErrNotParticipant)

	ex := newExchange(t)
	assert.Len(t, ex.BookIDs(), 2)
	assert.Len(t, tr.BookIDs(), 1)
}
