package book

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestNewValidation(t *testing.T) {
	owner := uuid.New()

	b, err := New(owner, "Dune", "Frank Herbert", ModeSell, Terms{Price: floatPtr(500)})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, b.Status)
	assert.True(t, b.IsAvailable)
	assert.NotEqual(t, uuid.Nil, b.BookID)

	_, err = New(owner, "", "", ModeSell, Terms{Price: floatPtr(500)})
	assert.Error(t, err, "title required")

	_, err = New(owner, "Dune", "", ModeSell, Terms{})
	assert.Error(t, err, "sell requires price")

	_, err = New(owner, "Dune", "", ModeSell, Terms{Price: floatPtr(-1)})
	assert.Error(t, err, "price must be positive")

	_, err = New(owner, "Dune", "", ModeBorrow, Terms{})
	assert.Error(t, err, "borrow requires loan period")

	_, err = New(owner, "Dune", "", ModeBorrow, Terms{LoanPeriodDays: intPtr(0)})
	assert.Error(t, err, "loan period must be positive")

	_, err = New(owner, "Dune", "", Mode("RENT"), Terms{})
	assert.Error(t, err, "invalid mode")

	_, err = New(uuid.Nil, "Dune", "", ModeExchange, Terms{})
	assert.Error(t, err, "owner required")
}

func TestCanTransitionTo(t *testing.T) {
	b := &Book{Status: StatusActive}
	assert.True(t, b.CanTransitionTo(StatusPending))
	assert.True(t, b.CanTransitionTo(StatusCancelled))
	assert.False(t, b.CanTransitionTo(StatusCompleted))

	b.Status = StatusPending
	assert.True(t, b.CanTransitionTo(StatusActive))
	assert.True(t, b.CanTransitionTo(StatusCompleted))
	assert.False(t, b.CanTransitionTo(StatusCancelled))

	b.Status = StatusCompleted
	assert.False(t, b.CanTransitionTo(StatusActive))
	assert.False(t, b.CanTransitionTo(StatusPending))

	b.Status = StatusCancelled
	assert.False(t, b.CanTransitionTo(StatusActive))
}

func TestDelist(t *testing.T) {
	b, err := New(uuid.New(), "Dune", "", ModeExchange, Terms{})
	require.NoError(t, err)
	require.NoError(t, b.Delist())
	assert.Equal(t, StatusCancelled, b.Status)
	assert.False(t, b.IsAvailable)

	reserved := &Book{Status: StatusPending, IsAvailable: false}
	assert.ErrorIs(t, reserved.Delist(), ErrNotDelistable)
}
