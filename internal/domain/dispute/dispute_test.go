package dispute

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	d, err := New(uuid.New(), uuid.New(), uuid.New(), "book never arrived")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, d.Status)
	assert.NotEqual(t, uuid.Nil, d.DisputeID)

	_, err = New(uuid.New(), uuid.New(), uuid.New(), "   ")
	assert.Error(t, err, "reason required")

	_, err = New(uuid.Nil, uuid.New(), uuid.New(), "reason")
	assert.Error(t, err)
}

func TestAssign(t *testing.T) {
	d, _ := New(uuid.New(), uuid.New(), uuid.New(), "reason")
	admin := uuid.New()
	require.NoError(t, d.Assign(admin))
	assert.Equal(t, StatusInProgress, d.Status)
	require.NotNil(t, d.AssignedTo)
	assert.Equal(t, admin, *d.AssignedTo)

	assert.ErrorIs(t, d.Assign(admin), ErrInvalidTransition, "cannot claim twice")
}

func TestResolve(t *testing.T) {
	d, _ := New(uuid.New(), uuid.New(), uuid.New(), "reason")
	admin := uuid.New()

	assert.ErrorIs(t, d.Resolve(admin, OutcomeResolved, ""), ErrNotesRequired)

	require.NoError(t, d.Resolve(admin, OutcomeResolved, "seller refunded out of band"))
	assert.Equal(t, StatusResolved, d.Status)
	require.NotNil(t, d.ResolvedBy)
	assert.Equal(t, admin, *d.ResolvedBy)
	require.NotNil(t, d.ResolvedAt)
	assert.True(t, d.IsTerminal())

	assert.ErrorIs(t, d.Resolve(admin, OutcomeClosed, "again"), ErrAlreadyResolved)
}

func TestResolveFromInProgress(t *testing.T) {
	d, _ := New(uuid.New(), uuid.New(), uuid.New(), "reason")
	admin := uuid.New()
	require.NoError(t, d.Assign(admin))
	require.NoError(t, d.Resolve(admin, OutcomeClosed, "raiser withdrew the complaint"))
	assert.Equal(t, StatusClosed, d.Status)
}

func TestResolveInvalidOutcome(t *testing.T) {
	d, _ := New(uuid.New(), uuid.New(), uuid.New(), "reason")
	assert.Error(t, d.Resolve(uuid.New(), Outcome("SPLIT"), "notes"))
	assert.Equal(t, StatusOpen, d.Status)
}
