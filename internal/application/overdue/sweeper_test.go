package overdue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainNotification "github.com/shelfswap/shelfswap/internal/domain/notification"
	domainTrade "github.com/shelfswap/shelfswap/internal/domain/trade"
)

type recordingNotifier struct {
	sent []uuid.UUID
}

func (n *recordingNotifier) Notify(_ context.Context, recipientID uuid.UUID, _ domainNotification.Type, _, _ string, _ uuid.UUID) {
	n.sent = append(n.sent, recipientID)
}

func dueBorrow(dueAt time.Time) *domainTrade.Trade {
	return &domainTrade.Trade{
		TradeID:     uuid.New(),
		Kind:        domainTrade.KindBorrow,
		Status:      domainTrade.StatusActive,
		RequesterID: uuid.New(),
		OwnerID:     uuid.New(),
		BookID:      uuid.New(),
		DueAt:       &dueAt,
	}
}

func TestNewSweeperRejectsBadExpression(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := NewSweeper(NewMockRepository(ctrl), &recordingNotifier{}, "days_overdue *", 1.0, zerolog.Nop())
	assert.Error(t, err)
}

func TestSweepOnceMarksDueBorrows(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	notifier := &recordingNotifier{}

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tr := dueBorrow(now.Add(-48 * time.Hour))

	repo.EXPECT().ListActiveBorrowsDueBefore(gomock.Any(), now).Return([]*domainTrade.Trade{tr}, nil)
	// exactly 2 days overdue at 5.0 per day
	repo.EXPECT().MarkOverdue(gomock.Any(), tr.TradeID, 10.0, now).Return(true, nil)

	s, err := NewSweeper(repo, notifier, "", 5.0, zerolog.Nop())
	require.NoError(t, err)

	swept, err := s.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.ElementsMatch(t, []uuid.UUID{tr.RequesterID, tr.OwnerID}, notifier.sent)
}

func TestSweepOnceRoundsPartialDaysUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tr := dueBorrow(now.Add(-30 * time.Hour))

	repo.EXPECT().ListActiveBorrowsDueBefore(gomock.Any(), now).Return([]*domainTrade.Trade{tr}, nil)
	// 30 hours counts as 2 days
	repo.EXPECT().MarkOverdue(gomock.Any(), tr.TradeID, 6.0, now).Return(true, nil)

	s, err := NewSweeper(repo, &recordingNotifier{}, "", 3.0, zerolog.Nop())
	require.NoError(t, err)

	swept, err := s.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
}

func TestSweepOnceSkipsLostRaces(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	notifier := &recordingNotifier{}

	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	winner := dueBorrow(now.Add(-24 * time.Hour))
	loser := dueBorrow(now.Add(-24 * time.Hour))

	repo.EXPECT().ListActiveBorrowsDueBefore(gomock.Any(), now).Return([]*domainTrade.Trade{winner, loser}, nil)
	repo.EXPECT().MarkOverdue(gomock.Any(), winner.TradeID, gomock.Any(), now).Return(true, nil)
	repo.EXPECT().MarkOverdue(gomock.Any(), loser.TradeID, gomock.Any(), now).Return(false, nil)

	s, err := NewSweeper(repo, notifier, "", 2.0, zerolog.Nop())
	require.NoError(t, err)

	swept, err := s.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.ElementsMatch(t, []uuid.UUID{winner.RequesterID, winner.OwnerID}, notifier.sent)
}

func TestSweepOnceCustomExpression(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)

	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	tr := dueBorrow(now.Add(-72 * time.Hour))

	repo.EXPECT().ListActiveBorrowsDueBefore(gomock.Any(), now).Return([]*domainTrade.Trade{tr}, nil)
	// flat fee plus per-day charge: 10 + 3*1.5
	repo.EXPECT().MarkOverdue(gomock.Any(), tr.TradeID, 14.5, now).Return(true, nil)

	s, err := NewSweeper(repo, &recordingNotifier{}, "10 + days_overdue * daily_fee", 1.5, zerolog.Nop())
	require.NoError(t, err)

	swept, err := s.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
}
