package review

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shelfswap/shelfswap/internal/apperr"
	domainNotification "github.com/shelfswap/shelfswap/internal/domain/notification"
	domainReview "github.com/shelfswap/shelfswap/internal/domain/review"
	domainTrade "github.com/shelfswap/shelfswap/internal/domain/trade"
	tradeMocks "github.com/shelfswap/shelfswap/internal/domain/trade/mocks"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

type reviewRepoStub struct {
	existing  *domainReview.Review
	createErr error
	created   *domainReview.Review
}

func (r *reviewRepoStub) Create(_ context.Context, rev *domainReview.Review) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = rev
	return nil
}

func (r *reviewRepoStub) GetByTradeAndReviewer(context.Context, uuid.UUID, uuid.UUID) (*domainReview.Review, error) {
	return r.existing, nil
}

func (r *reviewRepoStub) ListForReviewee(context.Context, uuid.UUID, int, int) ([]*domainReview.Review, error) {
	return nil, nil
}

type notifyRecorder struct {
	recipients []uuid.UUID
	types      []domainNotification.Type
}

func (n *notifyRecorder) Notify(_ context.Context, recipientID uuid.UUID, typ domainNotification.Type, _, _ string, _ uuid.UUID) {
	n.recipients = append(n.recipients, recipientID)
	n.types = append(n.types, typ)
}

func member(id uuid.UUID) domainUser.Actor {
	return domainUser.Actor{UserID: id, Role: domainUser.RoleMember}
}

func finishedSell(requesterID, ownerID uuid.UUID) *domainTrade.Trade {
	t, err := domainTrade.New(domainTrade.NewParams{
		Kind:        domainTrade.KindSell,
		RequesterID: requesterID,
		OwnerID:     ownerID,
		BookID:      uuid.New(),
	})
	if err != nil {
		panic(err)
	}
	t.Status = domainTrade.StatusCompleted
	return t
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()

	t.Run("participant reviews the counterparty of a finished trade", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		reviews := &reviewRepoStub{}
		notifier := &notifyRecorder{}
		svc := NewService(reviews, trades, notifier, zerolog.Nop())
		tr := finishedSell(requesterID, ownerID)

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		r, err := svc.Create(ctx, member(requesterID), tr.TradeID, 5, "smooth handover")
		require.NoError(t, err)
		assert.Equal(t, ownerID, r.RevieweeID)
		assert.Equal(t, 5, r.Rating)
		assert.Equal(t, []uuid.UUID{ownerID}, notifier.recipients)
		assert.Equal(t, []domainNotification.Type{domainNotification.TypeReviewReceived}, notifier.types)
	})

	t.Run("returned borrows are reviewable too", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		svc := NewService(&reviewRepoStub{}, trades, &notifyRecorder{}, zerolog.Nop())
		tr, err := domainTrade.New(domainTrade.NewParams{
			Kind:          domainTrade.KindBorrow,
			RequesterID:   requesterID,
			OwnerID:       ownerID,
			BookID:        uuid.New(),
			RequestedDays: 7,
		})
		require.NoError(t, err)
		tr.Status = domainTrade.StatusReturned

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		r, err := svc.Create(ctx, member(ownerID), tr.TradeID, 4, "returned on time")
		require.NoError(t, err)
		assert.Equal(t, requesterID, r.RevieweeID)
	})

	t.Run("unfinished trades are not reviewable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		svc := NewService(&reviewRepoStub{}, trades, &notifyRecorder{}, zerolog.Nop())
		tr := finishedSell(requesterID, ownerID)
		tr.Status = domainTrade.StatusAccepted

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		_, err := svc.Create(ctx, member(requesterID), tr.TradeID, 5, "early")
		assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))
	})

	t.Run("cancelled trades never become reviewable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		svc := NewService(&reviewRepoStub{}, trades, &notifyRecorder{}, zerolog.Nop())
		tr := finishedSell(requesterID, ownerID)
		tr.Status = domainTrade.StatusCancelled

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		_, err := svc.Create(ctx, member(requesterID), tr.TradeID, 3, "never happened")
		assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))
	})

	t.Run("one review per participant per trade", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		tr := finishedSell(requesterID, ownerID)
		prior, err := domainReview.New(tr.TradeID, requesterID, ownerID, 5, "first")
		require.NoError(t, err)
		svc := NewService(&reviewRepoStub{existing: prior}, trades, &notifyRecorder{}, zerolog.Nop())

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		_, err = svc.Create(ctx, member(requesterID), tr.TradeID, 4, "second attempt")
		assert.Equal(t, apperr.CodeReviewAlreadyExists, apperr.CodeOf(err))
	})

	t.Run("storage uniqueness backstops the pre-check", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		tr := finishedSell(requesterID, ownerID)
		svc := NewService(&reviewRepoStub{createErr: domainReview.ErrDuplicate}, trades, &notifyRecorder{}, zerolog.Nop())

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		_, err := svc.Create(ctx, member(requesterID), tr.TradeID, 4, "race")
		assert.Equal(t, apperr.CodeReviewAlreadyExists, apperr.CodeOf(err))
	})

	t.Run("outsiders cannot review", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		svc := NewService(&reviewRepoStub{}, trades, &notifyRecorder{}, zerolog.Nop())
		tr := finishedSell(requesterID, ownerID)

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		_, err := svc.Create(ctx, member(uuid.New()), tr.TradeID, 1, "drive-by")
		assert.Equal(t, apperr.CodeNotParticipant, apperr.CodeOf(err))
	})

	t.Run("rating must be within range", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		svc := NewService(&reviewRepoStub{}, trades, &notifyRecorder{}, zerolog.Nop())
		tr := finishedSell(requesterID, ownerID)

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		_, err := svc.Create(ctx, member(requesterID), tr.TradeID, 6, "too good")
		assert.Equal(t, apperr.CodeInvalidParam, apperr.CodeOf(err))
	})
}

func TestService_IsEligible(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()

	t.Run("eligible after completion", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		svc := NewService(&reviewRepoStub{}, trades, &notifyRecorder{}, zerolog.Nop())
		tr := finishedSell(requesterID, ownerID)

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		ok, err := svc.IsEligible(ctx, requesterID, tr.TradeID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not eligible once reviewed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		tr := finishedSell(requesterID, ownerID)
		prior, err := domainReview.New(tr.TradeID, requesterID, ownerID, 5, "done")
		require.NoError(t, err)
		svc := NewService(&reviewRepoStub{existing: prior}, trades, &notifyRecorder{}, zerolog.Nop())

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		ok, err := svc.IsEligible(ctx, requesterID, tr.TradeID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("not eligible for non-participants", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		trades := tradeMocks.NewMockRepository(ctrl)
		svc := NewService(&reviewRepoStub{}, trades, &notifyRecorder{}, zerolog.Nop())
		tr := finishedSell(requesterID, ownerID)

		trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		ok, err := svc.IsEligible(ctx, uuid.New(), tr.TradeID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
