package dispute

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shelfswap/shelfswap/internal/apperr"
	appBook "github.com/shelfswap/shelfswap/internal/application/book"
	bookMocks "github.com/shelfswap/shelfswap/internal/domain/book/mocks"
	domainDispute "github.com/shelfswap/shelfswap/internal/domain/dispute"
	disputeMocks "github.com/shelfswap/shelfswap/internal/domain/dispute/mocks"
	domainNotification "github.com/shelfswap/shelfswap/internal/domain/notification"
	domainTrade "github.com/shelfswap/shelfswap/internal/domain/trade"
	tradeMocks "github.com/shelfswap/shelfswap/internal/domain/trade/mocks"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

type notifyRecorder struct {
	recipients []uuid.UUID
	types      []domainNotification.Type
}

func (n *notifyRecorder) Notify(_ context.Context, recipientID uuid.UUID, typ domainNotification.Type, _, _ string, _ uuid.UUID) {
	n.recipients = append(n.recipients, recipientID)
	n.types = append(n.types, typ)
}

type fixture struct {
	service  *Service
	disputes *disputeMocks.MockRepository
	trades   *tradeMocks.MockRepository
	books    *bookMocks.MockRepository
	notifier *notifyRecorder
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	disputes := disputeMocks.NewMockRepository(ctrl)
	trades := tradeMocks.NewMockRepository(ctrl)
	books := bookMocks.NewMockRepository(ctrl)
	notifier := &notifyRecorder{}
	guard := appBook.NewGuard(books, zerolog.Nop())
	return &fixture{
		service:  NewService(disputes, trades, guard, notifier, zerolog.Nop()),
		disputes: disputes,
		trades:   trades,
		books:    books,
		notifier: notifier,
	}
}

func member(id uuid.UUID) domainUser.Actor {
	return domainUser.Actor{UserID: id, Role: domainUser.RoleMember}
}

func arbitrator() domainUser.Actor {
	return domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleAdmin}
}

func acceptedExchange(requesterID, ownerID uuid.UUID) *domainTrade.Trade {
	offered := uuid.New()
	t, err := domainTrade.New(domainTrade.NewParams{
		Kind:          domainTrade.KindExchange,
		RequesterID:   requesterID,
		OwnerID:       ownerID,
		BookID:        uuid.New(),
		OfferedBookID: &offered,
	})
	if err != nil {
		panic(err)
	}
	t.Status = domainTrade.StatusAccepted
	return t
}

func openDispute(tradeID, raisedBy, againstID uuid.UUID) *domainDispute.Dispute {
	d, err := domainDispute.New(tradeID, raisedBy, againstID, "book never arrived")
	if err != nil {
		panic(err)
	}
	return d
}

func TestService_Open(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()

	t.Run("parks the trade and notifies the respondent", func(t *testing.T) {
		f := newFixture(t)
		tr := acceptedExchange(requesterID, ownerID)

		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.disputes.EXPECT().GetByTradeID(ctx, tr.TradeID).Return(nil, nil)
		f.disputes.EXPECT().Create(ctx, gomock.Any()).Return(nil)
		f.trades.EXPECT().Update(ctx, tr).Return(nil)

		d, err := f.service.Open(ctx, member(requesterID), tr.TradeID, "book never arrived")
		require.NoError(t, err)
		assert.Equal(t, domainDispute.StatusOpen, d.Status)
		assert.Equal(t, ownerID, d.AgainstID)
		assert.True(t, tr.Disputed)
		// exchange keeps its lifecycle status while flagged
		assert.Equal(t, domainTrade.StatusAccepted, tr.Status)
		assert.Equal(t, []uuid.UUID{ownerID}, f.notifier.recipients)
		assert.Equal(t, []domainNotification.Type{domainNotification.TypeDisputeOpened}, f.notifier.types)
	})

	t.Run("borrow is parked at the disputed status", func(t *testing.T) {
		f := newFixture(t)
		tr, err := domainTrade.New(domainTrade.NewParams{
			Kind:          domainTrade.KindBorrow,
			RequesterID:   requesterID,
			OwnerID:       ownerID,
			BookID:        uuid.New(),
			RequestedDays: 7,
		})
		require.NoError(t, err)
		tr.Status = domainTrade.StatusActive

		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.disputes.EXPECT().GetByTradeID(ctx, tr.TradeID).Return(nil, nil)
		f.disputes.EXPECT().Create(ctx, gomock.Any()).Return(nil)
		f.trades.EXPECT().Update(ctx, tr).Return(nil)

		_, err = f.service.Open(ctx, member(ownerID), tr.TradeID, "book came back damaged")
		require.NoError(t, err)
		assert.Equal(t, domainTrade.StatusDisputed, tr.Status)
		require.NotNil(t, tr.PriorStatus)
		assert.Equal(t, domainTrade.StatusActive, *tr.PriorStatus)
	})

	t.Run("one dispute per trade", func(t *testing.T) {
		f := newFixture(t)
		tr := acceptedExchange(requesterID, ownerID)
		existing := openDispute(tr.TradeID, requesterID, ownerID)

		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.disputes.EXPECT().GetByTradeID(ctx, tr.TradeID).Return(existing, nil)

		_, err := f.service.Open(ctx, member(ownerID), tr.TradeID, "still nothing")
		assert.Equal(t, apperr.CodeDisputeAlreadyExists, apperr.CodeOf(err))
	})

	t.Run("storage uniqueness backstops the pre-check", func(t *testing.T) {
		f := newFixture(t)
		tr := acceptedExchange(requesterID, ownerID)

		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.disputes.EXPECT().GetByTradeID(ctx, tr.TradeID).Return(nil, nil)
		f.disputes.EXPECT().Create(ctx, gomock.Any()).Return(domainDispute.ErrDuplicate)

		_, err := f.service.Open(ctx, member(requesterID), tr.TradeID, "book never arrived")
		assert.Equal(t, apperr.CodeDisputeAlreadyExists, apperr.CodeOf(err))
	})

	t.Run("closed trades cannot be disputed", func(t *testing.T) {
		f := newFixture(t)
		tr := acceptedExchange(requesterID, ownerID)
		tr.Status = domainTrade.StatusCompleted

		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		_, err := f.service.Open(ctx, member(requesterID), tr.TradeID, "too late")
		assert.Equal(t, apperr.CodeTradeAlreadyClosed, apperr.CodeOf(err))
	})

	t.Run("only participants may dispute", func(t *testing.T) {
		f := newFixture(t)
		tr := acceptedExchange(requesterID, ownerID)

		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)

		_, err := f.service.Open(ctx, member(uuid.New()), tr.TradeID, "not mine")
		assert.Equal(t, apperr.CodeNotParticipant, apperr.CodeOf(err))
	})
}

func TestService_Assign(t *testing.T) {
	ctx := context.Background()

	t.Run("arbitrator claims an open dispute", func(t *testing.T) {
		f := newFixture(t)
		arb := arbitrator()
		d := openDispute(uuid.New(), uuid.New(), uuid.New())

		f.disputes.EXPECT().GetByID(ctx, d.DisputeID).Return(d, nil)
		f.disputes.EXPECT().Update(ctx, d).Return(nil)

		got, err := f.service.Assign(ctx, arb, d.DisputeID)
		require.NoError(t, err)
		assert.Equal(t, domainDispute.StatusInProgress, got.Status)
		require.NotNil(t, got.AssignedTo)
		assert.Equal(t, arb.UserID, *got.AssignedTo)
	})

	t.Run("members cannot claim disputes", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Assign(ctx, member(uuid.New()), uuid.New())
		assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	})
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()

	t.Run("resolved exchange completes the trade and consumes the books", func(t *testing.T) {
		f := newFixture(t)
		arb := arbitrator()
		tr := acceptedExchange(requesterID, ownerID)
		require.NoError(t, tr.MarkDisputed())
		d := openDispute(tr.TradeID, requesterID, ownerID)

		f.disputes.EXPECT().GetByID(ctx, d.DisputeID).Return(d, nil)
		f.disputes.EXPECT().Update(ctx, d).Return(nil)
		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.trades.EXPECT().Update(ctx, tr).Return(nil)
		f.books.EXPECT().Consume(ctx, tr.BookID, *tr.OfferedBookID).Return(nil)

		got, err := f.service.Resolve(ctx, arb, d.DisputeID, domainDispute.OutcomeResolved, "both parties agreed to proceed")
		require.NoError(t, err)
		assert.Equal(t, domainDispute.StatusResolved, got.Status)
		assert.Equal(t, domainTrade.StatusCompleted, tr.Status)
		assert.False(t, tr.Disputed)
		assert.ElementsMatch(t, []uuid.UUID{requesterID, ownerID}, f.notifier.recipients)
	})

	t.Run("closed borrow cancels the loan and releases the book", func(t *testing.T) {
		f := newFixture(t)
		arb := arbitrator()
		tr, err := domainTrade.New(domainTrade.NewParams{
			Kind:          domainTrade.KindBorrow,
			RequesterID:   requesterID,
			OwnerID:       ownerID,
			BookID:        uuid.New(),
			RequestedDays: 7,
		})
		require.NoError(t, err)
		tr.Status = domainTrade.StatusActive
		require.NoError(t, tr.MarkDisputed())
		d := openDispute(tr.TradeID, ownerID, requesterID)

		f.disputes.EXPECT().GetByID(ctx, d.DisputeID).Return(d, nil)
		f.disputes.EXPECT().Update(ctx, d).Return(nil)
		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.trades.EXPECT().Update(ctx, tr).Return(nil)
		f.books.EXPECT().Release(ctx, tr.BookID).Return(nil)

		_, err = f.service.Resolve(ctx, arb, d.DisputeID, domainDispute.OutcomeClosed, "loan voided")
		require.NoError(t, err)
		assert.Equal(t, domainTrade.StatusCancelled, tr.Status)
	})

	t.Run("resolved borrow ends as returned and releases the book", func(t *testing.T) {
		f := newFixture(t)
		arb := arbitrator()
		tr, err := domainTrade.New(domainTrade.NewParams{
			Kind:          domainTrade.KindBorrow,
			RequesterID:   requesterID,
			OwnerID:       ownerID,
			BookID:        uuid.New(),
			RequestedDays: 7,
		})
		require.NoError(t, err)
		tr.Status = domainTrade.StatusOverdue
		require.NoError(t, tr.MarkDisputed())
		d := openDispute(tr.TradeID, ownerID, requesterID)

		f.disputes.EXPECT().GetByID(ctx, d.DisputeID).Return(d, nil)
		f.disputes.EXPECT().Update(ctx, d).Return(nil)
		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.trades.EXPECT().Update(ctx, tr).Return(nil)
		f.books.EXPECT().Release(ctx, tr.BookID).Return(nil)

		_, err = f.service.Resolve(ctx, arb, d.DisputeID, domainDispute.OutcomeResolved, "book handed back in person")
		require.NoError(t, err)
		assert.Equal(t, domainTrade.StatusReturned, tr.Status)
		assert.NotNil(t, tr.ReturnedAt)
	})

	t.Run("pending trade settles without touching books", func(t *testing.T) {
		f := newFixture(t)
		arb := arbitrator()
		tr := acceptedExchange(requesterID, ownerID)
		tr.Status = domainTrade.StatusPending
		require.NoError(t, tr.MarkDisputed())
		d := openDispute(tr.TradeID, requesterID, ownerID)

		f.disputes.EXPECT().GetByID(ctx, d.DisputeID).Return(d, nil)
		f.disputes.EXPECT().Update(ctx, d).Return(nil)
		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.trades.EXPECT().Update(ctx, tr).Return(nil)

		_, err := f.service.Resolve(ctx, arb, d.DisputeID, domainDispute.OutcomeClosed, "request withdrawn")
		require.NoError(t, err)
		assert.Equal(t, domainTrade.StatusCancelled, tr.Status)
	})

	t.Run("resolving a pending trade cancels it and leaves the listing live", func(t *testing.T) {
		f := newFixture(t)
		arb := arbitrator()
		tr := acceptedExchange(requesterID, ownerID)
		tr.Status = domainTrade.StatusPending
		require.NoError(t, tr.MarkDisputed())
		d := openDispute(tr.TradeID, requesterID, ownerID)

		f.disputes.EXPECT().GetByID(ctx, d.DisputeID).Return(d, nil)
		f.disputes.EXPECT().Update(ctx, d).Return(nil)
		f.trades.EXPECT().GetByID(ctx, tr.TradeID).Return(tr, nil)
		f.trades.EXPECT().Update(ctx, tr).Return(nil)

		_, err := f.service.Resolve(ctx, arb, d.DisputeID, domainDispute.OutcomeResolved, "listing was misdescribed")
		require.NoError(t, err)
		assert.Equal(t, domainTrade.StatusCancelled, tr.Status)
	})

	t.Run("a dispute is ruled on at most once", func(t *testing.T) {
		f := newFixture(t)
		arb := arbitrator()
		d := openDispute(uuid.New(), requesterID, ownerID)
		require.NoError(t, d.Resolve(arb.UserID, domainDispute.OutcomeClosed, "done"))

		f.disputes.EXPECT().GetByID(ctx, d.DisputeID).Return(d, nil)

		_, err := f.service.Resolve(ctx, arb, d.DisputeID, domainDispute.OutcomeResolved, "again")
		assert.Equal(t, apperr.CodeDisputeAlreadyResolved, apperr.CodeOf(err))
	})

	t.Run("resolution requires notes", func(t *testing.T) {
		f := newFixture(t)
		arb := arbitrator()
		d := openDispute(uuid.New(), requesterID, ownerID)

		f.disputes.EXPECT().GetByID(ctx, d.DisputeID).Return(d, nil)

		_, err := f.service.Resolve(ctx, arb, d.DisputeID, domainDispute.OutcomeResolved, "  ")
		assert.Equal(t, apperr.CodeInvalidParam, apperr.CodeOf(err))
	})
}
