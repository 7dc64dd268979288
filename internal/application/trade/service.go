package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfswap/shelfswap/internal/apperr"
	appBook "github.com/shelfswap/shelfswap/internal/application/book"
	appNotification "github.com/shelfswap/shelfswap/internal/application/notification"
	domainBook "github.com/shelfswap/shelfswap/internal/domain/book"
	domainConversation "github.com/shelfswap/shelfswap/internal/domain/conversation"
	domainNotification "github.com/shelfswap/shelfswap/internal/domain/notification"
	domainTrade "github.com/shelfswap/shelfswap/internal/domain/trade"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

// Service drives the trade lifecycle: creation, acceptance and the
// reservation it implies, payment and handover marking, dual-confirmation
// completion, and the overdue scan. All mutations refuse suspended actors
// and disputed trades.
type Service struct {
	trades   domainTrade.Repository
	books    domainBook.Repository
	guard    appBook.Exclusivity
	convs    domainConversation.Repository
	notifier appNotification.Notifier
	logger   zerolog.Logger
}

// NewService creates a trade service.
func NewService(
	trades domainTrade.Repository,
	books domainBook.Repository,
	guard appBook.Exclusivity,
	convs domainConversation.Repository,
	notifier appNotification.Notifier,
	logger zerolog.Logger,
) *Service {
	return &Service{
		trades:   trades,
		books:    books,
		guard:    guard,
		convs:    convs,
		notifier: notifier,
		logger:   logger.With().Str("service", "trade").Logger(),
	}
}

// CreateParams carries trade-creation input.
type CreateParams struct {
	Kind          domainTrade.Kind
	BookID        uuid.UUID
	OfferedBookID *uuid.UUID
	RequestedDays int
}

var kindForMode = map[domainBook.Mode]domainTrade.Kind{
	domainBook.ModeExchange: domainTrade.KindExchange,
	domainBook.ModeSell:     domainTrade.KindSell,
	domainBook.ModeBorrow:   domainTrade.KindBorrow,
}

// Create opens a pending trade against an available book. The book is not
// reserved yet; reservation happens on acceptance.
func (s *Service) Create(ctx context.Context, actor domainUser.Actor, p CreateParams) (*domainTrade.Trade, error) {
	if actor.Suspended {
		return nil, apperr.Authorization(apperr.CodeAccountSuspended, "account is suspended")
	}
	b, err := s.books.GetByID(ctx, p.BookID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if b == nil {
		return nil, apperr.NotFound("book not found")
	}
	if kindForMode[b.Mode] != p.Kind {
		return nil, apperr.Validation(apperr.CodeInvalidBookMode, "book is listed for %s, not %s", b.Mode, p.Kind)
	}
	if b.OwnerID == actor.UserID {
		return nil, apperr.Validation(apperr.CodeSelfTradeForbidden, "cannot trade your own book")
	}
	if !b.IsAvailable {
		return nil, apperr.Conflict(apperr.CodeBookUnavailable, "book is not available")
	}
	if p.Kind == domainTrade.KindExchange {
		if err := s.validateOfferedBook(ctx, actor.UserID, p.OfferedBookID); err != nil {
			return nil, err
		}
	}
	dup, err := s.trades.HasPendingForRequesterAndBook(ctx, actor.UserID, p.BookID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if dup {
		return nil, apperr.Conflict(apperr.CodeDuplicateRequest, "a pending request for this book already exists")
	}

	t, err := domainTrade.New(domainTrade.NewParams{
		Kind:          p.Kind,
		RequesterID:   actor.UserID,
		OwnerID:       b.OwnerID,
		BookID:        p.BookID,
		OfferedBookID: p.OfferedBookID,
		RequestedDays: p.RequestedDays,
	})
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidParam, "%s", err.Error())
	}
	if err := s.trades.Create(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	if _, err := s.convs.Ensure(ctx, domainConversation.New(t.TradeID, t.RequesterID, t.OwnerID)); err != nil {
		s.logger.Warn().Err(err).Str("trade_id", t.TradeID.String()).Msg("failed to ensure conversation")
	}
	s.notifier.Notify(ctx, t.OwnerID, domainNotification.TypeRequestReceived,
		fmt.Sprintf("New %s request for %q", t.Kind, b.Title), "trade", t.TradeID)
	s.logger.Info().
		Str("trade_id", t.TradeID.String()).
		Str("kind", string(t.Kind)).
		Str("book_id", b.BookID.String()).
		Msg("trade created")
	return t, nil
}

func (s *Service) validateOfferedBook(ctx context.Context, requesterID uuid.UUID, offeredID *uuid.UUID) error {
	if offeredID == nil {
		return apperr.Validation(apperr.CodeInvalidParam, "exchange requires an offered book")
	}
	offered, err := s.books.GetByID(ctx, *offeredID)
	if err != nil {
		return apperr.Internal(err)
	}
	if offered == nil {
		return apperr.NotFound("offered book not found")
	}
	if offered.OwnerID != requesterID {
		return apperr.Authorization(apperr.CodeForbidden, "offered book must be your own listing")
	}
	if offered.Mode != domainBook.ModeExchange {
		return apperr.Validation(apperr.CodeInvalidBookMode, "offered book is not listed for exchange")
	}
	if !offered.IsAvailable {
		return apperr.Conflict(apperr.CodeBookUnavailable, "offered book is not available")
	}
	return nil
}

// AcceptOptions carries variant options for acceptance.
type AcceptOptions struct {
	// AgreedDays is the owner's counter-offer for a borrow; zero accepts
	// the requested duration.
	AgreedDays int
}

// Accept reserves the book(s) and moves the trade to accepted. Losing the
// reservation race auto-cancels this trade: the request is no longer
// possible, which is different from the owner choosing to reject it. Every
// other pending request touching the reserved books is cancelled too.
func (s *Service) Accept(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID, opts AcceptOptions) (*domainTrade.Trade, error) {
	t, err := s.getForUpdate(ctx, actor, tradeID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != t.OwnerID {
		return nil, apperr.Authorization(apperr.CodeForbidden, "only the book owner may accept")
	}
	if t.Status != domainTrade.StatusPending {
		return nil, apperr.State(apperr.CodeInvalidState, "trade is not pending")
	}

	if err := s.guard.TryReserve(ctx, t.BookIDs()...); err != nil {
		if apperr.CodeOf(err) == apperr.CodeBookUnavailable {
			if cerr := t.Cancel(); cerr == nil {
				if uerr := s.trades.Update(ctx, t); uerr != nil {
					s.logger.Error().Err(uerr).Str("trade_id", t.TradeID.String()).Msg("failed to auto-cancel trade")
				} else {
					s.notifier.Notify(ctx, t.RequesterID, domainNotification.TypeStatusChanged,
						"Your request was cancelled: the book is no longer available", "trade", t.TradeID)
				}
			}
		}
		return nil, err
	}

	if err := t.Accept(opts.AgreedDays); err != nil {
		// The reservation went through but the transition did not; put the
		// books back before failing.
		if rerr := s.guard.Release(ctx, t.BookIDs()...); rerr != nil {
			s.logger.Error().Err(rerr).Str("trade_id", t.TradeID.String()).Msg("failed to release after accept error")
		}
		return nil, s.mapDomainErr(err)
	}
	if err := s.trades.Update(ctx, t); err != nil {
		// The trade is still pending in storage; a kept reservation would
		// strand the books.
		if rerr := s.guard.Release(ctx, t.BookIDs()...); rerr != nil {
			s.logger.Error().Err(rerr).Str("trade_id", t.TradeID.String()).Msg("failed to release after update error")
		}
		return nil, apperr.Internal(err)
	}

	s.cancelSiblings(ctx, t)

	s.notifier.Notify(ctx, t.RequesterID, domainNotification.TypeStatusChanged,
		"Your request was accepted", "trade", t.TradeID)
	s.logger.Info().Str("trade_id", t.TradeID.String()).Msg("trade accepted")
	return t, nil
}

// cancelSiblings cancels every other pending trade referencing a book this
// trade just reserved, notifying each displaced requester.
func (s *Service) cancelSiblings(ctx context.Context, winner *domainTrade.Trade) {
	for _, bookID := range winner.BookIDs() {
		pending, err := s.trades.ListPendingForBook(ctx, bookID)
		if err != nil {
			s.logger.Error().Err(err).Str("book_id", bookID.String()).Msg("failed to list sibling requests")
			continue
		}
		for _, sibling := range pending {
			if sibling.TradeID == winner.TradeID {
				continue
			}
			if err := sibling.Cancel(); err != nil {
				continue
			}
			if err := s.trades.Update(ctx, sibling); err != nil {
				s.logger.Error().Err(err).Str("trade_id", sibling.TradeID.String()).Msg("failed to cancel sibling request")
				continue
			}
			s.notifier.Notify(ctx, sibling.RequesterID, domainNotification.TypeStatusChanged,
				"Your request was cancelled: the book was promised to another trade", "trade", sibling.TradeID)
		}
	}
}

// Reject declines a pending trade. The book was never reserved, so no book
// state changes.
func (s *Service) Reject(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID) (*domainTrade.Trade, error) {
	t, err := s.getForUpdate(ctx, actor, tradeID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != t.OwnerID {
		return nil, apperr.Authorization(apperr.CodeForbidden, "only the book owner may reject")
	}
	if err := t.Reject(); err != nil {
		return nil, s.mapDomainErr(err)
	}
	if err := s.trades.Update(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	s.notifier.Notify(ctx, t.RequesterID, domainNotification.TypeStatusChanged,
		"Your request was rejected", "trade", t.TradeID)
	return t, nil
}

// Cancel withdraws a trade per the variant's cancellation policy,
// releasing the book(s) when the trade had them reserved.
func (s *Service) Cancel(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID) (*domainTrade.Trade, error) {
	t, err := s.getForUpdate(ctx, actor, tradeID)
	if err != nil {
		return nil, err
	}
	party, err := t.PartyOf(actor.UserID)
	if err != nil {
		return nil, apperr.Authorization(apperr.CodeNotParticipant, "not a participant of this trade")
	}
	if !t.CancellableBy(party) {
		return nil, apperr.Authorization(apperr.CodeForbidden, "this participant may not cancel from the current state")
	}
	wasReserved := t.HoldsBooks()
	if err := t.Cancel(); err != nil {
		return nil, s.mapDomainErr(err)
	}
	if err := s.trades.Update(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	if wasReserved {
		if err := s.guard.Release(ctx, t.BookIDs()...); err != nil {
			s.logger.Error().Err(err).Str("trade_id", t.TradeID.String()).Msg("failed to release books on cancel")
		}
	}
	other, _ := t.Counterparty(actor.UserID)
	s.notifier.Notify(ctx, other, domainNotification.TypeStatusChanged,
		"The trade was cancelled", "trade", t.TradeID)
	return t, nil
}

// MarkPaid asserts out-of-band payment on a sell trade. Seller only.
func (s *Service) MarkPaid(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID) (*domainTrade.Trade, error) {
	t, err := s.getForUpdate(ctx, actor, tradeID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != t.OwnerID {
		return nil, apperr.Authorization(apperr.CodeForbidden, "only the seller may mark payment")
	}
	if err := t.MarkPaid(); err != nil {
		return nil, s.mapDomainErr(err)
	}
	if err := s.trades.Update(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	s.notifier.Notify(ctx, t.RequesterID, domainNotification.TypePaymentChanged,
		"Payment was marked as received", "trade", t.TradeID)
	return t, nil
}

// MarkHandedOver records the handover of a borrowed book and fixes the due
// date. Owner only.
func (s *Service) MarkHandedOver(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID) (*domainTrade.Trade, error) {
	t, err := s.getForUpdate(ctx, actor, tradeID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != t.OwnerID {
		return nil, apperr.Authorization(apperr.CodeForbidden, "only the owner may mark the handover")
	}
	if err := t.MarkHandedOver(time.Now()); err != nil {
		return nil, s.mapDomainErr(err)
	}
	if err := s.trades.Update(ctx, t); err != nil {
		return nil, apperr.Internal(err)
	}
	s.notifier.Notify(ctx, t.RequesterID, domainNotification.TypeStatusChanged,
		fmt.Sprintf("Book handed over; due back by %s", t.DueAt.Format("2006-01-02")), "trade", t.TradeID)
	return t, nil
}

// Confirm records the acting participant's completion confirmation.
// Re-confirming is a no-op. The instant both parties have confirmed, the
// trade ends and the completion side effects fire exactly once, even under
// concurrent confirmation: the flag write and the terminal transition are
// both conditional updates, and only the transition's single winner runs
// the side effects.
func (s *Service) Confirm(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID) (*domainTrade.Trade, error) {
	t, err := s.getForUpdate(ctx, actor, tradeID)
	if err != nil {
		return nil, err
	}
	party, err := t.PartyOf(actor.UserID)
	if err != nil {
		return nil, apperr.Authorization(apperr.CodeNotParticipant, "not a participant of this trade")
	}
	if t.Kind == domainTrade.KindSell && !t.IsPaid() {
		return nil, apperr.State(apperr.CodePaymentPending, "payment must be marked before confirming")
	}
	if err := t.CanConfirm(); err != nil {
		return nil, s.mapDomainErr(err)
	}

	allowed := t.ConfirmableStatuses()
	updated, err := s.trades.Confirm(ctx, t.TradeID, party, allowed)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if updated == nil {
		return nil, apperr.State(apperr.CodeInvalidState, "trade is no longer confirmable")
	}
	if !updated.BothConfirmed() {
		return updated, nil
	}

	won, err := s.trades.CompleteIfConfirmed(ctx, t.TradeID, allowed, updated.TerminalSuccess())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if won {
		s.finishCompleted(ctx, updated)
	}
	final, err := s.trades.GetByID(ctx, t.TradeID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return final, nil
}

// finishCompleted runs the completion side effects for the confirmation
// winner: consume sold/exchanged books, release returned ones, tell both
// parties.
func (s *Service) finishCompleted(ctx context.Context, t *domainTrade.Trade) {
	var err error
	if t.Kind == domainTrade.KindBorrow {
		err = s.guard.Release(ctx, t.BookIDs()...)
	} else {
		err = s.guard.Consume(ctx, t.BookIDs()...)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("trade_id", t.TradeID.String()).Msg("failed to settle books on completion")
	}
	msg := "Trade completed"
	if t.Kind == domainTrade.KindBorrow {
		msg = "Book returned; loan completed"
	}
	s.notifier.Notify(ctx, t.RequesterID, domainNotification.TypeStatusChanged, msg, "trade", t.TradeID)
	s.notifier.Notify(ctx, t.OwnerID, domainNotification.TypeStatusChanged, msg, "trade", t.TradeID)
	s.logger.Info().Str("trade_id", t.TradeID.String()).Str("kind", string(t.Kind)).Msg("trade completed")
}

// Get returns a trade to one of its participants or an arbitrator.
func (s *Service) Get(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID) (*domainTrade.Trade, error) {
	t, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if t == nil {
		return nil, apperr.NotFound("trade not found")
	}
	if !t.IsParticipant(actor.UserID) && !actor.IsArbitrator() {
		return nil, apperr.Authorization(apperr.CodeNotParticipant, "not a participant of this trade")
	}
	return t, nil
}

// ListForUser returns the actor's trades.
func (s *Service) ListForUser(ctx context.Context, actor domainUser.Actor, filter domainTrade.Filter, limit, offset int) ([]*domainTrade.Trade, error) {
	filter.UserID = &actor.UserID
	trades, err := s.trades.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return trades, nil
}

// ListOverdue returns active borrows past their due date as of the given
// instant. The core runs no timers; the sweeper calls this.
func (s *Service) ListOverdue(ctx context.Context, asOf time.Time) ([]*domainTrade.Trade, error) {
	trades, err := s.trades.ListActiveBorrowsDueBefore(ctx, asOf)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return trades, nil
}

// getForUpdate loads a trade for a mutating call: actor must not be
// suspended, the trade must exist, and the actor must be a participant.
func (s *Service) getForUpdate(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID) (*domainTrade.Trade, error) {
	if actor.Suspended {
		return nil, apperr.Authorization(apperr.CodeAccountSuspended, "account is suspended")
	}
	t, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if t == nil {
		return nil, apperr.NotFound("trade not found")
	}
	if !t.IsParticipant(actor.UserID) {
		return nil, apperr.Authorization(apperr.CodeNotParticipant, "not a participant of this trade")
	}
	return t, nil
}

// mapDomainErr translates domain sentinel errors into the typed taxonomy.
func (s *Service) mapDomainErr(err error) error {
	switch {
	case errors.Is(err, domainTrade.ErrDisputed):
		return apperr.State(apperr.CodeTradeDisputed, "trade is under dispute")
	case errors.Is(err, domainTrade.ErrTerminal):
		return apperr.State(apperr.CodeTradeAlreadyClosed, "trade is already closed")
	case errors.Is(err, domainTrade.ErrNotConfirmable):
		return apperr.State(apperr.CodeInvalidState, "trade is not in a confirmable state")
	case errors.Is(err, domainTrade.ErrInvalidTransition):
		return apperr.State(apperr.CodeInvalidState, "operation not valid in the current status")
	case errors.Is(err, domainTrade.ErrWrongKind):
		return apperr.Validation(apperr.CodeInvalidParam, "operation not defined for this trade kind")
	case errors.Is(err, domainTrade.ErrNotParticipant):
		return apperr.Authorization(apperr.CodeNotParticipant, "not a participant of this trade")
	default:
		return apperr.Validation(apperr.CodeInvalidParam, "%s", err.Error())
	}
}
