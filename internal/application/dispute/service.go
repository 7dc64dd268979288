package dispute

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
	domainDispute "github.com/shelfswap/shelfswap/internal/domain/dispute"
	domainNotification "github.com/shelfswap/shelfswap/internal/domain/notification"
	domainTrade "github.com/shelfswap/shelfswap/internal/domain/trade"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

// Service runs the dispute workflow. Opening a dispute parks the trade;
// resolution is the one path that forces a trade and its books into a
// terminal consistent state outside the normal lifecycle vocabulary.
type Service struct {
	disputes domainDispute.Repository
	trades   domainTrade.Repository
	guard    appBook.Exclusivity
	notifier appNotification.Notifier
	logger   zerolog.Logger
}

// NewService creates a dispute service.
func NewService(
	disputes domainDispute.Repository,
	trades domainTrade.Repository,
	guard appBook.Exclusivity,
	notifier appNotification.Notifier,
	logger zerolog.Logger,
) *Service {
	return &Service{
		disputes: disputes,
		trades:   trades,
		guard:    guard,
		notifier: notifier,
		logger:   logger.With().Str("service", "dispute").Logger(),
	}
}

// Open raises a dispute on a non-terminal trade the actor participates in.
// One dispute per trade, enforced both here and by the storage uniqueness.
func (s *Service) Open(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID, reason string) (*domainDispute.Dispute, error) {
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
	if t.IsTerminal() {
		return nil, apperr.State(apperr.CodeTradeAlreadyClosed, "cannot dispute a closed trade")
	}
	if existing, err := s.disputes.GetByTradeID(ctx, tradeID); err != nil {
		return nil, apperr.Internal(err)
	} else if existing != nil {
		return nil, apperr.Conflict(apperr.CodeDisputeAlreadyExists, "a dispute already exists for this trade")
	}

	respondent, _ := t.Counterparty(actor.UserID)
	d, err := domainDispute.New(tradeID, actor.UserID, respondent, reason)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidParam, "%s", err.Error())
	}
	if err := s.disputes.Create(ctx, d); err != nil {
		if errors.Is(err, domainDispute.ErrDuplicate) {
			return nil, apperr.Conflict(apperr.CodeDisputeAlreadyExists, "a dispute already exists for this trade")
		}
		return nil, apperr.Internal(err)
	}

	if err := t.MarkDisputed(); err == nil {
		if uerr := s.trades.Update(ctx, t); uerr != nil {
			s.logger.Error().Err(uerr).Str("trade_id", t.TradeID.String()).Msg("failed to park trade under dispute")
		}
	}

	s.notifier.Notify(ctx, respondent, domainNotification.TypeDisputeOpened,
		"A dispute was opened on your trade", "dispute", d.DisputeID)
	s.logger.Info().
		Str("dispute_id", d.DisputeID.String()).
		Str("trade_id", tradeID.String()).
		Msg("dispute opened")
	return d, nil
}

// Assign claims an open dispute for an arbitrator.
func (s *Service) Assign(ctx context.Context, actor domainUser.Actor, disputeID uuid.UUID) (*domainDispute.Dispute, error) {
	d, err := s.getForArbitrator(ctx, actor, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.Assign(actor.UserID); err != nil {
		return nil, s.mapDomainErr(err)
	}
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

// Resolve records the arbitrator's ruling and reconciles the trade and its
// books: RESOLVED completes the trade administratively, CLOSED cancels it.
// A trade disputed before its books were ever reserved is cancelled under
// either outcome. Either way the trade ends terminal and no book stays
// reserved.
func (s *Service) Resolve(ctx context.Context, actor domainUser.Actor, disputeID uuid.UUID, outcome domainDispute.Outcome, notes string) (*domainDispute.Dispute, error) {
	d, err := s.getForArbitrator(ctx, actor, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.Resolve(actor.UserID, outcome, notes); err != nil {
		return nil, s.mapDomainErr(err)
	}
	if err := s.disputes.Update(ctx, d); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.reconcile(ctx, d, outcome); err != nil {
		// The ruling is recorded; reconciliation failures are logged and
		// must be repaired by the arbitrator, not rolled back.
		s.logger.Error().Err(err).Str("dispute_id", d.DisputeID.String()).Msg("dispute reconciliation failed")
	}
	s.logger.Info().
		Str("dispute_id", d.DisputeID.String()).
		Str("outcome", string(outcome)).
		Msg("dispute resolved")
	return d, nil
}

// reconcile forces the disputed trade terminal and settles its books.
func (s *Service) reconcile(ctx context.Context, d *domainDispute.Dispute, outcome domainDispute.Outcome) error {
	t, err := s.trades.GetByID(ctx, d.TradeID)
	if err != nil {
		return err
	}
	if t == nil || t.IsTerminal() {
		return nil
	}
	held := t.HoldsBooks()

	// A trade that never reserved its books has exchanged nothing, so the
	// only consistent terminal is cancelled: completing it would strand a
	// COMPLETED trade over a still-listed book.
	if outcome == domainDispute.OutcomeResolved && held {
		err = t.ForceComplete(time.Now())
	} else {
		err = t.ForceCancel()
	}
	if err != nil {
		return err
	}
	if err := s.trades.Update(ctx, t); err != nil {
		return err
	}

	if held {
		// Completed borrows and any cancellation give the books back; a
		// completed sell or exchange consumes them.
		if outcome == domainDispute.OutcomeResolved && t.Kind != domainTrade.KindBorrow {
			err = s.guard.Consume(ctx, t.BookIDs()...)
		} else {
			err = s.guard.Release(ctx, t.BookIDs()...)
		}
		if err != nil {
			return err
		}
	}

	msg := fmt.Sprintf("Dispute %s: %s", outcome, *d.ResolutionNotes)
	s.notifier.Notify(ctx, t.RequesterID, domainNotification.TypeDisputeResolved, msg, "dispute", d.DisputeID)
	s.notifier.Notify(ctx, t.OwnerID, domainNotification.TypeDisputeResolved, msg, "dispute", d.DisputeID)
	return nil
}

// Get returns a dispute to its participants or an arbitrator.
func (s *Service) Get(ctx context.Context, actor domainUser.Actor, disputeID uuid.UUID) (*domainDispute.Dispute, error) {
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if d == nil {
		return nil, apperr.NotFound("dispute not found")
	}
	if !actor.IsArbitrator() && actor.UserID != d.RaisedBy && actor.UserID != d.AgainstID {
		return nil, apperr.Authorization(apperr.CodeNotParticipant, "not a participant of this dispute")
	}
	return d, nil
}

// List returns disputes for arbitrators.
func (s *Service) List(ctx context.Context, actor domainUser.Actor, filter domainDispute.Filter, limit, offset int) ([]*domainDispute.Dispute, error) {
	if !actor.IsArbitrator() {
		return nil, apperr.Authorization(apperr.CodeForbidden, "arbitrator role required")
	}
	disputes, err := s.disputes.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return disputes, nil
}

func (s *Service) getForArbitrator(ctx context.Context, actor domainUser.Actor, disputeID uuid.UUID) (*domainDispute.Dispute, error) {
	if actor.Suspended {
		return nil, apperr.Authorization(apperr.CodeAccountSuspended, "account is suspended")
	}
	if !actor.IsArbitrator() {
		return nil, apperr.Authorization(apperr.CodeForbidden, "arbitrator role required")
	}
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if d == nil {
		return nil, apperr.NotFound("dispute not found")
	}
	return d, nil
}

func (s *Service) mapDomainErr(err error) error {
	switch {
	case errors.Is(err, domainDispute.ErrAlreadyResolved):
		return apperr.Conflict(apperr.CodeDisputeAlreadyResolved, "dispute already resolved")
	case errors.Is(err, domainDispute.ErrNotesRequired):
		return apperr.Validation(apperr.CodeInvalidParam, "resolution notes are required")
	case errors.Is(err, domainDispute.ErrInvalidTransition):
		return apperr.State(apperr.CodeInvalidState, "operation not valid in the current dispute status")
	default:
		return apperr.Validation(apperr.CodeInvalidParam, "%s", err.Error())
	}
}
