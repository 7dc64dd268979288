package review

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfswap/shelfswap/internal/apperr"
	appNotification "github.com/shelfswap/shelfswap/internal/application/notification"
	domainNotification "github.com/shelfswap/shelfswap/internal/domain/notification"
	domainReview "github.com/shelfswap/shelfswap/internal/domain/review"
	domainTrade "github.com/shelfswap/shelfswap/internal/domain/trade"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

// Service gates and records post-trade reviews. Eligibility is derived,
// not stored: a participant of a successfully finished trade who has not
// reviewed it yet may review the other participant.
type Service struct {
	reviews  domainReview.Repository
	trades   domainTrade.Repository
	notifier appNotification.Notifier
	logger   zerolog.Logger
}

// NewService creates a review service.
func NewService(reviews domainReview.Repository, trades domainTrade.Repository, notifier appNotification.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		reviews:  reviews,
		trades:   trades,
		notifier: notifier,
		logger:   logger.With().Str("service", "review").Logger(),
	}
}

func tradeFinishedSuccessfully(t *domainTrade.Trade) bool {
	return t.Status == domainTrade.StatusCompleted || t.Status == domainTrade.StatusReturned
}

// IsEligible reports whether the user may review the counterparty of the
// trade right now.
func (s *Service) IsEligible(ctx context.Context, userID, tradeID uuid.UUID) (bool, error) {
	t, err := s.trades.GetByID(ctx, tradeID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	if t == nil || !tradeFinishedSuccessfully(t) || !t.IsParticipant(userID) {
		return false, nil
	}
	existing, err := s.reviews.GetByTradeAndReviewer(ctx, tradeID, userID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return existing == nil, nil
}

// ResolveReviewee returns the other participant of the trade.
func (s *Service) ResolveReviewee(t *domainTrade.Trade, reviewerID uuid.UUID) (uuid.UUID, error) {
	reviewee, err := t.Counterparty(reviewerID)
	if err != nil {
		return uuid.Nil, apperr.Authorization(apperr.CodeNotParticipant, "not a participant of this trade")
	}
	if reviewee == reviewerID {
		return uuid.Nil, apperr.Validation(apperr.CodeSelfReviewForbidden, "cannot review yourself")
	}
	return reviewee, nil
}

// Create records the actor's review of the trade's other participant.
func (s *Service) Create(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID, rating int, comment string) (*domainReview.Review, error) {
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
	reviewee, err := s.ResolveReviewee(t, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !tradeFinishedSuccessfully(t) {
		return nil, apperr.State(apperr.CodeInvalidState, "trade is not completed")
	}
	existing, err := s.reviews.GetByTradeAndReviewer(ctx, tradeID, actor.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict(apperr.CodeReviewAlreadyExists, "you already reviewed this trade")
	}

	r, err := domainReview.New(tradeID, actor.UserID, reviewee, rating, comment)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidParam, "%s", err.Error())
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, domainReview.ErrDuplicate) {
			return nil, apperr.Conflict(apperr.CodeReviewAlreadyExists, "you already reviewed this trade")
		}
		return nil, apperr.Internal(err)
	}
	s.notifier.Notify(ctx, reviewee, domainNotification.TypeReviewReceived,
		"You received a new review", "review", r.ReviewID)
	return r, nil
}

// ListForUser returns reviews received by a user.
func (s *Service) ListForUser(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]*domainReview.Review, error) {
	reviews, err := s.reviews.ListForReviewee(ctx, revieweeID, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return reviews, nil
}
