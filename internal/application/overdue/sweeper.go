package overdue

import (
	"context"
	"fmt"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appNotification "github.com/shelfswap/shelfswap/internal/application/notification"
	domainNotification "github.com/shelfswap/shelfswap/internal/domain/notification"
	domainTrade "github.com/shelfswap/shelfswap/internal/domain/trade"
)

//go:generate go run go.uber.org/mock/mockgen -source=sweeper.go -destination=repository_mock.go -package=overdue

// Repository is the slice of trade persistence the sweeper needs.
type Repository interface {
	ListActiveBorrowsDueBefore(ctx context.Context, asOf time.Time) ([]*domainTrade.Trade, error)
	MarkOverdue(ctx context.Context, tradeID uuid.UUID, lateFee float64, asOf time.Time) (bool, error)
}

// DefaultFeeExpression is the late-fee policy when none is configured.
const DefaultFeeExpression = "days_overdue * daily_fee"

// Sweeper flips past-due active borrows to overdue. The core runs no
// timers; the caller schedules SweepOnce.
type Sweeper struct {
	trades   Repository
	notifier appNotification.Notifier
	expr     *govaluate.EvaluableExpression
	dailyFee float64
	logger   zerolog.Logger
}

// NewSweeper creates a sweeper with the given late-fee expression. The
// expression sees days_overdue and daily_fee and must evaluate to a number.
func NewSweeper(trades Repository, notifier appNotification.Notifier, feeExpression string, dailyFee float64, logger zerolog.Logger) (*Sweeper, error) {
	if feeExpression == "" {
		feeExpression = DefaultFeeExpression
	}
	expr, err := govaluate.NewEvaluableExpression(feeExpression)
	if err != nil {
		return nil, fmt.Errorf("invalid late-fee expression: %w", err)
	}
	return &Sweeper{
		trades:   trades,
		notifier: notifier,
		expr:     expr,
		dailyFee: dailyFee,
		logger:   logger.With().Str("service", "overdue_sweeper").Logger(),
	}, nil
}

// SweepOnce marks every active borrow past its due date overdue, returning
// how many were flipped by this call. The flip is a conditional update, so
// overlapping sweeps never double-mark a trade.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	due, err := s.trades.ListActiveBorrowsDueBefore(ctx, now)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, t := range due {
		if t.DueAt == nil {
			continue
		}
		fee, err := s.lateFee(now, *t.DueAt)
		if err != nil {
			s.logger.Error().Err(err).Str("trade_id", t.TradeID.String()).Msg("late-fee evaluation failed")
			continue
		}
		won, err := s.trades.MarkOverdue(ctx, t.TradeID, fee, now)
		if err != nil {
			s.logger.Error().Err(err).Str("trade_id", t.TradeID.String()).Msg("failed to mark trade overdue")
			continue
		}
		if !won {
			continue
		}
		swept++
		msg := fmt.Sprintf("Loan overdue since %s; current late fee %.2f", t.DueAt.Format("2006-01-02"), fee)
		s.notifier.Notify(ctx, t.RequesterID, domainNotification.TypeTradeOverdue, msg, "trade", t.TradeID)
		s.notifier.Notify(ctx, t.OwnerID, domainNotification.TypeTradeOverdue, msg, "trade", t.TradeID)
	}
	if swept > 0 {
		s.logger.Info().Int("count", swept).Msg("borrows marked overdue")
	}
	return swept, nil
}

// lateFee evaluates the fee expression for a loan due at the given time.
// Partial days count as a full day overdue.
func (s *Sweeper) lateFee(now, due time.Time) (float64, error) {
	daysOverdue := int(now.Sub(due).Hours() / 24)
	if now.After(due) && now.Sub(due)%(24*time.Hour) != 0 {
		daysOverdue++
	}
	if daysOverdue < 1 {
		daysOverdue = 1
	}
	result, err := s.expr.Evaluate(map[string]interface{}{
		"days_overdue": float64(daysOverdue),
		"daily_fee":    s.dailyFee,
	})
	if err != nil {
		return 0, err
	}
	fee, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("late-fee expression did not evaluate to a number")
	}
	return fee, nil
}

// Run calls SweepOnce on the given interval until the context ends.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx, time.Now()); err != nil {
				s.logger.Error().Err(err).Msg("overdue sweep failed")
			}
		}
	}
}
