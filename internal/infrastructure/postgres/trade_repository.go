package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfswap/shelfswap/internal/domain/trade"
)

// TradeRepository implements trade.Repository. The dual-confirmation
// barrier lives in Confirm and CompleteIfConfirmed: both are conditional
// updates whose row count decides the race.
type TradeRepository struct {
	pool *pgxpool.Pool
}

func NewTradeRepository(pool *pgxpool.Pool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

const tradeColumns = `id, trade_id, kind, requester_id, owner_id, book_id, offered_book_id,
	status, prior_status, requester_confirmed, owner_confirmed, disputed, payment_status,
	requested_days, agreed_days, borrowed_at, due_at, returned_at, late_fee, created_at, updated_at`

func (r *TradeRepository) Create(ctx context.Context, t *trade.Trade) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trades
		(trade_id, kind, requester_id, owner_id, book_id, offered_book_id, status, prior_status,
		 requester_confirmed, owner_confirmed, disputed, payment_status, requested_days, agreed_days,
		 borrowed_at, due_at, returned_at, late_fee, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`, t.TradeID, t.Kind, t.RequesterID, t.OwnerID, t.BookID, t.OfferedBookID, t.Status, t.PriorStatus,
		t.RequesterConfirmed, t.OwnerConfirmed, t.Disputed, t.PaymentStatus, t.RequestedDays, t.AgreedDays,
		t.BorrowedAt, t.DueAt, t.ReturnedAt, t.LateFee, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *TradeRepository) GetByID(ctx context.Context, tradeID uuid.UUID) (*trade.Trade, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_id=$1`, tradeID)
	return scanTrade(row)
}

func (r *TradeRepository) Update(ctx context.Context, t *trade.Trade) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE trades
		SET status=$1, prior_status=$2, requester_confirmed=$3, owner_confirmed=$4, disputed=$5,
		    payment_status=$6, agreed_days=$7, borrowed_at=$8, due_at=$9, returned_at=$10,
		    late_fee=$11, updated_at=$12
		WHERE trade_id=$13
	`, t.Status, t.PriorStatus, t.RequesterConfirmed, t.OwnerConfirmed, t.Disputed,
		t.PaymentStatus, t.AgreedDays, t.BorrowedAt, t.DueAt, t.ReturnedAt,
		t.LateFee, t.UpdatedAt, t.TradeID)
	return err
}

func (r *TradeRepository) List(ctx context.Context, filter trade.Filter, limit, offset int) ([]*trade.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades`
	args := []interface{}{}
	idx := 1
	if filter.Kind != nil {
		query += addWhere(query) + " kind=$" + itoa(idx)
		args = append(args, *filter.Kind)
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.UserID != nil {
		n := itoa(idx)
		query += addWhere(query) + " (requester_id=$" + n + " OR owner_id=$" + n + ")"
		args = append(args, *filter.UserID)
		idx++
	}
	if filter.BookID != nil {
		n := itoa(idx)
		query += addWhere(query) + " (book_id=$" + n + " OR offered_book_id=$" + n + ")"
		args = append(args, *filter.BookID)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func (r *TradeRepository) ListPendingForBook(ctx context.Context, bookID uuid.UUID) ([]*trade.Trade, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE status='PENDING' AND (book_id=$1 OR offered_book_id=$1)
		ORDER BY created_at
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func (r *TradeRepository) HasPendingForRequesterAndBook(ctx context.Context, requesterID, bookID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trades
			WHERE requester_id=$1 AND book_id=$2 AND status='PENDING'
		)
	`, requesterID, bookID).Scan(&exists)
	return exists, err
}

// Confirm sets one party's confirmation flag while the status precondition
// still holds and no dispute has landed. The update is a single statement,
// so two racing confirmations serialize on the row, and a dispute committed
// after the caller's snapshot still blocks the flag; re-setting a set flag
// matches and returns the trade unchanged.
func (r *TradeRepository) Confirm(ctx context.Context, tradeID uuid.UUID, party trade.Party, allowed []trade.Status) (*trade.Trade, error) {
	column := "owner_confirmed"
	if party == trade.PartyRequester {
		column = "requester_confirmed"
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE trades SET `+column+`=true, updated_at=$3
		WHERE trade_id=$1 AND status = ANY($2) AND NOT disputed
		RETURNING `+tradeColumns+`
	`, tradeID, statusStrings(allowed), time.Now().UTC())
	return scanTrade(row)
}

// CompleteIfConfirmed performs the terminal transition once both flags are
// set; of N concurrent confirmers exactly one sees a row count of 1 and
// runs the completion side effects.
func (r *TradeRepository) CompleteIfConfirmed(ctx context.Context, tradeID uuid.UUID, allowed []trade.Status, terminal trade.Status) (bool, error) {
	now := time.Now().UTC()
	res, err := r.pool.Exec(ctx, `
		UPDATE trades
		SET status=$3, updated_at=$4,
		    returned_at=CASE WHEN $3='RETURNED' THEN $4 ELSE returned_at END
		WHERE trade_id=$1 AND status = ANY($2) AND NOT disputed
		  AND requester_confirmed AND owner_confirmed
	`, tradeID, statusStrings(allowed), string(terminal), now)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *TradeRepository) ListActiveBorrowsDueBefore(ctx context.Context, asOf time.Time) ([]*trade.Trade, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE kind='BORROW' AND status='ACTIVE' AND due_at < $1
		ORDER BY due_at
	`, asOf.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func (r *TradeRepository) MarkOverdue(ctx context.Context, tradeID uuid.UUID, lateFee float64, asOf time.Time) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE trades SET status='OVERDUE', late_fee=$2, updated_at=$3
		WHERE trade_id=$1 AND kind='BORROW' AND status='ACTIVE' AND due_at < $3
	`, tradeID, lateFee, asOf.UTC())
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func statusStrings(statuses []trade.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func collectTrades(rows pgx.Rows) ([]*trade.Trade, error) {
	var trades []*trade.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func scanTrade(row pgx.Row) (*trade.Trade, error) {
	var t trade.Trade
	var offered *uuid.UUID
	var prior *string
	var payment *string
	if err := row.Scan(&t.ID, &t.TradeID, &t.Kind, &t.RequesterID, &t.OwnerID, &t.BookID, &offered,
		&t.Status, &prior, &t.RequesterConfirmed, &t.OwnerConfirmed, &t.Disputed, &payment,
		&t.RequestedDays, &t.AgreedDays, &t.BorrowedAt, &t.DueAt, &t.ReturnedAt, &t.LateFee,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t.OfferedBookID = offered
	if prior != nil {
		s := trade.Status(*prior)
		t.PriorStatus = &s
	}
	if payment != nil {
		p := trade.PaymentStatus(*payment)
		t.PaymentStatus = &p
	}
	return &t, nil
}
