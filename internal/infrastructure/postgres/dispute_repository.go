package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfswap/shelfswap/internal/domain/dispute"
)

// DisputeRepository implements dispute.Repository. The UNIQUE constraint on
// trade_id enforces one dispute per trade against racing openers.
type DisputeRepository struct {
	pool *pgxpool.Pool
}

func NewDisputeRepository(pool *pgxpool.Pool) *DisputeRepository {
	return &DisputeRepository{pool: pool}
}

const disputeColumns = `id, dispute_id, trade_id, raised_by, against_id, reason, status,
	assigned_to, resolved_by, resolution_notes, resolved_at, created_at, updated_at`

func (r *DisputeRepository) Create(ctx context.Context, d *dispute.Dispute) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO disputes
		(dispute_id, trade_id, raised_by, against_id, reason, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, d.DisputeID, d.TradeID, d.RaisedBy, d.AgainstID, d.Reason, d.Status, d.CreatedAt, d.UpdatedAt)
	if isUniqueViolation(err) {
		return dispute.ErrDuplicate
	}
	return err
}

func (r *DisputeRepository) GetByID(ctx context.Context, disputeID uuid.UUID) (*dispute.Dispute, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE dispute_id=$1`, disputeID)
	return scanDispute(row)
}

func (r *DisputeRepository) GetByTradeID(ctx context.Context, tradeID uuid.UUID) (*dispute.Dispute, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE trade_id=$1`, tradeID)
	return scanDispute(row)
}

func (r *DisputeRepository) Update(ctx context.Context, d *dispute.Dispute) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE disputes
		SET status=$1, assigned_to=$2, resolved_by=$3, resolution_notes=$4, resolved_at=$5, updated_at=$6
		WHERE dispute_id=$7
	`, d.Status, d.AssignedTo, d.ResolvedBy, d.ResolutionNotes, d.ResolvedAt, d.UpdatedAt, d.DisputeID)
	return err
}

func (r *DisputeRepository) List(ctx context.Context, filter dispute.Filter, limit, offset int) ([]*dispute.Dispute, error) {
	query := `SELECT ` + disputeColumns + ` FROM disputes`
	args := []interface{}{}
	idx := 1
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.RaisedBy != nil {
		query += addWhere(query) + " raised_by=$" + itoa(idx)
		args = append(args, *filter.RaisedBy)
		idx++
	}
	if filter.TradeID != nil {
		query += addWhere(query) + " trade_id=$" + itoa(idx)
		args = append(args, *filter.TradeID)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var disputes []*dispute.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, err
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

func scanDispute(row pgx.Row) (*dispute.Dispute, error) {
	var d dispute.Dispute
	if err := row.Scan(&d.ID, &d.DisputeID, &d.TradeID, &d.RaisedBy, &d.AgainstID, &d.Reason, &d.Status,
		&d.AssignedTo, &d.ResolvedBy, &d.ResolutionNotes, &d.ResolvedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
