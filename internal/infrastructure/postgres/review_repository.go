package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfswap/shelfswap/internal/domain/review"
)

// ReviewRepository implements review.Repository. The UNIQUE constraint on
// (trade_id, reviewer_id) enforces one review per participant per trade.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) Create(ctx context.Context, rev *review.Review) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reviews
		(review_id, trade_id, reviewer_id, reviewee_id, rating, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, rev.ReviewID, rev.TradeID, rev.ReviewerID, rev.RevieweeID, rev.Rating, rev.Comment, rev.CreatedAt)
	if isUniqueViolation(err) {
		return review.ErrDuplicate
	}
	return err
}

func (r *ReviewRepository) GetByTradeAndReviewer(ctx context.Context, tradeID, reviewerID uuid.UUID) (*review.Review, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, review_id, trade_id, reviewer_id, reviewee_id, rating, comment, created_at
		FROM reviews WHERE trade_id=$1 AND reviewer_id=$2
	`, tradeID, reviewerID)
	return scanReview(row)
}

func (r *ReviewRepository) ListForReviewee(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]*review.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, review_id, trade_id, reviewer_id, reviewee_id, rating, comment, created_at
		FROM reviews WHERE reviewee_id=$1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, revieweeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reviews []*review.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

func scanReview(row pgx.Row) (*review.Review, error) {
	var rev review.Review
	if err := row.Scan(&rev.ID, &rev.ReviewID, &rev.TradeID, &rev.ReviewerID, &rev.RevieweeID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rev, nil
}
