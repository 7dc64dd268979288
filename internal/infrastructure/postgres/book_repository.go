package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfswap/shelfswap/internal/domain/book"
)

// BookRepository implements book.Repository. The exclusivity primitives are
// single conditional updates; concurrent reservations of one book resolve
// to exactly one winner in the database, not in Go.
type BookRepository struct {
	pool *pgxpool.Pool
}

func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

const bookColumns = `id, book_id, owner_id, title, author, mode, price, exchange_preference, loan_period_days, is_available, status, created_at, updated_at`

func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO books
		(book_id, owner_id, title, author, mode, price, exchange_preference, loan_period_days, is_available, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, b.BookID, b.OwnerID, b.Title, b.Author, b.Mode, b.Price, b.ExchangePreference, b.LoanPeriodDays, b.IsAvailable, b.Status, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BookRepository) GetByID(ctx context.Context, bookID uuid.UUID) (*book.Book, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE book_id=$1`, bookID)
	return scanBook(row)
}

func (r *BookRepository) List(ctx context.Context, filter book.Filter, limit, offset int) ([]*book.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books`
	args := []interface{}{}
	idx := 1
	if filter.OwnerID != nil {
		query += addWhere(query) + " owner_id=$" + itoa(idx)
		args = append(args, *filter.OwnerID)
		idx++
	}
	if filter.Mode != nil {
		query += addWhere(query) + " mode=$" + itoa(idx)
		args = append(args, *filter.Mode)
		idx++
	}
	if filter.Status != nil {
		query += addWhere(query) + " status=$" + itoa(idx)
		args = append(args, *filter.Status)
		idx++
	}
	if filter.Available != nil {
		query += addWhere(query) + " is_available=$" + itoa(idx)
		args = append(args, *filter.Available)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var books []*book.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE books
		SET title=$1, author=$2, mode=$3, price=$4, exchange_preference=$5, loan_period_days=$6, is_available=$7, status=$8, updated_at=$9
		WHERE book_id=$10
	`, b.Title, b.Author, b.Mode, b.Price, b.ExchangePreference, b.LoanPeriodDays, b.IsAvailable, b.Status, b.UpdatedAt, b.BookID)
	return err
}

const reserveSQL = `
	UPDATE books SET is_available=false, status='PENDING', updated_at=$2
	WHERE book_id=$1 AND is_available AND status='ACTIVE'
`

func (r *BookRepository) Reserve(ctx context.Context, bookID uuid.UUID) (bool, error) {
	res, err := r.pool.Exec(ctx, reserveSQL, bookID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

// ReservePair flips both books inside one transaction; losing either flip
// rolls the other back.
func (r *BookRepository) ReservePair(ctx context.Context, first, second uuid.UUID) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, id := range []uuid.UUID{first, second} {
		res, err := tx.Exec(ctx, reserveSQL, id, now)
		if err != nil {
			return false, err
		}
		if res.RowsAffected() != 1 {
			return false, nil
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *BookRepository) Release(ctx context.Context, bookIDs ...uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE books SET is_available=true, status='ACTIVE', updated_at=$2
		WHERE book_id = ANY($1) AND status='PENDING'
	`, bookIDs, time.Now().UTC())
	return err
}

func (r *BookRepository) Consume(ctx context.Context, bookIDs ...uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE books SET is_available=false, status='COMPLETED', updated_at=$2
		WHERE book_id = ANY($1) AND status='PENDING'
	`, bookIDs, time.Now().UTC())
	return err
}

func scanBook(row pgx.Row) (*book.Book, error) {
	var b book.Book
	if err := row.Scan(&b.ID, &b.BookID, &b.OwnerID, &b.Title, &b.Author, &b.Mode, &b.Price, &b.ExchangePreference, &b.LoanPeriodDays, &b.IsAvailable, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func addWhere(query string) string {
	if strings.Contains(query, " WHERE ") {
		return " AND"
	}
	return " WHERE"
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
