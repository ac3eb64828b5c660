package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/instasupply/internal/domain/review"
)

const reviewColumns = `id, supplier_id, order_id, customer_name, customer_email, rating,
	review_text, images, reply, is_visible, created_at, updated_at`

const (
	insertReviewSQL = `INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	getReviewSQL = `SELECT ` + reviewColumns + ` FROM reviews
		WHERE id = $1 AND supplier_id = $2 AND is_visible`

	reviewDistributionSQL = `SELECT rating, count(*) FROM reviews
		WHERE supplier_id = $1 AND is_visible GROUP BY rating`

	setReplySQL = `UPDATE reviews SET reply = $3, updated_at = now()
		WHERE id = $1 AND supplier_id = $2 AND is_visible
		RETURNING ` + reviewColumns

	hideReviewSQL = `UPDATE reviews SET is_visible = false, updated_at = now()
		WHERE id = $1 AND supplier_id = $2 AND is_visible`
)

var reviewSorts = map[review.SortOrder]string{
	review.SortRecent:  "created_at DESC",
	review.SortOldest:  "created_at ASC",
	review.SortHighest: "rating DESC, created_at DESC",
	review.SortLowest:  "rating ASC, created_at DESC",
}

var _ review.Repository = (*ReviewRepository)(nil)

// ReviewRepository implements review.Repository backed by PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository returns a ReviewRepository that uses the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// List returns one page of visible reviews and the number of matches.
func (r *ReviewRepository) List(ctx context.Context, f review.Filter) ([]review.Review, int, error) {
	var w where
	w.add("supplier_id = " + w.arg(f.SupplierID))
	w.add("is_visible")
	if f.Rating != 0 {
		w.add("rating = " + w.arg(f.Rating))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM reviews"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting reviews: %w", err)
	}

	order, ok := reviewSorts[f.Sort]
	if !ok {
		order = reviewSorts[review.SortRecent]
	}
	q := "SELECT " + reviewColumns + " FROM reviews" + w.String() +
		" ORDER BY " + order +
		" LIMIT " + w.arg(f.Limit) + " OFFSET " + w.arg(f.Offset())
	rows, err := r.pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing reviews: %w", err)
	}
	reviews, err := pgx.CollectRows(rows, scanReview)
	if err != nil {
		return nil, 0, fmt.Errorf("listing reviews: %w", err)
	}
	return reviews, total, nil
}

// Distribution counts visible reviews per rating.
func (r *ReviewRepository) Distribution(ctx context.Context, supplierID string) (review.Distribution, error) {
	rows, err := r.pool.Query(ctx, reviewDistributionSQL, supplierID)
	if err != nil {
		return nil, fmt.Errorf("counting reviews by rating: %w", err)
	}
	dist := review.Distribution{}
	var rating, n int
	_, err = pgx.ForEachRow(rows, []any{&rating, &n}, func() error {
		dist[rating] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("counting reviews by rating: %w", err)
	}
	return dist, nil
}

// Create inserts a review.
func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	reply, err := marshalReply(rv.Reply)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertReviewSQL,
		rv.ID, rv.SupplierID, rv.OrderID, rv.CustomerName, rv.CustomerEmail, rv.Rating,
		rv.Text, nonNil(rv.Images), reply, rv.Visible, rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating review: %w", err)
	}
	return nil
}

// Get returns a visible review of the supplier.
func (r *ReviewRepository) Get(ctx context.Context, supplierID, id string) (*review.Review, error) {
	rows, err := r.pool.Query(ctx, getReviewSQL, id, supplierID)
	if err != nil {
		return nil, fmt.Errorf("getting review %q: %w", id, err)
	}
	return collectReview(rows, id)
}

// SetReply stores the supplier's reply.
func (r *ReviewRepository) SetReply(ctx context.Context, supplierID, id string, reply review.Reply) (*review.Review, error) {
	b, err := marshalReply(&reply)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, setReplySQL, id, supplierID, b)
	if err != nil {
		return nil, fmt.Errorf("replying to review %q: %w", id, err)
	}
	return collectReview(rows, id)
}

// Hide removes a review from listings and aggregates.
func (r *ReviewRepository) Hide(ctx context.Context, supplierID, id string) error {
	tag, err := r.pool.Exec(ctx, hideReviewSQL, id, supplierID)
	if err != nil {
		return fmt.Errorf("hiding review %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return review.ErrNotFound
	}
	return nil
}

func collectReview(rows pgx.Rows, id string) (*review.Review, error) {
	rv, err := pgx.CollectExactlyOneRow(rows, scanReview)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, review.ErrNotFound
		}
		return nil, fmt.Errorf("reading review %q: %w", id, err)
	}
	return &rv, nil
}

func marshalReply(reply *review.Reply) ([]byte, error) {
	if reply == nil {
		return nil, nil
	}
	b, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("encoding reply: %w", err)
	}
	return b, nil
}

func scanReview(row pgx.CollectableRow) (review.Review, error) {
	var (
		rv    review.Review
		reply []byte
	)
	err := row.Scan(&rv.ID, &rv.SupplierID, &rv.OrderID, &rv.CustomerName, &rv.CustomerEmail, &rv.Rating,
		&rv.Text, &rv.Images, &reply, &rv.Visible, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return rv, err
	}
	if len(reply) > 0 {
		rv.Reply = new(review.Reply)
		if err := json.Unmarshal(reply, rv.Reply); err != nil {
			return rv, fmt.Errorf("decoding reply of %q: %w", rv.ID, err)
		}
	}
	return rv, nil
}
