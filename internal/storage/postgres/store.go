package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/instasupply/internal/domain/store"
)

const storeColumns = `supplier_id, is_open, opening_time, closing_time, total_ratings, rating_count, created_at, updated_at`

const (
	// The insert and the select see the same snapshot, so exactly one of
	// them yields the row.
	getStoreSQL = `WITH created AS (
			INSERT INTO store_settings (supplier_id) VALUES ($1)
			ON CONFLICT (supplier_id) DO NOTHING
			RETURNING ` + storeColumns + `
		)
		SELECT ` + storeColumns + ` FROM created
		UNION ALL
		SELECT ` + storeColumns + ` FROM store_settings WHERE supplier_id = $1
		LIMIT 1`

	upsertStoreSQL = `INSERT INTO store_settings (supplier_id, is_open, opening_time, closing_time)
		VALUES ($1, COALESCE($2, true), COALESCE($3, '` + store.DefaultOpeningTime + `'), COALESCE($4, '` + store.DefaultClosingTime + `'))
		ON CONFLICT (supplier_id) DO UPDATE SET
			is_open = COALESCE($2, store_settings.is_open),
			opening_time = COALESCE($3, store_settings.opening_time),
			closing_time = COALESCE($4, store_settings.closing_time),
			updated_at = now()
		RETURNING ` + storeColumns

	addRatingSQL = `INSERT INTO store_settings (supplier_id, total_ratings, rating_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (supplier_id) DO UPDATE SET
			total_ratings = store_settings.total_ratings + EXCLUDED.total_ratings,
			rating_count = store_settings.rating_count + 1,
			updated_at = now()
		RETURNING ` + storeColumns
)

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// Get returns the settings, inserting the defaults on first access.
func (r *StoreRepository) Get(ctx context.Context, supplierID string) (*store.Settings, error) {
	s, err := r.one(ctx, "getting store settings", getStoreSQL, supplierID)
	if errors.Is(err, pgx.ErrNoRows) {
		// A concurrent first access inserted the row after this snapshot.
		return r.one(ctx, "getting store settings", getStoreSQL, supplierID)
	}
	return s, err
}

// Update upserts the fields present in p.
func (r *StoreRepository) Update(ctx context.Context, supplierID string, p store.Patch) (*store.Settings, error) {
	return r.one(ctx, "updating store settings", upsertStoreSQL, supplierID, p.IsOpen, p.OpeningTime, p.ClosingTime)
}

// AddRating adds rating to the running totals.
func (r *StoreRepository) AddRating(ctx context.Context, supplierID string, rating int) (*store.Settings, error) {
	return r.one(ctx, "rating store", addRatingSQL, supplierID, rating)
}

func (r *StoreRepository) one(ctx context.Context, op, sql string, args ...any) (*store.Settings, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (store.Settings, error) {
		var s store.Settings
		err := row.Scan(&s.SupplierID, &s.IsOpen, &s.OpeningTime, &s.ClosingTime,
			&s.TotalRatings, &s.RatingCount, &s.CreatedAt, &s.UpdatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}
