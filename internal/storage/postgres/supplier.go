package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/instasupply/internal/domain/auth"
)

const supplierColumns = `id, name, email, phone, password_hash, profile_image, profile, verified_at, created_at, updated_at`

const (
	insertSupplierSQL = `INSERT INTO suppliers (` + supplierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	supplierByEmailSQL = `SELECT ` + supplierColumns + ` FROM suppliers WHERE email = $1`

	supplierByIDSQL = `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`

	markVerifiedSQL = `UPDATE suppliers SET verified_at = $2, updated_at = $2 WHERE id = $1`

	updateEmailSQL = `UPDATE suppliers SET email = $2, updated_at = now() WHERE id = $1`

	updateProfileSQL = `UPDATE suppliers SET
		name = COALESCE($2, name),
		phone = COALESCE($3, phone),
		profile = $4,
		updated_at = $5
		WHERE id = $1
		RETURNING ` + supplierColumns
)

const uniqueViolation = "23505"

var _ auth.Repository = (*SupplierRepository)(nil)

// SupplierRepository implements auth.Repository backed by PostgreSQL.
type SupplierRepository struct {
	pool *pgxpool.Pool
}

// NewSupplierRepository returns a SupplierRepository that uses the given pool.
func NewSupplierRepository(pool *pgxpool.Pool) *SupplierRepository {
	return &SupplierRepository{pool: pool}
}

// Create inserts a supplier account.
func (r *SupplierRepository) Create(ctx context.Context, s *auth.Supplier) error {
	profile, err := json.Marshal(s.Profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = r.pool.Exec(ctx, insertSupplierSQL,
		s.ID, s.Name, s.Email, s.Phone, s.PasswordHash, s.ProfileImage, profile, s.VerifiedAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("creating supplier: %w", err)
	}
	return nil
}

// GetByEmail looks a supplier up by lower-cased email.
func (r *SupplierRepository) GetByEmail(ctx context.Context, email string) (*auth.Supplier, error) {
	return r.getOne(ctx, supplierByEmailSQL, email)
}

// GetByID looks a supplier up by id.
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*auth.Supplier, error) {
	return r.getOne(ctx, supplierByIDSQL, id)
}

// MarkVerified records the first successful OTP verification.
func (r *SupplierRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, markVerifiedSQL, id, at)
	if err != nil {
		return fmt.Errorf("verifying supplier %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// UpdateEmail changes the login email.
func (r *SupplierRepository) UpdateEmail(ctx context.Context, id, email string) error {
	tag, err := r.pool.Exec(ctx, updateEmailSQL, id, email)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("updating email of %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// UpdateProfile replaces the business profile and optionally the name and
// phone.
func (r *SupplierRepository) UpdateProfile(ctx context.Context, id string, u auth.ProfileUpdate) (*auth.Supplier, error) {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	return r.getOne(ctx, updateProfileSQL, id, u.Name, u.Phone, profile, u.UpdatedAt)
}

func (r *SupplierRepository) getOne(ctx context.Context, sql string, args ...any) (*auth.Supplier, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("getting supplier: %w", err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSupplier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("getting supplier: %w", err)
	}
	return &s, nil
}

func scanSupplier(row pgx.CollectableRow) (auth.Supplier, error) {
	var (
		s       auth.Supplier
		profile []byte
	)
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.PasswordHash, &s.ProfileImage,
		&profile, &s.VerifiedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(profile, &s.Profile); err != nil {
		return s, fmt.Errorf("decoding profile of %q: %w", s.ID, err)
	}
	return s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
