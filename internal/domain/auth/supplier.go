package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Storage sentinels.
var (
	ErrNotFound   = errors.New("supplier not found")
	ErrEmailTaken = errors.New("email already registered")
	ErrOTPMissing = errors.New("otp not found")
)

// Supplier is an account that owns products, orders and notifications.
type Supplier struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	ProfileImage string
	Profile      Profile
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Verified reports whether the supplier has confirmed their email once.
func (s *Supplier) Verified() bool { return s.VerifiedAt != nil }

// Repository defines persistence operations for supplier accounts.
type Repository interface {
	// Create stores s. It returns ErrEmailTaken when the email is in use.
	Create(ctx context.Context, s *Supplier) error
	GetByEmail(ctx context.Context, email string) (*Supplier, error)
	GetByID(ctx context.Context, id string) (*Supplier, error)
	MarkVerified(ctx context.Context, id string, at time.Time) error
	// UpdateEmail changes the email. It returns ErrEmailTaken when the new
	// email is in use.
	UpdateEmail(ctx context.Context, id, email string) error
	UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*Supplier, error)
}

// OTPStore keeps one-time passwords until they expire.
type OTPStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Get returns ErrOTPMissing when no live code exists for email.
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

// Mailer delivers one-time passwords.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// Denylist holds revoked token ids until the token would have expired.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	Revoked(ctx context.Context, jti string) (bool, error)
}
