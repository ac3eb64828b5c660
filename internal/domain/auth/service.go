package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/instasupply/internal/domain/apperr"
)

// ErrMailDelivery is returned when an OTP could not be mailed.
var ErrMailDelivery = errors.New("Failed to send OTP email. Please check your email settings.")

// ErrSupplierGone is returned when a valid token names a deleted supplier.
var ErrSupplierGone = errors.New("supplier no longer exists")

// ErrTokenRevoked is returned for tokens that were logged out.
var ErrTokenRevoked = errors.New("token revoked")

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

const minPasswordLen = 6

// Config tunes account and session behaviour.
type Config struct {
	OTPTTL     time.Duration
	BcryptCost int
}

// RegisterRequest holds the input of Register.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Session is the result of a successful verification.
type Session struct {
	Token    string
	Claims   *Claims
	Supplier *Supplier
}

// Service implements supplier accounts and sessions.
type Service struct {
	suppliers Repository
	otps      OTPStore
	mailer    Mailer
	tokens    *Tokens
	denylist  Denylist
	otpTTL    time.Duration
	cost      int
	now       func() time.Time
	newOTP    func() (string, error)
}

// NewService creates an auth Service.
func NewService(cfg Config, suppliers Repository, otps OTPStore, mailer Mailer, tokens *Tokens, denylist Denylist) *Service {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		suppliers: suppliers,
		otps:      otps,
		mailer:    mailer,
		tokens:    tokens,
		denylist:  denylist,
		otpTTL:    cfg.OTPTTL,
		cost:      cfg.BcryptCost,
		now:       time.Now,
		newOTP:    GenerateOTP,
	}
}

// GenerateOTP returns a random four digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return fmt.Sprintf("%04d", 1000+n.Int64()), nil
}

// Register creates an unverified supplier and mails an OTP. A mail failure is
// logged; the account still exists and a new OTP can be requested.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	switch {
	case req.Name == "" || req.Email == "" || req.Password == "":
		return nil, apperr.Validationf("Please provide name, email and password")
	case !emailPattern.MatchString(req.Email):
		return nil, apperr.Validationf("Please provide a valid email")
	case len(req.Password) < minPasswordLen:
		return nil, apperr.Validationf("Password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	now := s.now()
	sup := &Supplier{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.suppliers.Create(ctx, sup); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, &apperr.ConflictError{Message: "User already exists with this email"}
		}
		return nil, &apperr.PersistenceError{Op: "create supplier", Err: err}
	}

	if err := s.issueOTP(ctx, sup.Email); err != nil {
		zctx.From(ctx).Warn("OTP not delivered after registration",
			zap.String("supplier_id", sup.ID),
			zap.Error(err),
		)
	}
	return sup, nil
}

// RequestOTP issues and mails a fresh OTP to a registered email.
func (s *Service) RequestOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validationf("Please provide an email")
	}
	if _, err := s.lookup(ctx, email); err != nil {
		return err
	}
	return s.issueOTP(ctx, email)
}

// VerifyOTP checks and consumes the OTP, marks the supplier verified and
// starts a session.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return nil, apperr.Validationf("Please provide email and OTP")
	}
	sup, err := s.lookup(ctx, email)
	if err != nil {
		return nil, err
	}

	want, err := s.otps.Get(ctx, email)
	switch {
	case errors.Is(err, ErrOTPMissing):
		return nil, apperr.Validationf("OTP has expired. Please request a new OTP.")
	case err != nil:
		return nil, errors.Wrap(err, "get otp")
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(code)) != 1 {
		return nil, apperr.Validationf("Invalid OTP")
	}
	if err := s.otps.Delete(ctx, email); err != nil {
		return nil, errors.Wrap(err, "consume otp")
	}

	if !sup.Verified() {
		at := s.now()
		if err := s.suppliers.MarkVerified(ctx, sup.ID, at); err != nil {
			return nil, errors.Wrap(err, "mark verified")
		}
		sup.VerifiedAt = &at
	}

	token, claims, err := s.tokens.Issue(sup.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Claims: claims, Supplier: sup}, nil
}

// ChangeEmail moves an unverified account to a new address and sends an OTP
// there.
func (s *Service) ChangeEmail(ctx context.Context, oldEmail, newEmail string) (*Supplier, error) {
	oldEmail, newEmail = normalizeEmail(oldEmail), normalizeEmail(newEmail)
	if oldEmail == "" || newEmail == "" {
		return nil, apperr.Validationf("Please provide old and new email")
	}
	if !emailPattern.MatchString(newEmail) {
		return nil, apperr.Validationf("Please provide a valid email")
	}
	sup, err := s.lookup(ctx, oldEmail)
	if err != nil {
		return nil, err
	}
	if sup.Verified() {
		return nil, apperr.Validationf("Email can only be changed before verification")
	}
	if err := s.suppliers.UpdateEmail(ctx, sup.ID, newEmail); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, &apperr.ConflictError{Message: "User already exists with this email"}
		}
		return nil, errors.Wrap(err, "update email")
	}
	if err := s.otps.Delete(ctx, oldEmail); err != nil {
		zctx.From(ctx).Warn("Stale OTP not removed", zap.String("supplier_id", sup.ID), zap.Error(err))
	}
	sup.Email = newEmail
	if err := s.issueOTP(ctx, newEmail); err != nil {
		return nil, err
	}
	return sup, nil
}

// Authenticate verifies a bearer token and loads its supplier.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Supplier, *Claims, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	revoked, err := s.denylist.Revoked(ctx, claims.TokenID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "check denylist")
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}
	sup, err := s.suppliers.GetByID(ctx, claims.SupplierID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrSupplierGone
		}
		return nil, nil, errors.Wrap(err, "get supplier")
	}
	return sup, claims, nil
}

// Logout revokes the token until it would have expired.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return errors.Wrap(err, "revoke token")
	}
	return nil
}

func (s *Service) issueOTP(ctx context.Context, email string) error {
	code, err := s.newOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Save(ctx, email, code, s.otpTTL); err != nil {
		return errors.Wrap(err, "save otp")
	}
	if err := s.mailer.SendOTP(ctx, email, code); err != nil {
		zctx.From(ctx).Error("OTP mail failed", zap.String("email", email), zap.Error(err))
		return ErrMailDelivery
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, email string) (*Supplier, error) {
	sup, err := s.suppliers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &apperr.NotFoundError{Entity: "supplier", Message: "User not found"}
		}
		return nil, errors.Wrap(err, "get supplier")
	}
	return sup, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
