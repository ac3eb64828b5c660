package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failures.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims are the session claims carried by a token.
type Claims struct {
	SupplierID string
	TokenID    string
	ExpiresAt  time.Time
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a token issuer signing with secret. Tokens live for ttl.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the supplier with a fresh token id.
func (t *Tokens) Issue(supplierID string) (string, *Claims, error) {
	now := t.now()
	c := &Claims{
		SupplierID: supplierID,
		TokenID:    uuid.New().String(),
		ExpiresAt:  now.Add(t.ttl).Truncate(time.Second),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   c.SupplierID,
		ID:        c.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
	})
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", nil, errors.Wrap(err, "sign token")
	}
	return signed, c, nil
}

// Parse verifies the signature and expiry of raw.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &rc, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, errors.Wrap(ErrTokenInvalid, err.Error())
	case rc.Subject == "" || rc.ID == "":
		return nil, ErrTokenInvalid
	}
	return &Claims{
		SupplierID: rc.Subject,
		TokenID:    rc.ID,
		ExpiresAt:  rc.ExpiresAt.Time,
	}, nil
}
