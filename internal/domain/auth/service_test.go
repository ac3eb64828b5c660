package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/instasupply/internal/domain/apperr"
)

// --- Mock implementations ---

type mockSuppliers struct {
	byID map[string]*Supplier
}

func newSuppliers() *mockSuppliers { return &mockSuppliers{byID: map[string]*Supplier{}} }

func (m *mockSuppliers) Create(_ context.Context, s *Supplier) error {
	for _, v := range m.byID {
		if v.Email == s.Email {
			return ErrEmailTaken
		}
	}
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *mockSuppliers) GetByEmail(_ context.Context, email string) (*Supplier, error) {
	for _, v := range m.byID {
		if v.Email == email {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockSuppliers) GetByID(_ context.Context, id string) (*Supplier, error) {
	v, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *mockSuppliers) MarkVerified(_ context.Context, id string, at time.Time) error {
	m.byID[id].VerifiedAt = &at
	return nil
}

func (m *mockSuppliers) UpdateEmail(_ context.Context, id, email string) error {
	for _, v := range m.byID {
		if v.Email == email {
			return ErrEmailTaken
		}
	}
	m.byID[id].Email = email
	return nil
}

func (m *mockSuppliers) UpdateProfile(_ context.Context, id string, u ProfileUpdate) (*Supplier, error) {
	v, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Name != nil {
		v.Name = *u.Name
	}
	if u.Phone != nil {
		v.Phone = *u.Phone
	}
	v.Profile = u.Profile
	v.UpdatedAt = u.UpdatedAt
	cp := *v
	return &cp, nil
}

type otpEntry struct {
	code    string
	expires time.Time
}

type mockOTPs struct {
	now   func() time.Time
	codes map[string]otpEntry
}

func (m *mockOTPs) Save(_ context.Context, email, code string, ttl time.Duration) error {
	m.codes[email] = otpEntry{code: code, expires: m.now().Add(ttl)}
	return nil
}

func (m *mockOTPs) Get(_ context.Context, email string) (string, error) {
	e, ok := m.codes[email]
	if !ok || !m.now().Before(e.expires) {
		return "", ErrOTPMissing
	}
	return e.code, nil
}

func (m *mockOTPs) Delete(_ context.Context, email string) error {
	delete(m.codes, email)
	return nil
}

type mockMailer struct {
	sent map[string]string
	err  error
}

func (m *mockMailer) SendOTP(_ context.Context, to, code string) error {
	if m.err != nil {
		return m.err
	}
	m.sent[to] = code
	return nil
}

type mockDenylist struct {
	revoked map[string]time.Duration
}

func (m *mockDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = ttl
	return nil
}

func (m *mockDenylist) Revoked(_ context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

// --- Helpers ---

type authFixture struct {
	clock     time.Time
	suppliers *mockSuppliers
	otps      *mockOTPs
	mailer    *mockMailer
	denylist  *mockDenylist
	svc       *Service
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		clock:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		suppliers: newSuppliers(),
		mailer:    &mockMailer{sent: map[string]string{}},
		denylist:  &mockDenylist{revoked: map[string]time.Duration{}},
	}
	now := func() time.Time { return f.clock }
	f.otps = &mockOTPs{now: now, codes: map[string]otpEntry{}}
	tokens := NewTokens("test-secret", 7*24*time.Hour)
	tokens.now = now
	f.svc = NewService(Config{OTPTTL: time.Minute, BcryptCost: bcrypt.MinCost}, f.suppliers, f.otps, f.mailer, tokens, f.denylist)
	f.svc.now = now
	return f
}

func (f *authFixture) register(t *testing.T) *Supplier {
	t.Helper()
	sup, err := f.svc.Register(context.Background(), RegisterRequest{
		Name:     "Acme Supply",
		Email:    " Sales@Acme.com ",
		Password: "hunter22",
	})
	require.NoError(t, err)
	return sup
}

// --- Tests ---

func TestRegister(t *testing.T) {
	f := newAuthFixture()
	sup := f.register(t)

	assert.Equal(t, "sales@acme.com", sup.Email)
	assert.False(t, sup.Verified())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(sup.PasswordHash), []byte("hunter22")))

	code := f.mailer.sent["sales@acme.com"]
	assert.Len(t, code, 4)
	assert.Equal(t, code, f.otps.codes["sales@acme.com"].code)
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture()
	for _, req := range []RegisterRequest{
		{Email: "a@b.com", Password: "secret1"},
		{Name: "x", Email: "not-an-email", Password: "secret1"},
		{Name: "x", Email: "a@b.com", Password: "123"},
	} {
		_, err := f.svc.Register(context.Background(), req)
		var vErr *apperr.ValidationError
		require.ErrorAs(t, err, &vErr, "%+v", req)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	f := newAuthFixture()
	f.register(t)

	_, err := f.svc.Register(context.Background(), RegisterRequest{Name: "B", Email: "sales@acme.com", Password: "secret1"})
	var cErr *apperr.ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "User already exists with this email", cErr.Message)
}

func TestRegister_MailFailureStillRegisters(t *testing.T) {
	f := newAuthFixture()
	f.mailer.err = errors.New("smtp down")

	sup := f.register(t)
	assert.NotEmpty(t, sup.ID)

	err := f.svc.RequestOTP(context.Background(), "sales@acme.com")
	require.ErrorIs(t, err, ErrMailDelivery)
}

func TestVerifyOTP(t *testing.T) {
	f := newAuthFixture()
	sup := f.register(t)
	code := f.mailer.sent["sales@acme.com"]

	_, err := f.svc.VerifyOTP(context.Background(), "sales@acme.com", "0000")
	var vErr *apperr.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Invalid OTP", vErr.Message)

	sess, err := f.svc.VerifyOTP(context.Background(), "SALES@acme.com", code)
	require.NoError(t, err)
	assert.Equal(t, sup.ID, sess.Supplier.ID)
	assert.True(t, sess.Supplier.Verified())
	assert.NotEmpty(t, sess.Token)

	// Consumed.
	_, err = f.svc.VerifyOTP(context.Background(), "sales@acme.com", code)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "OTP has expired. Please request a new OTP.", vErr.Message)
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newAuthFixture()
	f.register(t)
	code := f.mailer.sent["sales@acme.com"]
	f.clock = f.clock.Add(61 * time.Second)

	_, err := f.svc.VerifyOTP(context.Background(), "sales@acme.com", code)
	var vErr *apperr.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expired")
}

func TestVerifyOTP_UnknownUser(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.VerifyOTP(context.Background(), "ghost@acme.com", "1234")
	var nfErr *apperr.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestChangeEmail(t *testing.T) {
	f := newAuthFixture()
	f.register(t)

	sup, err := f.svc.ChangeEmail(context.Background(), "sales@acme.com", "orders@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "orders@acme.com", sup.Email)
	assert.NotEmpty(t, f.mailer.sent["orders@acme.com"])
	_, stale := f.otps.codes["sales@acme.com"]
	assert.False(t, stale)

	sess, err := f.svc.VerifyOTP(context.Background(), "orders@acme.com", f.mailer.sent["orders@acme.com"])
	require.NoError(t, err)

	_, err = f.svc.ChangeEmail(context.Background(), "orders@acme.com", "other@acme.com")
	var vErr *apperr.ValidationError
	require.ErrorAs(t, err, &vErr, "verified account %s", sess.Supplier.ID)
}

func TestAuthenticateAndLogout(t *testing.T) {
	f := newAuthFixture()
	f.register(t)
	sess, err := f.svc.VerifyOTP(context.Background(), "sales@acme.com", f.mailer.sent["sales@acme.com"])
	require.NoError(t, err)

	sup, claims, err := f.svc.Authenticate(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Supplier.ID, sup.ID)

	require.NoError(t, f.svc.Logout(context.Background(), claims))
	assert.Equal(t, 7*24*time.Hour, f.denylist.revoked[claims.TokenID])

	_, _, err = f.svc.Authenticate(context.Background(), sess.Token)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthenticate_SupplierGone(t *testing.T) {
	f := newAuthFixture()
	f.register(t)
	sess, err := f.svc.VerifyOTP(context.Background(), "sales@acme.com", f.mailer.sent["sales@acme.com"])
	require.NoError(t, err)
	delete(f.suppliers.byID, sess.Supplier.ID)

	_, _, err = f.svc.Authenticate(context.Background(), sess.Token)
	require.ErrorIs(t, err, ErrSupplierGone)
}
