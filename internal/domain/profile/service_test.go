package profile

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/order"
	"github.com/xenking/instasupply/internal/domain/store"
)

const supplierID = "7f0c5d1e-9a43-4c1b-8f55-0d7c2a3b4e61"

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type mockSuppliers struct {
	byID      map[string]*auth.Supplier
	updated   *auth.ProfileUpdate
	updateErr error
}

func (m *mockSuppliers) GetByID(_ context.Context, id string) (*auth.Supplier, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSuppliers) UpdateProfile(_ context.Context, id string, u auth.ProfileUpdate) (*auth.Supplier, error) {
	m.updated = &u
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	s := m.byID[id]
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	s.Profile = u.Profile
	s.UpdatedAt = u.UpdatedAt
	cp := *s
	return &cp, nil
}

type mockRatings struct{ settings store.Settings }

func (m mockRatings) Get(context.Context, string) (*store.Settings, error) {
	s := m.settings
	return &s, nil
}

type mockOrders struct{ counts map[order.Status]int }

func (m mockOrders) StatusCounts(context.Context, string) (map[order.Status]int, error) {
	return m.counts, nil
}

func newSupplier() *auth.Supplier {
	return &auth.Supplier{
		ID:    supplierID,
		Name:  "Acme Supply",
		Phone: "555-0100",
		Profile: auth.Profile{
			Website: "https://acme.example.com",
			Address: auth.Address{City: "Austin"},
		},
		CreatedAt: now.Add(-30 * 24 * time.Hour),
	}
}

func newService(sup *auth.Supplier, st store.Settings, counts map[order.Status]int) (*Service, *mockSuppliers) {
	suppliers := &mockSuppliers{byID: map[string]*auth.Supplier{sup.ID: sup}}
	svc := NewService(suppliers, mockRatings{settings: st}, mockOrders{counts: counts})
	svc.now = func() time.Time { return now }
	return svc, suppliers
}

func ptr[T any](v T) *T { return &v }

func TestMe_NotFound(t *testing.T) {
	svc, _ := newService(newSupplier(), store.Settings{}, nil)

	_, err := svc.Me(context.Background(), "someone-else")
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "User not found", nf.Error())
}

func TestUpdate_MergesProfile(t *testing.T) {
	svc, suppliers := newService(newSupplier(), store.Settings{}, nil)

	got, err := svc.Update(context.Background(), supplierID, Input{
		Name:    ptr("  "),
		Phone:   ptr("555-0199"),
		AboutUs: ptr(" Family run since 1990 "),
		BusinessHours: map[string]auth.DayHours{
			"monday": {Open: "08:00", Close: "17:00", IsOpen: true},
			"sunday": {IsOpen: false},
		},
		Delivery: &auth.DeliverySettings{
			RadiusKM: decimal.NewFromInt(25),
			Fee:      decimal.RequireFromString("4.99"),
		},
	})
	require.NoError(t, err)

	assert.Nil(t, suppliers.updated.Name)
	assert.Equal(t, now, suppliers.updated.UpdatedAt)
	assert.Equal(t, "Acme Supply", got.Name)
	assert.Equal(t, "555-0199", got.Phone)
	assert.Equal(t, "Family run since 1990", got.Profile.AboutUs)
	assert.Equal(t, "https://acme.example.com", got.Profile.Website)
	assert.Equal(t, "Austin", got.Profile.Address.City)
	assert.Equal(t, "08:00", got.Profile.BusinessHours["monday"].Open)
	assert.True(t, got.Profile.Delivery.Fee.Equal(decimal.RequireFromString("4.99")))
}

func TestUpdate_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		msg  string
	}{
		{
			"unknown day",
			Input{BusinessHours: map[string]auth.DayHours{"someday": {}}},
			"Invalid business day: someday",
		},
		{
			"bad time",
			Input{BusinessHours: map[string]auth.DayHours{"friday": {Open: "8am"}}},
			`Invalid business hours for friday: "8am". Use HH:MM`,
		},
		{
			"negative fee",
			Input{Delivery: &auth.DeliverySettings{Fee: decimal.NewFromInt(-1)}},
			"Delivery settings must not be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, suppliers := newService(newSupplier(), store.Settings{}, nil)

			_, err := svc.Update(context.Background(), supplierID, tt.in)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.msg, verr.Message)
			assert.Nil(t, suppliers.updated)
		})
	}
}

func TestUpdate_StorageFailure(t *testing.T) {
	svc, suppliers := newService(newSupplier(), store.Settings{}, nil)
	suppliers.updateErr = errors.New("conn reset")

	_, err := svc.Update(context.Background(), supplierID, Input{Website: ptr("x")})
	var perr *apperr.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "update profile", perr.Op)
}

func TestInfo_Metrics(t *testing.T) {
	sup := newSupplier()
	svc, _ := newService(sup, store.Settings{TotalRatings: 9, RatingCount: 2}, map[order.Status]int{
		order.StatusDelivered: 3,
		order.StatusCompleted: 4,
		order.StatusCancelled: 9,
	})

	info, err := svc.Info(context.Background(), supplierID)
	require.NoError(t, err)
	assert.Equal(t, "4.5", info.Metrics.Rating.String())
	assert.Equal(t, int64(2), info.Metrics.RatingCount)
	assert.Equal(t, 7, info.Metrics.TotalSupplied)
	assert.Equal(t, sup.CreatedAt, info.Metrics.JoinDate)
	assert.Equal(t, []string{}, info.Badges)
}

func TestInfo_Badges(t *testing.T) {
	tests := []struct {
		name     string
		verified bool
		settings store.Settings
		want     []string
	}{
		{"none", false, store.Settings{TotalRatings: 20, RatingCount: 10}, []string{}},
		{"top rated unverified", false, store.Settings{TotalRatings: 56, RatingCount: 12}, []string{BadgeTopRated}},
		{"verified only", true, store.Settings{TotalRatings: 45, RatingCount: 9}, []string{BadgeVerified}},
		{"top rated", true, store.Settings{TotalRatings: 45, RatingCount: 10}, []string{BadgeVerified, BadgeTopRated}},
		{"rating too low", true, store.Settings{TotalRatings: 44, RatingCount: 10}, []string{BadgeVerified}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup := newSupplier()
			if tt.verified {
				sup.VerifiedAt = &now
			}
			svc, _ := newService(sup, tt.settings, nil)

			info, err := svc.Info(context.Background(), supplierID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Badges)
		})
	}
}
