// Package profile serves the supplier's own account and public business
// profile.
package profile

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/order"
	"github.com/xenking/instasupply/internal/domain/store"
)

// Badges awarded on the public profile.
const (
	BadgeVerified = "Verified"
	BadgeTopRated = "Top Rated"
)

// A store earns BadgeTopRated at this rating once enough customers rated it.
var (
	topRating        = decimal.RequireFromString("4.5")
	topRatingMinimum = int64(10)
)

// Suppliers reads and updates supplier accounts.
type Suppliers interface {
	GetByID(ctx context.Context, id string) (*auth.Supplier, error)
	UpdateProfile(ctx context.Context, id string, u auth.ProfileUpdate) (*auth.Supplier, error)
}

// Ratings returns the store settings holding the rating.
type Ratings interface {
	Get(ctx context.Context, supplierID string) (*store.Settings, error)
}

// Orders counts the supplier's orders per status.
type Orders interface {
	StatusCounts(ctx context.Context, supplierID string) (map[order.Status]int, error)
}

// Input carries profile changes. Nil fields keep their value.
type Input struct {
	Name          *string
	Phone         *string
	BusinessInfo  *auth.BusinessInfo
	Address       *auth.Address
	BusinessHours map[string]auth.DayHours
	Delivery      *auth.DeliverySettings
	Website       *string
	AboutUs       *string
	Specialties   []string
}

// Metrics are the derived figures shown on the public profile.
type Metrics struct {
	Rating        decimal.Decimal
	RatingCount   int64
	TotalSupplied int
	JoinDate      time.Time
}

// Info is the public profile of a supplier.
type Info struct {
	Supplier *auth.Supplier
	Metrics  Metrics
	Badges   []string
}

// Service implements the supplier profile.
type Service struct {
	suppliers Suppliers
	ratings   Ratings
	orders    Orders
	now       func() time.Time
}

// NewService creates a profile Service.
func NewService(suppliers Suppliers, ratings Ratings, orders Orders) *Service {
	return &Service{suppliers: suppliers, ratings: ratings, orders: orders, now: time.Now}
}

// Me returns the supplier account.
func (s *Service) Me(ctx context.Context, supplierID string) (*auth.Supplier, error) {
	sup, err := s.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		return nil, notFound(err, supplierID)
	}
	return sup, nil
}

// Update applies in to the supplier's name, phone and business profile.
func (s *Service) Update(ctx context.Context, supplierID string, in Input) (*auth.Supplier, error) {
	sup, err := s.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		return nil, notFound(err, supplierID)
	}

	u := auth.ProfileUpdate{Profile: sup.Profile, Phone: in.Phone, UpdatedAt: s.now()}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			u.Name = &name
		}
	}
	p := &u.Profile
	if in.BusinessInfo != nil {
		p.BusinessInfo = *in.BusinessInfo
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.BusinessHours != nil {
		if err := validateHours(in.BusinessHours); err != nil {
			return nil, err
		}
		p.BusinessHours = in.BusinessHours
	}
	if in.Delivery != nil {
		d := in.Delivery
		if d.RadiusKM.IsNegative() || d.Fee.IsNegative() || d.FreeDeliveryThreshold.IsNegative() {
			return nil, &apperr.ValidationError{Message: "Delivery settings must not be negative"}
		}
		p.Delivery = *d
	}
	if in.Website != nil {
		p.Website = strings.TrimSpace(*in.Website)
	}
	if in.AboutUs != nil {
		p.AboutUs = strings.TrimSpace(*in.AboutUs)
	}
	if in.Specialties != nil {
		p.Specialties = in.Specialties
	}

	updated, err := s.suppliers.UpdateProfile(ctx, supplierID, u)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, notFound(err, supplierID)
		}
		return nil, &apperr.PersistenceError{Op: "update profile", Err: err}
	}
	return updated, nil
}

// Info returns the public profile with rating, fulfilment count and badges.
func (s *Service) Info(ctx context.Context, supplierID string) (*Info, error) {
	sup, err := s.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		return nil, notFound(err, supplierID)
	}
	st, err := s.ratings.Get(ctx, supplierID)
	if err != nil {
		return nil, errors.Wrap(err, "store rating")
	}
	counts, err := s.orders.StatusCounts(ctx, supplierID)
	if err != nil {
		return nil, errors.Wrap(err, "count orders")
	}

	m := Metrics{
		Rating:        st.Rating(),
		RatingCount:   st.RatingCount,
		TotalSupplied: counts[order.StatusDelivered] + counts[order.StatusCompleted],
		JoinDate:      sup.CreatedAt,
	}
	badges := []string{}
	if sup.Verified() {
		badges = append(badges, BadgeVerified)
	}
	if m.RatingCount >= topRatingMinimum && m.Rating.GreaterThanOrEqual(topRating) {
		badges = append(badges, BadgeTopRated)
	}
	return &Info{Supplier: sup, Metrics: m, Badges: badges}, nil
}

func validateHours(hours map[string]auth.DayHours) error {
	for day, h := range hours {
		if !slices.Contains(auth.Weekdays, day) {
			return apperr.Validationf("Invalid business day: %s", day)
		}
		for _, t := range []string{h.Open, h.Close} {
			if t == "" {
				continue
			}
			if _, err := time.Parse("15:04", t); err != nil || len(t) != len("15:04") {
				return apperr.Validationf("Invalid business hours for %s: %q. Use HH:MM", day, t)
			}
		}
	}
	return nil
}

func notFound(err error, id string) error {
	if errors.Is(err, auth.ErrNotFound) {
		return &apperr.NotFoundError{Entity: "supplier", ID: id, Message: "User not found"}
	}
	return errors.Wrapf(err, "supplier %s", id)
}
