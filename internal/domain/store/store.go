package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Opening hours of a store that was never configured.
const (
	DefaultOpeningTime = "09:00"
	DefaultClosingTime = "21:00"
)

// Ratings accepted by AddRating.
const (
	MinRating = 1
	MaxRating = 5
)

// Settings is the storefront state of one supplier.
type Settings struct {
	SupplierID   string
	IsOpen       bool
	OpeningTime  string
	ClosingTime  string
	TotalRatings int64
	RatingCount  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Rating is the mean of all ratings rounded to one decimal place. It is zero
// while nobody has rated the store.
func (s *Settings) Rating() decimal.Decimal {
	if s.RatingCount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.TotalRatings).DivRound(decimal.NewFromInt(s.RatingCount), 1)
}

// StatusMessage is the short open/closed line shown on the storefront.
func (s *Settings) StatusMessage() string {
	if !s.IsOpen {
		return "Closed"
	}
	return "Until " + s.ClosingTime
}

// Patch holds editable settings. Nil pointers are left unchanged.
type Patch struct {
	IsOpen      *bool
	OpeningTime *string
	ClosingTime *string
}

// Repository defines persistence operations for store settings. Every method
// creates the default settings row when the supplier has none yet.
type Repository interface {
	Get(ctx context.Context, supplierID string) (*Settings, error)
	Update(ctx context.Context, supplierID string, p Patch) (*Settings, error)
	// AddRating folds one rating into the running totals atomically.
	AddRating(ctx context.Context, supplierID string, rating int) (*Settings, error)
}
