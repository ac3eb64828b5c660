package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/instasupply/internal/domain/product"
)

// ErrNotFound is returned when a campaign does not exist for the supplier.
var ErrNotFound = errors.New("campaign not found")

// CostPerClick is charged against the budget for every recorded click.
var CostPerClick = decimal.RequireFromString("0.25")

// DefaultPageLimit is the campaign page size used when the caller gives none.
const DefaultPageLimit = 20

// Status is the delivery state of a campaign.
type Status string

const (
	StatusActive    Status = "Active"
	StatusPaused    Status = "Paused"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusActive, StatusPaused, StatusCompleted, StatusCancelled}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// StatusList returns the statuses as a comma separated list.
func StatusList() string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Campaign promotes a set of the supplier's products on a daily budget.
type Campaign struct {
	ID          string
	SupplierID  string
	Name        string
	ProductIDs  []string
	DailyBudget decimal.Decimal
	TotalSpent  decimal.Decimal
	Status      Status
	Impressions int64
	Clicks      int64
	StartDate   time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Products holds the promoted products that are still active. It is
	// filled by the service, not stored.
	Products []product.Product
}

// CTR is the click-through rate in percent rounded to two decimals.
func (c *Campaign) CTR() decimal.Decimal {
	return ratio(decimal.NewFromInt(c.Clicks*100), c.Impressions)
}

// CPC is the average cost per click rounded to two decimals.
func (c *Campaign) CPC() decimal.Decimal {
	return ratio(c.TotalSpent, c.Clicks)
}

func ratio(num decimal.Decimal, den int64) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return num.DivRound(decimal.NewFromInt(den), 2)
}

// Filter narrows a campaign listing.
type Filter struct {
	SupplierID string
	Status     Status
	Page       int
	Limit      int
}

// Offset returns the row offset of the requested page.
func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

// Summary aggregates every campaign of a supplier.
type Summary struct {
	Active     int
	TotalSpent decimal.Decimal
}

// DailyMetrics are the impressions and clicks recorded on one UTC day.
type DailyMetrics struct {
	Day         time.Time
	Impressions int64
	Clicks      int64
}

// Metrics is one batch of delivery counters.
type Metrics struct {
	Impressions int64
	Clicks      int64
	Spend       decimal.Decimal
	Day         time.Time
}

// Repository defines persistence operations for campaigns.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Campaign, int, error)
	Summary(ctx context.Context, supplierID string) (Summary, error)
	Get(ctx context.Context, supplierID, id string) (*Campaign, error)
	Create(ctx context.Context, c *Campaign) error
	Update(ctx context.Context, c *Campaign) error
	// AddMetrics increments the counters and spend, and the per-day counters
	// of m.Day, in one statement.
	AddMetrics(ctx context.Context, supplierID, id string, m Metrics) (*Campaign, error)
	// Daily returns the recorded days in [from, to], oldest first. Days
	// without traffic are absent.
	Daily(ctx context.Context, id string, from, to time.Time) ([]DailyMetrics, error)
	Delete(ctx context.Context, supplierID, id string) error
}
