package review

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a visible review does not exist for the
// supplier.
var ErrNotFound = errors.New("review not found")

// Limits of a review.
const (
	MinRating = 1
	MaxRating = 5
	MaxImages = 5
)

// DefaultPageLimit is the review page size used when the caller gives none.
const DefaultPageLimit = 20

// SortOrder selects the ordering of a review listing.
type SortOrder string

const (
	SortRecent  SortOrder = "recent"
	SortOldest  SortOrder = "oldest"
	SortHighest SortOrder = "highest"
	SortLowest  SortOrder = "lowest"
)

// Valid reports whether o is a known sort order.
func (o SortOrder) Valid() bool {
	switch o {
	case SortRecent, SortOldest, SortHighest, SortLowest:
		return true
	}
	return false
}

// Reply is the supplier's public answer to a review.
type Reply struct {
	CompanyName string    `json:"companyName"`
	Text        string    `json:"replyText"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Review is a customer rating of a supplier. Deleting a review hides it.
type Review struct {
	ID            string
	SupplierID    string
	OrderID       string
	CustomerName  string
	CustomerEmail string
	Rating        int
	Text          string
	Images        []string
	Reply         *Reply
	Visible       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Filter narrows a review listing. A zero Rating matches every rating.
type Filter struct {
	SupplierID string
	Rating     int
	Sort       SortOrder
	Page       int
	Limit      int
}

// Offset returns the row offset of the requested page.
func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

// Distribution counts visible reviews per rating.
type Distribution map[int]int

// Total is the number of reviews counted.
func (d Distribution) Total() int {
	n := 0
	for r := MinRating; r <= MaxRating; r++ {
		n += d[r]
	}
	return n
}

// Average is the mean rating rounded to one decimal place, zero without
// reviews.
func (d Distribution) Average() decimal.Decimal {
	total := d.Total()
	if total == 0 {
		return decimal.Zero
	}
	sum := 0
	for r := MinRating; r <= MaxRating; r++ {
		sum += r * d[r]
	}
	return decimal.NewFromInt(int64(sum)).DivRound(decimal.NewFromInt(int64(total)), 1)
}

// Percentages gives the share of each rating as a whole percent. Every
// rating from MinRating to MaxRating is present.
func (d Distribution) Percentages() map[int]int {
	total := d.Total()
	out := make(map[int]int, MaxRating)
	for r := MinRating; r <= MaxRating; r++ {
		if total == 0 {
			out[r] = 0
			continue
		}
		out[r] = int(decimal.NewFromInt(int64(d[r] * 100)).
			DivRound(decimal.NewFromInt(int64(total)), 0).IntPart())
	}
	return out
}

// Repository defines persistence operations for reviews. Only visible
// reviews are listed, counted, fetched or changed.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Review, int, error)
	Distribution(ctx context.Context, supplierID string) (Distribution, error)
	Create(ctx context.Context, r *Review) error
	Get(ctx context.Context, supplierID, id string) (*Review, error)
	SetReply(ctx context.Context, supplierID, id string, reply Reply) (*Review, error)
	Hide(ctx context.Context, supplierID, id string) error
}
