package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/instasupply/internal/domain/product"
)

// ErrNotFound is returned when an order does not exist for the supplier.
var ErrNotFound = errors.New("order not found")

// FormatNumber renders a sequence value as a human-readable order number.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("INS%04d", seq)
}

// Order is a supplier's order. Line items and the total are frozen at
// placement; History only grows.
type Order struct {
	ID              string
	Number          string
	SupplierID      string
	Items           []LineItem
	TotalAmount     decimal.Decimal
	Status          Status
	Customer        Customer
	DeliveryAddress Address
	DeliveryMethod  DeliveryMethod
	DeliveryTime    string
	PaymentMethod   *PaymentMethod
	Notes           string
	History         []HistoryEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineItem is one product of an order with the price snapshotted at placement.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// HistoryEntry records one status change.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Note      string    `json:"note"`
	UpdatedBy string    `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

// CustomerType classifies the buyer.
type CustomerType string

const (
	CustomerContractor   CustomerType = "Contractor"
	CustomerDIYHomeowner CustomerType = "DIY Homeowner"
	CustomerBusiness     CustomerType = "Business"
	CustomerOther        CustomerType = "Other"
)

// Valid reports whether t is a known customer type.
func (t CustomerType) Valid() bool {
	switch t {
	case CustomerContractor, CustomerDIYHomeowner, CustomerBusiness, CustomerOther:
		return true
	}
	return false
}

// Customer identifies the buyer of an order.
type Customer struct {
	Name  string
	Email string
	Phone string
	Type  CustomerType
}

// Address is a delivery address.
type Address struct {
	Name        string `json:"name,omitempty"`
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	ZipCode     string `json:"zipCode,omitempty"`
	Country     string `json:"country,omitempty"`
	FullAddress string `json:"fullAddress,omitempty"`
}

// DeliveryMethod says how the order reaches the customer.
type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "Standard Delivery"
	DeliveryExpress  DeliveryMethod = "Express Delivery"
	DeliveryPickup   DeliveryMethod = "Pickup"
)

// Valid reports whether m is a known delivery method.
func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryStandard, DeliveryExpress, DeliveryPickup:
		return true
	}
	return false
}

// PaymentMethod describes how the customer pays. Only display data is kept.
type PaymentMethod struct {
	Type  string `json:"type"`
	Last4 string `json:"last4,omitempty"`
	Brand string `json:"brand,omitempty"`
}

// Reservation is the total quantity an order takes from one product.
type Reservation struct {
	ProductID string
	Quantity  int
}

// Reservations sums item quantities per product, ordered by product id so
// that concurrent placements lock rows in the same order.
func (o *Order) Reservations() []Reservation {
	qty := make(map[string]int, len(o.Items))
	for _, item := range o.Items {
		qty[item.ProductID] += item.Quantity
	}
	out := make([]Reservation, 0, len(qty))
	for id, q := range qty {
		out = append(out, Reservation{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// ItemCount is the number of units across all line items.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// HistoryNewestFirst returns a copy of the history in reverse append order.
func (o *Order) HistoryNewestFirst() []HistoryEntry {
	out := make([]HistoryEntry, len(o.History))
	for i, h := range o.History {
		out[len(o.History)-1-i] = h
	}
	return out
}

// DefaultPageLimit is the order page size used when the caller gives none.
const DefaultPageLimit = 20

// DefaultRecentLimit is the number of orders returned by Recent by default.
const DefaultRecentLimit = 10

// Filter narrows an order listing.
type Filter struct {
	SupplierID string
	Status     Status
	Search     string
	Page       int
	Limit      int
}

// Offset returns the row offset of the requested page.
func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

// DetailsPatch holds editable order fields. Nil pointers are left unchanged.
type DetailsPatch struct {
	CustomerName    *string
	CustomerEmail   *string
	CustomerPhone   *string
	DeliveryAddress *Address
	Notes           *string
}

// Empty reports whether the patch changes nothing.
func (p DetailsPatch) Empty() bool {
	return p.CustomerName == nil && p.CustomerEmail == nil && p.CustomerPhone == nil &&
		p.DeliveryAddress == nil && p.Notes == nil
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create assigns o.Number, stores o and reserves stock for every line
	// item in one transaction. If any product lacks stock nothing is
	// written and an *InsufficientStockError is returned. The returned
	// levels are the product counters after reservation.
	Create(ctx context.Context, o *Order) ([]product.StockLevel, error)
	Get(ctx context.Context, supplierID, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, int, error)
	StatusCounts(ctx context.Context, supplierID string) (map[Status]int, error)
	Recent(ctx context.Context, supplierID string, limit int) ([]Order, error)
	// AppendStatus sets the status and appends entry to the history in one
	// statement.
	AppendStatus(ctx context.Context, supplierID, id string, entry HistoryEntry) (*Order, error)
	UpdateDetails(ctx context.Context, supplierID, id string, patch DetailsPatch) (*Order, error)
	// Delete removes the order and returns its id, status and items as they
	// were at removal. ErrNotFound means nothing was removed.
	Delete(ctx context.Context, supplierID, id string) (*Order, error)
}
