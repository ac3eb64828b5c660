package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist or belongs
// to another supplier.
var ErrNotFound = errors.New("product not found")

// Category is the closed set of catalog categories.
type Category string

const (
	CategoryBuildingMaterials Category = "Building Materials"
	CategoryTools             Category = "Tools"
	CategoryElectrical        Category = "Electrical"
	CategoryPlumbing          Category = "Plumbing"
	CategoryHardware          Category = "Hardware"
	CategoryOther             Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryBuildingMaterials,
	CategoryTools,
	CategoryElectrical,
	CategoryPlumbing,
	CategoryHardware,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// StockStatus is derived from stock and the low stock threshold.
type StockStatus string

const (
	StockIn  StockStatus = "inStock"
	StockLow StockStatus = "lowStock"
	StockOut StockStatus = "outOfStock"
)

// Valid reports whether s is a known stock status.
func (s StockStatus) Valid() bool {
	switch s {
	case StockIn, StockLow, StockOut:
		return true
	}
	return false
}

// Default values applied on create.
const (
	DefaultLowStockThreshold = 10
	DefaultUnit              = "Unit"
)

// Product is a catalog item owned by a single supplier.
type Product struct {
	ID                string
	SupplierID        string
	Name              string
	Category          Category
	Description       string
	Price             decimal.Decimal
	Stock             int
	LowStockThreshold int
	SoldQuantity      int
	Discount          decimal.Decimal
	Unit              string
	Image             string
	Images            []string
	Specifications    []Specification
	Delivery          DeliveryOptions
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Specification is a free-form name/value attribute.
type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DeliveryOptions says how a product can reach the customer.
type DeliveryOptions struct {
	AvailableForDelivery bool
	AvailableForPickup   bool
}

// StockStatus derives the stock status. Zero stock is out of stock even when
// the threshold is zero.
func (p Product) StockStatus() StockStatus {
	switch {
	case p.Stock == 0:
		return StockOut
	case p.Stock <= p.LowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}

// StockLevel is the state of a product's counters right after an atomic
// adjustment.
type StockLevel struct {
	ProductID         string
	Name              string
	Stock             int
	LowStockThreshold int
}

// Low reports whether the level is at or under the threshold.
func (l StockLevel) Low() bool { return l.Stock <= l.LowStockThreshold }

// SortOrder selects the listing order.
type SortOrder string

const (
	SortNewest       SortOrder = "newest"
	SortPriceLowHigh SortOrder = "price-low-to-high"
	SortPriceHighLow SortOrder = "price-high-to-low"
	SortBestSelling  SortOrder = "best-selling"
)

// Valid reports whether s is a known sort order.
func (s SortOrder) Valid() bool {
	switch s {
	case SortNewest, SortPriceLowHigh, SortPriceHighLow, SortBestSelling:
		return true
	}
	return false
}

// DefaultPageLimit is the page size used when the caller gives none.
const DefaultPageLimit = 20

// Filter narrows a product listing. Zero values mean no constraint.
type Filter struct {
	SupplierID    string
	Category      Category
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	StockStatuses []StockStatus
	Search        string
	Sort          SortOrder
	Page          int
	Limit         int
}

// Offset returns the row offset of the requested page.
func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

// Repository defines persistence operations for the product catalog. Every
// read and write is scoped to the owning supplier.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, int, error)
	GetByID(ctx context.Context, supplierID, id string) (*Product, error)
	// GetByIDs returns the active products of supplierID among ids. Missing
	// ids are simply absent from the result.
	GetByIDs(ctx context.Context, supplierID string, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, supplierID, id string) error
	// AdjustStock atomically adds stockDelta to stock and soldDelta to the
	// sold quantity.
	AdjustStock(ctx context.Context, supplierID, id string, stockDelta, soldDelta int) (*StockLevel, error)
}
