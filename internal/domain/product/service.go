package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/instasupply/internal/domain/apperr"
)

var maxDiscount = decimal.NewFromInt(100)

// Input carries the writable fields of a product. Nil pointers keep the
// current value on update and take the default on create.
type Input struct {
	Name              *string
	Category          *Category
	Description       *string
	Price             *decimal.Decimal
	Stock             *int
	LowStockThreshold *int
	Discount          *decimal.Decimal
	Unit              *string
	Image             *string
	Images            []string
	Specifications    []Specification
	Delivery          *DeliveryOptions
	IsActive          *bool
}

// Page is one page of a product listing.
type Page struct {
	Products []Product
	Total    int
	Page     int
	Limit    int
}

// Service implements catalog management for a supplier.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a product Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns a page of the supplier's active products.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Category == "All" {
		f.Category = ""
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, apperr.Validationf("Invalid category: %s", f.Category)
	}
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	if !f.Sort.Valid() {
		return nil, apperr.Validationf("Invalid sort order: %s", f.Sort)
	}
	for _, st := range f.StockStatuses {
		if !st.Valid() {
			return nil, apperr.Validationf("Invalid stock status: %s", st)
		}
	}
	f.Search = strings.TrimSpace(f.Search)

	products, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return &Page{Products: products, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Get returns a single product of the supplier.
func (s *Service) Get(ctx context.Context, supplierID, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, supplierID, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return p, nil
}

// Create validates in and stores a new product for the supplier.
func (s *Service) Create(ctx context.Context, supplierID string, in Input) (*Product, error) {
	now := s.now()
	p := &Product{
		ID:                uuid.New().String(),
		SupplierID:        supplierID,
		LowStockThreshold: DefaultLowStockThreshold,
		Unit:              DefaultUnit,
		Delivery:          DeliveryOptions{AvailableForDelivery: true, AvailableForPickup: true},
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Name == nil || in.Category == nil || in.Price == nil {
		return nil, apperr.Validationf("Please provide name, category and price")
	}
	in.apply(p)
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, &apperr.PersistenceError{Op: "create product", Err: err}
	}
	return p, nil
}

// Update applies in to an existing product.
func (s *Service) Update(ctx context.Context, supplierID, id string, in Input) (*Product, error) {
	p, err := s.repo.GetByID(ctx, supplierID, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	in.apply(p)
	if err := validate(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, notFound(err, id)
	}
	return p, nil
}

// Delete removes a product permanently.
func (s *Service) Delete(ctx context.Context, supplierID, id string) error {
	if err := s.repo.Delete(ctx, supplierID, id); err != nil {
		return notFound(err, id)
	}
	return nil
}

func (in Input) apply(p *Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.LowStockThreshold != nil {
		p.LowStockThreshold = *in.LowStockThreshold
	}
	if in.Discount != nil {
		p.Discount = *in.Discount
	}
	if in.Unit != nil && *in.Unit != "" {
		p.Unit = *in.Unit
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	if in.Specifications != nil {
		p.Specifications = in.Specifications
	}
	if in.Delivery != nil {
		p.Delivery = *in.Delivery
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

func validate(p *Product) error {
	switch {
	case p.Name == "":
		return apperr.Validationf("Product name is required")
	case !p.Category.Valid():
		return apperr.Validationf("Invalid category: %s", p.Category)
	case p.Price.IsNegative():
		return apperr.Validationf("Price cannot be negative")
	case p.Stock < 0:
		return apperr.Validationf("Stock cannot be negative")
	case p.LowStockThreshold < 0:
		return apperr.Validationf("Low stock threshold cannot be negative")
	case p.Discount.IsNegative() || p.Discount.GreaterThan(maxDiscount):
		return apperr.Validationf("Discount must be between 0 and 100")
	}
	return nil
}

func notFound(err error, id string) error {
	if errors.Is(err, ErrNotFound) {
		return &apperr.NotFoundError{Entity: "product", ID: id, Message: "Product not found"}
	}
	return errors.Wrapf(err, "product %s", id)
}
