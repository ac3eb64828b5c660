package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/notification"
	"github.com/xenking/instasupply/internal/domain/product"
)

// Who is recorded in the history when nobody in particular acted.
const (
	UpdatedBySystem   = "System"
	UpdatedBySupplier = "Supplier"
)

// Actor is the authenticated supplier performing an operation.
type Actor struct {
	SupplierID string
	Name       string
}

// ItemRequest is one requested line item.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []ItemRequest
	Customer        Customer
	DeliveryAddress Address
	DeliveryMethod  DeliveryMethod
	DeliveryTime    string
	PaymentMethod   *PaymentMethod
	Notes           string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []product.Product
}

// ListResult is one page of orders plus per-status counts for the supplier.
type ListResult struct {
	Orders       []Order
	Total        int
	Page         int
	Limit        int
	StatusCounts map[Status]int
}

// ServiceConfig tunes order lifecycle rules.
type ServiceConfig struct {
	// StrictTransitions enforces the status transition table. When false any
	// status may follow any other.
	StrictTransitions bool
}

// Service encapsulates order lifecycle business logic.
type Service struct {
	products product.Repository
	orders   Repository
	notifier notification.Emitter
	strict   bool
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	cfg ServiceConfig,
	products product.Repository,
	orders Repository,
	notifier notification.Emitter,
) *Service {
	return &Service{
		products: products,
		orders:   orders,
		notifier: notifier,
		strict:   cfg.StrictTransitions,
		now:      time.Now,
	}
}

// PlaceOrder validates items against the supplier's catalog, persists the
// order together with the stock reservation, and emits notifications.
func (s *Service) PlaceOrder(ctx context.Context, actor Actor, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate shape and collect unique product IDs.
	ids := make([]string, 0, len(req.Items))
	requested := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		if _, err := uuid.Parse(item.ProductID); err != nil {
			return nil, &InvalidProductIDError{ProductID: item.ProductID}
		}
		if item.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if _, seen := requested[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, actor.SupplierID, ids)
	if err != nil {
		return nil, &apperr.PersistenceError{Op: "get products", Err: err}
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	products := make([]product.Product, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if want := requested[item.ProductID]; p.Stock < want {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Available: p.Stock,
				Requested: want,
			}
		}
		products = append(products, p)
	}

	// Price snapshot and exact totals.
	items := make([]LineItem, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		p := products[i]
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items[i] = LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Quantity:  item.Quantity,
			Price:     p.Price,
			Subtotal:  subtotal,
		}
		total = total.Add(subtotal)
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		SupplierID:      actor.SupplierID,
		Items:           items,
		TotalAmount:     total,
		Status:          StatusNewOrder,
		Customer:        req.Customer,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryTime:    req.DeliveryTime,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		History: []HistoryEntry{{
			Status:    StatusNewOrder,
			Note:      "Order created",
			UpdatedBy: UpdatedBySystem,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if o.Customer.Type == "" {
		o.Customer.Type = CustomerOther
	}
	if !o.Customer.Type.Valid() {
		return nil, apperr.Validationf("Invalid customer type: %s", o.Customer.Type)
	}
	if o.DeliveryMethod == "" {
		o.DeliveryMethod = DeliveryStandard
	}
	if !o.DeliveryMethod.Valid() {
		return nil, apperr.Validationf("Invalid delivery method: %s", o.DeliveryMethod)
	}

	levels, err := s.orders.Create(ctx, o)
	if err != nil {
		var stockErr *InsufficientStockError
		var missingErr *ProductNotFoundError
		if errors.As(err, &stockErr) || errors.As(err, &missingErr) {
			return nil, err
		}
		return nil, &apperr.PersistenceError{Op: "create order", Err: err}
	}

	for _, lvl := range levels {
		if !lvl.Low() {
			continue
		}
		s.notifier.Emit(ctx, notification.Notice{
			SupplierID:  actor.SupplierID,
			Type:        notification.TypeProduct,
			Title:       "Low Stock Alert",
			Message:     fmt.Sprintf("Your product '%s' has low stock (only %d units left).", lvl.Name, lvl.Stock),
			Icon:        notification.IconAlert,
			RelatedID:   lvl.ProductID,
			RelatedType: "Product",
			Metadata: map[string]any{
				"stock":     lvl.Stock,
				"threshold": lvl.LowStockThreshold,
			},
		})
	}

	customer := o.Customer.Name
	if customer == "" {
		customer = "Customer"
	}
	s.notifier.Emit(ctx, notification.Notice{
		SupplierID:  actor.SupplierID,
		Type:        notification.TypeOrder,
		Title:       "New Order #" + o.Number,
		Message:     fmt.Sprintf("%s placed an order for %d items with a total of $%s.", customer, len(o.Items), o.TotalAmount.StringFixed(2)),
		Icon:        notification.IconOrder,
		RelatedID:   o.ID,
		RelatedType: "Order",
		Metadata: map[string]any{
			"orderNumber": o.Number,
			"totalAmount": o.TotalAmount.InexactFloat64(),
			"itemCount":   len(o.Items),
		},
	})

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}

// UpdateStatus moves an order to status and appends one history entry. An
// empty note is replaced with a description of the change.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id, status, note string) (*Order, error) {
	to, ok := ParseStatus(status)
	if !ok {
		return nil, apperr.Validationf("Please provide a valid status. Valid statuses: %s", StatusList())
	}

	current, err := s.get(ctx, actor.SupplierID, id)
	if err != nil {
		return nil, err
	}
	if s.strict && !CanTransition(current.Status, to) {
		return nil, &TransitionError{From: current.Status, To: to}
	}

	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("Status changed from %s to %s", current.Status, to)
	}
	by := actor.Name
	if by == "" {
		by = UpdatedBySupplier
	}

	o, err := s.orders.AppendStatus(ctx, actor.SupplierID, id, HistoryEntry{
		Status:    to,
		Note:      note,
		UpdatedBy: by,
		Timestamp: s.now(),
	})
	if err != nil {
		return nil, notFound(err, id)
	}

	if to.Fulfilled() {
		title := "Order Delivered"
		if to == StatusCompleted {
			title = "Order Completed"
		}
		s.notifier.Emit(ctx, notification.Notice{
			SupplierID:  actor.SupplierID,
			Type:        notification.TypeOrder,
			Title:       title,
			Message:     fmt.Sprintf("Order #%s has been %s.", o.Number, strings.ToLower(string(to))),
			Icon:        notification.IconOrder,
			RelatedID:   o.ID,
			RelatedType: "Order",
			Metadata:    map[string]any{"orderNumber": o.Number, "status": string(to)},
		})
	}
	return o, nil
}

// Delete removes an order. Unless it was cancelled or delivered, its stock is
// given back after the row is gone; only the caller whose delete removed the
// row gives stock back. A failed give-back is logged.
func (s *Service) Delete(ctx context.Context, supplierID, id string) error {
	o, err := s.orders.Delete(ctx, supplierID, id)
	if err != nil {
		return notFound(err, id)
	}

	if o.Status.RestoresStock() {
		lg := zctx.From(ctx)
		for _, item := range o.Items {
			if _, err := s.products.AdjustStock(ctx, supplierID, item.ProductID, item.Quantity, -item.Quantity); err != nil {
				lg.Warn("Stock restore failed",
					zap.String("order_id", o.ID),
					zap.String("product_id", item.ProductID),
					zap.Int("quantity", item.Quantity),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Get returns a single order of the supplier.
func (s *Service) Get(ctx context.Context, supplierID, id string) (*Order, error) {
	return s.get(ctx, supplierID, id)
}

// List returns a page of orders newest first together with per-status counts.
func (s *Service) List(ctx context.Context, f Filter) (*ListResult, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Status == "All" {
		f.Status = ""
	}
	if f.Status != "" {
		if _, ok := ParseStatus(string(f.Status)); !ok {
			return nil, apperr.Validationf("Please provide a valid status. Valid statuses: %s", StatusList())
		}
	}
	f.Search = strings.TrimSpace(f.Search)

	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	counts, err := s.orders.StatusCounts(ctx, f.SupplierID)
	if err != nil {
		return nil, errors.Wrap(err, "count orders")
	}
	return &ListResult{
		Orders:       orders,
		Total:        total,
		Page:         f.Page,
		Limit:        f.Limit,
		StatusCounts: counts,
	}, nil
}

// Recent returns the supplier's newest orders.
func (s *Service) Recent(ctx context.Context, supplierID string, limit int) ([]Order, error) {
	if limit < 1 {
		limit = DefaultRecentLimit
	}
	orders, err := s.orders.Recent(ctx, supplierID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "recent orders")
	}
	return orders, nil
}

// UpdateDetails edits customer contact, address and notes. Status and history
// are untouched.
func (s *Service) UpdateDetails(ctx context.Context, supplierID, id string, patch DetailsPatch) (*Order, error) {
	if patch.Empty() {
		return s.get(ctx, supplierID, id)
	}
	o, err := s.orders.UpdateDetails(ctx, supplierID, id, patch)
	if err != nil {
		return nil, notFound(err, id)
	}
	return o, nil
}

func (s *Service) get(ctx context.Context, supplierID, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, supplierID, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return o, nil
}

func notFound(err error, id string) error {
	if errors.Is(err, ErrNotFound) {
		return &apperr.NotFoundError{Entity: "order", ID: id, Message: "Order not found"}
	}
	return errors.Wrapf(err, "order %s", id)
}
