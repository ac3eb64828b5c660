package order

import (
	"context"
	"sort"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/instasupply/internal/domain/notification"
	"github.com/xenking/instasupply/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	mu        sync.Mutex
	byID      map[string]*product.Product
	getErr    error
	adjustErr map[string]error
	adjusted  []string
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		p := products[i]
		byID[p.ID] = &p
	}
	return &mockProductRepo{byID: byID, adjustErr: map[string]error{}}
}

func (m *mockProductRepo) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Stock
}

func (m *mockProductRepo) sold(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].SoldQuantity
}

func (m *mockProductRepo) List(context.Context, product.Filter) ([]product.Product, int, error) {
	return nil, 0, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, supplierID, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.SupplierID != supplierID {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, supplierID string, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok && p.SupplierID == supplierID && p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) Create(context.Context, *product.Product) error { return nil }
func (m *mockProductRepo) Update(context.Context, *product.Product) error { return nil }
func (m *mockProductRepo) Delete(context.Context, string, string) error   { return nil }

func (m *mockProductRepo) AdjustStock(_ context.Context, supplierID, id string, stockDelta, soldDelta int) (*product.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjusted = append(m.adjusted, id)
	if err := m.adjustErr[id]; err != nil {
		return nil, err
	}
	p, ok := m.byID[id]
	if !ok || p.SupplierID != supplierID {
		return nil, product.ErrNotFound
	}
	p.Stock += stockDelta
	p.SoldQuantity += soldDelta
	return &product.StockLevel{ProductID: p.ID, Name: p.Name, Stock: p.Stock, LowStockThreshold: p.LowStockThreshold}, nil
}

// mockOrderRepo keeps orders in memory and reserves stock from the product
// mock under one lock, the way the database transaction does.
type mockOrderRepo struct {
	products  *mockProductRepo
	mu        sync.Mutex
	seq       int64
	byID      map[string]*Order
	createErr error
	deleted   []string
}

func newOrderRepo(products *mockProductRepo) *mockOrderRepo {
	return &mockOrderRepo{products: products, byID: map[string]*Order{}}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) ([]product.StockLevel, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.products.mu.Lock()
	defer m.products.mu.Unlock()

	res := o.Reservations()
	for _, r := range res {
		p, ok := m.products.byID[r.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: r.ProductID}
		}
		if p.Stock < r.Quantity {
			return nil, &InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: r.Quantity}
		}
	}
	levels := make([]product.StockLevel, 0, len(res))
	for _, r := range res {
		p := m.products.byID[r.ProductID]
		p.Stock -= r.Quantity
		p.SoldQuantity += r.Quantity
		levels = append(levels, product.StockLevel{ProductID: p.ID, Name: p.Name, Stock: p.Stock, LowStockThreshold: p.LowStockThreshold})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	o.Number = FormatNumber(m.seq)
	cp := *o
	cp.History = append([]HistoryEntry(nil), o.History...)
	m.byID[o.ID] = &cp
	return levels, nil
}

func (m *mockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *mockOrderRepo) Get(_ context.Context, supplierID, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.SupplierID != supplierID {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) List(_ context.Context, f Filter) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.byID {
		if o.SupplierID == f.SupplierID && (f.Status == "" || o.Status == f.Status) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out, len(out), nil
}

func (m *mockOrderRepo) StatusCounts(_ context.Context, supplierID string) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[Status]int{}
	for _, o := range m.byID {
		if o.SupplierID == supplierID {
			counts[o.Status]++
		}
	}
	return counts, nil
}

func (m *mockOrderRepo) Recent(ctx context.Context, supplierID string, limit int) ([]Order, error) {
	out, _, err := m.List(ctx, Filter{SupplierID: supplierID})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (m *mockOrderRepo) AppendStatus(_ context.Context, supplierID, id string, entry HistoryEntry) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.SupplierID != supplierID {
		return nil, ErrNotFound
	}
	o.Status = entry.Status
	o.History = append(o.History, entry)
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) UpdateDetails(_ context.Context, supplierID, id string, p DetailsPatch) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.SupplierID != supplierID {
		return nil, ErrNotFound
	}
	if p.CustomerName != nil {
		o.Customer.Name = *p.CustomerName
	}
	if p.CustomerEmail != nil {
		o.Customer.Email = *p.CustomerEmail
	}
	if p.CustomerPhone != nil {
		o.Customer.Phone = *p.CustomerPhone
	}
	if p.DeliveryAddress != nil {
		o.DeliveryAddress = *p.DeliveryAddress
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Delete(_ context.Context, supplierID, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok || o.SupplierID != supplierID {
		return nil, ErrNotFound
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return o, nil
}

// recordingEmitter captures notices. When fail is set it behaves like an
// emitter whose store is down.
type recordingEmitter struct {
	mu      sync.Mutex
	notices []notification.Notice
	fail    bool
}

func (e *recordingEmitter) Emit(_ context.Context, n notification.Notice) *notification.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notices = append(e.notices, n)
	if e.fail {
		return nil
	}
	return &notification.Notification{Title: n.Title}
}

func (e *recordingEmitter) titles() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.notices))
	for i, n := range e.notices {
		out[i] = n.Title
	}
	return out
}

var errDB = errors.New("connection reset")
