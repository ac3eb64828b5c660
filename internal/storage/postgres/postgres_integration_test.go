//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/notification"
	"github.com/xenking/instasupply/internal/domain/order"
	"github.com/xenking/instasupply/internal/domain/product"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "insta",
				"POSTGRES_PASSWORD": "insta",
				"POSTGRES_DB":       "insta",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://insta:insta@%s:%s/insta?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("pool: %v", err)
	}
	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	code := m.Run()

	testPool.Close()
	_ = c.Terminate(ctx)
	os.Exit(code)
}

func seedSupplier(t *testing.T) *auth.Supplier {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	s := &auth.Supplier{
		ID:           uuid.New().String(),
		Name:         "Acme Supply",
		Email:        uuid.New().String() + "@acme.com",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, NewSupplierRepository(testPool).Create(context.Background(), s))
	return s
}

func seedProduct(t *testing.T, supplierID, name, price string, stock int) product.Product {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := product.Product{
		ID:                uuid.New().String(),
		SupplierID:        supplierID,
		Name:              name,
		Category:          product.CategoryTools,
		Price:             decimal.RequireFromString(price),
		Stock:             stock,
		LowStockThreshold: 10,
		Unit:              "Unit",
		IsActive:          true,
		Specifications:    []product.Specification{{Name: "weight", Value: "2kg"}},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, NewProductRepository(testPool).Create(context.Background(), &p))
	return p
}

func newOrder(supplierID string, items ...order.LineItem) *order.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return &order.Order{
		ID:             uuid.New().String(),
		SupplierID:     supplierID,
		Items:          items,
		TotalAmount:    total,
		Status:         order.StatusNewOrder,
		Customer:       order.Customer{Name: "Jo Builder", Email: "jo@site.com", Type: order.CustomerOther},
		DeliveryMethod: order.DeliveryStandard,
		History: []order.HistoryEntry{{
			Status: order.StatusNewOrder, Note: "Order created", UpdatedBy: "System", Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func line(p product.Product, qty int) order.LineItem {
	return order.LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  qty,
		Price:     p.Price,
		Subtotal:  p.Price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func TestProductRepository_RoundTripAndFilters(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	repo := NewProductRepository(testPool)

	hammer := seedProduct(t, sup.ID, "Claw Hammer", "19.99", 50)
	seedProduct(t, sup.ID, "Drill Bits", "7.50", 4)
	seedProduct(t, sup.ID, "Tape 100% Duct", "3.00", 0)

	got, err := repo.GetByID(ctx, sup.ID, hammer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Claw Hammer", got.Name)
	assert.True(t, hammer.Price.Equal(got.Price))
	assert.Equal(t, hammer.Specifications, got.Specifications)
	assert.Equal(t, product.StockIn, got.StockStatus())

	_, err = repo.GetByID(ctx, "someone-else", hammer.ID)
	require.ErrorIs(t, err, product.ErrNotFound)

	list, total, err := repo.List(ctx, product.Filter{
		SupplierID:    sup.ID,
		StockStatuses: []product.StockStatus{product.StockLow, product.StockOut},
		Sort:          product.SortPriceHighLow,
		Page:          1,
		Limit:         10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Drill Bits", list[0].Name)

	list, _, err = repo.List(ctx, product.Filter{SupplierID: sup.ID, Search: "100%", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Tape 100% Duct", list[0].Name)
}

func TestOrderRepository_CreateReservesStock(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)

	p1 := seedProduct(t, sup.ID, "Cement", "12.50", 20)
	p2 := seedProduct(t, sup.ID, "Sand", "3.10", 12)

	o := newOrder(sup.ID, line(p1, 2), line(p2, 3))
	levels, err := orders.Create(ctx, o)
	require.NoError(t, err)
	assert.Regexp(t, `^INS\d{4,}$`, o.Number)
	require.Len(t, levels, 2)

	got, err := products.GetByID(ctx, sup.ID, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Stock)
	assert.Equal(t, 3, got.SoldQuantity)

	stored, err := orders.Get(ctx, sup.ID, o.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("34.30").Equal(stored.TotalAmount))
	require.Len(t, stored.Items, 2)
	require.Len(t, stored.History, 1)
}

func TestOrderRepository_CreateRollsBackOnShortage(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)

	p1 := seedProduct(t, sup.ID, "Cement", "12.50", 20)
	p2 := seedProduct(t, sup.ID, "Sand", "3.10", 1)

	o := newOrder(sup.ID, line(p1, 5), line(p2, 2))
	_, err := orders.Create(ctx, o)

	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Available)

	got, err := products.GetByID(ctx, sup.ID, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Stock)
	assert.Equal(t, 0, got.SoldQuantity)

	_, err = orders.Get(ctx, sup.ID, o.ID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_ConcurrentCreateNeverOversells(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	orders := NewOrderRepository(testPool)
	p := seedProduct(t, sup.ID, "Cement", "10.00", 10)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := orders.Create(ctx, newOrder(sup.ID, line(p, 3))); err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := NewProductRepository(testPool).GetByID(ctx, sup.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, placed)
	assert.Equal(t, 1, got.Stock)
	assert.Equal(t, 9, got.SoldQuantity)
}

func TestOrderRepository_AppendStatusAndDetails(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	orders := NewOrderRepository(testPool)
	p := seedProduct(t, sup.ID, "Cement", "10.00", 10)

	o := newOrder(sup.ID, line(p, 1))
	_, err := orders.Create(ctx, o)
	require.NoError(t, err)

	updated, err := orders.AppendStatus(ctx, sup.ID, o.ID, order.HistoryEntry{
		Status: order.StatusProcessing, Note: "packing", UpdatedBy: "Acme", Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, updated.Status)
	require.Len(t, updated.History, 2)
	assert.Equal(t, "packing", updated.History[1].Note)

	notes := "leave at gate"
	updated, err = orders.UpdateDetails(ctx, sup.ID, o.ID, order.DetailsPatch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, "Jo Builder", updated.Customer.Name)

	counts, err := orders.StatusCounts(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, map[order.Status]int{order.StatusProcessing: 1}, counts)

	list, total, err := orders.List(ctx, order.Filter{SupplierID: sup.ID, Search: o.Number, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)

	removed, err := orders.Delete(ctx, sup.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, removed.Status)
	require.Len(t, removed.Items, 1)
	assert.Equal(t, p.ID, removed.Items[0].ProductID)

	_, err = orders.Delete(ctx, sup.ID, o.ID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_ConcurrentDeleteRemovesOnce(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	orders := NewOrderRepository(testPool)
	p := seedProduct(t, sup.ID, "Cement", "10.00", 10)

	o := newOrder(sup.ID, line(p, 4))
	_, err := orders.Create(ctx, o)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		removed  int
		notFound int
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orders.Delete(ctx, sup.ID, o.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				removed++
			case errors.Is(err, order.ErrNotFound):
				notFound++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, notFound)
}

func TestProductRepository_UpdateKeepsOrderPriceSnapshot(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	products := NewProductRepository(testPool)
	orders := NewOrderRepository(testPool)
	p := seedProduct(t, sup.ID, "Cement", "12.50", 10)

	o := newOrder(sup.ID, line(p, 2))
	_, err := orders.Create(ctx, o)
	require.NoError(t, err)

	changed, err := products.GetByID(ctx, sup.ID, p.ID)
	require.NoError(t, err)
	changed.Price = decimal.RequireFromString("99.00")
	changed.UpdatedAt = time.Now().UTC()
	require.NoError(t, products.Update(ctx, changed))

	stored, err := orders.Get(ctx, sup.ID, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.True(t, decimal.RequireFromString("12.50").Equal(stored.Items[0].Price))
	assert.True(t, decimal.RequireFromString("25.00").Equal(stored.Items[0].Subtotal))
	assert.True(t, decimal.RequireFromString("25.00").Equal(stored.TotalAmount))
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	repo := NewNotificationRepository(testPool)

	n := notification.Notice{
		SupplierID: sup.ID,
		Type:       notification.TypeOrder,
		Title:      "New Order #INS0001",
		Message:    "hello",
		Metadata:   map[string]any{"itemCount": 2},
	}.Build(uuid.New().String(), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, n))
	require.NoError(t, repo.Create(ctx, n), "duplicate ids are ignored")

	items, total, err := repo.List(ctx, notification.Filter{SupplierID: sup.ID, Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, float64(2), items[0].Metadata["itemCount"])

	unread, err := repo.CountUnread(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	changed, err := repo.MarkAllRead(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	require.NoError(t, repo.Delete(ctx, sup.ID, n.ID))
	require.ErrorIs(t, repo.Delete(ctx, sup.ID, n.ID), notification.ErrNotFound)
}

func TestSupplierRepository(t *testing.T) {
	ctx := context.Background()
	sup := seedSupplier(t)
	repo := NewSupplierRepository(testPool)

	dup := *sup
	dup.ID = uuid.New().String()
	require.ErrorIs(t, repo.Create(ctx, &dup), auth.ErrEmailTaken)

	require.NoError(t, repo.MarkVerified(ctx, sup.ID, time.Now().UTC()))
	got, err := repo.GetByEmail(ctx, sup.Email)
	require.NoError(t, err)
	assert.True(t, got.Verified())

	_, err = repo.GetByID(ctx, uuid.New().String())
	require.ErrorIs(t, err, auth.ErrNotFound)
}
