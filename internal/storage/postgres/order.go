package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/instasupply/internal/domain/order"
	"github.com/xenking/instasupply/internal/domain/product"
)

const orderColumns = `id, order_number, supplier_id, items, total_amount, status,
	customer_name, customer_email, customer_phone, customer_type, delivery_address,
	delivery_method, delivery_time, payment_method, notes, history, created_at, updated_at`

const (
	nextOrderNumberSQL = `SELECT nextval('order_number_seq')`

	// Stock is taken only if enough is left; zero rows means the product is
	// gone or a concurrent order got there first.
	reserveStockSQL = `UPDATE products
		SET stock = stock - $3, sold_quantity = sold_quantity + $3, updated_at = now()
		WHERE id = $1 AND supplier_id = $2 AND is_active AND stock >= $3
		RETURNING id, name, stock, low_stock_threshold`

	currentStockSQL = `SELECT name, stock FROM products WHERE id = $1 AND supplier_id = $2 AND is_active`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND supplier_id = $2`

	recentOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE supplier_id = $1 ORDER BY created_at DESC LIMIT $2`

	statusCountsSQL = `SELECT status, count(*) FROM orders WHERE supplier_id = $1 GROUP BY status`

	appendStatusSQL = `UPDATE orders
		SET status = $3, history = history || $4::jsonb, updated_at = now()
		WHERE id = $1 AND supplier_id = $2
		RETURNING ` + orderColumns

	updateDetailsSQL = `UPDATE orders SET
		customer_name = COALESCE($3, customer_name),
		customer_email = COALESCE($4, customer_email),
		customer_phone = COALESCE($5, customer_phone),
		delivery_address = COALESCE($6::jsonb, delivery_address),
		notes = COALESCE($7, notes),
		updated_at = now()
		WHERE id = $1 AND supplier_id = $2
		RETURNING ` + orderColumns

	// Only the statement that removes the row gets it back, so concurrent
	// deletes cannot both reverse the reservation.
	deleteOrderSQL = `DELETE FROM orders WHERE id = $1 AND supplier_id = $2
		RETURNING id, status, items`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create reserves stock and inserts the order in a single transaction.
// Reservations are applied in product id order so concurrent placements
// lock rows consistently.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) ([]product.StockLevel, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	if err := tx.QueryRow(ctx, nextOrderNumberSQL).Scan(&seq); err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}
	o.Number = order.FormatNumber(seq)

	res := o.Reservations()
	levels := make([]product.StockLevel, 0, len(res))
	for _, rv := range res {
		var lvl product.StockLevel
		err := tx.QueryRow(ctx, reserveStockSQL, rv.ProductID, o.SupplierID, rv.Quantity).
			Scan(&lvl.ProductID, &lvl.Name, &lvl.Stock, &lvl.LowStockThreshold)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.shortage(ctx, tx, o.SupplierID, rv)
		}
		if err != nil {
			return nil, fmt.Errorf("reserving %q: %w", rv.ProductID, err)
		}
		levels = append(levels, lvl)
	}

	args, err := orderArgs(o)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, insertOrderSQL, args...); err != nil {
		return nil, fmt.Errorf("inserting order %q: %w", o.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order %q: %w", o.ID, err)
	}
	return levels, nil
}

// shortage explains why a reservation matched no row.
func (r *OrderRepository) shortage(ctx context.Context, tx pgx.Tx, supplierID string, rv order.Reservation) error {
	var (
		name  string
		stock int
	)
	err := tx.QueryRow(ctx, currentStockSQL, rv.ProductID, supplierID).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return &order.ProductNotFoundError{ProductID: rv.ProductID}
	}
	if err != nil {
		return fmt.Errorf("reading stock of %q: %w", rv.ProductID, err)
	}
	return &order.InsufficientStockError{
		ProductID: rv.ProductID,
		Name:      name,
		Available: stock,
		Requested: rv.Quantity,
	}
}

// Get returns a single order of the supplier.
func (r *OrderRepository) Get(ctx context.Context, supplierID, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id, supplierID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return collectOrder(rows, id)
}

// List returns one page of orders, newest first, and the total match count.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, int, error) {
	var w where
	w.add("supplier_id = " + w.arg(f.SupplierID))
	if f.Status != "" {
		w.add("status = " + w.arg(string(f.Status)))
	}
	if f.Search != "" {
		p := w.arg(likePattern(f.Search))
		w.add(fmt.Sprintf("(order_number ILIKE %[1]s OR customer_name ILIKE %[1]s OR customer_email ILIKE %[1]s)", p))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM orders"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	q := "SELECT " + orderColumns + " FROM orders" + w.String() +
		" ORDER BY created_at DESC LIMIT " + w.arg(f.Limit) + " OFFSET " + w.arg(f.Offset())
	rows, err := r.pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return orders, total, nil
}

// StatusCounts returns the number of orders per status for the supplier.
func (r *OrderRepository) StatusCounts(ctx context.Context, supplierID string) (map[order.Status]int, error) {
	rows, err := r.pool.Query(ctx, statusCountsSQL, supplierID)
	if err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	counts := make(map[order.Status]int)
	var (
		status string
		n      int
	)
	_, err = pgx.ForEachRow(rows, []any{&status, &n}, func() error {
		counts[order.Status(status)] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	return counts, nil
}

// Recent returns the supplier's newest orders.
func (r *OrderRepository) Recent(ctx context.Context, supplierID string, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, recentOrdersSQL, supplierID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// AppendStatus sets the status and appends to the history atomically.
func (r *OrderRepository) AppendStatus(ctx context.Context, supplierID, id string, entry order.HistoryEntry) (*order.Order, error) {
	h, err := json.Marshal([]order.HistoryEntry{entry})
	if err != nil {
		return nil, fmt.Errorf("encoding history entry: %w", err)
	}
	rows, err := r.pool.Query(ctx, appendStatusSQL, id, supplierID, string(entry.Status), h)
	if err != nil {
		return nil, fmt.Errorf("updating status of %q: %w", id, err)
	}
	return collectOrder(rows, id)
}

// UpdateDetails edits contact, address and notes. Nil fields keep their value.
func (r *OrderRepository) UpdateDetails(ctx context.Context, supplierID, id string, p order.DetailsPatch) (*order.Order, error) {
	var addr []byte
	if p.DeliveryAddress != nil {
		b, err := json.Marshal(p.DeliveryAddress)
		if err != nil {
			return nil, fmt.Errorf("encoding address: %w", err)
		}
		addr = b
	}
	rows, err := r.pool.Query(ctx, updateDetailsSQL, id, supplierID,
		p.CustomerName, p.CustomerEmail, p.CustomerPhone, addr, p.Notes)
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}
	return collectOrder(rows, id)
}

// Delete removes an order permanently and returns its id, status and items.
func (r *OrderRepository) Delete(ctx context.Context, supplierID, id string) (*order.Order, error) {
	var (
		o      = order.Order{SupplierID: supplierID}
		status string
		items  []byte
	)
	err := r.pool.QueryRow(ctx, deleteOrderSQL, id, supplierID).Scan(&o.ID, &status, &items)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("deleting order %q: %w", id, err)
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decoding items of %q: %w", id, err)
	}
	return &o, nil
}

func collectOrder(rows pgx.Rows, id string) (*order.Order, error) {
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("reading order %q: %w", id, err)
	}
	return &o, nil
}

func orderArgs(o *order.Order) ([]any, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("encoding order items: %w", err)
	}
	addr, err := json.Marshal(o.DeliveryAddress)
	if err != nil {
		return nil, fmt.Errorf("encoding address: %w", err)
	}
	history, err := json.Marshal(o.History)
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}
	var payment []byte
	if o.PaymentMethod != nil {
		if payment, err = json.Marshal(o.PaymentMethod); err != nil {
			return nil, fmt.Errorf("encoding payment method: %w", err)
		}
	}
	return []any{
		o.ID, o.Number, o.SupplierID, items, o.TotalAmount, string(o.Status),
		o.Customer.Name, o.Customer.Email, o.Customer.Phone, string(o.Customer.Type), addr,
		string(o.DeliveryMethod), o.DeliveryTime, payment, o.Notes, history, o.CreatedAt, o.UpdatedAt,
	}, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                             order.Order
		status, custType, method      string
		items, addr, payment, history []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.SupplierID, &items, &o.TotalAmount, &status,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.Phone, &custType, &addr,
		&method, &o.DeliveryTime, &payment, &o.Notes, &history, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	o.Customer.Type = order.CustomerType(custType)
	o.DeliveryMethod = order.DeliveryMethod(method)

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("decoding items of %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(addr, &o.DeliveryAddress); err != nil {
		return o, fmt.Errorf("decoding address of %q: %w", o.ID, err)
	}
	if err := json.Unmarshal(history, &o.History); err != nil {
		return o, fmt.Errorf("decoding history of %q: %w", o.ID, err)
	}
	if len(payment) > 0 {
		o.PaymentMethod = new(order.PaymentMethod)
		if err := json.Unmarshal(payment, o.PaymentMethod); err != nil {
			return o, fmt.Errorf("decoding payment method of %q: %w", o.ID, err)
		}
	}
	return o, nil
}
