package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/instasupply/internal/domain/product"
)

const productColumns = `id, supplier_id, name, category, description, price, stock,
	low_stock_threshold, sold_quantity, discount, unit, image, images, specifications,
	available_for_delivery, available_for_pickup, is_active, created_at, updated_at`

const (
	getProductSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND supplier_id = $2`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE supplier_id = $1 AND is_active AND id = ANY($2)`

	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	updateProductSQL = `UPDATE products SET name = $3, category = $4, description = $5, price = $6,
		stock = $7, low_stock_threshold = $8, discount = $9, unit = $10, image = $11, images = $12,
		specifications = $13, available_for_delivery = $14, available_for_pickup = $15,
		is_active = $16, updated_at = $17
		WHERE id = $1 AND supplier_id = $2`

	deleteProductSQL = `DELETE FROM products WHERE id = $1 AND supplier_id = $2`

	adjustStockSQL = `UPDATE products
		SET stock = stock + $3, sold_quantity = sold_quantity + $4, updated_at = now()
		WHERE id = $1 AND supplier_id = $2
		RETURNING id, name, stock, low_stock_threshold`
)

var productSorts = map[product.SortOrder]string{
	product.SortNewest:       "created_at DESC",
	product.SortPriceLowHigh: "price ASC, created_at DESC",
	product.SortPriceHighLow: "price DESC, created_at DESC",
	product.SortBestSelling:  "sold_quantity DESC, created_at DESC",
}

var stockPredicates = map[product.StockStatus]string{
	product.StockIn:  "stock > low_stock_threshold AND stock > 0",
	product.StockLow: "stock > 0 AND stock <= low_stock_threshold",
	product.StockOut: "stock = 0",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns one page of active products matching f and the total number
// of matches.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, int, error) {
	var w where
	w.add("supplier_id = " + w.arg(f.SupplierID))
	w.add("is_active")
	if f.Category != "" {
		w.add("category = " + w.arg(string(f.Category)))
	}
	if f.MinPrice != nil {
		w.add("price >= " + w.arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		w.add("price <= " + w.arg(*f.MaxPrice))
	}
	if len(f.StockStatuses) > 0 {
		var or []string
		for _, st := range f.StockStatuses {
			or = append(or, "("+stockPredicates[st]+")")
		}
		w.add("(" + strings.Join(or, " OR ") + ")")
	}
	if f.Search != "" {
		p := w.arg(likePattern(f.Search))
		w.add(fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM products"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	order, ok := productSorts[f.Sort]
	if !ok {
		order = productSorts[product.SortNewest]
	}
	q := "SELECT " + productColumns + " FROM products" + w.String() +
		" ORDER BY " + order +
		" LIMIT " + w.arg(f.Limit) + " OFFSET " + w.arg(f.Offset())
	rows, err := r.pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	return products, total, nil
}

// GetByID returns a single product of the supplier.
func (r *ProductRepository) GetByID(ctx context.Context, supplierID, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id, supplierID)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns the supplier's active products matching any of the ids.
func (r *ProductRepository) GetByIDs(ctx context.Context, supplierID string, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, supplierID, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	specs, err := marshalSpecs(p.Specifications)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.SupplierID, p.Name, string(p.Category), p.Description, p.Price, p.Stock,
		p.LowStockThreshold, p.SoldQuantity, p.Discount, p.Unit, p.Image, nonNil(p.Images), specs,
		p.Delivery.AvailableForDelivery, p.Delivery.AvailableForPickup, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites the writable fields of a product. Sold quantity is only
// changed through AdjustStock.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	specs, err := marshalSpecs(p.Specifications)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.SupplierID, p.Name, string(p.Category), p.Description, p.Price, p.Stock,
		p.LowStockThreshold, p.Discount, p.Unit, p.Image, nonNil(p.Images), specs,
		p.Delivery.AvailableForDelivery, p.Delivery.AvailableForPickup, p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product permanently.
func (r *ProductRepository) Delete(ctx context.Context, supplierID, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id, supplierID)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// AdjustStock applies stock and sold deltas in one statement.
func (r *ProductRepository) AdjustStock(ctx context.Context, supplierID, id string, stockDelta, soldDelta int) (*product.StockLevel, error) {
	var lvl product.StockLevel
	err := r.pool.QueryRow(ctx, adjustStockSQL, id, supplierID, stockDelta, soldDelta).
		Scan(&lvl.ProductID, &lvl.Name, &lvl.Stock, &lvl.LowStockThreshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("adjusting stock of %q: %w", id, err)
	}
	return &lvl, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		cat   string
		specs []byte
	)
	err := row.Scan(
		&p.ID, &p.SupplierID, &p.Name, &cat, &p.Description, &p.Price, &p.Stock,
		&p.LowStockThreshold, &p.SoldQuantity, &p.Discount, &p.Unit, &p.Image, &p.Images, &specs,
		&p.Delivery.AvailableForDelivery, &p.Delivery.AvailableForPickup, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	p.Category = product.Category(cat)
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.Specifications); err != nil {
			return p, fmt.Errorf("decoding specifications of %q: %w", p.ID, err)
		}
	}
	return p, nil
}

func marshalSpecs(specs []product.Specification) ([]byte, error) {
	if specs == nil {
		specs = []product.Specification{}
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("encoding specifications: %w", err)
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
