package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/product"
)

var errProductNotFound = &apperr.NotFoundError{Entity: "product", Message: "Product not found"}

type deliveryOptions struct {
	AvailableForDelivery bool `json:"availableForDelivery"`
	AvailableForPickup   bool `json:"availableForPickup"`
}

type productRequest struct {
	Name              *string                 `json:"name"`
	Category          *product.Category       `json:"category"`
	Description       *string                 `json:"description"`
	Price             *decimal.Decimal        `json:"price"`
	Stock             *int                    `json:"stock"`
	LowStockThreshold *int                    `json:"lowStockThreshold"`
	Discount          *decimal.Decimal        `json:"discount"`
	Unit              *string                 `json:"unit"`
	Image             *string                 `json:"image"`
	Images            []string                `json:"images"`
	Specifications    []product.Specification `json:"specifications"`
	DeliveryOptions   *deliveryOptions        `json:"deliveryOptions"`
	IsActive          *bool                   `json:"isActive"`
}

func (req productRequest) input() product.Input {
	in := product.Input{
		Name:              req.Name,
		Category:          req.Category,
		Description:       req.Description,
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		Discount:          req.Discount,
		Unit:              req.Unit,
		Image:             req.Image,
		Images:            req.Images,
		Specifications:    req.Specifications,
		IsActive:          req.IsActive,
	}
	if d := req.DeliveryOptions; d != nil {
		in.Delivery = &product.DeliveryOptions{
			AvailableForDelivery: d.AvailableForDelivery,
			AvailableForPickup:   d.AvailableForPickup,
		}
	}
	return in
}

type productResponse struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Category          product.Category        `json:"category"`
	Description       string                  `json:"description"`
	Price             float64                 `json:"price"`
	Stock             int                     `json:"stock"`
	LowStockThreshold int                     `json:"lowStockThreshold"`
	SoldQuantity      int                     `json:"soldQuantity"`
	StockStatus       product.StockStatus     `json:"stockStatus"`
	Discount          float64                 `json:"discount"`
	Unit              string                  `json:"unit"`
	Image             string                  `json:"image"`
	Images            []string                `json:"images"`
	Specifications    []product.Specification `json:"specifications"`
	DeliveryOptions   deliveryOptions         `json:"deliveryOptions"`
	IsActive          bool                    `json:"isActive"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

type productEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Product productResponse `json:"product"`
}

type productListResponse struct {
	Success  bool              `json:"success"`
	Count    int               `json:"count"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
	Products []productResponse `json:"products"`
}

type categoriesResponse struct {
	Success    bool     `json:"success"`
	Categories []string `json:"categories"`
}

// domainToProduct converts a domain product to its response form, resolving
// image paths against the configured base URL.
func (h *Handler) domainToProduct(p *product.Product) productResponse {
	specs := p.Specifications
	if specs == nil {
		specs = []product.Specification{}
	}
	return productResponse{
		ID:                p.ID,
		Name:              p.Name,
		Category:          p.Category,
		Description:       p.Description,
		Price:             p.Price.InexactFloat64(),
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		SoldQuantity:      p.SoldQuantity,
		StockStatus:       p.StockStatus(),
		Discount:          p.Discount.InexactFloat64(),
		Unit:              p.Unit,
		Image:             h.imageURL(p.Image),
		Images:            h.imageURLs(p.Images),
		Specifications:    specs,
		DeliveryOptions: deliveryOptions{
			AvailableForDelivery: p.Delivery.AvailableForDelivery,
			AvailableForPickup:   p.Delivery.AvailableForPickup,
		},
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// productFilter reads the listing query: category, search, minPrice,
// maxPrice, stockStatus (comma separated), sortBy, page and limit.
func productFilter(r *http.Request) (product.Filter, error) {
	q := r.URL.Query()
	f := product.Filter{
		SupplierID: supplierID(r),
		Category:   product.Category(q.Get("category")),
		Search:     q.Get("search"),
		Sort:       product.SortOrder(q.Get("sortBy")),
	}
	for _, bound := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
	} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, apperr.Validationf("Invalid %s: %s", bound.name, raw)
		}
		*bound.dst = &d
	}
	if raw := q.Get("stockStatus"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.StockStatuses = append(f.StockStatuses, product.StockStatus(s))
			}
		}
	}
	var err error
	if f.Page, err = queryInt(r, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	return f, nil
}

// ListProducts returns a filtered page of the supplier's active products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f, err := productFilter(r)
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	page, err := h.products.List(r.Context(), f)
	if err != nil {
		handleError(w, r, err, "Failed to fetch products. Please try again.")
		return
	}
	out := make([]productResponse, len(page.Products))
	for i := range page.Products {
		out[i] = h.domainToProduct(&page.Products[i])
	}
	writeJSON(w, r, http.StatusOK, productListResponse{
		Success:  true,
		Count:    len(out),
		Total:    page.Total,
		Page:     page.Page,
		Pages:    pages(page.Total, page.Limit),
		Products: out,
	})
}

// ListCategories returns the catalog categories headed by "All".
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	out := make([]string, 0, len(product.Categories)+1)
	out = append(out, "All")
	for _, c := range product.Categories {
		out = append(out, string(c))
	}
	writeJSON(w, r, http.StatusOK, categoriesResponse{Success: true, Categories: out})
}

// GetProduct returns one product of the supplier.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errProductNotFound, "")
		return
	}
	p, err := h.products.Get(r.Context(), supplierID(r), id)
	if err != nil {
		handleError(w, r, err, "Failed to fetch product. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, productEnvelope{Success: true, Product: h.domainToProduct(p)})
}

// CreateProduct adds a product to the supplier's catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	p, err := h.products.Create(r.Context(), supplierID(r), req.input())
	if err != nil {
		handleError(w, r, err, "Failed to create product. Please check your information and try again.")
		return
	}
	writeJSON(w, r, http.StatusCreated, productEnvelope{
		Success: true,
		Message: "Product created successfully",
		Product: h.domainToProduct(p),
	})
}

// UpdateProduct changes the fields present in the request body.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errProductNotFound, "")
		return
	}
	p, err := h.products.Update(r.Context(), supplierID(r), id, req.input())
	if err != nil {
		handleError(w, r, err, "Failed to update product. Please check your information and try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, productEnvelope{
		Success: true,
		Message: "Product updated successfully",
		Product: h.domainToProduct(p),
	})
}

// DeleteProduct removes a product from the catalog.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errProductNotFound, "")
		return
	}
	if err := h.products.Delete(r.Context(), supplierID(r), id); err != nil {
		handleError(w, r, err, "Failed to delete product. Please try again.")
		return
	}
	writeMessage(w, r, http.StatusOK, "Product deleted successfully")
}
