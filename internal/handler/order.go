package handler

import (
	"net/http"
	"time"

	"github.com/xenking/instasupply/internal/domain/apperr"
	"github.com/xenking/instasupply/internal/domain/order"
)

var errOrderNotFound = &apperr.NotFoundError{Entity: "order", Message: "Order not found"}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Items           []orderItemRequest   `json:"items"`
	CustomerName    string               `json:"customerName"`
	CustomerEmail   string               `json:"customerEmail"`
	CustomerPhone   string               `json:"customerPhone"`
	CustomerType    order.CustomerType   `json:"customerType"`
	DeliveryAddress order.Address        `json:"deliveryAddress"`
	DeliveryMethod  order.DeliveryMethod `json:"deliveryMethod"`
	DeliveryTime    string               `json:"deliveryTime"`
	PaymentMethod   *order.PaymentMethod `json:"paymentMethod"`
	Notes           string               `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type updateOrderRequest struct {
	CustomerName    *string        `json:"customerName"`
	CustomerEmail   *string        `json:"customerEmail"`
	CustomerPhone   *string        `json:"customerPhone"`
	DeliveryAddress *order.Address `json:"deliveryAddress"`
	Notes           *string        `json:"notes"`
}

type orderItemResponse struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Image     string  `json:"image,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Subtotal  float64 `json:"subtotal"`
}

type orderResponse struct {
	ID              string               `json:"id"`
	OrderNumber     string               `json:"orderNumber"`
	Items           []orderItemResponse  `json:"items"`
	TotalAmount     float64              `json:"totalAmount"`
	Status          order.Status         `json:"status"`
	CustomerName    string               `json:"customerName"`
	CustomerEmail   string               `json:"customerEmail"`
	CustomerPhone   string               `json:"customerPhone"`
	CustomerType    order.CustomerType   `json:"customerType"`
	DeliveryAddress order.Address        `json:"deliveryAddress"`
	DeliveryMethod  order.DeliveryMethod `json:"deliveryMethod"`
	DeliveryTime    string               `json:"deliveryTime"`
	PaymentMethod   *order.PaymentMethod `json:"paymentMethod"`
	Notes           string               `json:"notes"`
	OrderHistory    []order.HistoryEntry `json:"orderHistory"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type orderEnvelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Order   orderResponse `json:"order"`
}

type orderListResponse struct {
	Success      bool            `json:"success"`
	Count        int             `json:"count"`
	Total        int             `json:"total"`
	Page         int             `json:"page"`
	Pages        int             `json:"pages"`
	StatusCounts map[string]int  `json:"statusCounts"`
	Orders       []orderResponse `json:"orders"`
}

type recentOrdersResponse struct {
	Success bool            `json:"success"`
	Count   int             `json:"count"`
	Orders  []orderResponse `json:"orders"`
}

func (h *Handler) orderToResponse(o *order.Order, history []order.HistoryEntry) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     h.imageURL(item.Image),
			Quantity:  item.Quantity,
			Price:     item.Price.InexactFloat64(),
			Subtotal:  item.Subtotal.InexactFloat64(),
		}
	}
	if history == nil {
		history = o.History
	}
	if history == nil {
		history = []order.HistoryEntry{}
	}
	return orderResponse{
		ID:              o.ID,
		OrderNumber:     o.Number,
		Items:           items,
		TotalAmount:     o.TotalAmount.InexactFloat64(),
		Status:          o.Status,
		CustomerName:    o.Customer.Name,
		CustomerEmail:   o.Customer.Email,
		CustomerPhone:   o.Customer.Phone,
		CustomerType:    o.Customer.Type,
		DeliveryAddress: o.DeliveryAddress,
		DeliveryMethod:  o.DeliveryMethod,
		DeliveryTime:    o.DeliveryTime,
		PaymentMethod:   o.PaymentMethod,
		Notes:           o.Notes,
		OrderHistory:    history,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (h *Handler) ordersToResponse(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = h.orderToResponse(&orders[i], nil)
	}
	return out
}

// ListOrders returns a page of the supplier's orders with per-status counts.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	q := r.URL.Query()
	res, err := h.orders.List(r.Context(), order.Filter{
		SupplierID: supplierID(r),
		Status:     order.Status(q.Get("status")),
		Search:     q.Get("search"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		handleError(w, r, err, "Failed to fetch orders. Please try again.")
		return
	}

	counts := make(map[string]int, len(res.StatusCounts))
	for st, n := range res.StatusCounts {
		counts[string(st)] = n
	}
	writeJSON(w, r, http.StatusOK, orderListResponse{
		Success:      true,
		Count:        len(res.Orders),
		Total:        res.Total,
		Page:         res.Page,
		Pages:        pages(res.Total, res.Limit),
		StatusCounts: counts,
		Orders:       h.ordersToResponse(res.Orders),
	})
}

// RecentOrders returns the supplier's newest orders.
func (h *Handler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	orders, err := h.orders.Recent(r.Context(), supplierID(r), limit)
	if err != nil {
		handleError(w, r, err, "Failed to fetch recent orders. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, recentOrdersResponse{
		Success: true,
		Count:   len(orders),
		Orders:  h.ordersToResponse(orders),
	})
}

// GetOrder returns one order with its history newest first.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errOrderNotFound, "")
		return
	}
	o, err := h.orders.Get(r.Context(), supplierID(r), id)
	if err != nil {
		handleError(w, r, err, "Failed to fetch order. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, orderEnvelope{
		Success: true,
		Order:   h.orderToResponse(o, o.HistoryNewestFirst()),
	})
}

// PlaceOrder reserves stock for the requested items and records the order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.metrics.orderRejected(r.Context(), err)
		handleError(w, r, err, "")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	res, err := h.orders.PlaceOrder(r.Context(), actor(r), order.PlaceOrderRequest{
		Items: items,
		Customer: order.Customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
			Type:  req.CustomerType,
		},
		DeliveryAddress: req.DeliveryAddress,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryTime:    req.DeliveryTime,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		h.metrics.orderRejected(r.Context(), err)
		handleError(w, r, err, "Failed to create order. Please try again.")
		return
	}
	h.metrics.orderPlaced(r.Context(), res.Order)

	writeJSON(w, r, http.StatusCreated, orderEnvelope{
		Success: true,
		Message: "Order created successfully",
		Order:   h.orderToResponse(res.Order, nil),
	})
}

// UpdateOrderStatus moves an order to a new status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errOrderNotFound, "")
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), actor(r), id, req.Status, req.Note)
	if err != nil {
		handleError(w, r, err, "Failed to update order status. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, orderEnvelope{
		Success: true,
		Message: "Order status updated successfully",
		Order:   h.orderToResponse(o, nil),
	})
}

// UpdateOrder edits the customer contact, address and notes of an order.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errOrderNotFound, "")
		return
	}
	o, err := h.orders.UpdateDetails(r.Context(), supplierID(r), id, order.DetailsPatch{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		handleError(w, r, err, "Failed to update order. Please check your information and try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, orderEnvelope{
		Success: true,
		Message: "Order updated successfully",
		Order:   h.orderToResponse(o, nil),
	})
}

// DeleteOrder removes an order and gives its stock back when still reserved.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		handleError(w, r, errOrderNotFound, "")
		return
	}
	if err := h.orders.Delete(r.Context(), supplierID(r), id); err != nil {
		handleError(w, r, err, "Failed to delete order. Please try again.")
		return
	}
	writeMessage(w, r, http.StatusOK, "Order deleted successfully")
}
