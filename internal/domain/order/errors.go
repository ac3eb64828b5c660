package order

import (
	"fmt"

	"github.com/xenking/instasupply/internal/domain/apperr"
)

// ErrEmptyItems is returned when an order has no line items.
var ErrEmptyItems = &apperr.ValidationError{Message: "Please provide at least one order item"}

// InvalidProductIDError indicates a malformed product id.
type InvalidProductIDError struct {
	ProductID string
}

func (e *InvalidProductIDError) Error() string {
	return fmt.Sprintf("Invalid product ID: %s. Please provide a valid product ID.", e.ProductID)
}

// InvalidQuantityError indicates a line item with a quantity below one.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("Invalid quantity for product %s. Quantity must be a number greater than 0.", e.ProductID)
}

// ProductNotFoundError indicates a product that does not exist, is inactive,
// or belongs to another supplier.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %s not found or does not belong to your account.", e.ProductID)
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d", e.Name, e.Available, e.Requested)
}

// TransitionError indicates a status change the strict transition table
// forbids.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Cannot change order status from %s to %s", e.From, e.To)
}
