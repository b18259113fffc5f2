package ledger

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrEmptyCart is returned when checking out a cart with no entries.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCustomerRequired is returned when checkout is missing the customer
	// name or delivery address.
	ErrCustomerRequired = errors.New("customer name and address are required")
	// ErrPersistenceConflict is returned by storage when a concurrent
	// transaction modified the same records during checkout. Nothing was
	// committed; the caller may retry.
	ErrPersistenceConflict = errors.New("concurrent modification, please retry")
)

// InsufficientStockError indicates that a product cannot cover the requested
// quantity.
type InsufficientStockError struct {
	ProductID int64
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: available %d, requested %d",
		e.Product, e.Available, e.Requested)
}

// ProductMissingError indicates a cart entry refers to a product that no
// longer exists.
type ProductMissingError struct {
	ProductID int64
}

func (e *ProductMissingError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// InvalidQuantityError indicates a non-positive quantity was requested.
type InvalidQuantityError struct {
	ProductID int64
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}
