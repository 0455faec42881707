package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across ports and services.
// The HTTP layer maps these to status codes.
var (
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrReleaseExceedsTotal  = errors.New("release would exceed total capacity")
	ErrInvalidAmount        = errors.New("amount must be positive")

	ErrTripNotFound       = errors.New("train trip not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrAllocationNotFound = errors.New("no active allocation for order")
	ErrAlreadyAllocated   = errors.New("order already has an active allocation")
	ErrAllocationClosed   = errors.New("allocation is no longer releasable")

	ErrUnknownProduct = errors.New("unknown product")
	ErrInvalidOrder   = errors.New("invalid order")
)

// OrderError explains why an order cannot be sized or allocated. Reason is
// short enough to show to the order's owner; Err is ErrInvalidOrder or
// ErrUnknownProduct.
type OrderError struct {
	OrderID int64
	Reason  string
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %d: %s: %v", e.OrderID, e.Reason, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

func InvalidOrder(orderID int64, format string, args ...any) *OrderError {
	return &OrderError{OrderID: orderID, Reason: fmt.Sprintf(format, args...), Err: ErrInvalidOrder}
}
