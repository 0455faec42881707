package ports

import (
	"context"
	"train-allocation-service/internal/domain"
)

// OrderRepository is the allocation engine's view of the order-management collaborator.
type OrderRepository interface {
	// GetOrder returns domain.ErrOrderNotFound for unknown ids.
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
}
