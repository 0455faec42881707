package memory

import (
	"context"
	"fmt"
	"slices"
	"train-allocation-service/internal/domain"
)

// GetOrder implements ports.OrderRepository. The returned order is a copy.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("get order %d: %w", orderID, domain.ErrOrderNotFound)
	}
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return &cp, nil
}

// UpdateOrderStatus implements ports.OrderRepository.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("update order %d status: %w", orderID, domain.ErrOrderNotFound)
	}

	prev := o.Status
	o.Status = status

	journalFrom(ctx).record(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		o.Status = prev
	})
	return nil
}

// Products implements ports.ProductCatalog.
func (s *Store) Products(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
