package services

import (
	"context"
	"errors"
	"fmt"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/ports"

	"github.com/shopspring/decimal"
)

// Sizer computes the train footprint of an order from a catalog snapshot.
// It has no side effects and is safe for concurrent use.
type Sizer struct {
	Catalog ports.ProductCatalog
}

func NewSizer(catalog ports.ProductCatalog) *Sizer {
	return &Sizer{Catalog: catalog}
}

// Footprint sums quantity x space-per-unit and quantity x unit weight over all lines.
// Any product missing from the catalog fails the whole computation.
func (s *Sizer) Footprint(ctx context.Context, order *domain.Order) (domain.Footprint, error) {
	if order == nil {
		return domain.Footprint{}, errors.New("compute footprint: order must be non-nil")
	}
	if len(order.Items) == 0 {
		return domain.Footprint{}, fmt.Errorf("compute footprint: %w", domain.InvalidOrder(order.OrderID, "order has no items"))
	}

	for i, it := range order.Items {
		if it.Quantity <= 0 {
			return domain.Footprint{}, fmt.Errorf(
				"compute footprint: %w",
				domain.InvalidOrder(order.OrderID, "line %d has quantity %d", i+1, it.Quantity),
			)
		}
	}

	products, err := s.Catalog.Products(ctx, order.ProductIDs())
	if err != nil {
		return domain.Footprint{}, fmt.Errorf("compute footprint: load products: %w", err)
	}

	return footprintOf(order, products)
}

func footprintOf(order *domain.Order, products map[int64]domain.Product) (domain.Footprint, error) {
	space := decimal.Zero
	weight := decimal.Zero

	for _, it := range order.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return domain.Footprint{}, fmt.Errorf("compute footprint: %w", &domain.OrderError{
				OrderID: order.OrderID,
				Reason:  fmt.Sprintf("unknown product %d", it.ProductID),
				Err:     domain.ErrUnknownProduct,
			})
		}

		qty := decimal.NewFromInt(int64(it.Quantity))
		space = space.Add(qty.Mul(p.TrainSpacePerUnit))
		weight = weight.Add(qty.Mul(p.UnitWeight))
	}

	return domain.Footprint{Space: space, Weight: weight}, nil
}
