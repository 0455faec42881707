package ports

import (
	"context"
	"train-allocation-service/internal/domain"
)

type ProductCatalog interface {
	// Products returns the sizing attributes for the ids that exist.
	// Missing ids are simply absent from the result.
	Products(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}
