package ports

import (
	"context"
	"train-allocation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// CapacityLedger is the single source of truth for per-trip space accounting.
//
// Reserve must be a single critical section per trip key: the check
// (available - amount >= 0) and the decrement happen together or not at all.
// When ctx carries a transaction opened by TxManager.RunInTx, both operations
// join it and are undone if that transaction rolls back.
type CapacityLedger interface {
	// Reserve returns domain.ErrInsufficientCapacity when the trip cannot hold amount.
	Reserve(ctx context.Context, key domain.TripKey, amount decimal.Decimal) error
	// Release returns domain.ErrReleaseExceedsTotal instead of overshooting total capacity.
	Release(ctx context.Context, key domain.TripKey, amount decimal.Decimal) error
}
