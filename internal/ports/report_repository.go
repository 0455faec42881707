package ports

import (
	"context"
	"time"
	"train-allocation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// ReportRepository serves read-only projections from one consistent snapshot per call.
type ReportRepository interface {
	ListTrips(ctx context.Context) ([]domain.TrainTrip, error)
	GetTrip(ctx context.Context, key domain.TripKey) (domain.TrainTrip, error)
	TripsBelowCapacity(ctx context.Context, threshold decimal.Decimal) ([]domain.TrainTrip, error)
	TripAllocations(ctx context.Context, key domain.TripKey) ([]domain.Allocation, error)
	// AllocatedUtilization is SUM(allocated space) / SUM(total capacity) over
	// trips that have Allocated entries. Zero when nothing is allocated.
	AllocatedUtilization(ctx context.Context) (decimal.Decimal, error)
}

// ReportCache stores short-lived report projections.
// A miss is reported as ok=false with a nil error.
type ReportCache interface {
	GetTrips(ctx context.Context, key string) ([]domain.TrainTrip, bool, error)
	PutTrips(ctx context.Context, key string, trips []domain.TrainTrip, ttl time.Duration) error
	GetDecimal(ctx context.Context, key string) (decimal.Decimal, bool, error)
	PutDecimal(ctx context.Context, key string, v decimal.Decimal, ttl time.Duration) error
}
