package ports

import (
	"context"
	"time"
	"train-allocation-service/internal/domain"
)

// TripQuery selects trip instances by route and departure window (inclusive).
type TripQuery struct {
	Origin      string
	Destination string
	NotBefore   time.Time
	NotAfter    time.Time
}

type TripRepository interface {
	// FindTrips returns matching trips in no particular order.
	FindTrips(ctx context.Context, q TripQuery) ([]domain.TrainTrip, error)
}
