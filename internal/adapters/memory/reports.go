package memory

import (
	"context"
	"train-allocation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// ListTrips implements ports.ReportRepository.
func (s *Store) ListTrips(ctx context.Context) ([]domain.TrainTrip, error) {
	return s.snapshotTrips(), nil
}

// TripsBelowCapacity implements ports.ReportRepository.
func (s *Store) TripsBelowCapacity(ctx context.Context, threshold decimal.Decimal) ([]domain.TrainTrip, error) {
	out := []domain.TrainTrip{}
	for _, t := range s.snapshotTrips() {
		if t.AvailableCapacity.LessThan(threshold) {
			out = append(out, t)
		}
	}
	return out, nil
}

// TripAllocations implements ports.ReportRepository.
func (s *Store) TripAllocations(ctx context.Context, key domain.TripKey) ([]domain.Allocation, error) {
	return s.AllocationsForTrip(ctx, key)
}

// AllocatedUtilization implements ports.ReportRepository.
func (s *Store) AllocatedUtilization(ctx context.Context) (decimal.Decimal, error) {
	s.allocMu.Lock()
	allocated := decimal.Zero
	carrying := map[slotKey]struct{}{}
	for _, a := range s.allocations {
		if a.Status != domain.AllocationAllocated {
			continue
		}
		allocated = allocated.Add(a.AllocatedSpace)
		carrying[keyOf(a.Trip)] = struct{}{}
	}
	s.allocMu.Unlock()

	total := decimal.Zero
	s.mu.RLock()
	for k := range carrying {
		if sl, ok := s.trips[k]; ok {
			total = total.Add(sl.trip.TotalCapacity)
		}
	}
	s.mu.RUnlock()

	if !total.IsPositive() {
		return decimal.Zero, nil
	}
	return allocated.DivRound(total, 4), nil
}
