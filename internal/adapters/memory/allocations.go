package memory

import (
	"context"
	"fmt"
	"slices"
	"train-allocation-service/internal/domain"
)

func sameTrip(a, b domain.TripKey) bool {
	return a.TripID == b.TripID && a.DepartAt.Equal(b.DepartAt)
}

// ActiveAllocation implements ports.AllocationRepository.
func (s *Store) ActiveAllocation(ctx context.Context, orderID int64) (domain.Allocation, error) {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	for _, a := range s.allocations {
		if a.OrderID == orderID && a.Status != domain.AllocationCancelled {
			return a, nil
		}
	}
	return domain.Allocation{}, fmt.Errorf("order %d: %w", orderID, domain.ErrAllocationNotFound)
}

// CreateAllocation implements ports.AllocationRepository.
func (s *Store) CreateAllocation(ctx context.Context, a domain.Allocation) error {
	if _, ok := s.slot(a.Trip); !ok {
		return fmt.Errorf("create allocation: trip %s: %w", a.Trip, domain.ErrTripNotFound)
	}

	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	reuse := -1
	for i, existing := range s.allocations {
		if existing.OrderID != a.OrderID {
			continue
		}
		if existing.Status != domain.AllocationCancelled {
			return fmt.Errorf("create allocation: order %d on trip %s: %w", a.OrderID, existing.Trip, domain.ErrAlreadyAllocated)
		}
		if sameTrip(existing.Trip, a.Trip) {
			reuse = i
		}
	}

	a.Trip = domain.NewTripKey(a.Trip.TripID, a.Trip.DepartAt)

	// Re-allocating onto a trip the order was cancelled from revives the
	// existing schedule entry, matching the (trip, order) primary key in SQL.
	if reuse >= 0 {
		prev := s.allocations[reuse]
		s.allocations[reuse] = a
		journalFrom(ctx).record(func() {
			s.allocMu.Lock()
			defer s.allocMu.Unlock()
			for i := range s.allocations {
				if s.allocations[i].OrderID == a.OrderID && sameTrip(s.allocations[i].Trip, a.Trip) {
					s.allocations[i] = prev
					return
				}
			}
		})
		return nil
	}

	s.allocations = append(s.allocations, a)

	journalFrom(ctx).record(func() {
		s.allocMu.Lock()
		defer s.allocMu.Unlock()
		s.allocations = slices.DeleteFunc(s.allocations, func(x domain.Allocation) bool {
			return x.OrderID == a.OrderID && sameTrip(x.Trip, a.Trip) && x.Status == a.Status
		})
	})

	return nil
}

// TransitionAllocation implements ports.AllocationRepository.
func (s *Store) TransitionAllocation(
	ctx context.Context,
	key domain.TripKey,
	orderID int64,
	from, to domain.AllocationStatus,
) error {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	for i := range s.allocations {
		a := &s.allocations[i]
		if a.OrderID != orderID || !sameTrip(a.Trip, key) || a.Status != from {
			continue
		}

		a.Status = to
		journalFrom(ctx).record(func() {
			s.allocMu.Lock()
			defer s.allocMu.Unlock()
			for j := range s.allocations {
				b := &s.allocations[j]
				if b.OrderID == orderID && sameTrip(b.Trip, key) && b.Status == to {
					b.Status = from
					return
				}
			}
		})
		return nil
	}

	return fmt.Errorf("transition order %d on trip %s from %s: %w", orderID, key, from, domain.ErrAllocationNotFound)
}

// AllocationsForTrip implements ports.AllocationRepository.
func (s *Store) AllocationsForTrip(ctx context.Context, key domain.TripKey) ([]domain.Allocation, error) {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	out := []domain.Allocation{}
	for _, a := range s.allocations {
		if sameTrip(a.Trip, key) {
			out = append(out, a)
		}
	}
	return out, nil
}
