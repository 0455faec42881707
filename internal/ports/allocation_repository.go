package ports

import (
	"context"
	"train-allocation-service/internal/domain"
)

type AllocationRepository interface {
	// ActiveAllocation returns the order's non-cancelled allocation (Allocated or
	// Completed), or domain.ErrAllocationNotFound when the order holds none.
	ActiveAllocation(ctx context.Context, orderID int64) (domain.Allocation, error)
	// CreateAllocation returns domain.ErrAlreadyAllocated if the order already
	// holds a non-cancelled allocation.
	CreateAllocation(ctx context.Context, a domain.Allocation) error
	// TransitionAllocation moves an entry from one status to another. It returns
	// domain.ErrAllocationNotFound when no entry is currently in status from, so
	// two concurrent transitions of the same entry cannot both succeed.
	TransitionAllocation(ctx context.Context, key domain.TripKey, orderID int64, from, to domain.AllocationStatus) error
	// AllocationsForTrip lists every schedule entry of a trip instance.
	AllocationsForTrip(ctx context.Context, key domain.TripKey) ([]domain.Allocation, error)
}
