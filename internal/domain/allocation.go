package domain

import "github.com/shopspring/decimal"

type AllocationStatus string

const (
	AllocationAllocated AllocationStatus = "Allocated"
	AllocationCompleted AllocationStatus = "Completed"
	AllocationCancelled AllocationStatus = "Cancelled"
)

// HoldsCapacity reports whether the allocation still consumes space on its trip.
func (s AllocationStatus) HoldsCapacity() bool {
	return s == AllocationAllocated
}

// Allocation binds one order to one train trip instance (a train_schedule row).
// At most one non-cancelled allocation may exist per order.
type Allocation struct {
	Trip           TripKey
	OrderID        int64
	AllocatedSpace decimal.Decimal
	Status         AllocationStatus
}
