package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/metrics"
	"train-allocation-service/internal/platform/obs"
	"train-allocation-service/internal/ports"
)

// Reason explains why an order could not be allocated.
type Reason string

const (
	ReasonNoCapacity       Reason = "NoCapacity"
	ReasonAlreadyAllocated Reason = "AlreadyAllocated"
	ReasonBadOrder         Reason = "BadOrder"
)

// Outcome is the business result of one allocation attempt.
// Unallocatable outcomes are not errors; infrastructure failures are returned
// separately as error.
type Outcome struct {
	Allocated  bool
	Allocation domain.Allocation
	Reason     Reason
	// Detail carries the data error behind ReasonBadOrder.
	Detail error
}

func allocated(a domain.Allocation) Outcome {
	return Outcome{Allocated: true, Allocation: a}
}

func unallocatable(reason Reason, detail error) Outcome {
	return Outcome{Reason: reason, Detail: detail}
}

// Allocator is the allocation transaction: it reserves train capacity for an
// order, records the schedule entry and marks the order Scheduled atomically.
type Allocator struct {
	Orders      ports.OrderRepository
	Allocations ports.AllocationRepository
	Ledger      ports.CapacityLedger
	Tx          ports.TxManager
	Sizer       *Sizer
	Selector    *TripSelector
	Window      WindowPolicy
	// Now defaults to time.Now.
	Now func() time.Time
}

func (a *Allocator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Allocate assigns the order to the best candidate trip with room for it,
// falling back to the next candidate whenever a reservation loses on capacity.
//
// Returned errors are data errors (domain.ErrOrderNotFound) or infrastructure
// failures; in both cases no capacity or allocation state has been persisted.
func (a *Allocator) Allocate(ctx context.Context, orderID int64) (_ Outcome, err error) {
	defer obs.Time(ctx, "allocator.Allocate")(&err)

	out, err := a.allocate(ctx, orderID)
	metrics.AllocationOutcomesTotal.WithLabelValues(outcomeLabel(out, err)).Inc()
	return out, err
}

func outcomeLabel(out Outcome, err error) string {
	switch {
	case err != nil:
		return "error"
	case out.Allocated:
		return "allocated"
	case out.Reason == ReasonAlreadyAllocated:
		return "already_allocated"
	case out.Reason == ReasonBadOrder:
		return "bad_order"
	}
	return "no_capacity"
}

func (a *Allocator) allocate(ctx context.Context, orderID int64) (Outcome, error) {
	order, err := a.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return Outcome{}, fmt.Errorf("allocate order %d: %w", orderID, err)
	}

	footprint, err := a.Sizer.Footprint(ctx, order)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownProduct) || errors.Is(err, domain.ErrInvalidOrder) {
			return unallocatable(ReasonBadOrder, err), nil
		}
		return Outcome{}, fmt.Errorf("allocate order %d: %w", orderID, err)
	}
	if !footprint.Space.IsPositive() {
		return unallocatable(ReasonBadOrder, domain.InvalidOrder(orderID, "order takes no train space")), nil
	}

	existing, err := a.Allocations.ActiveAllocation(ctx, orderID)
	switch {
	case err == nil:
		return Outcome{Reason: ReasonAlreadyAllocated, Allocation: existing}, nil
	case !errors.Is(err, domain.ErrAllocationNotFound):
		return Outcome{}, fmt.Errorf("allocate order %d: check existing allocation: %w", orderID, err)
	}

	if order.Status != domain.OrderPending {
		return unallocatable(ReasonBadOrder, domain.InvalidOrder(orderID, "order is %s, not %s", order.Status, domain.OrderPending)), nil
	}

	notBefore, notAfter := a.Window.Window(order.ScheduleDate, a.now())
	candidates, err := a.Selector.Candidates(ctx, order.Origin, order.Destination, notBefore, notAfter)
	if err != nil {
		return Outcome{}, fmt.Errorf("allocate order %d: %w", orderID, err)
	}

	for trip := range candidates.All() {
		// Nothing is committed between attempts, so stopping here leaves no reservation behind.
		if err := ctx.Err(); err != nil {
			return Outcome{}, fmt.Errorf("allocate order %d: %w", orderID, err)
		}

		alloc, err := a.attempt(ctx, order.OrderID, trip.Key, footprint)
		switch {
		case err == nil:
			log.Printf("req_id=%s op=allocate order_id=%d trip=%s space=%s", obs.RequestID(ctx), orderID, trip.Key, footprint.Space)
			return allocated(alloc), nil
		case errors.Is(err, domain.ErrInsufficientCapacity), errors.Is(err, domain.ErrTripNotFound):
			reason := "insufficient_capacity"
			if errors.Is(err, domain.ErrTripNotFound) {
				reason = "trip_not_found"
			}
			metrics.CandidateSkipsTotal.WithLabelValues(reason).Inc()
			log.Printf("req_id=%s op=allocate order_id=%d trip=%s skipped=%v", obs.RequestID(ctx), orderID, trip.Key, err)
			continue
		case errors.Is(err, domain.ErrAlreadyAllocated):
			// A concurrent request for the same order won the race.
			current, lookupErr := a.Allocations.ActiveAllocation(ctx, orderID)
			if lookupErr != nil {
				current = domain.Allocation{OrderID: orderID}
			}
			return Outcome{Reason: ReasonAlreadyAllocated, Allocation: current}, nil
		default:
			return Outcome{}, fmt.Errorf("allocate order %d: trip %s: %w", orderID, trip.Key, err)
		}
	}

	log.Printf("req_id=%s op=allocate order_id=%d candidates=%d result=no_capacity", obs.RequestID(ctx), orderID, candidates.Len())
	return unallocatable(ReasonNoCapacity, nil), nil
}

// attempt reserves space on one trip and records the allocation in a single
// transaction. Any failure rolls the reservation back.
func (a *Allocator) attempt(
	ctx context.Context,
	orderID int64,
	key domain.TripKey,
	footprint domain.Footprint,
) (domain.Allocation, error) {
	alloc := domain.Allocation{
		Trip:           key,
		OrderID:        orderID,
		AllocatedSpace: footprint.Space,
		Status:         domain.AllocationAllocated,
	}

	err := a.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := a.Ledger.Reserve(ctx, key, footprint.Space); err != nil {
			return err
		}
		if err := a.Allocations.CreateAllocation(ctx, alloc); err != nil {
			return fmt.Errorf("record allocation: %w", err)
		}
		if err := a.Orders.UpdateOrderStatus(ctx, orderID, domain.OrderScheduled); err != nil {
			return fmt.Errorf("mark order scheduled: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Allocation{}, err
	}

	return alloc, nil
}

// Release cancels the order's allocation, returns its space to the trip and
// puts the order back to Pending so it can be allocated again.
func (a *Allocator) Release(ctx context.Context, orderID int64) (_ domain.Allocation, err error) {
	defer obs.Time(ctx, "allocator.Release")(&err)

	var released domain.Allocation
	err = a.Tx.RunInTx(ctx, func(ctx context.Context) error {
		alloc, err := a.Allocations.ActiveAllocation(ctx, orderID)
		if err != nil {
			return err
		}
		if !alloc.Status.HoldsCapacity() {
			return fmt.Errorf("order %d allocation is %s: %w", orderID, alloc.Status, domain.ErrAllocationClosed)
		}

		if err := a.Allocations.TransitionAllocation(ctx, alloc.Trip, orderID, domain.AllocationAllocated, domain.AllocationCancelled); err != nil {
			return fmt.Errorf("cancel allocation: %w", err)
		}
		if err := a.Ledger.Release(ctx, alloc.Trip, alloc.AllocatedSpace); err != nil {
			return fmt.Errorf("release capacity: %w", err)
		}
		if err := a.Orders.UpdateOrderStatus(ctx, orderID, domain.OrderPending); err != nil {
			return fmt.Errorf("mark order pending: %w", err)
		}

		released = alloc
		released.Status = domain.AllocationCancelled
		return nil
	})
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("release order %d: %w", orderID, err)
	}

	metrics.ReleasesTotal.Inc()
	log.Printf("req_id=%s op=release order_id=%d trip=%s space=%s", obs.RequestID(ctx), orderID, released.Trip, released.AllocatedSpace)
	return released, nil
}

// CompleteTrip marks every Allocated entry of a trip instance Completed and
// moves the orders In Transit. Capacity stays consumed.
func (a *Allocator) CompleteTrip(ctx context.Context, key domain.TripKey) (_ int, err error) {
	defer obs.Time(ctx, "allocator.CompleteTrip")(&err)

	completed := 0
	err = a.Tx.RunInTx(ctx, func(ctx context.Context) error {
		completed = 0
		entries, err := a.Allocations.AllocationsForTrip(ctx, key)
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.Status != domain.AllocationAllocated {
				continue
			}
			if err := a.Allocations.TransitionAllocation(ctx, key, e.OrderID, domain.AllocationAllocated, domain.AllocationCompleted); err != nil {
				return fmt.Errorf("complete order %d: %w", e.OrderID, err)
			}
			if err := a.Orders.UpdateOrderStatus(ctx, e.OrderID, domain.OrderInTransit); err != nil {
				return fmt.Errorf("mark order %d in transit: %w", e.OrderID, err)
			}
			completed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("complete trip %s: %w", key, err)
	}

	metrics.CompletedAllocationsTotal.Add(float64(completed))
	log.Printf("req_id=%s op=complete_trip trip=%s completed=%d", obs.RequestID(ctx), key, completed)
	return completed, nil
}
