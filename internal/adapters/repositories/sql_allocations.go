package repositories

import (
	"context"
	"fmt"
	"train-allocation-service/internal/domain"

	"github.com/georgysavva/scany/sqlscan"
)

// ActiveAllocation implements ports.AllocationRepository.
func (s *SQLStore) ActiveAllocation(ctx context.Context, orderID int64) (domain.Allocation, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return domain.Allocation{}, err
	}

	query := `
	SELECT ` + allocationColumns + `
	FROM train_schedule
	WHERE order_id = $1 AND status <> 'Cancelled'` + s.lockClause(ctx) + `;
	`

	var row allocationRow
	if err := sqlscan.Get(ctx, db, &row, s.q(query), orderID); err != nil {
		if sqlscan.NotFound(err) {
			return domain.Allocation{}, fmt.Errorf("order %d: %w", orderID, domain.ErrAllocationNotFound)
		}
		return domain.Allocation{}, fmt.Errorf("active allocation for order %d: %w", orderID, err)
	}

	return row.toDomain()
}

// CreateAllocation implements ports.AllocationRepository.
//
// A cancelled entry for the same (trip, order) is revived in place. The
// partial unique index on order_id rejects a second active entry on any trip.
func (s *SQLStore) CreateAllocation(ctx context.Context, a domain.Allocation) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO train_schedule (
		train_trip_id,
		train_departure_date_time,
		order_id,
		allocated_space,
		status
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (train_trip_id, train_departure_date_time, order_id) DO UPDATE
	SET allocated_space = EXCLUDED.allocated_space,
		status = EXCLUDED.status
	WHERE train_schedule.status = 'Cancelled';
	`
	res, err := db.ExecContext(ctx, s.q(query), a.Trip.TripID, a.Trip.DepartAt.UTC(), a.OrderID, a.AllocatedSpace, string(a.Status))
	if err != nil {
		if s.isUniqueViolation(err) {
			return fmt.Errorf("create allocation: order %d: %w", a.OrderID, domain.ErrAlreadyAllocated)
		}
		return fmt.Errorf("create allocation: insert train_schedule order %d: %w", a.OrderID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create allocation: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("create allocation: order %d on trip %s: %w", a.OrderID, a.Trip, domain.ErrAlreadyAllocated)
	}

	return nil
}

// TransitionAllocation implements ports.AllocationRepository.
func (s *SQLStore) TransitionAllocation(
	ctx context.Context,
	key domain.TripKey,
	orderID int64,
	from, to domain.AllocationStatus,
) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	query := `
	UPDATE train_schedule
	SET status = $5
	WHERE train_trip_id = $1
		AND train_departure_date_time = $2
		AND order_id = $3
		AND status = $4;
	`
	res, err := db.ExecContext(ctx, s.q(query), key.TripID, key.DepartAt.UTC(), orderID, string(from), string(to))
	if err != nil {
		if s.isUniqueViolation(err) {
			return fmt.Errorf("transition order %d: %w", orderID, domain.ErrAlreadyAllocated)
		}
		return fmt.Errorf("transition order %d on trip %s: %w", orderID, key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition order %d: rows affected: %w", orderID, err)
	}
	if n == 0 {
		return fmt.Errorf("transition order %d on trip %s from %s: %w", orderID, key, from, domain.ErrAllocationNotFound)
	}

	return nil
}

// AllocationsForTrip implements ports.AllocationRepository.
func (s *SQLStore) AllocationsForTrip(ctx context.Context, key domain.TripKey) ([]domain.Allocation, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT ` + allocationColumns + `
	FROM train_schedule
	WHERE train_trip_id = $1 AND train_departure_date_time = $2
	ORDER BY order_id` + s.lockClause(ctx) + `;
	`

	var rows []allocationRow
	if err := sqlscan.Select(ctx, db, &rows, s.q(query), key.TripID, key.DepartAt.UTC()); err != nil {
		return nil, fmt.Errorf("allocations for trip %s: %w", key, err)
	}

	return allocationsToDomain(rows)
}
