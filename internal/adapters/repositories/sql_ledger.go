package repositories

import (
	"context"
	"fmt"
	"log"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/metrics"
	"train-allocation-service/internal/platform/obs"

	"github.com/georgysavva/scany/sqlscan"
	"github.com/shopspring/decimal"
)

type capacityRow struct {
	TotalCapacity     string `db:"total_capacity"`
	AvailableCapacity string `db:"available_capacity"`
}

func (r capacityRow) parse() (total, available decimal.Decimal, err error) {
	if total, err = decimal.NewFromString(r.TotalCapacity); err != nil {
		return total, available, fmt.Errorf("parse total_capacity %q: %w", r.TotalCapacity, err)
	}
	if available, err = decimal.NewFromString(r.AvailableCapacity); err != nil {
		return total, available, fmt.Errorf("parse available_capacity %q: %w", r.AvailableCapacity, err)
	}
	return total, available, nil
}

// lockCapacity reads a trip's capacity, row-locking it for the rest of the transaction.
func (s *SQLStore) lockCapacity(ctx context.Context, key domain.TripKey) (total, available decimal.Decimal, err error) {
	db, err := s.conn(ctx)
	if err != nil {
		return total, available, err
	}

	query := `
	SELECT total_capacity, available_capacity
	FROM train_trip
	WHERE train_trip_id = $1 AND departure_date_time = $2` + s.lockClause(ctx) + `;
	`

	var row capacityRow
	if err := sqlscan.Get(ctx, db, &row, s.q(query), key.TripID, key.DepartAt.UTC()); err != nil {
		if sqlscan.NotFound(err) {
			return total, available, domain.ErrTripNotFound
		}
		return total, available, err
	}
	return row.parse()
}

// Reserve implements ports.CapacityLedger. The read above and the guarded
// UPDATE below run under the same row lock, and the UPDATE re-checks the bound
// so a reservation can never drive available capacity negative.
func (s *SQLStore) Reserve(ctx context.Context, key domain.TripKey, amount decimal.Decimal) (err error) {
	defer obs.Time(ctx, "ledger.Reserve")(&err)

	if !amount.IsPositive() {
		return fmt.Errorf("reserve %s on trip %s: %w", amount, key, domain.ErrInvalidAmount)
	}

	_, available, err := s.lockCapacity(ctx, key)
	if err != nil {
		return fmt.Errorf("reserve on trip %s: %w", key, err)
	}
	if available.LessThan(amount) {
		metrics.LedgerRejectionsTotal.WithLabelValues("insufficient_capacity").Inc()
		return fmt.Errorf("reserve %s on trip %s (available %s): %w", amount, key, available, domain.ErrInsufficientCapacity)
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	query := `
	UPDATE train_trip
	SET available_capacity = available_capacity - $3
	WHERE train_trip_id = $1
		AND departure_date_time = $2
		AND available_capacity >= $3;
	`
	res, err := db.ExecContext(ctx, s.q(query), key.TripID, key.DepartAt.UTC(), amount)
	if err != nil {
		return fmt.Errorf("reserve on trip %s: update train_trip: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve on trip %s: rows affected: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("reserve %s on trip %s: %w", amount, key, domain.ErrInsufficientCapacity)
	}

	return nil
}

// Release implements ports.CapacityLedger.
func (s *SQLStore) Release(ctx context.Context, key domain.TripKey, amount decimal.Decimal) (err error) {
	defer obs.Time(ctx, "ledger.Release")(&err)

	if !amount.IsPositive() {
		return fmt.Errorf("release %s on trip %s: %w", amount, key, domain.ErrInvalidAmount)
	}

	total, available, err := s.lockCapacity(ctx, key)
	if err != nil {
		return fmt.Errorf("release on trip %s: %w", key, err)
	}
	if available.Add(amount).GreaterThan(total) {
		metrics.LedgerRejectionsTotal.WithLabelValues("over_release").Inc()
		log.Printf("req_id=%s op=ledger.Release trip=%s amount=%s available=%s total=%s rejected=over_release",
			obs.RequestID(ctx), key, amount, available, total)
		return fmt.Errorf("release %s on trip %s: %w", amount, key, domain.ErrReleaseExceedsTotal)
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	query := `
	UPDATE train_trip
	SET available_capacity = available_capacity + $3
	WHERE train_trip_id = $1
		AND departure_date_time = $2
		AND available_capacity + $3 <= total_capacity;
	`
	res, err := db.ExecContext(ctx, s.q(query), key.TripID, key.DepartAt.UTC(), amount)
	if err != nil {
		return fmt.Errorf("release on trip %s: update train_trip: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release on trip %s: rows affected: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("release %s on trip %s: %w", amount, key, domain.ErrReleaseExceedsTotal)
	}

	return nil
}
