package repositories

import (
	"context"
	"fmt"
	"train-allocation-service/internal/domain"

	"github.com/georgysavva/scany/sqlscan"
	"github.com/shopspring/decimal"
)

// ListTrips implements ports.ReportRepository.
func (s *SQLStore) ListTrips(ctx context.Context) ([]domain.TrainTrip, error) {
	var trips []domain.TrainTrip
	err := s.readSnapshot(ctx, func(ctx context.Context) error {
		db, err := s.conn(ctx)
		if err != nil {
			return err
		}

		var rows []tripRow
		query := `SELECT ` + tripColumns + ` FROM train_trip ORDER BY departure_date_time, train_trip_id;`
		if err := sqlscan.Select(ctx, db, &rows, query); err != nil {
			return fmt.Errorf("query train_trip table: %w", err)
		}
		trips, err = tripsToDomain(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

// TripsBelowCapacity implements ports.ReportRepository.
func (s *SQLStore) TripsBelowCapacity(ctx context.Context, threshold decimal.Decimal) ([]domain.TrainTrip, error) {
	var trips []domain.TrainTrip
	err := s.readSnapshot(ctx, func(ctx context.Context) error {
		db, err := s.conn(ctx)
		if err != nil {
			return err
		}

		query := `
		SELECT ` + tripColumns + `
		FROM train_trip
		WHERE available_capacity < $1
		ORDER BY available_capacity, departure_date_time, train_trip_id;
		`
		var rows []tripRow
		if err := sqlscan.Select(ctx, db, &rows, s.q(query), threshold); err != nil {
			return fmt.Errorf("query train_trip table: %w", err)
		}
		trips, err = tripsToDomain(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("trips below capacity %s: %w", threshold, err)
	}
	return trips, nil
}

// TripAllocations implements ports.ReportRepository.
func (s *SQLStore) TripAllocations(ctx context.Context, key domain.TripKey) ([]domain.Allocation, error) {
	var allocs []domain.Allocation
	err := s.readSnapshot(ctx, func(ctx context.Context) error {
		var err error
		allocs, err = s.AllocationsForTrip(ctx, key)
		return err
	})
	return allocs, err
}

type utilizationRow struct {
	Allocated string `db:"allocated"`
	Total     string `db:"total"`
}

// AllocatedUtilization implements ports.ReportRepository. Each trip's total
// capacity is counted once, however many orders it carries.
func (s *SQLStore) AllocatedUtilization(ctx context.Context) (decimal.Decimal, error) {
	var row utilizationRow
	err := s.readSnapshot(ctx, func(ctx context.Context) error {
		db, err := s.conn(ctx)
		if err != nil {
			return err
		}

		query := `
		SELECT
			COALESCE(SUM(s.allocated), 0) AS allocated,
			COALESCE(SUM(t.total_capacity), 0) AS total
		FROM (
			SELECT train_trip_id, train_departure_date_time, SUM(allocated_space) AS allocated
			FROM train_schedule
			WHERE status = 'Allocated'
			GROUP BY train_trip_id, train_departure_date_time
		) s
		JOIN train_trip t
			ON t.train_trip_id = s.train_trip_id
			AND t.departure_date_time = s.train_departure_date_time;
		`
		return sqlscan.Get(ctx, db, &row, query)
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("allocated utilization: %w", err)
	}

	allocated, err := decimal.NewFromString(row.Allocated)
	if err != nil {
		return decimal.Zero, fmt.Errorf("allocated utilization: parse %q: %w", row.Allocated, err)
	}
	total, err := decimal.NewFromString(row.Total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("allocated utilization: parse %q: %w", row.Total, err)
	}
	if !total.IsPositive() {
		return decimal.Zero, nil
	}

	return allocated.DivRound(total, 4), nil
}
