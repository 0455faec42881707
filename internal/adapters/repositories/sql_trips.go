package repositories

import (
	"context"
	"fmt"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/ports"

	"github.com/georgysavva/scany/sqlscan"
)

// FindTrips implements ports.TripRepository.
func (s *SQLStore) FindTrips(ctx context.Context, q ports.TripQuery) ([]domain.TrainTrip, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT ` + tripColumns + `
	FROM train_trip
	WHERE departure_city = $1
		AND arrival_city = $2
		AND departure_date_time >= $3
		AND departure_date_time <= $4
	ORDER BY departure_date_time, available_capacity DESC, train_trip_id;
	`

	var rows []tripRow
	if err := sqlscan.Select(ctx, db, &rows, s.q(query), q.Origin, q.Destination, q.NotBefore.UTC(), q.NotAfter.UTC()); err != nil {
		return nil, fmt.Errorf("find trips: query train_trip table: %w", err)
	}

	trips, err := tripsToDomain(rows)
	if err != nil {
		return nil, fmt.Errorf("find trips: %w", err)
	}
	return trips, nil
}

// GetTrip implements ports.ReportRepository.
func (s *SQLStore) GetTrip(ctx context.Context, key domain.TripKey) (domain.TrainTrip, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return domain.TrainTrip{}, err
	}

	query := `
	SELECT ` + tripColumns + `
	FROM train_trip
	WHERE train_trip_id = $1 AND departure_date_time = $2;
	`

	var row tripRow
	if err := sqlscan.Get(ctx, db, &row, s.q(query), key.TripID, key.DepartAt.UTC()); err != nil {
		if sqlscan.NotFound(err) {
			return domain.TrainTrip{}, fmt.Errorf("get trip %s: %w", key, domain.ErrTripNotFound)
		}
		return domain.TrainTrip{}, fmt.Errorf("get trip %s: %w", key, err)
	}

	return row.toDomain()
}
