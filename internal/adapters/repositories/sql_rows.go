package repositories

import (
	"fmt"
	"time"
	"train-allocation-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Numeric columns are scanned as text: Postgres NUMERIC arrives as a string
// through pgx, SQLite hands back int64 or float64, and database/sql converts
// all three into a string for decimal parsing.

type tripRow struct {
	TripID            int64     `db:"train_trip_id"`
	DepartureCity     string    `db:"departure_city"`
	ArrivalCity       string    `db:"arrival_city"`
	DepartAt          time.Time `db:"departure_date_time"`
	ArriveAt          time.Time `db:"arrival_date_time"`
	TotalCapacity     string    `db:"total_capacity"`
	AvailableCapacity string    `db:"available_capacity"`
}

const tripColumns = `train_trip_id, departure_city, arrival_city, departure_date_time,
	arrival_date_time, total_capacity, available_capacity`

func (r tripRow) toDomain() (domain.TrainTrip, error) {
	total, err := decimal.NewFromString(r.TotalCapacity)
	if err != nil {
		return domain.TrainTrip{}, fmt.Errorf("trip %d: parse total_capacity %q: %w", r.TripID, r.TotalCapacity, err)
	}
	available, err := decimal.NewFromString(r.AvailableCapacity)
	if err != nil {
		return domain.TrainTrip{}, fmt.Errorf("trip %d: parse available_capacity %q: %w", r.TripID, r.AvailableCapacity, err)
	}

	return domain.TrainTrip{
		Key:               domain.NewTripKey(r.TripID, r.DepartAt),
		DepartureCity:     r.DepartureCity,
		ArrivalCity:       r.ArrivalCity,
		ArriveAt:          r.ArriveAt.UTC(),
		TotalCapacity:     total,
		AvailableCapacity: available,
	}, nil
}

func tripsToDomain(rows []tripRow) ([]domain.TrainTrip, error) {
	out := make([]domain.TrainTrip, 0, len(rows))
	for _, r := range rows {
		t, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type allocationRow struct {
	TripID         int64     `db:"train_trip_id"`
	DepartAt       time.Time `db:"train_departure_date_time"`
	OrderID        int64     `db:"order_id"`
	AllocatedSpace string    `db:"allocated_space"`
	Status         string    `db:"status"`
}

const allocationColumns = `train_trip_id, train_departure_date_time, order_id, allocated_space, status`

func (r allocationRow) toDomain() (domain.Allocation, error) {
	space, err := decimal.NewFromString(r.AllocatedSpace)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("allocation order %d: parse allocated_space %q: %w", r.OrderID, r.AllocatedSpace, err)
	}

	return domain.Allocation{
		Trip:           domain.NewTripKey(r.TripID, r.DepartAt),
		OrderID:        r.OrderID,
		AllocatedSpace: space,
		Status:         domain.AllocationStatus(r.Status),
	}, nil
}

func allocationsToDomain(rows []allocationRow) ([]domain.Allocation, error) {
	out := make([]domain.Allocation, 0, len(rows))
	for _, r := range rows {
		a, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
