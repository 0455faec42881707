package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TripKey identifies one scheduled instance of a train trip.
// A trip id may recur on a schedule, so the departure time is part of the key.
type TripKey struct {
	TripID   int64
	DepartAt time.Time
}

// NewTripKey normalizes the departure time to UTC so keys compare equal
// regardless of the location they were parsed in.
func NewTripKey(tripID int64, departAt time.Time) TripKey {
	return TripKey{TripID: tripID, DepartAt: departAt.UTC()}
}

func (k TripKey) String() string {
	return fmt.Sprintf("%d@%s", k.TripID, k.DepartAt.UTC().Format(time.RFC3339))
}

// TrainTrip is a scheduled cargo movement between two cities.
type TrainTrip struct {
	Key               TripKey
	DepartureCity     string
	ArrivalCity       string
	ArriveAt          time.Time
	TotalCapacity     decimal.Decimal
	AvailableCapacity decimal.Decimal
}

// Validate checks 0 <= available <= total.
func (t TrainTrip) Validate() error {
	if t.TotalCapacity.IsNegative() {
		return fmt.Errorf("trip %s: total capacity %s is negative", t.Key, t.TotalCapacity)
	}
	if t.AvailableCapacity.IsNegative() {
		return fmt.Errorf("trip %s: available capacity %s is negative", t.Key, t.AvailableCapacity)
	}
	if t.AvailableCapacity.GreaterThan(t.TotalCapacity) {
		return fmt.Errorf("trip %s: available capacity %s exceeds total %s", t.Key, t.AvailableCapacity, t.TotalCapacity)
	}
	if !t.ArriveAt.IsZero() && t.ArriveAt.Before(t.Key.DepartAt) {
		return fmt.Errorf("trip %s: arrival precedes departure", t.Key)
	}
	return nil
}

// CanFit reports whether amount fits in the remaining capacity.
func (t TrainTrip) CanFit(amount decimal.Decimal) bool {
	return t.AvailableCapacity.GreaterThanOrEqual(amount)
}

// UsedCapacity is the space currently held by allocations.
func (t TrainTrip) UsedCapacity() decimal.Decimal {
	return t.TotalCapacity.Sub(t.AvailableCapacity)
}
