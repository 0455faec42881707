package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewTripKeyNormalizesToUTC(t *testing.T) {
	colombo := time.FixedZone("IST", 5*3600+1800)
	local := time.Date(2026, 11, 2, 11, 30, 0, 0, colombo)

	a := NewTripKey(7, local)
	b := NewTripKey(7, time.Date(2026, 11, 2, 6, 0, 0, 0, time.UTC))

	if a != b {
		t.Fatalf("keys differ: %v vs %v", a, b)
	}
	if got, want := a.String(), "7@2026-11-02T06:00:00Z"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestTrainTripValidate(t *testing.T) {
	depart := time.Date(2026, 11, 2, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		total     string
		available string
		arrive    time.Time
		wantErr   bool
	}{
		{name: "full", total: "100", available: "100", arrive: depart.Add(time.Hour)},
		{name: "empty", total: "100", available: "0"},
		{name: "negative available", total: "100", available: "-1", wantErr: true},
		{name: "available over total", total: "100", available: "100.01", wantErr: true},
		{name: "negative total", total: "-5", available: "0", wantErr: true},
		{name: "arrives before departure", total: "10", available: "10", arrive: depart.Add(-time.Minute), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trip := TrainTrip{
				Key:               NewTripKey(1, depart),
				ArriveAt:          tc.arrive,
				TotalCapacity:     dec(tc.total),
				AvailableCapacity: dec(tc.available),
			}
			err := trip.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestTrainTripCanFit(t *testing.T) {
	trip := TrainTrip{TotalCapacity: dec("50"), AvailableCapacity: dec("12.5")}

	if !trip.CanFit(dec("12.5")) {
		t.Errorf("CanFit(12.5) = false, want true for an exact fit")
	}
	if trip.CanFit(dec("12.51")) {
		t.Errorf("CanFit(12.51) = true, want false")
	}
	if got := trip.UsedCapacity(); !got.Equal(dec("37.5")) {
		t.Errorf("UsedCapacity() = %s, want 37.5", got)
	}
}

func TestOrderProductIDsDeduplicates(t *testing.T) {
	o := &Order{Items: []OrderItem{
		{ProductID: 3, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 3, Quantity: 4},
	}}

	got := o.ProductIDs()
	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Fatalf("ProductIDs() = %v, want [3 1]", got)
	}
}

func TestAllocationStatusHoldsCapacity(t *testing.T) {
	if !AllocationAllocated.HoldsCapacity() {
		t.Errorf("Allocated should hold capacity")
	}
	if AllocationCompleted.HoldsCapacity() || AllocationCancelled.HoldsCapacity() {
		t.Errorf("Completed and Cancelled should not hold capacity")
	}
}
