package services

import (
	"context"
	"testing"
	"time"
	"train-allocation-service/internal/domain"
)

func TestTripSelectorOrdering(t *testing.T) {
	s := newTestStore(t)
	day1 := time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	addTrip(t, s, 30, day2, "100", "100")
	addTrip(t, s, 20, day1, "100", "40")
	addTrip(t, s, 10, day1, "100", "40")
	addTrip(t, s, 40, day1, "100", "90")

	sel := NewTripSelector(s)
	got, err := sel.Candidates(context.Background(), "Kandy", "Colombo", day1, day2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int64{40, 10, 20, 30}
	if got.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", got.Len(), len(want))
	}
	i := 0
	for trip := range got.All() {
		if trip.Key.TripID != want[i] {
			t.Fatalf("candidate %d = trip %d, want %d", i, trip.Key.TripID, want[i])
		}
		i++
	}
}

func TestTripSelectorFiltersWindowAndRoute(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC)

	addTrip(t, s, 1, base.Add(-time.Minute), "10", "10")
	addTrip(t, s, 2, base, "10", "10")
	addTrip(t, s, 3, base.Add(48*time.Hour), "10", "10")
	addTrip(t, s, 4, base.Add(48*time.Hour+time.Second), "10", "10")
	if err := s.AddTrip(domain.TrainTrip{
		Key:               domain.NewTripKey(5, base.Add(time.Hour)),
		DepartureCity:     "Kandy",
		ArrivalCity:       "Galle",
		TotalCapacity:     dec("10"),
		AvailableCapacity: dec("10"),
	}); err != nil {
		t.Fatalf("AddTrip: %v", err)
	}

	got, err := NewTripSelector(s).Candidates(context.Background(), "Kandy", "Colombo", base, base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []int64
	for trip := range got.All() {
		ids = append(ids, trip.Key.TripID)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("candidates = %v, want [2 3] (window bounds are inclusive)", ids)
	}
}

func TestTripSelectorEmptyWindow(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC)
	addTrip(t, s, 1, base, "10", "10")

	got, err := NewTripSelector(s).Candidates(context.Background(), "Kandy", "Colombo", base.Add(time.Hour), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", got.Len())
	}
}

func TestWindowPolicy(t *testing.T) {
	p := WindowPolicy{LeadTime: 7 * 24 * time.Hour, DeliveryBuffer: 24 * time.Hour}

	notBefore, notAfter := p.Window(testSchedule, testNow)
	if want := time.Date(2026, 10, 29, 0, 0, 0, 0, time.UTC); !notBefore.Equal(want) {
		t.Errorf("notBefore = %v, want %v", notBefore, want)
	}
	if want := time.Date(2026, 11, 4, 0, 0, 0, 0, time.UTC); !notAfter.Equal(want) {
		t.Errorf("notAfter = %v, want %v", notAfter, want)
	}

	late := time.Date(2026, 11, 2, 12, 0, 0, 0, time.UTC)
	notBefore, _ = p.Window(testSchedule, late)
	if !notBefore.Equal(late) {
		t.Errorf("notBefore = %v, want clamp to now %v", notBefore, late)
	}
}
