package services

import (
	"context"
	"testing"
	"time"
	"train-allocation-service/internal/adapters/memory"
	"train-allocation-service/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	testNow      = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	testSchedule = time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Product 1 takes 1.0 space per unit, so an order of n units needs n.
func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.NewStore()
	s.AddProduct(domain.Product{ProductID: 1, Name: "Crate", UnitWeight: dec("2"), TrainSpacePerUnit: dec("1")})
	s.AddProduct(domain.Product{ProductID: 2, Name: "Sack", UnitWeight: dec("25"), TrainSpacePerUnit: dec("0.5")})
	s.AddProduct(domain.Product{ProductID: 9, Name: "Voucher", UnitWeight: dec("0"), TrainSpacePerUnit: dec("0")})
	return s
}

func addTrip(t *testing.T, s *memory.Store, id int64, departAt time.Time, total, available string) domain.TripKey {
	t.Helper()
	trip := domain.TrainTrip{
		Key:               domain.NewTripKey(id, departAt),
		DepartureCity:     "Kandy",
		ArrivalCity:       "Colombo",
		ArriveAt:          departAt.Add(3 * time.Hour),
		TotalCapacity:     dec(total),
		AvailableCapacity: dec(available),
	}
	if err := s.AddTrip(trip); err != nil {
		t.Fatalf("AddTrip(%d): %v", id, err)
	}
	return trip.Key
}

func addOrder(s *memory.Store, id int64, items ...domain.OrderItem) {
	s.AddOrder(domain.Order{
		OrderID:      id,
		CustomerID:   1,
		Origin:       "Kandy",
		Destination:  "Colombo",
		ScheduleDate: testSchedule,
		Items:        items,
	})
}

func crates(n int) domain.OrderItem { return domain.OrderItem{ProductID: 1, Quantity: n} }

func newTestAllocator(s *memory.Store) *Allocator {
	return &Allocator{
		Orders:      s,
		Allocations: s,
		Ledger:      s,
		Tx:          s,
		Sizer:       NewSizer(s),
		Selector:    NewTripSelector(s),
		Window:      WindowPolicy{LeadTime: 7 * 24 * time.Hour, DeliveryBuffer: 24 * time.Hour},
		Now:         func() time.Time { return testNow },
	}
}

func available(t *testing.T, s *memory.Store, key domain.TripKey) decimal.Decimal {
	t.Helper()
	trip, err := s.GetTrip(context.Background(), key)
	if err != nil {
		t.Fatalf("GetTrip(%s): %v", key, err)
	}
	return trip.AvailableCapacity
}

func orderStatus(t *testing.T, s *memory.Store, id int64) domain.OrderStatus {
	t.Helper()
	o, err := s.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("GetOrder(%d): %v", id, err)
	}
	return o.Status
}
