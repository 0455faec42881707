package repositories

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/db"
	"train-allocation-service/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = `{
  "customers": [
    {"customer_id": 1, "customer_name": "Cargills", "city": "Colombo"},
    {"customer_id": 2, "customer_name": "Keells", "city": "Galle"}
  ],
  "products": [
    {"product_id": 1, "product_name": "Crate", "unit_weight": "2", "train_space_per_unit": "1"},
    {"product_id": 2, "product_name": "Sack", "unit_weight": "25", "train_space_per_unit": "0.5"}
  ],
  "train_trips": [
    {"train_trip_id": 1, "departure_city": "Kandy", "arrival_city": "Colombo",
     "departure_date_time": "2026-11-01T06:00:00Z", "arrival_date_time": "2026-11-01T09:00:00Z",
     "total_capacity": "100", "available_capacity": "5"},
    {"train_trip_id": 2, "departure_city": "Kandy", "arrival_city": "Colombo",
     "departure_date_time": "2026-11-02T06:00:00Z", "arrival_date_time": "2026-11-02T09:00:00Z",
     "total_capacity": "100"},
    {"train_trip_id": 3, "departure_city": "Kandy", "arrival_city": "Galle",
     "departure_date_time": "2026-11-02T07:00:00Z", "arrival_date_time": "2026-11-02T12:00:00Z",
     "total_capacity": "50"}
  ],
  "orders": [
    {"order_id": 10, "customer_id": 1, "schedule_date": "2026-11-05",
     "items": [{"product_id": 1, "quantity": 8}, {"product_id": 2, "quantity": 4}]},
    {"order_id": 11, "customer_id": 1, "schedule_date": "2026-11-05",
     "items": [{"product_id": 1, "quantity": 7}]},
    {"order_id": 12, "customer_id": 2, "schedule_date": "2026-11-05",
     "items": [{"product_id": 1, "quantity": 1}]}
  ]
}`

var (
	trip1 = domain.NewTripKey(1, time.Date(2026, 11, 1, 6, 0, 0, 0, time.UTC))
	trip2 = domain.NewTripKey(2, time.Date(2026, 11, 2, 6, 0, 0, 0, time.UTC))
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	dir := t.TempDir()

	conn, err := db.OpenSQLite(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	seedPath := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seedPath, []byte(testSeed), 0o600))

	require.NoError(t, InitSchema(conn, SQLite))
	require.NoError(t, SeedFromJSON(conn, SQLite, seedPath))
	// Seeding twice leaves existing rows untouched.
	require.NoError(t, SeedFromJSON(conn, SQLite, seedPath))

	return NewSQLStore(conn, SQLite, "Kandy")
}

func newSQLAllocator(s *SQLStore) *services.Allocator {
	return &services.Allocator{
		Orders:      s,
		Allocations: s,
		Ledger:      s,
		Tx:          s,
		Sizer:       services.NewSizer(s),
		Selector:    services.NewTripSelector(s),
		Window:      services.WindowPolicy{LeadTime: 7 * 24 * time.Hour, DeliveryBuffer: 24 * time.Hour},
		Now:         func() time.Time { return time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC) },
	}
}

func availableOn(t *testing.T, s *SQLStore, key domain.TripKey) decimal.Decimal {
	t.Helper()
	trip, err := s.GetTrip(context.Background(), key)
	require.NoError(t, err)
	return trip.AvailableCapacity
}

func TestSQLStoreGetOrder(t *testing.T) {
	s := newTestSQLStore(t)

	o, err := s.GetOrder(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Kandy", o.Origin)
	assert.Equal(t, "Colombo", o.Destination)
	assert.Equal(t, domain.OrderPending, o.Status)
	assert.True(t, o.ScheduleDate.Equal(time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)), "schedule date %v", o.ScheduleDate)
	assert.Len(t, o.Items, 2)

	_, err = s.GetOrder(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestSQLStoreProducts(t *testing.T) {
	s := newTestSQLStore(t)

	products, err := s.Products(context.Background(), []int64{1, 2, 404})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.True(t, products[2].TrainSpacePerUnit.Equal(decimal.RequireFromString("0.5")))
}

func TestSQLStoreLedger(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, trip2, decimal.RequireFromString("40")))
	assert.ErrorIs(t, s.Reserve(ctx, trip2, decimal.RequireFromString("60.5")), domain.ErrInsufficientCapacity)
	assert.True(t, availableOn(t, s, trip2).Equal(decimal.RequireFromString("60")))

	require.NoError(t, s.Release(ctx, trip2, decimal.RequireFromString("40")))
	assert.ErrorIs(t, s.Release(ctx, trip2, decimal.RequireFromString("1")), domain.ErrReleaseExceedsTotal)

	missing := domain.NewTripKey(2, trip2.DepartAt.Add(time.Minute))
	assert.ErrorIs(t, s.Reserve(ctx, missing, decimal.RequireFromString("1")), domain.ErrTripNotFound)
}

func TestSQLStoreRunInTxRollsBack(t *testing.T) {
	s := newTestSQLStore(t)

	err := s.RunInTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, s.Reserve(ctx, trip2, decimal.RequireFromString("30")))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, availableOn(t, s, trip2).Equal(decimal.RequireFromString("100")))
}

func TestSQLStoreAllocateFallbackReleaseAndReallocate(t *testing.T) {
	s := newTestSQLStore(t)
	a := newSQLAllocator(s)
	ctx := context.Background()

	// Order 10 needs 8 x 1 + 4 x 0.5 = 10, which does not fit trip 1 (5 left).
	out, err := a.Allocate(ctx, 10)
	require.NoError(t, err)
	require.True(t, out.Allocated)
	assert.Equal(t, trip2, out.Allocation.Trip)
	assert.True(t, availableOn(t, s, trip1).Equal(decimal.RequireFromString("5")))
	assert.True(t, availableOn(t, s, trip2).Equal(decimal.RequireFromString("90")))

	out, err = a.Allocate(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, services.ReasonAlreadyAllocated, out.Reason)

	released, err := a.Release(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, trip2, released.Trip)
	assert.True(t, availableOn(t, s, trip2).Equal(decimal.RequireFromString("100")))

	_, err = a.Release(ctx, 10)
	assert.ErrorIs(t, err, domain.ErrAllocationNotFound)

	// The cancelled schedule row is revived rather than duplicated.
	out, err = a.Allocate(ctx, 10)
	require.NoError(t, err)
	require.True(t, out.Allocated)

	entries, err := s.AllocationsForTrip(ctx, trip2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AllocationAllocated, entries[0].Status)
	assert.True(t, entries[0].AllocatedSpace.Equal(decimal.RequireFromString("10")))

	o, err := s.GetOrder(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderScheduled, o.Status)
}

func TestSQLStoreSecondActiveAllocationRejected(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	first := domain.Allocation{Trip: trip1, OrderID: 11, AllocatedSpace: decimal.RequireFromString("1"), Status: domain.AllocationAllocated}
	require.NoError(t, s.CreateAllocation(ctx, first))

	second := first
	second.Trip = trip2
	assert.ErrorIs(t, s.CreateAllocation(ctx, second), domain.ErrAlreadyAllocated)
	assert.ErrorIs(t, s.CreateAllocation(ctx, first), domain.ErrAlreadyAllocated)

	active, err := s.ActiveAllocation(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, trip1, active.Trip)
}

func TestSQLStoreConcurrentAllocationsNeverOverbook(t *testing.T) {
	s := newTestSQLStore(t)
	a := newSQLAllocator(s)

	// Orders 10 (10) and 11 (7) race; trip 1 has 5 and trip 2 has 100.
	var wg sync.WaitGroup
	results := make([]services.Outcome, 2)
	errs := make([]error, 2)
	for i, id := range []int64{10, 11} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = a.Allocate(context.Background(), id)
		}()
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Allocated)
	}
	assert.True(t, availableOn(t, s, trip2).Equal(decimal.RequireFromString("83")))
}

func TestSQLStoreCompleteTripAndReports(t *testing.T) {
	s := newTestSQLStore(t)
	a := newSQLAllocator(s)
	ctx := context.Background()

	for _, id := range []int64{10, 11} {
		out, err := a.Allocate(ctx, id)
		require.NoError(t, err)
		require.True(t, out.Allocated)
	}

	util, err := s.AllocatedUtilization(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.17", util.String())

	low, err := s.TripsBelowCapacity(ctx, decimal.RequireFromString("50"))
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, trip1, low[0].Key)

	trips, err := s.ListTrips(ctx)
	require.NoError(t, err)
	assert.Len(t, trips, 3)

	n, err := a.CompleteTrip(ctx, trip2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	util, err = s.AllocatedUtilization(ctx)
	require.NoError(t, err)
	assert.True(t, util.IsZero())

	allocs, err := s.TripAllocations(ctx, trip2)
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	for _, al := range allocs {
		assert.Equal(t, domain.AllocationCompleted, al.Status)
	}

	o, err := s.GetOrder(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderInTransit, o.Status)
}
