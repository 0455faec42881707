package memory

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/metrics"
	"train-allocation-service/internal/platform/obs"
	"train-allocation-service/internal/ports"

	"github.com/shopspring/decimal"
)

type slotKey struct {
	tripID   int64
	departNs int64
}

func keyOf(k domain.TripKey) slotKey {
	return slotKey{tripID: k.TripID, departNs: k.DepartAt.UnixNano()}
}

// tripSlot serializes reservations against one trip instance.
type tripSlot struct {
	mu   sync.Mutex
	trip domain.TrainTrip
}

// Store is an in-process implementation of every storage port.
//
// Capacity is guarded by one mutex per trip key, so reservations on different
// trips proceed in parallel. RunInTx keeps an undo journal; writes made through
// its context are reverted when the callback fails or the context is done.
type Store struct {
	mu       sync.RWMutex
	trips    map[slotKey]*tripSlot
	orders   map[int64]*domain.Order
	products map[int64]domain.Product

	allocMu     sync.Mutex
	allocations []domain.Allocation
}

var (
	_ ports.CapacityLedger       = (*Store)(nil)
	_ ports.TxManager            = (*Store)(nil)
	_ ports.TripRepository       = (*Store)(nil)
	_ ports.AllocationRepository = (*Store)(nil)
	_ ports.OrderRepository      = (*Store)(nil)
	_ ports.ProductCatalog       = (*Store)(nil)
	_ ports.ReportRepository     = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		trips:    make(map[slotKey]*tripSlot),
		orders:   make(map[int64]*domain.Order),
		products: make(map[int64]domain.Product),
	}
}

// AddTrip registers a trip instance. It is the scheduling collaborator's entry point.
func (s *Store) AddTrip(t domain.TrainTrip) error {
	t.Key = domain.NewTripKey(t.Key.TripID, t.Key.DepartAt)
	if err := t.Validate(); err != nil {
		return fmt.Errorf("add trip: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyOf(t.Key)
	if _, ok := s.trips[k]; ok {
		return fmt.Errorf("add trip: trip %s already exists", t.Key)
	}
	s.trips[k] = &tripSlot{trip: t}
	return nil
}

func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ProductID] = p
}

func (s *Store) AddOrder(o domain.Order) {
	if o.Status == "" {
		o.Status = domain.OrderPending
	}
	o.Items = slices.Clone(o.Items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderID] = &o
}

func (s *Store) slot(key domain.TripKey) (*tripSlot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.trips[keyOf(key)]
	return sl, ok
}

// Reserve implements ports.CapacityLedger.
func (s *Store) Reserve(ctx context.Context, key domain.TripKey, amount decimal.Decimal) (err error) {
	defer obs.Time(ctx, "ledger.Reserve")(&err)

	if !amount.IsPositive() {
		return fmt.Errorf("reserve %s on trip %s: %w", amount, key, domain.ErrInvalidAmount)
	}
	sl, ok := s.slot(key)
	if !ok {
		return fmt.Errorf("reserve on trip %s: %w", key, domain.ErrTripNotFound)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.trip.CanFit(amount) {
		metrics.LedgerRejectionsTotal.WithLabelValues("insufficient_capacity").Inc()
		return fmt.Errorf("reserve %s on trip %s (available %s): %w", amount, key, sl.trip.AvailableCapacity, domain.ErrInsufficientCapacity)
	}
	sl.trip.AvailableCapacity = sl.trip.AvailableCapacity.Sub(amount)

	journalFrom(ctx).record(func() {
		sl.mu.Lock()
		defer sl.mu.Unlock()
		sl.trip.AvailableCapacity = sl.trip.AvailableCapacity.Add(amount)
	})

	return nil
}

// Release implements ports.CapacityLedger. Inside RunInTx the space is held
// back until commit, so no other caller can reserve it while the transaction
// may still roll back.
func (s *Store) Release(ctx context.Context, key domain.TripKey, amount decimal.Decimal) (err error) {
	defer obs.Time(ctx, "ledger.Release")(&err)

	if !amount.IsPositive() {
		return fmt.Errorf("release %s on trip %s: %w", amount, key, domain.ErrInvalidAmount)
	}
	sl, ok := s.slot(key)
	if !ok {
		return fmt.Errorf("release on trip %s: %w", key, domain.ErrTripNotFound)
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	j := journalFrom(ctx)
	next := sl.trip.AvailableCapacity.Add(amount)
	if j != nil {
		next = next.Add(j.released(sl))
	}
	if next.GreaterThan(sl.trip.TotalCapacity) {
		metrics.LedgerRejectionsTotal.WithLabelValues("over_release").Inc()
		log.Printf("req_id=%s op=ledger.Release trip=%s amount=%s available=%s total=%s rejected=over_release",
			obs.RequestID(ctx), key, amount, sl.trip.AvailableCapacity, sl.trip.TotalCapacity)
		return fmt.Errorf("release %s on trip %s: %w", amount, key, domain.ErrReleaseExceedsTotal)
	}

	if j != nil {
		j.deferRelease(pendingRelease{slot: sl, key: keyOf(key), trip: key, amount: amount})
		return nil
	}
	sl.trip.AvailableCapacity = next

	return nil
}

// GetTrip implements ports.ReportRepository.
func (s *Store) GetTrip(ctx context.Context, key domain.TripKey) (domain.TrainTrip, error) {
	sl, ok := s.slot(key)
	if !ok {
		return domain.TrainTrip{}, fmt.Errorf("get trip %s: %w", key, domain.ErrTripNotFound)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.trip, nil
}

// FindTrips implements ports.TripRepository.
func (s *Store) FindTrips(ctx context.Context, q ports.TripQuery) ([]domain.TrainTrip, error) {
	out := []domain.TrainTrip{}
	for _, t := range s.snapshotTrips() {
		if t.DepartureCity != q.Origin || t.ArrivalCity != q.Destination {
			continue
		}
		if t.Key.DepartAt.Before(q.NotBefore) || t.Key.DepartAt.After(q.NotAfter) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// snapshotTrips copies every trip, ordered by departure then trip id.
func (s *Store) snapshotTrips() []domain.TrainTrip {
	s.mu.RLock()
	slots := make([]*tripSlot, 0, len(s.trips))
	for _, sl := range s.trips {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	trips := make([]domain.TrainTrip, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		trips = append(trips, sl.trip)
		sl.mu.Unlock()
	}

	slices.SortFunc(trips, func(a, b domain.TrainTrip) int {
		if c := a.Key.DepartAt.Compare(b.Key.DepartAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.TripID, b.Key.TripID)
	})
	return trips
}
