package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/metrics"

	"github.com/shopspring/decimal"
)

type txKey struct{}

// pendingRelease is capacity handed back inside a transaction. It only becomes
// available to other callers once the transaction commits.
type pendingRelease struct {
	slot   *tripSlot
	key    slotKey
	trip   domain.TripKey
	amount decimal.Decimal
}

// journal collects undo steps and deferred releases for the writes made
// inside one RunInTx call.
type journal struct {
	mu       sync.Mutex
	undo     []func()
	releases []pendingRelease
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(txKey{}).(*journal)
	return j
}

// record is a no-op outside a transaction: the write is already final.
func (j *journal) record(undo func()) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.undo = append(j.undo, undo)
	j.mu.Unlock()
}

func (j *journal) deferRelease(r pendingRelease) {
	j.mu.Lock()
	j.releases = append(j.releases, r)
	j.mu.Unlock()
}

// released sums the capacity this transaction has already handed back to sl.
func (j *journal) released(sl *tripSlot) decimal.Decimal {
	j.mu.Lock()
	defer j.mu.Unlock()

	sum := decimal.Zero
	for _, r := range j.releases {
		if r.slot == sl {
			sum = sum.Add(r.amount)
		}
	}
	return sum
}

func (j *journal) rollback() {
	j.mu.Lock()
	steps := j.undo
	j.undo = nil
	j.releases = nil
	j.mu.Unlock()

	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

// commit applies the deferred releases. Every touched slot is locked in key
// order and checked before any of them changes, so the releases land together
// or not at all.
func (j *journal) commit() error {
	j.mu.Lock()
	pending := j.releases
	j.releases = nil
	j.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	totals := make(map[*tripSlot]decimal.Decimal, len(pending))
	slots := make([]pendingRelease, 0, len(pending))
	for _, r := range pending {
		if _, ok := totals[r.slot]; !ok {
			slots = append(slots, r)
		}
		totals[r.slot] = totals[r.slot].Add(r.amount)
	}
	slices.SortFunc(slots, func(a, b pendingRelease) int {
		if c := cmp.Compare(a.key.tripID, b.key.tripID); c != 0 {
			return c
		}
		return cmp.Compare(a.key.departNs, b.key.departNs)
	})

	for _, r := range slots {
		r.slot.mu.Lock()
		defer r.slot.mu.Unlock()
	}

	for _, r := range slots {
		trip := r.slot.trip
		if trip.AvailableCapacity.Add(totals[r.slot]).GreaterThan(trip.TotalCapacity) {
			metrics.LedgerRejectionsTotal.WithLabelValues("over_release").Inc()
			return fmt.Errorf("commit release %s on trip %s: %w", totals[r.slot], r.trip, domain.ErrReleaseExceedsTotal)
		}
	}
	for _, r := range slots {
		r.slot.trip.AvailableCapacity = r.slot.trip.AvailableCapacity.Add(totals[r.slot])
	}

	return nil
}

// RunInTx implements ports.TxManager. Nested calls join the outer transaction.
// Like a database transaction, nothing commits once ctx is done.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	j := &journal{}
	txCtx := context.WithValue(ctx, txKey{}, j)

	defer func() {
		if p := recover(); p != nil {
			j.rollback()
			panic(p)
		}
		if err != nil {
			j.rollback()
		}
	}()

	if err = fn(txCtx); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	return j.commit()
}
