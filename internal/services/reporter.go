package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/metrics"
	"train-allocation-service/internal/platform/obs"
	"train-allocation-service/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	utilizationCacheKey     = "report:utilization"
	lowCapacityCachePrefix  = "report:low-capacity:"
	defaultReportCacheTTL   = 30 * time.Second
	defaultReportQueryTime  = 10 * time.Second
	maxLowCapacityThreshold = 1_000_000
)

var ErrInvalidThreshold = errors.New("invalid threshold")

// Reporter serves read-only allocation projections for dashboards.
// Cached projections may be up to CacheTTL stale; cache failures fall through
// to storage.
type Reporter struct {
	Reports  ports.ReportRepository
	Cache    ports.ReportCache
	CacheTTL time.Duration

	// QueryTimeout bounds a shared storage query, which runs detached from
	// the caller that started it.
	QueryTimeout time.Duration

	// group collapses concurrent misses on the same report key into one query.
	group singleflight.Group
}

func NewReporter(reports ports.ReportRepository, cache ports.ReportCache, ttl time.Duration) *Reporter {
	if ttl <= 0 {
		ttl = defaultReportCacheTTL
	}
	return &Reporter{Reports: reports, Cache: cache, CacheTTL: ttl, QueryTimeout: defaultReportQueryTime}
}

// shared runs fn once per key for all concurrent callers. Each caller still
// stops waiting when its own ctx is done.
func (r *Reporter) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := r.group.DoChan(key, func() (any, error) {
		timeout := r.QueryTimeout
		if timeout <= 0 {
			timeout = defaultReportQueryTime
		}
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return fn(qctx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Reporter) Trips(ctx context.Context) (_ []domain.TrainTrip, err error) {
	defer obs.Time(ctx, "reporter.Trips")(&err)

	trips, err := r.Reports.ListTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

func (r *Reporter) Trip(ctx context.Context, key domain.TripKey) (_ domain.TrainTrip, err error) {
	defer obs.Time(ctx, "reporter.Trip")(&err)

	trip, err := r.Reports.GetTrip(ctx, key)
	if err != nil {
		return domain.TrainTrip{}, fmt.Errorf("get trip: %w", err)
	}
	return trip, nil
}

func (r *Reporter) TripAllocations(ctx context.Context, key domain.TripKey) (_ []domain.Allocation, err error) {
	defer obs.Time(ctx, "reporter.TripAllocations")(&err)

	allocs, err := r.Reports.TripAllocations(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("trip allocations %s: %w", key, err)
	}
	return allocs, nil
}

// LowCapacityTrips lists trips whose available capacity is below threshold.
func (r *Reporter) LowCapacityTrips(ctx context.Context, threshold decimal.Decimal) (_ []domain.TrainTrip, err error) {
	defer obs.Time(ctx, "reporter.LowCapacityTrips")(&err)

	if threshold.IsNegative() || threshold.GreaterThan(decimal.NewFromInt(maxLowCapacityThreshold)) {
		return nil, fmt.Errorf("low capacity trips: threshold %s out of range: %w", threshold, ErrInvalidThreshold)
	}

	key := lowCapacityCachePrefix + threshold.String()
	if r.Cache != nil {
		trips, ok, err := r.Cache.GetTrips(ctx, key)
		if r.cacheHit(ctx, key, ok, err) {
			return trips, nil
		}
	}

	v, err := r.shared(ctx, key, func(ctx context.Context) (any, error) {
		trips, err := r.Reports.TripsBelowCapacity(ctx, threshold)
		if err != nil {
			return nil, err
		}
		if r.Cache != nil {
			if err := r.Cache.PutTrips(ctx, key, trips, r.CacheTTL); err != nil {
				log.Printf("req_id=%s op=report.cache.put key=%s err=%v", obs.RequestID(ctx), key, err)
			}
		}
		return trips, nil
	})
	if err != nil {
		return nil, fmt.Errorf("low capacity trips: %w", err)
	}

	return v.([]domain.TrainTrip), nil
}

// Utilization is the share of capacity held by Allocated entries across the
// trips that carry them.
func (r *Reporter) Utilization(ctx context.Context) (_ decimal.Decimal, err error) {
	defer obs.Time(ctx, "reporter.Utilization")(&err)

	if r.Cache != nil {
		v, ok, err := r.Cache.GetDecimal(ctx, utilizationCacheKey)
		if r.cacheHit(ctx, utilizationCacheKey, ok, err) {
			return v, nil
		}
	}

	v, err := r.shared(ctx, utilizationCacheKey, func(ctx context.Context) (any, error) {
		v, err := r.Reports.AllocatedUtilization(ctx)
		if err != nil {
			return nil, err
		}
		if r.Cache != nil {
			if err := r.Cache.PutDecimal(ctx, utilizationCacheKey, v, r.CacheTTL); err != nil {
				log.Printf("req_id=%s op=report.cache.put key=%s err=%v", obs.RequestID(ctx), utilizationCacheKey, err)
			}
		}
		return v, nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("utilization: %w", err)
	}

	return v.(decimal.Decimal), nil
}

func (r *Reporter) cacheHit(ctx context.Context, key string, ok bool, err error) bool {
	switch {
	case err != nil:
		metrics.ReportCacheLookupsTotal.WithLabelValues("error").Inc()
		log.Printf("req_id=%s op=report.cache.get key=%s err=%v", obs.RequestID(ctx), key, err)
		return false
	case ok:
		metrics.ReportCacheLookupsTotal.WithLabelValues("hit").Inc()
		return true
	}
	metrics.ReportCacheLookupsTotal.WithLabelValues("miss").Inc()
	return false
}
