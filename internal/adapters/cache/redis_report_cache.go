package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/obs"
	"train-allocation-service/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisReportCache is a Redis-backed cache for report projections.
type RedisReportCache struct {
	Client *redis.Client
	// Prefix namespaces every key, e.g. "kandypack:".
	Prefix string
}

var _ ports.ReportCache = (*RedisReportCache)(nil)

func NewRedisReportCache(client *redis.Client, prefix string) *RedisReportCache {
	return &RedisReportCache{Client: client, Prefix: prefix}
}

type tripEntry struct {
	TripID            int64           `json:"train_trip_id"`
	DepartureCity     string          `json:"departure_city"`
	ArrivalCity       string          `json:"arrival_city"`
	DepartAt          time.Time       `json:"departure_date_time"`
	ArriveAt          time.Time       `json:"arrival_date_time"`
	TotalCapacity     decimal.Decimal `json:"total_capacity"`
	AvailableCapacity decimal.Decimal `json:"available_capacity"`
}

func (c *RedisReportCache) get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.Client == nil {
		return nil, false, errors.New("report cache: client is nil")
	}
	b, err := c.Client.Get(ctx, c.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("report cache: get %q: %w", key, err)
	}
	return b, true, nil
}

func (c *RedisReportCache) put(ctx context.Context, key string, v []byte, ttl time.Duration) error {
	if c.Client == nil {
		return errors.New("report cache: client is nil")
	}
	if err := c.Client.Set(ctx, c.Prefix+key, v, ttl).Err(); err != nil {
		return fmt.Errorf("report cache: set %q: %w", key, err)
	}
	return nil
}

func (c *RedisReportCache) GetTrips(ctx context.Context, key string) (_ []domain.TrainTrip, _ bool, err error) {
	defer obs.Time(ctx, "report.cache.GetTrips")(&err)

	b, ok, err := c.get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	var entries []tripEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, false, fmt.Errorf("report cache: decode %q: %w", key, err)
	}

	trips := make([]domain.TrainTrip, 0, len(entries))
	for _, e := range entries {
		trips = append(trips, domain.TrainTrip{
			Key:               domain.NewTripKey(e.TripID, e.DepartAt),
			DepartureCity:     e.DepartureCity,
			ArrivalCity:       e.ArrivalCity,
			ArriveAt:          e.ArriveAt.UTC(),
			TotalCapacity:     e.TotalCapacity,
			AvailableCapacity: e.AvailableCapacity,
		})
	}
	return trips, true, nil
}

func (c *RedisReportCache) PutTrips(ctx context.Context, key string, trips []domain.TrainTrip, ttl time.Duration) (err error) {
	defer obs.Time(ctx, "report.cache.PutTrips")(&err)

	entries := make([]tripEntry, 0, len(trips))
	for _, t := range trips {
		entries = append(entries, tripEntry{
			TripID:            t.Key.TripID,
			DepartureCity:     t.DepartureCity,
			ArrivalCity:       t.ArrivalCity,
			DepartAt:          t.Key.DepartAt,
			ArriveAt:          t.ArriveAt,
			TotalCapacity:     t.TotalCapacity,
			AvailableCapacity: t.AvailableCapacity,
		})
	}

	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("report cache: encode %q: %w", key, err)
	}
	return c.put(ctx, key, b, ttl)
}

func (c *RedisReportCache) GetDecimal(ctx context.Context, key string) (_ decimal.Decimal, _ bool, err error) {
	defer obs.Time(ctx, "report.cache.GetDecimal")(&err)

	b, ok, err := c.get(ctx, key)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}

	v, err := decimal.NewFromString(string(b))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("report cache: decode %q: %w", key, err)
	}
	return v, true, nil
}

func (c *RedisReportCache) PutDecimal(ctx context.Context, key string, v decimal.Decimal, ttl time.Duration) (err error) {
	defer obs.Time(ctx, "report.cache.PutDecimal")(&err)

	return c.put(ctx, key, []byte(v.String()), ttl)
}
