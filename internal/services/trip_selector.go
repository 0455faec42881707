package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"
	"train-allocation-service/internal/domain"
	"train-allocation-service/internal/platform/obs"
	"train-allocation-service/internal/ports"
)

// Candidates is an ordered, finite sequence of trips eligible for an order.
// It can be iterated any number of times.
type Candidates struct {
	trips []domain.TrainTrip
}

func (c Candidates) Len() int { return len(c.trips) }

// All yields candidates best-first.
func (c Candidates) All() iter.Seq[domain.TrainTrip] {
	return func(yield func(domain.TrainTrip) bool) {
		for _, t := range c.trips {
			if !yield(t) {
				return
			}
		}
	}
}

// TripSelector finds and ranks the trips an order could ride on.
type TripSelector struct {
	Trips ports.TripRepository
}

func NewTripSelector(trips ports.TripRepository) *TripSelector {
	return &TripSelector{Trips: trips}
}

// Candidates returns trips on the origin->destination pair departing within
// [notBefore, notAfter], earliest departure first, then most available capacity.
// No match is an empty sequence, not an error.
func (s *TripSelector) Candidates(
	ctx context.Context,
	origin, destination string,
	notBefore, notAfter time.Time,
) (_ Candidates, err error) {
	defer obs.Time(ctx, "selector.Candidates")(&err)

	if origin == "" || destination == "" {
		return Candidates{}, errors.New("find candidates: origin and destination must be non-empty")
	}
	if notAfter.Before(notBefore) {
		return Candidates{}, nil
	}

	trips, err := s.Trips.FindTrips(ctx, ports.TripQuery{
		Origin:      origin,
		Destination: destination,
		NotBefore:   notBefore,
		NotAfter:    notAfter,
	})
	if err != nil {
		return Candidates{}, fmt.Errorf("find candidates: %w", err)
	}

	// Adapters may match coarsely.
	out := make([]domain.TrainTrip, 0, len(trips))
	for _, t := range trips {
		if t.DepartureCity != origin || t.ArrivalCity != destination {
			continue
		}
		if t.Key.DepartAt.Before(notBefore) || t.Key.DepartAt.After(notAfter) {
			continue
		}
		out = append(out, t)
	}

	slices.SortFunc(out, compareCandidates)

	return Candidates{trips: out}, nil
}

func compareCandidates(a, b domain.TrainTrip) int {
	if c := a.Key.DepartAt.Compare(b.Key.DepartAt); c != 0 {
		return c
	}
	// More available space first.
	if c := b.AvailableCapacity.Cmp(a.AvailableCapacity); c != 0 {
		return c
	}
	return cmp.Compare(a.Key.TripID, b.Key.TripID)
}

// WindowPolicy derives an order's permissible departure window from its schedule date.
type WindowPolicy struct {
	// LeadTime is how early before the schedule date a trip may depart.
	LeadTime time.Duration
	// DeliveryBuffer is reserved after the train leg for last-mile truck delivery.
	DeliveryBuffer time.Duration
}

// Window returns [scheduleDate-LeadTime, scheduleDate-DeliveryBuffer], never starting before now.
func (p WindowPolicy) Window(scheduleDate, now time.Time) (notBefore, notAfter time.Time) {
	notBefore = scheduleDate.Add(-p.LeadTime)
	if notBefore.Before(now) {
		notBefore = now
	}
	notAfter = scheduleDate.Add(-p.DeliveryBuffer)
	return notBefore.UTC(), notAfter.UTC()
}
