// Package stats derives aggregate recognition metrics from the event log.
// There is no mutable state here: every call recomputes from the store,
// which is cheap at dashboard event volumes.
package stats

import (
	"fmt"
	"math"
	"time"

	"facetrack-go/internal/core/models"
	"facetrack-go/internal/db/repository"
)

// Aggregator folds the recognition event history into derived metrics.
type Aggregator struct {
	events     repository.EventStore
	identities repository.IdentityStore
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(events repository.EventStore, identities repository.IdentityStore) *Aggregator {
	return &Aggregator{
		events:     events,
		identities: identities,
	}
}

// Compute returns the current statistics. The average confidence is rounded
// to an integer percentage for display and is 0 for an empty log.
func (a *Aggregator) Compute() (models.Statistics, error) {
	var s models.Statistics
	var err error

	if s.TotalDetections, err = a.events.CountAll(); err != nil {
		return s, fmt.Errorf("stats: %w", err)
	}
	if s.RecognizedFaces, err = a.events.CountRecognized(true); err != nil {
		return s, fmt.Errorf("stats: %w", err)
	}
	if s.UnknownFaces, err = a.events.CountRecognized(false); err != nil {
		return s, fmt.Errorf("stats: %w", err)
	}

	avg, err := a.events.AverageConfidence()
	if err != nil {
		return s, fmt.Errorf("stats: %w", err)
	}
	s.AverageConfidence = int(math.Round(avg))

	if s.TodayDetections, err = a.events.CountSince(startOfToday()); err != nil {
		return s, fmt.Errorf("stats: %w", err)
	}
	if s.KnownIdentities, err = a.identities.CountActive(); err != nil {
		return s, fmt.Errorf("stats: %w", err)
	}

	return s, nil
}

// startOfToday returns local midnight; the "today" boundary is inclusive.
func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
