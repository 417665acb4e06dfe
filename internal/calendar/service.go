package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Resolution is the outcome of a successful event resolution: the enriched
// event plus which backend supplied it and whether the cascade fell through.
type Resolution struct {
	Event        Event  `json:"event"`
	Backend      string `json:"backend"`
	FallbackUsed bool   `json:"fallback_used"`
}

// Service runs the backend cascade and the selectors on top of it.
type Service struct {
	backends []Backend
	logger   *slog.Logger
}

// ServiceOption is a functional option for configuring a [Service].
type ServiceOption func(*Service)

// WithBackends replaces the default eventkit, jxa, icalbuddy cascade.
func WithBackends(backends ...Backend) ServiceOption {
	return func(s *Service) { s.backends = backends }
}

// WithLogger sets the logger used for cascade diagnostics.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService builds a Service with the standard three-backend cascade.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		backends: []Backend{&EventKitBackend{}, &JXABackend{}, &ICalBuddyBackend{}},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FetchCascade walks the backends in order. An unavailable backend or an
// empty result advances to the next one; any other error surfaces as a
// [ResolutionError] for the failing backend. The returned backend name is
// the one whose list was used, and fallbackUsed reports whether that was
// not the primary.
func (s *Service) FetchCascade(ctx context.Context, start, end time.Time) (events []Event, backend string, fallbackUsed bool, err error) {
	backend = s.backends[0].Name()
	for i, b := range s.backends {
		fetched, fetchErr := b.FetchEvents(ctx, start, end)
		if fetchErr != nil {
			var unavailable *UnavailableError
			if errors.As(fetchErr, &unavailable) {
				s.logger.Debug("calendar backend unavailable",
					"backend", b.Name(), "reason", unavailable.Reason)
				continue
			}
			return nil, "", false, newResolutionError(b.Name(), fetchErr.Error())
		}
		backend = b.Name()
		if len(fetched) == 0 {
			s.logger.Debug("calendar backend returned no events", "backend", b.Name())
			continue
		}
		s.logger.Debug("calendar backend supplied events",
			"backend", b.Name(), "count", len(fetched))
		return fetched, b.Name(), i > 0, nil
	}
	return nil, backend, backend != s.backends[0].Name(), nil
}

// ResolveNowOrNext picks the ongoing event at now, or the next one starting
// within window.
func (s *Service) ResolveNowOrNext(ctx context.Context, now time.Time, window time.Duration) (Resolution, error) {
	events, backend, fallback, err := s.FetchCascade(ctx, now.Add(-time.Hour), now.Add(window+time.Hour))
	if err != nil {
		return Resolution{}, err
	}
	selected := SelectNowOrNext(events, now, window)
	if selected == nil {
		return Resolution{}, newResolutionError(backend, "No ongoing/upcoming event in window")
	}
	return Resolution{Event: Enrich(*selected), Backend: backend, FallbackUsed: fallback}, nil
}

// ResolveNearest picks the unambiguous event closest to t within window,
// for backfill matching.
func (s *Service) ResolveNearest(ctx context.Context, t time.Time, window time.Duration) (Resolution, error) {
	events, backend, fallback, err := s.FetchCascade(ctx, t.Add(-window), t.Add(window))
	if err != nil {
		return Resolution{}, err
	}
	selected := SelectNearestTo(events, t, window)
	if selected == nil {
		return Resolution{}, newResolutionError(backend, "No unambiguous event near timestamp")
	}
	return Resolution{Event: Enrich(*selected), Backend: backend, FallbackUsed: fallback}, nil
}

// CandidatesNear lists up to limit events within window of t ordered by
// distance, for interactive review.
func (s *Service) CandidatesNear(ctx context.Context, t time.Time, window time.Duration, limit int) ([]Candidate, error) {
	events, _, _, err := s.FetchCascade(ctx, t.Add(-window), t.Add(window))
	if err != nil {
		return nil, err
	}
	candidates := RankNearest(events, t, window)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}
