package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/permission"
)

// Notifier receives finished assessments whose state changed.
type Notifier interface {
	StateChanged(ctx context.Context, a *permission.Assessment, kind domain.TransitionKind) error
}

// LogNotifier renders state changes through the structured log. Downgrades
// log at warn so they surface in filtered views.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) StateChanged(_ context.Context, a *permission.Assessment, kind domain.TransitionKind) error {
	var event *zerolog.Event
	if kind == domain.TransitionDowngrade {
		event = log.Warn()
	} else {
		event = log.Info()
	}
	event = event.
		Str("asset", a.Asset).
		Str("state", string(a.State)).
		Str("transition", string(kind)).
		Str("decided_by", a.DecidedBy).
		Str("uncertainty", string(a.Uncertainty)).
		Int("conflicts", len(a.Conflicts))
	if a.Explanation != nil {
		event = event.Str("observation", a.Explanation.CurrentObservation)
	}
	event.Msg("Permission state changed")
	return nil
}

// RateLimited wraps a notifier with a per-asset token bucket so a flapping
// asset cannot flood the channel. Downgrades always pass; losing access is
// the one alert that must never be dropped.
type RateLimited struct {
	inner    Notifier
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimited(inner Notifier, perHour float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:    inner,
		limit:    rate.Limit(perHour / 3600.0),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (n *RateLimited) limiterFor(asset string) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.limiters[asset]
	if !ok {
		l = rate.NewLimiter(n.limit, n.burst)
		n.limiters[asset] = l
	}
	return l
}

func (n *RateLimited) StateChanged(ctx context.Context, a *permission.Assessment, kind domain.TransitionKind) error {
	if kind != domain.TransitionDowngrade && !n.limiterFor(a.Asset).Allow() {
		log.Debug().Str("asset", a.Asset).Str("state", string(a.State)).Msg("Notification suppressed by rate limit")
		return nil
	}
	return n.inner.StateChanged(ctx, a, kind)
}

// Fanout delivers to several notifiers, returning the first error after
// attempting all of them.
type Fanout []Notifier

func (f Fanout) StateChanged(ctx context.Context, a *permission.Assessment, kind domain.TransitionKind) error {
	var firstErr error
	for _, n := range f {
		if err := n.StateChanged(ctx, a, kind); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*RateLimited)(nil)
	_ Notifier = (Fanout)(nil)
)
