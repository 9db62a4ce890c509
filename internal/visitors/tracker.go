package visitors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"ebook-assistant/internal/telemetry"
	"ebook-assistant/models"
)

var ErrUnknownAction = errors.New("unknown visit action")

// BaselineFunc returns the padding added to the live session count.
type BaselineFunc func(now time.Time) int

// HourlyBaseline pads the count by time of day: 5-12 at peak hours, 2-6
// through the rest of the day and 1-3 at night.
func HourlyBaseline(now time.Time) int {
	switch h := now.Hour(); {
	case (h >= 9 && h <= 11) || (h >= 14 && h <= 17) || (h >= 19 && h <= 22):
		return 5 + rand.IntN(8)
	case h >= 6 && h <= 23:
		return 2 + rand.IntN(5)
	default:
		return 1 + rand.IntN(3)
	}
}

// FallbackSessionID names a session that arrived without an id.
func FallbackSessionID(clientIP string, now time.Time) string {
	return clientIP + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// Tracker estimates how many readers are online. The figure is cosmetic:
// live sessions plus a baseline.
type Tracker struct {
	store    SessionStore
	ttl      time.Duration
	baseline BaselineFunc
	now      func() time.Time
	metrics  *telemetry.Metrics
}

type Option func(*Tracker)

func WithBaseline(fn BaselineFunc) Option {
	return func(t *Tracker) { t.baseline = fn }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(store SessionStore, ttl time.Duration, metrics *telemetry.Metrics, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		ttl:      ttl,
		baseline: HourlyBaseline,
		now:      time.Now,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Stats prunes expired sessions and reports the padded count.
func (t *Tracker) Stats(ctx context.Context) (models.VisitStats, error) {
	now := t.now()
	if _, err := t.store.Prune(ctx, now.Add(-t.ttl)); err != nil {
		return models.VisitStats{}, fmt.Errorf("prune sessions: %w", err)
	}
	active, err := t.store.Count(ctx)
	if err != nil {
		return models.VisitStats{}, fmt.Errorf("count sessions: %w", err)
	}
	return models.VisitStats{
		Count:          active + t.baseline(now),
		ActiveSessions: active,
		Timestamp:      now.UTC(),
	}, nil
}

// Record applies a join, leave or heartbeat for sessionID. A heartbeat for
// an unknown session changes nothing.
func (t *Tracker) Record(ctx context.Context, action, sessionID string) (models.VisitResponse, error) {
	now := t.now()

	var err error
	switch action {
	case models.VisitJoin:
		if err = t.store.Touch(ctx, sessionID, now); err == nil {
			_, err = t.store.Prune(ctx, now.Add(-t.ttl))
		}
	case models.VisitLeave:
		err = t.store.Remove(ctx, sessionID)
	case models.VisitHeartbeat:
		_, err = t.store.Refresh(ctx, sessionID, now)
	default:
		return models.VisitResponse{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err != nil {
		return models.VisitResponse{}, fmt.Errorf("%s session: %w", action, err)
	}
	t.metrics.RecordVisitorEvent(action)

	active, err := t.store.Count(ctx)
	if err != nil {
		return models.VisitResponse{}, fmt.Errorf("count sessions: %w", err)
	}
	baseline := t.baseline(now)
	return models.VisitResponse{
		Count:     max(baseline, active+baseline),
		SessionID: sessionID,
	}, nil
}

// Sweep drops expired sessions; it runs on a schedule so the live count stays
// honest between GETs.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	return t.store.Prune(ctx, t.now().Add(-t.ttl))
}
