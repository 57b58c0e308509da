package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumina-lms/backend/internal/models"
)

// Options configures the tracking pipeline.
type Options struct {
	Enabled     bool
	Origin      string        // source channel, default "web"
	SessionTTL  time.Duration // browsing-session lifetime
	IPEndpoints []string      // ordered public IP lookup services
	IPTimeout   time.Duration // per-endpoint bound
}

// New builds a Tracker. When tracking is disabled by configuration the
// returned implementation is a no-op variant; call sites stay unchanged.
func New(opts Options, sink Sink, store Store, logger *zap.Logger) Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.Enabled {
		logger.Info("clickstream tracking disabled")
		return noopTracker{}
	}
	origin := opts.Origin
	if origin == "" {
		origin = "web"
	}
	return &tracker{
		sink:     sink,
		sessions: NewSessions(store, opts.SessionTTL, logger),
		resolver: NewContextResolver(store, opts.IPEndpoints, opts.IPTimeout, opts.SessionTTL, logger),
		origin:   origin,
		logger:   logger,
		now:      time.Now,
	}
}

type tracker struct {
	sink     Sink
	sessions *Sessions
	resolver *ContextResolver
	origin   string
	logger   *zap.Logger
	now      func() time.Time
}

// Track normalizes the descriptor into a ClickstreamEvent and persists it.
// It never panics; every failure is logged and folded into the Result.
func (t *tracker) Track(ctx context.Context, d Descriptor) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("tracking: recovered: %v", r)
			t.logger.Error("track panicked", zap.Any("panic", r), zap.String("event_name", d.EventName))
			res = Result{Err: err}
		}
	}()

	if d.Actor.ID == uuid.Nil {
		t.logger.Debug("event dropped, no authenticated user", zap.String("event_name", d.EventName))
		return Result{Err: ErrNoUser}
	}

	sessionID, _ := t.sessions.GetOrCreate(ctx, d.Client.SessionID)
	utc := t.now().UTC()
	ip := t.resolver.ResolveIP(ctx, sessionID, d.Client.RemoteAddr)

	event := &models.ClickstreamEvent{
		UserID:       d.Actor.ID,
		Time:         LocalTimeText(utc, d.Client.TimezoneOffsetMin),
		EventContext: d.EventContext,
		Component:    d.Component,
		EventName:    d.EventName,
		Description:  d.Description,
		Origin:       t.origin,
		IPAddress:    &ip,
		SessionID:    sessionID,
		PageURL:      d.PageURL,
		UserAgent:    d.Client.UserAgent,
		Additional:   t.enrich(d),
		CourseID:     d.CourseID,
		LessonID:     d.LessonID,
	}

	if err := t.sink.Insert(ctx, event); err != nil {
		t.logger.Warn("event insert failed",
			zap.Error(err),
			zap.String("event_name", d.EventName),
			zap.String("session_id", sessionID))
		return Result{Event: event, Err: err, SessionID: sessionID}
	}
	return Result{Event: event, SessionID: sessionID}
}

// enrich merges caller-supplied additional data with derived diagnostic
// fields. Diagnostics are written after the merge so callers cannot
// override them.
func (t *tracker) enrich(d Descriptor) models.AdditionalData {
	out := make(models.AdditionalData, len(d.Additional)+8)
	for k, v := range d.Additional {
		out[k] = v
	}

	utc := t.now().UTC()
	parsed := ParseUA(d.Client.UserAgent)
	out["screen_resolution"] = d.Client.ScreenResolution
	out["viewport"] = d.Client.Viewport
	out["timezone"] = d.Client.Timezone
	out["timezone_offset"] = d.Client.TimezoneOffsetMin
	out["timestamp_utc"] = utc.Format(time.RFC3339)
	out["locale"] = d.Client.Locale
	out["referrer"] = d.Client.Referrer
	out["browser"] = parsed.Browser
	out["os"] = parsed.OS
	out["device"] = parsed.Device
	return out
}

// LocalTimeText renders the canonical "time" field: the UTC instant shifted
// by the client's timezone offset and formatted with no zone marker. A
// client at UTC+2 reports offset -120, so the stored text runs two hours
// ahead of UTC. Downstream reports rely on this exact convention.
func LocalTimeText(utc time.Time, offsetMin int) string {
	local := utc.Add(-time.Duration(offsetMin) * time.Minute)
	return local.Format("2006-01-02T15:04:05.000")
}

// noopTracker is the disabled-mode variant: every call is an empty success.
type noopTracker struct{}

func (noopTracker) Track(ctx context.Context, d Descriptor) Result {
	return Result{}
}
