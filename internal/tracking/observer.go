package tracking

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// noisyErrorFragments are known-noisy client error categories that are not
// worth recording.
var noisyErrorFragments = []string{
	"ResizeObserver loop",
	"Script error.",
}

const observerMaxSessions = 4096

// Observer enforces page-lifecycle tracking semantics over raw client
// beacons: one page view per path, at most one unload per page lifetime
// (and only after a minimum dwell), and a hard cap on captured errors.
// Every beacon resolves its session before any state is consulted, so
// lifecycle state is keyed by the established token and never by the raw
// candidate a client happens to send.
type Observer struct {
	tracker   Tracker
	sessions  *Sessions
	minUnload time.Duration
	maxErrors int
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.Mutex
	pages map[string]*pageState // keyed by resolved session token
}

type pageState struct {
	path       string
	viewedAt   time.Time
	unloadSent bool
	errorCount int
	lastSeen   time.Time
}

// NewObserver creates an interaction observer. The sessions provider must
// share its store with the tracker so both resolve a candidate token to the
// same session.
func NewObserver(tracker Tracker, sessions *Sessions, minUnload time.Duration, maxErrors int, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		tracker:   tracker,
		sessions:  sessions,
		minUnload: minUnload,
		maxErrors: maxErrors,
		logger:    logger,
		now:       time.Now,
		pages:     make(map[string]*pageState),
	}
}

// resolve establishes the session for a beacon and rewrites the client's
// candidate token with it, so the descriptor handed to the tracker carries
// the same session the lifecycle state is keyed by.
func (o *Observer) resolve(ctx context.Context, client *ClientInfo) string {
	sessionID, _ := o.sessions.GetOrCreate(ctx, client.SessionID)
	client.SessionID = sessionID
	return sessionID
}

// PageView records a page view once per path. A repeat beacon for the
// current path is dropped; a path change restarts the page lifecycle and
// additionally emits a navigation event after the page view.
func (o *Observer) PageView(ctx context.Context, actor Actor, path, title string, client ClientInfo) Result {
	sessionID := o.resolve(ctx, &client)
	now := o.now()

	o.mu.Lock()
	st := o.pages[sessionID]
	if st != nil && st.path == path {
		st.lastSeen = now
		o.mu.Unlock()
		return Result{SessionID: sessionID}
	}
	prevPath := ""
	if st != nil {
		prevPath = st.path
	}
	o.pages[sessionID] = &pageState{path: path, viewedAt: now, lastSeen: now}
	o.pruneLocked(now)
	o.mu.Unlock()

	res := o.tracker.Track(ctx, PageViewed(actor, path, title, client))
	if prevPath != "" {
		// Page view first, then the navigation event for the same transition.
		_ = o.tracker.Track(ctx, Navigation(actor, prevPath, path, client))
	}
	res.SessionID = sessionID
	return res
}

// Unload records page teardown at most once per page lifetime, and only
// when the page was open longer than the minimum dwell.
func (o *Observer) Unload(ctx context.Context, actor Actor, path string, client ClientInfo) Result {
	sessionID := o.resolve(ctx, &client)
	now := o.now()

	o.mu.Lock()
	st := o.pages[sessionID]
	if st == nil || st.unloadSent {
		o.mu.Unlock()
		return Result{SessionID: sessionID}
	}
	elapsed := now.Sub(st.viewedAt)
	if elapsed < o.minUnload {
		o.mu.Unlock()
		return Result{SessionID: sessionID}
	}
	st.unloadSent = true
	st.lastSeen = now
	o.mu.Unlock()

	res := o.tracker.Track(ctx, PageUnloaded(actor, path, elapsed, client))
	res.SessionID = sessionID
	return res
}

// CaptureError records an uncaught client error, filtering known-noisy
// categories and capping volume per page lifetime.
func (o *Observer) CaptureError(ctx context.Context, actor Actor, message, source, stack string, client ClientInfo) Result {
	sessionID := o.resolve(ctx, &client)
	for _, fragment := range noisyErrorFragments {
		if strings.Contains(message, fragment) {
			return Result{SessionID: sessionID}
		}
	}

	now := o.now()
	o.mu.Lock()
	st := o.pages[sessionID]
	if st == nil {
		st = &pageState{viewedAt: now, lastSeen: now}
		o.pages[sessionID] = st
	}
	if st.errorCount >= o.maxErrors {
		st.lastSeen = now
		o.mu.Unlock()
		return Result{SessionID: sessionID}
	}
	st.errorCount++
	st.lastSeen = now
	o.mu.Unlock()

	res := o.tracker.Track(ctx, ErrorCaptured(actor, message, source, stack, client))
	res.SessionID = sessionID
	return res
}

// pruneLocked bounds memory under many concurrent sessions. Caller holds mu.
func (o *Observer) pruneLocked(now time.Time) {
	if len(o.pages) <= observerMaxSessions {
		return
	}
	cutoff := now.Add(-time.Hour)
	for key, st := range o.pages {
		if st.lastSeen.Before(cutoff) {
			delete(o.pages, key)
		}
	}
}
