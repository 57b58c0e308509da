package tracking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestObserver builds an observer whose session provider shares its
// store with the tracker, as in production wiring.
func newTestObserver(sink *memSink) *Observer {
	store := newMemStore()
	tr := newTestTracker(sink, store)
	sessions := NewSessions(store, time.Hour, zap.NewNop())
	return NewObserver(tr, sessions, 2*time.Second, 5, zap.NewNop())
}

// seedSession registers a token in the observer's store so a client
// presenting it is treated as an established session.
func seedSession(o *Observer, token string) {
	_ = o.sessions.store.PutSession(context.Background(), token, time.Hour)
}

// eventNames extracts the recorded event names in insertion order.
func eventNames(sink *memSink) []string {
	var names []string
	for _, e := range sink.all() {
		names = append(names, e.EventName)
	}
	return names
}

func TestPageViewDedupsSamePath(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	res := o.PageView(ctx, testActor(), "/courses/3", "Go Basics", client)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Event)

	repeat := o.PageView(ctx, testActor(), "/courses/3", "Go Basics", client)
	assert.Nil(t, repeat.Event)
	assert.NoError(t, repeat.Err)
	assert.Equal(t, 1, sink.count())
}

func TestPageViewPathChangeEmitsViewThenNavigation(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	o.PageView(ctx, testActor(), "/courses", "Catalog", client)
	o.PageView(ctx, testActor(), "/courses/3", "Go Basics", client)

	assert.Equal(t, []string{"Page viewed", "Page viewed", "Page navigation"}, eventNames(sink))

	nav := sink.all()[2]
	assert.Equal(t, "/courses", nav.Additional["from"])
	assert.Equal(t, "/courses/3", nav.Additional["to"])
}

func TestPageViewPathChangeResetsLifecycle(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	o.PageView(ctx, testActor(), "/a", "A", client)
	o.PageView(ctx, testActor(), "/b", "B", client)

	// Returning to a previously seen path is a fresh view, not a duplicate.
	res := o.PageView(ctx, testActor(), "/a", "A", client)
	assert.NotNil(t, res.Event)
}

func TestUnloadRequiresMinimumDwell(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return base }
	o.PageView(ctx, testActor(), "/a", "A", client)

	o.now = func() time.Time { return base.Add(1 * time.Second) }
	res := o.Unload(ctx, testActor(), "/a", client)
	assert.Nil(t, res.Event)
	assert.NoError(t, res.Err)

	o.now = func() time.Time { return base.Add(3 * time.Second) }
	res = o.Unload(ctx, testActor(), "/a", client)
	require.NotNil(t, res.Event)
	assert.Equal(t, "Page unloaded", res.Event.EventName)
	assert.Equal(t, 3, res.Event.Additional["time_on_page_sec"])
}

func TestUnloadEmitsAtMostOncePerPage(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return base }
	o.PageView(ctx, testActor(), "/a", "A", client)

	o.now = func() time.Time { return base.Add(5 * time.Second) }
	first := o.Unload(ctx, testActor(), "/a", client)
	require.NotNil(t, first.Event)

	second := o.Unload(ctx, testActor(), "/a", client)
	assert.Nil(t, second.Event)
}

func TestUnloadWithoutPageViewIsNoop(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	seedSession(o, "sess-1")

	res := o.Unload(context.Background(), testActor(), "/a", testClient("sess-1"))
	assert.Nil(t, res.Event)
	assert.NoError(t, res.Err)
	assert.Zero(t, sink.count())
}

func TestCaptureErrorCapsPerPage(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	o.PageView(ctx, testActor(), "/a", "A", client)
	for i := 0; i < 10; i++ {
		o.CaptureError(ctx, testActor(), fmt.Sprintf("boom %d", i), "/a", "stack", client)
	}

	errorsRecorded := 0
	for _, name := range eventNames(sink) {
		if name == "Error captured" {
			errorsRecorded++
		}
	}
	assert.Equal(t, 5, errorsRecorded)
}

func TestCaptureErrorCapResetsOnNavigation(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	o.PageView(ctx, testActor(), "/a", "A", client)
	for i := 0; i < 7; i++ {
		o.CaptureError(ctx, testActor(), "boom", "/a", "stack", client)
	}
	o.PageView(ctx, testActor(), "/b", "B", client)

	res := o.CaptureError(ctx, testActor(), "boom again", "/b", "stack", client)
	assert.NotNil(t, res.Event)
}

func TestCaptureErrorFiltersNoise(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	res := o.CaptureError(ctx, testActor(),
		"ResizeObserver loop completed with undelivered notifications.", "/a", "", client)
	assert.Nil(t, res.Event)

	res = o.CaptureError(ctx, testActor(), "Script error.", "/a", "", client)
	assert.Nil(t, res.Event)

	assert.Zero(t, sink.count())
}

func TestObserverStatePerSession(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	seedSession(o, "sess-2")

	// Two sessions viewing the same path each record their own page view.
	o.PageView(ctx, testActor(), "/a", "A", testClient("sess-1"))
	o.PageView(ctx, testActor(), "/a", "A", testClient("sess-2"))
	assert.Equal(t, 2, sink.count())
}

func TestPageViewNewClientsGetDistinctSessions(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()

	// Two clients arriving without a token are separate sessions; neither
	// first view is a duplicate of the other's.
	first := o.PageView(ctx, testActor(), "/a", "A", testClient(""))
	second := o.PageView(ctx, testActor(), "/a", "A", testClient(""))

	require.NotNil(t, first.Event)
	require.NotNil(t, second.Event)
	assert.Equal(t, 2, sink.count())
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestObserverSessionMatchesRecordedEvent(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)

	res := o.PageView(context.Background(), testActor(), "/a", "A", testClient(""))
	require.NotNil(t, res.Event)
	require.NotEmpty(t, res.SessionID)
	assert.Equal(t, res.SessionID, res.Event.SessionID)
}

func TestCaptureErrorCapIsPerSession(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()

	// One token-less client adopts its resolved session and exhausts the cap.
	noisy := testClient("")
	first := o.CaptureError(ctx, testActor(), "boom 0", "/a", "stack", noisy)
	require.NotNil(t, first.Event)
	noisy.SessionID = first.SessionID
	for i := 1; i < 8; i++ {
		o.CaptureError(ctx, testActor(), fmt.Sprintf("boom %d", i), "/a", "stack", noisy)
	}

	// A different first-contact client still gets its first error recorded.
	res := o.CaptureError(ctx, testActor(), "other boom", "/a", "stack", testClient(""))
	require.NotNil(t, res.Event)
	assert.NotEqual(t, first.SessionID, res.SessionID)
	assert.Equal(t, 6, sink.count())
}

func TestDroppedBeaconStillCarriesSession(t *testing.T) {
	sink := &memSink{}
	o := newTestObserver(sink)
	ctx := context.Background()
	seedSession(o, "sess-1")
	client := testClient("sess-1")

	o.PageView(ctx, testActor(), "/a", "A", client)
	repeat := o.PageView(ctx, testActor(), "/a", "A", client)

	assert.Nil(t, repeat.Event)
	assert.Equal(t, "sess-1", repeat.SessionID)
}
