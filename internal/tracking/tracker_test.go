package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumina-lms/backend/internal/models"
)

func TestTrackDropsEventsWithoutUser(t *testing.T) {
	sink := &memSink{}
	tr := newTestTracker(sink, newMemStore())

	res := tr.Track(context.Background(), CourseViewed(Actor{}, 3, "Go Basics", testClient("")))
	assert.ErrorIs(t, res.Err, ErrNoUser)
	assert.Nil(t, res.Event)
	assert.Zero(t, sink.count(), "anonymous events must never reach the sink")
}

func TestTrackPersistsNormalizedEvent(t *testing.T) {
	sink := &memSink{}
	tr := newTestTracker(sink, newMemStore())

	res := tr.Track(context.Background(), CourseViewed(testActor(), 3, "Go Basics", testClient("")))
	require.NoError(t, res.Err)
	require.NotNil(t, res.Event)
	require.Equal(t, 1, sink.count())

	e := sink.all()[0]
	assert.Equal(t, testUserID, e.UserID)
	assert.Equal(t, models.ComponentSystem, e.Component)
	assert.Equal(t, "Course viewed", e.EventName)
	assert.Equal(t, "Course: Go Basics", e.EventContext)
	assert.Equal(t, "web", e.Origin)
	assert.NotEmpty(t, e.SessionID)
	require.NotNil(t, e.CourseID)
	assert.Equal(t, int64(3), *e.CourseID)
	require.NotNil(t, e.IPAddress)
	assert.Equal(t, "203.0.113.9", *e.IPAddress)
}

func TestTrackReusesSessionAcrossEvents(t *testing.T) {
	sink := &memSink{}
	tr := newTestTracker(sink, newMemStore())
	ctx := context.Background()

	first := tr.Track(ctx, CourseViewed(testActor(), 1, "A", testClient("")))
	require.NoError(t, first.Err)
	session := first.Event.SessionID

	second := tr.Track(ctx, CourseViewed(testActor(), 2, "B", testClient(session)))
	require.NoError(t, second.Err)
	assert.Equal(t, session, second.Event.SessionID)
}

func TestTrackEnrichesAdditionalData(t *testing.T) {
	sink := &memSink{}
	tr := newTestTracker(sink, newMemStore())

	res := tr.Track(context.Background(), CourseViewed(testActor(), 3, "Go Basics", testClient("")))
	require.NoError(t, res.Err)

	add := res.Event.Additional
	assert.Equal(t, "Go Basics", add["course_title"])
	assert.Equal(t, "1920x1080", add["screen_resolution"])
	assert.Equal(t, "1280x720", add["viewport"])
	assert.Equal(t, "Europe/Berlin", add["timezone"])
	assert.Equal(t, -120, add["timezone_offset"])
	assert.Equal(t, "en-US", add["locale"])
	assert.Equal(t, "Chrome", add["browser"])
	assert.Equal(t, "Windows", add["os"])
	assert.Equal(t, "desktop", add["device"])
	assert.NotEmpty(t, add["timestamp_utc"])
}

func TestTrackDiagnosticsNotOverridable(t *testing.T) {
	sink := &memSink{}
	tr := newTestTracker(sink, newMemStore())

	d := CourseViewed(testActor(), 3, "Go Basics", testClient(""))
	d.Additional["browser"] = "Spoofed"
	d.Additional["timestamp_utc"] = "1999-01-01T00:00:00Z"

	res := tr.Track(context.Background(), d)
	require.NoError(t, res.Err)
	assert.Equal(t, "Chrome", res.Event.Additional["browser"])
	assert.NotEqual(t, "1999-01-01T00:00:00Z", res.Event.Additional["timestamp_utc"])
}

func TestTrackFoldsSinkErrorIntoResult(t *testing.T) {
	sinkErr := errors.New("connection refused")
	sink := &memSink{err: sinkErr}
	tr := newTestTracker(sink, newMemStore())

	res := tr.Track(context.Background(), LoggedIn(testActor(), testClient("")))
	assert.ErrorIs(t, res.Err, sinkErr)
	assert.NotNil(t, res.Event, "the normalized event is still reported alongside the error")
}

func TestTrackRecoversFromPanic(t *testing.T) {
	sink := &memSink{panics: true}
	tr := newTestTracker(sink, newMemStore())

	var res Result
	assert.NotPanics(t, func() {
		res = tr.Track(context.Background(), LoggedIn(testActor(), testClient("")))
	})
	assert.Error(t, res.Err)
}

func TestDisabledTrackerIsNoop(t *testing.T) {
	sink := &memSink{}
	tr := New(Options{Enabled: false}, sink, newMemStore(), zap.NewNop())

	res := tr.Track(context.Background(), LoggedIn(testActor(), testClient("")))
	assert.NoError(t, res.Err)
	assert.Nil(t, res.Event)
	assert.Zero(t, sink.count())
}

func TestLocalTimeText(t *testing.T) {
	utc := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	// A client at UTC+2 reports offset -120; the stored text runs two
	// hours ahead of UTC and carries no zone marker.
	assert.Equal(t, "2024-03-10T14:00:00.000", LocalTimeText(utc, -120))
	assert.Equal(t, "2024-03-10T12:00:00.000", LocalTimeText(utc, 0))
	assert.Equal(t, "2024-03-10T07:00:00.000", LocalTimeText(utc, 300))
}

func TestTrackStoresSentinelIPWhenUnresolvable(t *testing.T) {
	sink := &memSink{}
	tr := newTestTracker(sink, newMemStore())

	client := testClient("")
	client.RemoteAddr = "127.0.0.1:9999"

	res := tr.Track(context.Background(), LoggedIn(testActor(), client))
	require.NoError(t, res.Err)
	require.NotNil(t, res.Event.IPAddress)
	assert.Equal(t, SentinelIP, *res.Event.IPAddress)
}

func TestTrackDefaultsOrigin(t *testing.T) {
	sink := &memSink{}
	tr := New(Options{Enabled: true, SessionTTL: time.Hour}, sink, newMemStore(), zap.NewNop())

	res := tr.Track(context.Background(), LoggedIn(Actor{ID: uuid.New(), Email: "a@b.c"}, testClient("")))
	require.NoError(t, res.Err)
	assert.Equal(t, "web", res.Event.Origin)
}
