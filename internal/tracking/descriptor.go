// Package tracking implements the clickstream event pipeline: session
// identity, client context resolution, event normalization and the
// best-effort sink. Tracking failures never propagate to callers; every
// boundary returns a Result whose error branch the UI layer discards
// deliberately.
package tracking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/lumina-lms/backend/internal/models"
)

// SentinelIP is stored when the public IP cannot be discovered.
const SentinelIP = "unknown"

// ErrNoUser is returned when a descriptor has no authenticated actor.
// Such events are dropped, not queued.
var ErrNoUser = errors.New("tracking: no authenticated user")

// Actor identifies the authenticated user an event is attributed to.
type Actor struct {
	ID    uuid.UUID
	Email string
}

// ClientInfo carries raw browser context captured at emission time.
type ClientInfo struct {
	SessionID         string // candidate session token from the X-Session-ID header
	RemoteAddr        string // transport-level client address
	UserAgent         string
	Referrer          string
	Locale            string
	Timezone          string // IANA zone name reported by the client
	TimezoneOffsetMin int    // JS getTimezoneOffset convention: UTC+2 reports -120
	ScreenResolution  string // e.g. "1920x1080"
	Viewport          string // e.g. "1280x720"
}

// Descriptor is a loosely-typed event description consumed by Track.
type Descriptor struct {
	Actor        Actor
	EventContext string
	Component    models.Component
	EventName    string
	Description  string
	PageURL      string
	CourseID     *int64
	LessonID     *int64
	Additional   models.AdditionalData
	Client       ClientInfo
}

// Result is the outcome of one tracking call. Exactly one of Event/Err is
// meaningful; both nil means the call was a deliberate no-op (tracking
// disabled, duplicate page view, throttled). SessionID carries the resolved
// session token whenever one was established, including no-op outcomes, so
// the transport layer can echo it back to the client.
type Result struct {
	Event     *models.ClickstreamEvent
	Err       error
	SessionID string
}

// Tracker normalizes descriptors and persists them. Implementations never
// panic and never return errors through any channel other than Result.
type Tracker interface {
	Track(ctx context.Context, d Descriptor) Result
}
