package tracking

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumina-lms/backend/internal/middleware"
	"github.com/lumina-lms/backend/internal/models"
	"github.com/lumina-lms/backend/pkg/response"
)

// SessionHeader carries the client's session token in both directions.
const SessionHeader = "X-Session-ID"

// ClientPayload is the browser context block every beacon may include.
type ClientPayload struct {
	Referrer         string `json:"referrer"`
	Locale           string `json:"locale"`
	Timezone         string `json:"timezone"`
	TimezoneOffset   int    `json:"timezone_offset"`
	ScreenResolution string `json:"screen_resolution"`
	Viewport         string `json:"viewport"`
}

// EventRequest is the body for POST /track/events.
type EventRequest struct {
	EventContext string                `json:"event_context"`
	Component    string                `json:"component"`
	EventName    string                `json:"event_name" binding:"required"`
	Description  string                `json:"description"`
	PageURL      string                `json:"page_url"`
	CourseID     *int64                `json:"course_id"`
	LessonID     *int64                `json:"lesson_id"`
	Additional   models.AdditionalData `json:"additional_data"`
	Client       ClientPayload         `json:"client"`
}

// PageViewRequest is the body for POST /track/pageview and /track/unload.
type PageViewRequest struct {
	Path   string        `json:"path" binding:"required"`
	Title  string        `json:"title"`
	Client ClientPayload `json:"client"`
}

// ErrorRequest is the body for POST /track/errors.
type ErrorRequest struct {
	Message string        `json:"message" binding:"required"`
	Source  string        `json:"source"`
	Stack   string        `json:"stack"`
	Client  ClientPayload `json:"client"`
}

// Handler exposes the tracking beacon endpoints. Every endpoint answers
// with a success envelope whatever the tracking outcome; failures are
// logged, never surfaced.
type Handler struct {
	tracker  Tracker
	observer *Observer
	repo     *Repository
	logger   *zap.Logger
}

// NewHandler creates a tracking handler.
func NewHandler(tracker Tracker, observer *Observer, repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{tracker: tracker, observer: observer, repo: repo, logger: logger}
}

// ClientFromRequest assembles ClientInfo from the request and an optional
// beacon client block.
func ClientFromRequest(c *gin.Context, p ClientPayload) ClientInfo {
	return ClientInfo{
		SessionID:         c.GetHeader(SessionHeader),
		RemoteAddr:        c.ClientIP(),
		UserAgent:         c.Request.UserAgent(),
		Referrer:          p.Referrer,
		Locale:            p.Locale,
		Timezone:          p.Timezone,
		TimezoneOffsetMin: p.TimezoneOffset,
		ScreenResolution:  p.ScreenResolution,
		Viewport:          p.Viewport,
	}
}

// ActorFromContext reads the authenticated actor set by the JWT middleware.
func ActorFromContext(c *gin.Context) Actor {
	var actor Actor
	if v, ok := c.Get(middleware.ContextUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.ID = id
		}
	}
	if v, ok := c.Get(middleware.ContextUserEmail); ok {
		actor.Email, _ = v.(string)
	}
	return actor
}

// TrackEvent handles POST /track/events.
func (h *Handler) TrackEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	component := models.Component(req.Component)
	if component == "" {
		component = models.ComponentInteraction
	}
	res := h.tracker.Track(c.Request.Context(), Descriptor{
		Actor:        ActorFromContext(c),
		EventContext: req.EventContext,
		Component:    component,
		EventName:    req.EventName,
		Description:  req.Description,
		PageURL:      req.PageURL,
		CourseID:     req.CourseID,
		LessonID:     req.LessonID,
		Additional:   req.Additional,
		Client:       ClientFromRequest(c, req.Client),
	})
	h.respond(c, res)
}

// PageView handles POST /track/pageview.
func (h *Handler) PageView(c *gin.Context) {
	var req PageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res := h.observer.PageView(c.Request.Context(), ActorFromContext(c), req.Path, req.Title, ClientFromRequest(c, req.Client))
	h.respond(c, res)
}

// Unload handles POST /track/unload. Beacon-friendly: replies immediately,
// imposes nothing on the dying page.
func (h *Handler) Unload(c *gin.Context) {
	var req PageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res := h.observer.Unload(c.Request.Context(), ActorFromContext(c), req.Path, ClientFromRequest(c, req.Client))
	h.respond(c, res)
}

// CaptureError handles POST /track/errors.
func (h *Handler) CaptureError(c *gin.Context) {
	var req ErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res := h.observer.CaptureError(c.Request.Context(), ActorFromContext(c), req.Message, req.Source, req.Stack, ClientFromRequest(c, req.Client))
	h.respond(c, res)
}

// ListRecent handles GET /admin/events (admin only).
func (h *Handler) ListRecent(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	list, err := h.repo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, gin.H{"events": list})
}

// respond answers a beacon. The session token is echoed whenever one was
// resolved, dropped beacons included, so first-contact clients can adopt
// it. The recorded flag is diagnostic; clients do not act on it.
func (h *Handler) respond(c *gin.Context, res Result) {
	if res.SessionID != "" {
		c.Header(SessionHeader, res.SessionID)
	}
	response.OK(c, gin.H{"recorded": res.Event != nil && res.Err == nil})
}
