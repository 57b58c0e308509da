package lessons

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumina-lms/backend/internal/courses"
	"github.com/lumina-lms/backend/internal/models"
	"github.com/lumina-lms/backend/internal/tracking"
	"github.com/lumina-lms/backend/pkg/response"
	"github.com/lumina-lms/backend/pkg/storage"
)

// CreateRequest is the body for POST /courses/:id/lessons.
type CreateRequest struct {
	Title string          `json:"title" binding:"required"`
	Kind  string          `json:"kind" binding:"required,oneof=text video quiz"`
	Body  string          `json:"body"`
	Quiz  json.RawMessage `json:"quiz"`
}

// UpdateRequest is the body for PATCH /lessons/:id.
type UpdateRequest struct {
	Title    *string         `json:"title"`
	Body     *string         `json:"body"`
	Position *int            `json:"position"`
	Quiz     json.RawMessage `json:"quiz"`
}

// VideoEventRequest is the body for POST /lessons/:id/video/events.
type VideoEventRequest struct {
	Action      string                 `json:"action" binding:"required,oneof=played paused seeked ended"`
	PositionSec float64                `json:"position_sec"`
	Client      tracking.ClientPayload `json:"client"`
}

// Handler handles lesson HTTP endpoints.
type Handler struct {
	repo       *Repository
	courseRepo *courses.Repository
	s3         *storage.S3
	tracker    tracking.Tracker
	logger     *zap.Logger
}

// NewHandler creates a lesson handler. s3 may be nil when object storage is
// not configured; video endpoints then answer 503.
func NewHandler(repo *Repository, courseRepo *courses.Repository, s3 *storage.S3, tracker tracking.Tracker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, courseRepo: courseRepo, s3: s3, tracker: tracker, logger: logger}
}

// lessonView is a lesson plus a presigned playback URL when available.
type lessonView struct {
	models.Lesson
	VideoURL string `json:"video_url,omitempty"`
}

// ListByCourse handles GET /courses/:id/lessons.
func (h *Handler) ListByCourse(c *gin.Context) {
	courseID, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	list, err := h.repo.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Internal(c, "failed to list lessons")
		return
	}
	response.OK(c, gin.H{"lessons": list})
}

// GetByID handles GET /lessons/:id. Ready videos get a presigned playback URL.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "lesson not found")
		return
	}

	view := lessonView{Lesson: *lesson}
	if h.s3 != nil && lesson.VideoStatus == models.VideoStatusReady && lesson.VideoKey != nil {
		url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), *lesson.VideoKey, h.s3.PresignExpire())
		if err != nil {
			h.logger.Warn("presign playback url failed", zap.Error(err), zap.Int64("lesson_id", lesson.ID))
		} else {
			view.VideoURL = url
		}
	}
	response.OK(c, view)
}

// Create handles POST /courses/:id/lessons (instructor/admin).
func (h *Handler) Create(c *gin.Context) {
	courseID, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.courseRepo.GetByID(c.Request.Context(), courseID); err != nil {
		response.NotFound(c, "course not found")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	lesson := &models.Lesson{
		CourseID:    courseID,
		Title:       req.Title,
		Kind:        models.LessonKind(req.Kind),
		Body:        req.Body,
		Quiz:        req.Quiz,
		VideoStatus: models.VideoStatusNone,
	}
	if err := h.repo.Create(c.Request.Context(), lesson); err != nil {
		response.Internal(c, "failed to create lesson")
		return
	}
	response.Created(c, lesson)
}

// Update handles PATCH /lessons/:id (instructor/admin).
func (h *Handler) Update(c *gin.Context) {
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "lesson not found")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Title != nil {
		lesson.Title = *req.Title
	}
	if req.Body != nil {
		lesson.Body = *req.Body
	}
	if req.Position != nil {
		lesson.Position = *req.Position
	}
	if len(req.Quiz) > 0 {
		lesson.Quiz = req.Quiz
	}
	if err := h.repo.Update(c.Request.Context(), lesson); err != nil {
		response.Internal(c, "failed to update lesson")
		return
	}
	response.OK(c, lesson)
}

// Delete handles DELETE /lessons/:id (instructor/admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "lesson not found")
		return
	}
	if h.s3 != nil && lesson.VideoKey != nil {
		if err := h.s3.DeleteObject(c.Request.Context(), *lesson.VideoKey); err != nil {
			h.logger.Warn("delete video object failed", zap.Error(err), zap.String("key", *lesson.VideoKey))
		}
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete lesson")
		return
	}
	response.NoContent(c)
}

// GenerateUploadURL handles POST /lessons/:id/video/upload-url
// (instructor/admin): presigned PUT for direct browser upload.
func (h *Handler) GenerateUploadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "object storage not configured")
		return
	}
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "lesson not found")
		return
	}

	var req struct {
		ContentType string `json:"content_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.ValidateVideoType(req.ContentType) {
		response.BadRequest(c, "unsupported video content type")
		return
	}

	key := storage.VideoKey(lesson.CourseID, lesson.ID)
	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), key, req.ContentType, h.s3.PresignExpire())
	if err != nil {
		response.Internal(c, "failed to generate upload url")
		return
	}
	if err := h.repo.SetVideoProcessing(c.Request.Context(), lesson.ID, key); err != nil {
		response.Internal(c, "failed to update lesson")
		return
	}
	response.OK(c, gin.H{"upload_url": url, "key": key})
}

// ConfirmUpload handles POST /lessons/:id/video/confirm (instructor/admin):
// verifies the object landed and marks the video ready.
func (h *Handler) ConfirmUpload(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "object storage not configured")
		return
	}
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "lesson not found")
		return
	}
	if lesson.VideoKey == nil {
		response.BadRequest(c, "no upload in progress")
		return
	}

	var req struct {
		DurationSec int `json:"duration_sec"`
	}
	_ = c.ShouldBindJSON(&req)

	if _, err := h.s3.HeadObject(c.Request.Context(), *lesson.VideoKey); err != nil {
		response.BadRequest(c, "video object not found in storage")
		return
	}
	if err := h.repo.SetVideoReady(c.Request.Context(), lesson.ID, *lesson.VideoKey, req.DurationSec); err != nil {
		response.Internal(c, "failed to update lesson")
		return
	}
	response.OK(c, gin.H{"status": models.VideoStatusReady})
}

// VideoEvent handles POST /lessons/:id/video/events: playback actions from
// the player, recorded through the tracking pipeline.
func (h *Handler) VideoEvent(c *gin.Context) {
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "lesson not found")
		return
	}

	var req VideoEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	actor := tracking.ActorFromContext(c)
	res := h.tracker.Track(c.Request.Context(), tracking.VideoAction(
		actor, lesson.CourseID, lesson.ID, lesson.Title, req.Action, req.PositionSec,
		tracking.ClientFromRequest(c, req.Client)))
	if res.Event != nil {
		c.Header(tracking.SessionHeader, res.Event.SessionID)
	}
	response.OK(c, gin.H{"recorded": res.Event != nil && res.Err == nil})
}
