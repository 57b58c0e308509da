package lessons

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumina-lms/backend/pkg/queue"
	"github.com/lumina-lms/backend/pkg/response"
)

// VideoReadyPayload is the expected body from the encoding provider's
// video_ready webhook.
type VideoReadyPayload struct {
	LessonID    int64  `json:"lesson_id" binding:"required"`
	FileURL     string `json:"file_url" binding:"required"`
	DurationSec int    `json:"duration_sec"`
}

// WebhookHandler handles video webhooks from the encoding provider.
type WebhookHandler struct {
	repo   *Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(repo *Repository, q *queue.Queue, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{repo: repo, queue: q, logger: logger}
}

// VideoReady handles POST /webhooks/video-ready. Marks the lesson video as
// processing and enqueues the S3 transfer job for the worker.
func (h *WebhookHandler) VideoReady(c *gin.Context) {
	var body VideoReadyPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	lesson, err := h.repo.GetByID(c.Request.Context(), body.LessonID)
	if err != nil {
		response.NotFound(c, "lesson not found")
		return
	}

	if err := h.repo.SetVideoProcessing(c.Request.Context(), lesson.ID, ""); err != nil {
		h.logger.Error("mark video processing failed", zap.Error(err), zap.Int64("lesson_id", lesson.ID))
		response.Internal(c, "failed to update lesson")
		return
	}

	if err := h.queue.EnqueueVideoUpload(c.Request.Context(), queue.VideoUploadPayload{
		LessonID:    lesson.ID,
		CourseID:    lesson.CourseID,
		SourceURL:   body.FileURL,
		DurationSec: body.DurationSec,
	}); err != nil {
		h.logger.Error("enqueue video upload failed", zap.Error(err), zap.Int64("lesson_id", lesson.ID))
		response.Internal(c, "failed to enqueue upload")
		return
	}

	h.logger.Info("video_ready webhook processed", zap.Int64("lesson_id", lesson.ID), zap.String("file_url", body.FileURL))
	c.JSON(http.StatusOK, gin.H{"success": true, "lesson_id": lesson.ID, "status": "processing"})
}
