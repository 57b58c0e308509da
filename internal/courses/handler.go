package courses

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumina-lms/backend/internal/middleware"
	"github.com/lumina-lms/backend/internal/models"
	"github.com/lumina-lms/backend/internal/tracking"
	"github.com/lumina-lms/backend/pkg/response"
)

// CreateRequest is the body for POST /courses.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Level       string `json:"level"`
	CoverURL    string `json:"cover_url"`
	Published   bool   `json:"published"`
}

// UpdateRequest is the body for PATCH /courses/:id.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Level       *string `json:"level"`
	CoverURL    *string `json:"cover_url"`
	Published   *bool   `json:"published"`
}

// Handler handles course HTTP endpoints.
type Handler struct {
	repo    *Repository
	tracker tracking.Tracker
}

// NewHandler creates a course handler.
func NewHandler(repo *Repository, tracker tracking.Tracker) *Handler {
	return &Handler{repo: repo, tracker: tracker}
}

// ParseID parses a course or lesson path parameter.
func ParseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// List handles GET /courses. Query ?q= filters the catalog and records a
// search event; ?mine=1 returns the caller's own courses instead.
func (h *Handler) List(c *gin.Context) {
	if c.Query("mine") == "1" {
		uid := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		list, err := h.repo.ListByCreator(c.Request.Context(), uid)
		if err != nil {
			response.Internal(c, "failed to list courses")
			return
		}
		response.OK(c, list)
		return
	}

	query := c.Query("q")
	list, err := h.repo.Search(c.Request.Context(), query)
	if err != nil {
		response.Internal(c, "failed to list courses")
		return
	}

	if query != "" {
		actor := tracking.ActorFromContext(c)
		_ = h.tracker.Track(c.Request.Context(),
			tracking.Search(actor, query, len(list), tracking.ClientFromRequest(c, tracking.ClientPayload{})))
	}
	response.OK(c, list)
}

// GetByID handles GET /courses/:id and records a course-viewed event.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	course, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "course not found")
		return
	}

	actor := tracking.ActorFromContext(c)
	_ = h.tracker.Track(c.Request.Context(),
		tracking.CourseViewed(actor, course.ID, course.Title, tracking.ClientFromRequest(c, tracking.ClientPayload{})))

	response.OK(c, course)
}

// Create handles POST /courses (instructor/admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	level := req.Level
	if level == "" {
		level = "beginner"
	}
	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Level:       level,
		CoverURL:    req.CoverURL,
		Published:   req.Published,
		CreatedBy:   userID,
	}
	if err := h.repo.Create(c.Request.Context(), course); err != nil {
		response.Internal(c, "failed to create course")
		return
	}
	response.Created(c, course)
}

// Update handles PATCH /courses/:id (creator or admin).
func (h *Handler) Update(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	course, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "course not found")
		return
	}
	if !h.canManage(c, course) {
		response.Forbidden(c, "only the course creator or an admin can modify the course")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	if req.Level != nil {
		course.Level = *req.Level
	}
	if req.CoverURL != nil {
		course.CoverURL = *req.CoverURL
	}
	if req.Published != nil {
		course.Published = *req.Published
	}
	if err := h.repo.Update(c.Request.Context(), course); err != nil {
		response.Internal(c, "failed to update course")
		return
	}
	response.OK(c, course)
}

// Delete handles DELETE /courses/:id (creator or admin).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}
	course, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "course not found")
		return
	}
	if !h.canManage(c, course) {
		response.Forbidden(c, "only the course creator or an admin can delete the course")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete course")
		return
	}
	response.NoContent(c)
}

func (h *Handler) canManage(c *gin.Context, course *models.Course) bool {
	role, _ := c.MustGet(middleware.ContextUserRole).(string)
	if role == string(models.RoleAdmin) {
		return true
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	return course.CreatedBy == userID
}
