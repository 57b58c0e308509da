package enrollments

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumina-lms/backend/internal/courses"
	"github.com/lumina-lms/backend/internal/middleware"
	"github.com/lumina-lms/backend/internal/models"
	"github.com/lumina-lms/backend/internal/tracking"
	"github.com/lumina-lms/backend/pkg/response"
)

// store is the persistence surface the handler needs from Repository.
type store interface {
	Enroll(ctx context.Context, courseID int64, userID uuid.UUID) (*models.Enrollment, error)
	Unenroll(ctx context.Context, courseID int64, userID uuid.UUID) error
	IsEnrolled(ctx context.Context, courseID int64, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.EnrolledCourse, error)
}

// courseCatalog resolves the course being enrolled in.
type courseCatalog interface {
	GetByID(ctx context.Context, id int64) (*models.Course, error)
}

// Handler handles enrollment HTTP endpoints.
type Handler struct {
	repo    store
	courses courseCatalog
	tracker tracking.Tracker
}

// NewHandler creates an enrollments handler.
func NewHandler(repo store, courseRepo courseCatalog, tracker tracking.Tracker) *Handler {
	return &Handler{repo: repo, courses: courseRepo, tracker: tracker}
}

// EnrollRequest carries the optional client block sent by the dashboard.
type EnrollRequest struct {
	Client tracking.ClientPayload `json:"client"`
}

// Enroll handles POST /courses/:id/enroll.
func (h *Handler) Enroll(c *gin.Context) {
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	course, err := h.courses.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "course not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	already, err := h.repo.IsEnrolled(c.Request.Context(), id, userID)
	if err != nil {
		response.Internal(c, "failed to enroll")
		return
	}

	enrollment, err := h.repo.Enroll(c.Request.Context(), id, userID)
	if err != nil {
		response.Internal(c, "failed to enroll")
		return
	}

	// A repeat click returns the existing enrollment and emits nothing.
	if already {
		response.OK(c, enrollment)
		return
	}

	var req EnrollRequest
	_ = c.ShouldBindJSON(&req)

	actor := tracking.ActorFromContext(c)
	_ = h.tracker.Track(c.Request.Context(),
		tracking.Engagement(actor, "Enroll button", "Course: "+course.Title, &course.ID,
			models.AdditionalData{"course_title": course.Title},
			tracking.ClientFromRequest(c, req.Client)))

	response.Created(c, enrollment)
}

// Unenroll handles DELETE /courses/:id/enroll.
func (h *Handler) Unenroll(c *gin.Context) {
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.repo.Unenroll(c.Request.Context(), id, userID); err != nil {
		response.Internal(c, "failed to unenroll")
		return
	}
	response.NoContent(c)
}

// MyCourses handles GET /my/courses.
func (h *Handler) MyCourses(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list enrollments")
		return
	}
	if list == nil {
		list = []models.EnrolledCourse{}
	}
	response.OK(c, list)
}
