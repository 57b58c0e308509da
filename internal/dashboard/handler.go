package dashboard

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumina-lms/backend/internal/enrollments"
	"github.com/lumina-lms/backend/internal/middleware"
	"github.com/lumina-lms/backend/internal/models"
	"github.com/lumina-lms/backend/internal/progress"
	"github.com/lumina-lms/backend/internal/tracking"
	"github.com/lumina-lms/backend/pkg/response"
)

// Summary is the per-user dashboard payload.
type Summary struct {
	EnrolledCourses  int                        `json:"enrolled_courses"`
	CompletedCourses int                        `json:"completed_courses"`
	CompletedLessons int                        `json:"completed_lessons"`
	RecentActivity   []models.ClickstreamEvent  `json:"recent_activity"`
	ActivityByDay    []tracking.DailyCount      `json:"activity_by_day"`
	Courses          []models.EnrolledCourse    `json:"courses"`
}

// Handler serves the aggregated student dashboard.
type Handler struct {
	enrollments *enrollments.Repository
	progress    *progress.Repository
	events      *tracking.Repository
}

// NewHandler creates a dashboard handler.
func NewHandler(enrollRepo *enrollments.Repository, progressRepo *progress.Repository, eventRepo *tracking.Repository) *Handler {
	return &Handler{enrollments: enrollRepo, progress: progressRepo, events: eventRepo}
}

// Get handles GET /dashboard.
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	total, completed, err := h.enrollments.CountByUser(ctx, userID)
	if err != nil {
		response.Internal(c, "failed to load dashboard")
		return
	}
	lessonsDone, err := h.progress.CountCompleted(ctx, userID)
	if err != nil {
		response.Internal(c, "failed to load dashboard")
		return
	}
	courses, err := h.enrollments.ListByUser(ctx, userID)
	if err != nil {
		response.Internal(c, "failed to load dashboard")
		return
	}

	// Activity widgets are best-effort; an empty feed is not an error.
	recent, err := h.events.ListByUser(ctx, userID, 20)
	if err != nil {
		recent = nil
	}
	byDay, err := h.events.CountByDay(ctx, userID, 30)
	if err != nil {
		byDay = nil
	}

	if courses == nil {
		courses = []models.EnrolledCourse{}
	}
	if recent == nil {
		recent = []models.ClickstreamEvent{}
	}
	if byDay == nil {
		byDay = []tracking.DailyCount{}
	}

	response.OK(c, Summary{
		EnrolledCourses:  total,
		CompletedCourses: completed,
		CompletedLessons: lessonsDone,
		RecentActivity:   recent,
		ActivityByDay:    byDay,
		Courses:          courses,
	})
}
