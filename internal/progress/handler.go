package progress

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumina-lms/backend/internal/courses"
	"github.com/lumina-lms/backend/internal/enrollments"
	"github.com/lumina-lms/backend/internal/lessons"
	"github.com/lumina-lms/backend/internal/middleware"
	"github.com/lumina-lms/backend/internal/models"
	"github.com/lumina-lms/backend/internal/tracking"
	"github.com/lumina-lms/backend/pkg/response"
)

// quizDefinition is the stored shape of a lesson quiz.
type quizDefinition struct {
	Questions []quizQuestion `json:"questions"`
}

type quizQuestion struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// Handler handles lesson progress and quiz endpoints.
type Handler struct {
	repo        *Repository
	lessons     *lessons.Repository
	courses     *courses.Repository
	enrollments *enrollments.Repository
	tracker     tracking.Tracker
}

// NewHandler creates a progress handler.
func NewHandler(repo *Repository, lessonRepo *lessons.Repository, courseRepo *courses.Repository,
	enrollRepo *enrollments.Repository, tracker tracking.Tracker) *Handler {
	return &Handler{repo: repo, lessons: lessonRepo, courses: courseRepo, enrollments: enrollRepo, tracker: tracker}
}

// BeaconRequest carries the optional client block sent with progress beacons.
type BeaconRequest struct {
	Client tracking.ClientPayload `json:"client"`
}

// QuizSubmission is the body for POST /lessons/:id/quiz. Answers are option
// indexes, one per question in definition order.
type QuizSubmission struct {
	Answers []int                  `json:"answers" binding:"required"`
	Client  tracking.ClientPayload `json:"client"`
}

// grade counts correct answers against the stored definition. Answers
// beyond the question list are ignored by the caller's length check.
func grade(def quizDefinition, answers []int) int {
	correct := 0
	for i, q := range def.Questions {
		if i < len(answers) && answers[i] == q.Answer {
			correct++
		}
	}
	return correct
}

func (h *Handler) lessonAndCourse(c *gin.Context) (*models.Lesson, *models.Course, bool) {
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return nil, nil, false
	}
	lesson, err := h.lessons.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "lesson not found")
		return nil, nil, false
	}
	course, err := h.courses.GetByID(c.Request.Context(), lesson.CourseID)
	if err != nil {
		response.NotFound(c, "course not found")
		return nil, nil, false
	}
	return lesson, course, true
}

// Start handles POST /lessons/:id/start.
func (h *Handler) Start(c *gin.Context) {
	lesson, course, ok := h.lessonAndCourse(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	p, err := h.repo.Start(c.Request.Context(), userID, course.ID, lesson.ID)
	if err != nil {
		response.Internal(c, "failed to record progress")
		return
	}

	var req BeaconRequest
	_ = c.ShouldBindJSON(&req)

	actor := tracking.ActorFromContext(c)
	_ = h.tracker.Track(c.Request.Context(),
		tracking.LessonStarted(actor, course.ID, lesson.ID, course.Title, lesson.Title,
			tracking.ClientFromRequest(c, req.Client)))

	response.OK(c, p)
}

// Complete handles POST /lessons/:id/complete. Completing the last lesson of
// a course also marks the enrollment completed.
func (h *Handler) Complete(c *gin.Context) {
	lesson, course, ok := h.lessonAndCourse(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	p, err := h.repo.Complete(c.Request.Context(), userID, course.ID, lesson.ID)
	if err != nil {
		response.Internal(c, "failed to record progress")
		return
	}

	if done, err := h.repo.CourseCompleted(c.Request.Context(), userID, course.ID); err == nil && done {
		_ = h.enrollments.MarkCompleted(c.Request.Context(), course.ID, userID)
	}

	var req BeaconRequest
	_ = c.ShouldBindJSON(&req)

	actor := tracking.ActorFromContext(c)
	_ = h.tracker.Track(c.Request.Context(),
		tracking.LessonCompleted(actor, course.ID, lesson.ID, course.Title, lesson.Title,
			tracking.ClientFromRequest(c, req.Client)))

	response.OK(c, p)
}

// SubmitQuiz handles POST /lessons/:id/quiz. The submission is scored against
// the stored definition; the attempt is persisted before any event is emitted.
func (h *Handler) SubmitQuiz(c *gin.Context) {
	lesson, course, ok := h.lessonAndCourse(c)
	if !ok {
		return
	}
	if lesson.Kind != models.LessonQuiz || len(lesson.Quiz) == 0 {
		response.BadRequest(c, "lesson has no quiz")
		return
	}

	var req QuizSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var def quizDefinition
	if err := json.Unmarshal(lesson.Quiz, &def); err != nil || len(def.Questions) == 0 {
		response.Internal(c, "quiz definition is invalid")
		return
	}
	if len(req.Answers) != len(def.Questions) {
		response.BadRequest(c, "answer count does not match question count")
		return
	}

	correct := grade(def, req.Answers)
	total := len(def.Questions)
	score := tracking.QuizScore(correct, total)

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	attempt := &models.QuizAttempt{
		UserID:   userID,
		CourseID: course.ID,
		LessonID: lesson.ID,
		Correct:  correct,
		Total:    total,
		Score:    score,
		Passed:   score >= tracking.PassThreshold,
	}
	if err := h.repo.RecordAttempt(c.Request.Context(), attempt); err != nil {
		response.Internal(c, "failed to record attempt")
		return
	}

	actor := tracking.ActorFromContext(c)
	_ = h.tracker.Track(c.Request.Context(),
		tracking.QuizSubmitted(actor, course.ID, lesson.ID, lesson.Title, correct, total,
			tracking.ClientFromRequest(c, req.Client)))

	response.OK(c, attempt)
}

// ListAttempts handles GET /lessons/:id/attempts.
func (h *Handler) ListAttempts(c *gin.Context) {
	id, ok := courses.ParseID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	list, err := h.repo.ListAttempts(c.Request.Context(), userID, id)
	if err != nil {
		response.Internal(c, "failed to list attempts")
		return
	}
	if list == nil {
		list = []models.QuizAttempt{}
	}
	response.OK(c, list)
}
