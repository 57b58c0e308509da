package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumina-lms/backend/internal/models"
)

func TestQuizScore(t *testing.T) {
	assert.Equal(t, 70.0, QuizScore(7, 10))
	assert.Equal(t, 100.0, QuizScore(10, 10))
	assert.Equal(t, 0.0, QuizScore(0, 10))
	assert.Equal(t, 33.0, QuizScore(1, 3))
	assert.Equal(t, 67.0, QuizScore(2, 3))
	assert.Equal(t, 0.0, QuizScore(5, 0))
}

func TestQuizSubmittedDescriptor(t *testing.T) {
	d := QuizSubmitted(testActor(), 3, 12, "Final Quiz", 7, 10, testClient(""))

	assert.Equal(t, models.ComponentQuiz, d.Component)
	assert.Equal(t, "Quiz submitted", d.EventName)
	assert.Equal(t, 70.0, d.Additional["score"])
	assert.Equal(t, true, d.Additional["passed"], "the pass mark is inclusive")
	assert.Equal(t, 7, d.Additional["correct"])
	assert.Equal(t, 10, d.Additional["total"])
	assert.Contains(t, d.Description, "student@example.com")
}

func TestQuizSubmittedBelowThreshold(t *testing.T) {
	d := QuizSubmitted(testActor(), 3, 12, "Final Quiz", 6, 10, testClient(""))
	assert.Equal(t, 60.0, d.Additional["score"])
	assert.Equal(t, false, d.Additional["passed"])
}

func TestEngagementDescriptor(t *testing.T) {
	courseID := int64(3)
	d := Engagement(testActor(), "Enroll button", "Course: Go Basics", &courseID,
		models.AdditionalData{"course_title": "Go Basics"}, testClient(""))

	assert.Equal(t, models.ComponentInteraction, d.Component)
	assert.Equal(t, "Enroll button clicked", d.EventName)
	assert.Equal(t, "Enroll button", d.Additional["element"])
	assert.Equal(t, "Go Basics", d.Additional["course_title"])
	assert.Equal(t, &courseID, d.CourseID)
}

func TestEngagementDoesNotMutateCallerExtra(t *testing.T) {
	extra := models.AdditionalData{"course_title": "Go Basics"}
	_ = Engagement(testActor(), "Enroll button", "Course: Go Basics", nil, extra, testClient(""))
	assert.NotContains(t, extra, "element")
}

func TestCourseViewedDescriptor(t *testing.T) {
	d := CourseViewed(testActor(), 3, "Go Basics", testClient(""))

	assert.Equal(t, models.ComponentSystem, d.Component)
	assert.Equal(t, "Course viewed", d.EventName)
	assert.Equal(t, "Course: Go Basics", d.EventContext)
	assert.Equal(t, "The user with id 'student@example.com' viewed the course 'Go Basics'", d.Description)
}

func TestVideoActionDescriptor(t *testing.T) {
	d := VideoAction(testActor(), 3, 12, "Intro video", "paused", 42.5, testClient(""))

	assert.Equal(t, models.ComponentVideo, d.Component)
	assert.Equal(t, "Video paused", d.EventName)
	assert.Equal(t, 42.5, d.Additional["position_sec"])
}

func TestSearchDescriptor(t *testing.T) {
	d := Search(testActor(), "golang", 4, testClient(""))

	assert.Equal(t, models.ComponentSearch, d.Component)
	assert.Equal(t, "golang", d.Additional["query"])
	assert.Equal(t, 4, d.Additional["result_count"])
}

func TestNavigationDescriptor(t *testing.T) {
	d := Navigation(testActor(), "/courses", "/courses/3", testClient(""))

	assert.Equal(t, models.ComponentNavigation, d.Component)
	assert.Equal(t, "/courses/3", d.PageURL)
	assert.Equal(t, "/courses", d.Additional["from"])
}

func TestAuthDescriptors(t *testing.T) {
	login := LoggedIn(testActor(), testClient(""))
	assert.Equal(t, models.ComponentAuth, login.Component)
	assert.Equal(t, "User logged in", login.EventName)

	reg := Registered(testActor(), testClient(""))
	assert.Equal(t, models.ComponentAuth, reg.Component)
	assert.Equal(t, "User registered", reg.EventName)
}
