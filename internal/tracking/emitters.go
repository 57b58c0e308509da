package tracking

import (
	"fmt"
	"math"
	"time"

	"github.com/lumina-lms/backend/internal/models"
)

// Convenience emitters: pure descriptor builders owning the component and
// event-name vocabulary plus the rendered description text. They hold no
// state; Track does the enrichment.

// PassThreshold is the inclusive quiz pass mark, in percent.
const PassThreshold = 70.0

// CourseViewed describes a user opening a course page.
func CourseViewed(actor Actor, courseID int64, courseTitle string, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Course: " + courseTitle,
		Component:    models.ComponentSystem,
		EventName:    "Course viewed",
		Description:  fmt.Sprintf("The user with id '%s' viewed the course '%s'", actor.Email, courseTitle),
		CourseID:     &courseID,
		Additional:   models.AdditionalData{"course_title": courseTitle},
		Client:       client,
	}
}

// LessonStarted describes a user opening a lesson for the first time.
func LessonStarted(actor Actor, courseID, lessonID int64, courseTitle, lessonTitle string, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Course: " + courseTitle,
		Component:    models.ComponentSystem,
		EventName:    "Lesson started",
		Description:  fmt.Sprintf("The user with id '%s' started the lesson '%s'", actor.Email, lessonTitle),
		CourseID:     &courseID,
		LessonID:     &lessonID,
		Additional:   models.AdditionalData{"course_title": courseTitle, "lesson_title": lessonTitle},
		Client:       client,
	}
}

// LessonCompleted describes a user finishing a lesson.
func LessonCompleted(actor Actor, courseID, lessonID int64, courseTitle, lessonTitle string, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Course: " + courseTitle,
		Component:    models.ComponentSystem,
		EventName:    "Lesson completed",
		Description:  fmt.Sprintf("The user with id '%s' completed the lesson '%s'", actor.Email, lessonTitle),
		CourseID:     &courseID,
		LessonID:     &lessonID,
		Additional:   models.AdditionalData{"course_title": courseTitle, "lesson_title": lessonTitle},
		Client:       client,
	}
}

// VideoAction describes a playback action ("played", "paused", "seeked",
// "ended") at a position in seconds.
func VideoAction(actor Actor, courseID, lessonID int64, lessonTitle, action string, positionSec float64, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Lesson: " + lessonTitle,
		Component:    models.ComponentVideo,
		EventName:    "Video " + action,
		Description:  fmt.Sprintf("The user with id '%s' %s the video in lesson '%s'", actor.Email, action, lessonTitle),
		CourseID:     &courseID,
		LessonID:     &lessonID,
		Additional:   models.AdditionalData{"action": action, "position_sec": positionSec, "lesson_title": lessonTitle},
		Client:       client,
	}
}

// QuizSubmitted describes a quiz submission with the computed score.
// Score is correct/total as a percentage; PassThreshold is inclusive.
func QuizSubmitted(actor Actor, courseID, lessonID int64, lessonTitle string, correct, total int, client ClientInfo) Descriptor {
	score := QuizScore(correct, total)
	return Descriptor{
		Actor:        actor,
		EventContext: "Lesson: " + lessonTitle,
		Component:    models.ComponentQuiz,
		EventName:    "Quiz submitted",
		Description:  fmt.Sprintf("The user with id '%s' submitted the quiz '%s' scoring %.0f%%", actor.Email, lessonTitle, score),
		CourseID:     &courseID,
		LessonID:     &lessonID,
		Additional: models.AdditionalData{
			"correct": correct,
			"total":   total,
			"score":   score,
			"passed":  score >= PassThreshold,
		},
		Client: client,
	}
}

// QuizScore computes the percentage score for a quiz attempt.
func QuizScore(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct) / float64(total) * 100)
}

// Search describes a catalog search and its result count.
func Search(actor Actor, query string, resultCount int, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Course catalog",
		Component:    models.ComponentSearch,
		EventName:    "Search performed",
		Description:  fmt.Sprintf("The user with id '%s' searched for '%s'", actor.Email, query),
		Additional:   models.AdditionalData{"query": query, "result_count": resultCount},
		Client:       client,
	}
}

// Navigation describes a route transition.
func Navigation(actor Actor, fromPath, toPath string, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Page: " + toPath,
		Component:    models.ComponentNavigation,
		EventName:    "Page navigation",
		Description:  fmt.Sprintf("The user with id '%s' navigated from '%s' to '%s'", actor.Email, fromPath, toPath),
		PageURL:      toPath,
		Additional:   models.AdditionalData{"from": fromPath, "to": toPath},
		Client:       client,
	}
}

// Engagement describes a generic UI interaction (clicks, toggles). The
// event name always carries the "clicked" suffix the reports key on.
func Engagement(actor Actor, element, context string, courseID *int64, extra models.AdditionalData, client ClientInfo) Descriptor {
	additional := make(models.AdditionalData, len(extra)+1)
	for k, v := range extra {
		additional[k] = v
	}
	additional["element"] = element
	return Descriptor{
		Actor:        actor,
		EventContext: context,
		Component:    models.ComponentInteraction,
		EventName:    element + " clicked",
		Description:  fmt.Sprintf("The user with id '%s' clicked '%s'", actor.Email, element),
		CourseID:     courseID,
		Additional:   additional,
		Client:       client,
	}
}

// PageViewed describes the first render of a path.
func PageViewed(actor Actor, path, title string, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Page: " + path,
		Component:    models.ComponentSystem,
		EventName:    "Page viewed",
		Description:  fmt.Sprintf("The user with id '%s' viewed the page '%s'", actor.Email, path),
		PageURL:      path,
		Additional:   models.AdditionalData{"title": title},
		Client:       client,
	}
}

// PageUnloaded describes page teardown with the measured time on page.
func PageUnloaded(actor Actor, path string, timeOnPage time.Duration, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Page: " + path,
		Component:    models.ComponentSystem,
		EventName:    "Page unloaded",
		Description:  fmt.Sprintf("The user with id '%s' left the page '%s'", actor.Email, path),
		PageURL:      path,
		Additional:   models.AdditionalData{"time_on_page_sec": int(timeOnPage.Seconds())},
		Client:       client,
	}
}

// ErrorCaptured describes an uncaught client error or promise rejection.
func ErrorCaptured(actor Actor, message, source, stack string, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Page: " + source,
		Component:    models.ComponentSystem,
		EventName:    "Error captured",
		Description:  fmt.Sprintf("An uncaught error occurred for user '%s': %s", actor.Email, message),
		PageURL:      source,
		Additional:   models.AdditionalData{"message": message, "source": source, "stack": stack},
		Client:       client,
	}
}

// LoggedIn describes a successful sign-in.
func LoggedIn(actor Actor, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Authentication",
		Component:    models.ComponentAuth,
		EventName:    "User logged in",
		Description:  fmt.Sprintf("The user with id '%s' logged in", actor.Email),
		Client:       client,
	}
}

// Registered describes account creation.
func Registered(actor Actor, client ClientInfo) Descriptor {
	return Descriptor{
		Actor:        actor,
		EventContext: "Authentication",
		Component:    models.ComponentAuth,
		EventName:    "User registered",
		Description:  fmt.Sprintf("The user with id '%s' created an account", actor.Email),
		Client:       client,
	}
}
