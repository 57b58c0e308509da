package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a student to a course.
type Enrollment struct {
	ID          uuid.UUID  `json:"id"`
	CourseID    int64      `json:"course_id"`
	UserID      uuid.UUID  `json:"user_id"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// EnrolledCourse is an enrollment joined with its course for listing.
type EnrolledCourse struct {
	Enrollment
	CourseTitle      string  `json:"course_title"`
	LessonCount      int     `json:"lesson_count"`
	CompletedLessons int     `json:"completed_lessons"`
	ProgressPercent  float64 `json:"progress_percent"`
}
