package models

import (
	"time"

	"github.com/google/uuid"
)

// LessonProgress tracks started/completed state per user and lesson.
type LessonProgress struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	CourseID    int64      `json:"course_id"`
	LessonID    int64      `json:"lesson_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// QuizAttempt records one quiz submission with its computed score.
type QuizAttempt struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CourseID  int64     `json:"course_id"`
	LessonID  int64     `json:"lesson_id"`
	Correct   int       `json:"correct"`
	Total     int       `json:"total"`
	Score     float64   `json:"score"`  // percentage 0-100
	Passed    bool      `json:"passed"` // score >= 70
	CreatedAt time.Time `json:"created_at"`
}
