package models

import (
	"time"

	"github.com/google/uuid"
)

// Course represents a course in the catalog.
// Courses use integer IDs so clickstream foreign references stay compact.
type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Level       string    `json:"level"` // "beginner", "intermediate", "advanced"
	CoverURL    string    `json:"cover_url,omitempty"`
	Published   bool      `json:"published"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CourseSummary is a catalog row with derived counts.
type CourseSummary struct {
	Course
	LessonCount   int `json:"lesson_count"`
	EnrolledCount int `json:"enrolled_count"`
}
