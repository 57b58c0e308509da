package models

import (
	"encoding/json"
	"time"
)

// LessonKind identifies the lesson content type.
type LessonKind string

const (
	LessonText  LessonKind = "text"
	LessonVideo LessonKind = "video"
	LessonQuiz  LessonKind = "quiz"
)

// VideoStatus tracks the lesson video asset lifecycle.
type VideoStatus string

const (
	VideoStatusNone       VideoStatus = "none"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusFailed     VideoStatus = "failed"
)

// Lesson represents one unit of course content.
type Lesson struct {
	ID          int64           `json:"id"`
	CourseID    int64           `json:"course_id"`
	Title       string          `json:"title"`
	Kind        LessonKind      `json:"kind"`
	Position    int             `json:"position"`
	Body        string          `json:"body,omitempty"`         // markdown for text lessons
	VideoKey    *string         `json:"video_key,omitempty"`    // S3 object key
	VideoStatus VideoStatus     `json:"video_status"`
	DurationSec int             `json:"duration_sec"`
	Quiz        json.RawMessage `json:"quiz,omitempty"` // quiz definition (questions, options, answers)
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
