package models

import (
	"time"

	"github.com/google/uuid"
)

// Component is the coarse category tag for a clickstream event.
type Component string

const (
	ComponentSystem      Component = "System"
	ComponentVideo       Component = "Video"
	ComponentQuiz        Component = "Quiz"
	ComponentForum       Component = "Forum"
	ComponentAuth        Component = "Auth"
	ComponentNavigation  Component = "Navigation"
	ComponentSearch      Component = "Search"
	ComponentInteraction Component = "Interaction"
	ComponentForm        Component = "Form"
	ComponentFile        Component = "File"
)

// AdditionalData is the open extension point on a clickstream event.
// Keys map to JSON-compatible scalar values; consumers must tolerate
// unknown keys.
type AdditionalData map[string]any

// ClickstreamEvent is one recorded user-interaction row.
// The Time field intentionally stores local-timezone text with no zone
// marker; this matches the reporting convention of the downstream consumers
// and must not be switched to UTC without coordinating with them.
type ClickstreamEvent struct {
	ID           int64          `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	Time         string         `json:"time"`
	EventContext string         `json:"event_context"`
	Component    Component      `json:"component"`
	EventName    string         `json:"event_name"`
	Description  string         `json:"description"`
	Origin       string         `json:"origin"`
	IPAddress    *string        `json:"ip_address,omitempty"`
	SessionID    string         `json:"session_id"`
	PageURL      string         `json:"page_url"`
	UserAgent    string         `json:"user_agent"`
	Additional   AdditionalData `json:"additional_data,omitempty"`
	CourseID     *int64         `json:"course_id,omitempty"`
	LessonID     *int64         `json:"lesson_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
