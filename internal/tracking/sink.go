package tracking

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-lms/backend/internal/models"
)

// Sink persists normalized events. One call is one independent single-row
// insert: no retry, no batching, no backpressure.
type Sink interface {
	Insert(ctx context.Context, event *models.ClickstreamEvent) error
}

// Repository is the pgx-backed sink plus the read queries the dashboard and
// admin feed use.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a clickstream repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes one event row.
func (r *Repository) Insert(ctx context.Context, e *models.ClickstreamEvent) error {
	var additional []byte
	if e.Additional != nil {
		var err error
		additional, err = json.Marshal(e.Additional)
		if err != nil {
			return err
		}
	}
	const q = `INSERT INTO clickstream_events
		(user_id, time, event_context, component, event_name, description, origin, ip_address, session_id, page_url, user_agent, additional_data, course_id, lesson_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q,
		e.UserID, e.Time, e.EventContext, string(e.Component), e.EventName, e.Description,
		e.Origin, e.IPAddress, e.SessionID, e.PageURL, e.UserAgent, additional, e.CourseID, e.LessonID).
		Scan(&e.ID, &e.CreatedAt)
}

// ListRecent returns the newest events across all users (admin feed).
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.ClickstreamEvent, error) {
	const q = `SELECT id, user_id, time, event_context, component, event_name, description, origin, ip_address, session_id, page_url, user_agent, additional_data, course_id, lesson_id, created_at
		FROM clickstream_events ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByUser returns the newest events for one user (dashboard activity).
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ClickstreamEvent, error) {
	const q = `SELECT id, user_id, time, event_context, component, event_name, description, origin, ip_address, session_id, page_url, user_agent, additional_data, course_id, lesson_id, created_at
		FROM clickstream_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DailyCount is events-per-day for activity charts.
type DailyCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// CountByDay returns per-day event counts for a user over the last N days.
func (r *Repository) CountByDay(ctx context.Context, userID uuid.UUID, days int) ([]DailyCount, error) {
	const q = `SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM clickstream_events
		WHERE user_id = $1 AND created_at >= NOW() - ($2 || ' days')::interval
		GROUP BY day ORDER BY day`
	rows, err := r.pool.Query(ctx, q, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

type eventRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows eventRows) ([]models.ClickstreamEvent, error) {
	var list []models.ClickstreamEvent
	for rows.Next() {
		var e models.ClickstreamEvent
		var component string
		var additional []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Time, &e.EventContext, &component, &e.EventName, &e.Description,
			&e.Origin, &e.IPAddress, &e.SessionID, &e.PageURL, &e.UserAgent, &additional, &e.CourseID, &e.LessonID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Component = models.Component(component)
		if len(additional) > 0 {
			_ = json.Unmarshal(additional, &e.Additional)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
