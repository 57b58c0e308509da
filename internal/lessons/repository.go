package lessons

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-lms/backend/internal/models"
)

// Repository handles lesson persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lesson repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new lesson at the end of the course.
func (r *Repository) Create(ctx context.Context, lesson *models.Lesson) error {
	const q = `INSERT INTO lessons (course_id, title, kind, position, body, quiz, video_status)
		VALUES ($1, $2, $3,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM lessons WHERE course_id = $1),
			$4, $5, $6)
		RETURNING id, position, created_at, updated_at`
	var quiz []byte
	if len(lesson.Quiz) > 0 {
		quiz = lesson.Quiz
	}
	return r.pool.QueryRow(ctx, q, lesson.CourseID, lesson.Title, string(lesson.Kind), lesson.Body, quiz, string(lesson.VideoStatus)).
		Scan(&lesson.ID, &lesson.Position, &lesson.CreatedAt, &lesson.UpdatedAt)
}

// GetByID returns a lesson by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Lesson, error) {
	const q = `SELECT id, course_id, title, kind, position, body, video_key, video_status, duration_sec, quiz, created_at, updated_at
		FROM lessons WHERE id = $1`
	var lesson models.Lesson
	var kind, videoStatus string
	var quiz []byte
	err := r.pool.QueryRow(ctx, q, id).Scan(&lesson.ID, &lesson.CourseID, &lesson.Title, &kind, &lesson.Position,
		&lesson.Body, &lesson.VideoKey, &videoStatus, &lesson.DurationSec, &quiz, &lesson.CreatedAt, &lesson.UpdatedAt)
	if err != nil {
		return nil, err
	}
	lesson.Kind = models.LessonKind(kind)
	lesson.VideoStatus = models.VideoStatus(videoStatus)
	lesson.Quiz = json.RawMessage(quiz)
	return &lesson, nil
}

// ListByCourse returns lessons for a course in position order.
func (r *Repository) ListByCourse(ctx context.Context, courseID int64) ([]models.Lesson, error) {
	const q = `SELECT id, course_id, title, kind, position, body, video_key, video_status, duration_sec, quiz, created_at, updated_at
		FROM lessons WHERE course_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Lesson
	for rows.Next() {
		var lesson models.Lesson
		var kind, videoStatus string
		var quiz []byte
		if err := rows.Scan(&lesson.ID, &lesson.CourseID, &lesson.Title, &kind, &lesson.Position,
			&lesson.Body, &lesson.VideoKey, &videoStatus, &lesson.DurationSec, &quiz, &lesson.CreatedAt, &lesson.UpdatedAt); err != nil {
			return nil, err
		}
		lesson.Kind = models.LessonKind(kind)
		lesson.VideoStatus = models.VideoStatus(videoStatus)
		lesson.Quiz = json.RawMessage(quiz)
		list = append(list, lesson)
	}
	return list, rows.Err()
}

// Update updates lesson content fields.
func (r *Repository) Update(ctx context.Context, lesson *models.Lesson) error {
	const q = `UPDATE lessons SET title = $1, body = $2, position = $3, quiz = $4, updated_at = NOW() WHERE id = $5`
	var quiz []byte
	if len(lesson.Quiz) > 0 {
		quiz = lesson.Quiz
	}
	_, err := r.pool.Exec(ctx, q, lesson.Title, lesson.Body, lesson.Position, quiz, lesson.ID)
	return err
}

// Delete removes a lesson by ID.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM lessons WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// SetVideoProcessing records the target S3 key and marks the video processing.
func (r *Repository) SetVideoProcessing(ctx context.Context, id int64, key string) error {
	const q = `UPDATE lessons SET video_key = $1, video_status = 'processing', updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, key, id)
	return err
}

// SetVideoReady marks the video available for playback.
func (r *Repository) SetVideoReady(ctx context.Context, id int64, key string, durationSec int) error {
	const q = `UPDATE lessons SET video_key = $1, video_status = 'ready', duration_sec = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, key, durationSec, id)
	return err
}

// SetVideoFailed marks video processing as failed.
func (r *Repository) SetVideoFailed(ctx context.Context, id int64) error {
	const q = `UPDATE lessons SET video_status = 'failed', updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
