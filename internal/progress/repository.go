package progress

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-lms/backend/internal/models"
)

// Repository handles lesson progress and quiz attempt persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a progress repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Start records that the user opened a lesson. Repeated starts keep the
// original started_at.
func (r *Repository) Start(ctx context.Context, userID uuid.UUID, courseID, lessonID int64) (*models.LessonProgress, error) {
	const q = `INSERT INTO lesson_progress (user_id, course_id, lesson_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET lesson_id = EXCLUDED.lesson_id
		RETURNING id, user_id, course_id, lesson_id, started_at, completed_at`
	var p models.LessonProgress
	err := r.pool.QueryRow(ctx, q, userID, courseID, lessonID).Scan(
		&p.ID, &p.UserID, &p.CourseID, &p.LessonID, &p.StartedAt, &p.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Complete marks a lesson as completed for the user, creating the progress
// row if the start beacon was lost.
func (r *Repository) Complete(ctx context.Context, userID uuid.UUID, courseID, lessonID int64) (*models.LessonProgress, error) {
	const q = `INSERT INTO lesson_progress (user_id, course_id, lesson_id, completed_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET completed_at = COALESCE(lesson_progress.completed_at, NOW())
		RETURNING id, user_id, course_id, lesson_id, started_at, completed_at`
	var p models.LessonProgress
	err := r.pool.QueryRow(ctx, q, userID, courseID, lessonID).Scan(
		&p.ID, &p.UserID, &p.CourseID, &p.LessonID, &p.StartedAt, &p.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CourseCompleted reports whether every lesson in the course has a completed
// progress row for the user.
func (r *Repository) CourseCompleted(ctx context.Context, userID uuid.UUID, courseID int64) (bool, error) {
	const q = `SELECT COUNT(*) FILTER (WHERE lp.completed_at IS NOT NULL) = COUNT(*) AND COUNT(*) > 0
		FROM lessons l
		LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $1
		WHERE l.course_id = $2`
	var done bool
	err := r.pool.QueryRow(ctx, q, userID, courseID).Scan(&done)
	return done, err
}

// RecordAttempt persists a scored quiz attempt.
func (r *Repository) RecordAttempt(ctx context.Context, attempt *models.QuizAttempt) error {
	const q = `INSERT INTO quiz_attempts (user_id, course_id, lesson_id, correct, total, score, passed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q,
		attempt.UserID, attempt.CourseID, attempt.LessonID,
		attempt.Correct, attempt.Total, attempt.Score, attempt.Passed,
	).Scan(&attempt.ID, &attempt.CreatedAt)
}

// ListAttempts returns the user's attempts for a lesson, newest first.
func (r *Repository) ListAttempts(ctx context.Context, userID uuid.UUID, lessonID int64) ([]models.QuizAttempt, error) {
	const q = `SELECT id, user_id, course_id, lesson_id, correct, total, score, passed, created_at
		FROM quiz_attempts WHERE user_id = $1 AND lesson_id = $2 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.QuizAttempt
	for rows.Next() {
		var a models.QuizAttempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.CourseID, &a.LessonID,
			&a.Correct, &a.Total, &a.Score, &a.Passed, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// CountCompleted returns how many lessons the user has completed overall.
func (r *Repository) CountCompleted(ctx context.Context, userID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM lesson_progress WHERE user_id = $1 AND completed_at IS NOT NULL`
	var n int
	err := r.pool.QueryRow(ctx, q, userID).Scan(&n)
	return n, err
}
