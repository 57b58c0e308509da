package enrollments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-lms/backend/internal/models"
)

// Repository handles enrollment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an enrollments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Enroll inserts an enrollment (idempotent per course+user).
func (r *Repository) Enroll(ctx context.Context, courseID int64, userID uuid.UUID) (*models.Enrollment, error) {
	const q = `INSERT INTO enrollments (course_id, user_id) VALUES ($1, $2)
		ON CONFLICT (course_id, user_id) DO UPDATE SET course_id = EXCLUDED.course_id
		RETURNING id, course_id, user_id, enrolled_at, completed_at`
	var e models.Enrollment
	err := r.pool.QueryRow(ctx, q, courseID, userID).Scan(&e.ID, &e.CourseID, &e.UserID, &e.EnrolledAt, &e.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Unenroll removes an enrollment.
func (r *Repository) Unenroll(ctx context.Context, courseID int64, userID uuid.UUID) error {
	const q = `DELETE FROM enrollments WHERE course_id = $1 AND user_id = $2`
	_, err := r.pool.Exec(ctx, q, courseID, userID)
	return err
}

// IsEnrolled reports whether the user is enrolled in the course.
func (r *Repository) IsEnrolled(ctx context.Context, courseID int64, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE course_id = $1 AND user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, courseID, userID).Scan(&ok)
	return ok, err
}

// ListByUser returns the user's enrollments with course title and progress.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.EnrolledCourse, error) {
	const q = `SELECT e.id, e.course_id, e.user_id, e.enrolled_at, e.completed_at, c.title,
			(SELECT COUNT(*) FROM lessons l WHERE l.course_id = e.course_id),
			(SELECT COUNT(*) FROM lesson_progress lp WHERE lp.course_id = e.course_id AND lp.user_id = e.user_id AND lp.completed_at IS NOT NULL)
		FROM enrollments e
		INNER JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EnrolledCourse
	for rows.Next() {
		var ec models.EnrolledCourse
		if err := rows.Scan(&ec.ID, &ec.CourseID, &ec.UserID, &ec.EnrolledAt, &ec.CompletedAt,
			&ec.CourseTitle, &ec.LessonCount, &ec.CompletedLessons); err != nil {
			return nil, err
		}
		if ec.LessonCount > 0 {
			ec.ProgressPercent = float64(ec.CompletedLessons) / float64(ec.LessonCount) * 100
		}
		list = append(list, ec)
	}
	return list, rows.Err()
}

// MarkCompleted sets completed_at for an enrollment when all lessons are done.
func (r *Repository) MarkCompleted(ctx context.Context, courseID int64, userID uuid.UUID) error {
	const q = `UPDATE enrollments SET completed_at = NOW()
		WHERE course_id = $1 AND user_id = $2 AND completed_at IS NULL`
	_, err := r.pool.Exec(ctx, q, courseID, userID)
	return err
}

// CountByUser returns total and completed enrollment counts for a user.
func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (total, completed int, err error) {
	const q = `SELECT COUNT(*), COUNT(completed_at) FROM enrollments WHERE user_id = $1`
	err = r.pool.QueryRow(ctx, q, userID).Scan(&total, &completed)
	return total, completed, err
}
