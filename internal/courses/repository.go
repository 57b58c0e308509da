package courses

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-lms/backend/internal/models"
)

// Repository handles course persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a course repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new course.
func (r *Repository) Create(ctx context.Context, course *models.Course) error {
	const q = `INSERT INTO courses (title, description, category, level, cover_url, published, created_by)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, course.Title, course.Description, course.Category, course.Level, course.CoverURL, course.Published, course.CreatedBy).
		Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt)
}

// GetByID returns a course by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	const q = `SELECT id, title, description, category, level, COALESCE(cover_url,''), published, created_by, created_at, updated_at
		FROM courses WHERE id = $1`
	var course models.Course
	err := r.pool.QueryRow(ctx, q, id).Scan(&course.ID, &course.Title, &course.Description, &course.Category,
		&course.Level, &course.CoverURL, &course.Published, &course.CreatedBy, &course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// Search returns published courses matching the query (title/description/category),
// with lesson and enrollment counts. An empty query returns the full catalog.
func (r *Repository) Search(ctx context.Context, query string) ([]models.CourseSummary, error) {
	const q = `SELECT c.id, c.title, c.description, c.category, c.level, COALESCE(c.cover_url,''), c.published, c.created_by, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id),
			(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id)
		FROM courses c
		WHERE c.published = TRUE
		  AND ($1 = '' OR c.title ILIKE '%' || $1 || '%' OR c.description ILIKE '%' || $1 || '%' OR c.category ILIKE '%' || $1 || '%')
		ORDER BY c.created_at DESC`
	rows, err := r.pool.Query(ctx, q, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.CourseSummary
	for rows.Next() {
		var s models.CourseSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.Category, &s.Level, &s.CoverURL, &s.Published,
			&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt, &s.LessonCount, &s.EnrolledCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// ListByCreator returns all courses created by a user, published or not.
func (r *Repository) ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]models.Course, error) {
	const q = `SELECT id, title, description, category, level, COALESCE(cover_url,''), published, created_by, created_at, updated_at
		FROM courses WHERE created_by = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, createdBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Course
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(&course.ID, &course.Title, &course.Description, &course.Category, &course.Level,
			&course.CoverURL, &course.Published, &course.CreatedBy, &course.CreatedAt, &course.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, course)
	}
	return list, rows.Err()
}

// Update updates course fields.
func (r *Repository) Update(ctx context.Context, course *models.Course) error {
	const q = `UPDATE courses SET title = $1, description = $2, category = $3, level = $4,
		cover_url = NULLIF($5,''), published = $6, updated_at = NOW() WHERE id = $7`
	_, err := r.pool.Exec(ctx, q, course.Title, course.Description, course.Category, course.Level, course.CoverURL, course.Published, course.ID)
	return err
}

// Delete removes a course by ID.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM courses WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
