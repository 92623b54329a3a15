package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ReferenceRepository answers existence checks for course/teacher/class/room
// identifiers. Those entities are owned by other subsystems; the scheduling
// engine only validates that references resolve.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository creates a new reference repository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) exists(ctx context.Context, query, id string) (bool, error) {
	var one int
	if err := r.db.GetContext(ctx, &one, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("reference existence check: %w", err)
	}
	return true, nil
}

// CourseExists reports whether the course id resolves.
func (r *ReferenceRepository) CourseExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM courses WHERE id = $1 LIMIT 1`, id)
}

// TeacherExists reports whether the teacher id resolves to an active teacher.
func (r *ReferenceRepository) TeacherExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM teachers WHERE id = $1 AND active = TRUE LIMIT 1`, id)
}

// ClassExists reports whether the session-group id resolves.
func (r *ReferenceRepository) ClassExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM classes WHERE id = $1 LIMIT 1`, id)
}

// RoomExists reports whether the room id resolves.
func (r *ReferenceRepository) RoomExists(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM rooms WHERE id = $1 LIMIT 1`, id)
}
