package instructor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studio/internal/adapters/storage"
	domain "studio/internal/domain/instructor"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new instructor store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Instructor by its ID.
// PRE: id is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Instructor, error) {
	var i domain.Instructor
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, bio, image_url FROM instructor WHERE id = ?`, id,
	).Scan(&i.ID, &i.Name, &i.Bio, &i.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Instructor{}, fmt.Errorf("instructor %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Instructor{}, storage.Unavailable("instructor.get", err)
	}
	return i, nil
}

// List returns every instructor ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Instructor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, bio, image_url FROM instructor ORDER BY name, id`)
	if err != nil {
		return nil, storage.Unavailable("instructor.list", err)
	}
	defer rows.Close()

	var out []domain.Instructor
	for rows.Next() {
		var i domain.Instructor
		if err := rows.Scan(&i.ID, &i.Name, &i.Bio, &i.ImageURL); err != nil {
			return nil, storage.Unavailable("instructor.list", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("instructor.list", err)
	}
	return out, nil
}

// Save persists an Instructor (insert or update).
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, i domain.Instructor) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO instructor (id, name, bio, image_url) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, bio=excluded.bio, image_url=excluded.image_url`,
		i.ID, i.Name, i.Bio, i.ImageURL)
	if err != nil {
		return storage.Unavailable("instructor.save", err)
	}
	return nil
}

// Delete removes an Instructor. Referential checks are the caller's job.
// POST: Row removed, or storage.ErrNotFound
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM instructor WHERE id = ?`, id)
	if err != nil {
		return storage.Unavailable("instructor.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("instructor.delete", err)
	}
	if n == 0 {
		return fmt.Errorf("instructor %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
