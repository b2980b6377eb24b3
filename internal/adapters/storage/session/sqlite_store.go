package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"studio/internal/adapters/storage"
	domain "studio/internal/domain/session"
)

const selectColumns = `id, title, day_of_week, start_time, duration_minutes, instructor_id,
	original_instructor_id, capacity, enrolled_user_ids, location, difficulty,
	is_substitute, notification_message`

// SQLiteStore implements Store using SQLite. The member set is kept as a JSON
// array in one column so a session stays a single row.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new session store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var s domain.Session
	var enrolled string
	var isSub int
	err := row.Scan(&s.ID, &s.Title, &s.DayOfWeek, &s.StartTime, &s.DurationMinutes, &s.InstructorID,
		&s.OriginalInstructorID, &s.Capacity, &enrolled, &s.Location, &s.Difficulty,
		&isSub, &s.NotificationMessage)
	if err != nil {
		return domain.Session{}, err
	}
	s.IsSubstitute = isSub == 1
	if err := json.Unmarshal([]byte(enrolled), &s.EnrolledUserIDs); err != nil {
		return domain.Session{}, fmt.Errorf("decode enrolled_user_ids for %s: %w", s.ID, err)
	}
	if s.EnrolledUserIDs == nil {
		s.EnrolledUserIDs = []string{}
	}
	return s, nil
}

func encodeMembers(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	return string(b), err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetByID retrieves a session by its ID.
// PRE: id is non-empty
// POST: Returns the entity or storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM session WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, storage.Unavailable("session.get", err)
	}
	return sess, nil
}

// List returns all sessions ordered by day and start time.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM session ORDER BY day_of_week, start_time, id")
	if err != nil {
		return nil, storage.Unavailable("session.list", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, storage.Unavailable("session.list", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("session.list", err)
	}
	return out, nil
}

// Create inserts a new session.
// PRE: sess has been validated
// POST: Row exists with version 0
func (s *SQLiteStore) Create(ctx context.Context, sess domain.Session) error {
	members, err := encodeMembers(sess.EnrolledUserIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session (id, title, day_of_week, start_time, duration_minutes, instructor_id,
			original_instructor_id, capacity, enrolled_user_ids, location, difficulty,
			is_substitute, notification_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.DayOfWeek, sess.StartTime, sess.DurationMinutes, sess.InstructorID,
		sess.OriginalInstructorID, sess.Capacity, members, sess.Location, sess.Difficulty,
		boolToInt(sess.IsSubstitute), sess.NotificationMessage)
	if err != nil {
		return storage.Unavailable("session.create", err)
	}
	return nil
}

// Update runs fn against the current row inside a write transaction.
// The version bump is issued first so SQLite takes the write lock before the
// read; a second writer waits (busy_timeout) and then sees the committed row.
// PRE: fn does not retain the pointer past its return
// POST: On success the row reflects fn's changes and version is incremented
func (s *SQLiteStore) Update(ctx context.Context, id string, fn MutateFunc) (domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, storage.Unavailable("session.update", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE session SET version = version + 1 WHERE id = ?`, id)
	if err != nil {
		return domain.Session{}, storage.Unavailable("session.update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Session{}, storage.Unavailable("session.update", err)
	}
	if n == 0 {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}

	sess, err := scanSession(tx.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM session WHERE id = ?", id))
	if err != nil {
		return domain.Session{}, storage.Unavailable("session.update", err)
	}

	if err := fn(&sess); err != nil {
		return domain.Session{}, err
	}
	sess.ID = id

	members, err := encodeMembers(sess.EnrolledUserIDs)
	if err != nil {
		return domain.Session{}, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE session SET title = ?, day_of_week = ?, start_time = ?, duration_minutes = ?,
			instructor_id = ?, original_instructor_id = ?, capacity = ?, enrolled_user_ids = ?,
			location = ?, difficulty = ?, is_substitute = ?, notification_message = ?
		 WHERE id = ?`,
		sess.Title, sess.DayOfWeek, sess.StartTime, sess.DurationMinutes,
		sess.InstructorID, sess.OriginalInstructorID, sess.Capacity, members,
		sess.Location, sess.Difficulty, boolToInt(sess.IsSubstitute), sess.NotificationMessage,
		id)
	if err != nil {
		return domain.Session{}, storage.Unavailable("session.update", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, storage.Unavailable("session.update", err)
	}
	return sess, nil
}

// Delete removes a session.
// PRE: id is non-empty
// POST: Row removed, or storage.ErrNotFound
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, id)
	if err != nil {
		return storage.Unavailable("session.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("session.delete", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// RemoveMember drops userID from every member set in one transaction.
// POST: No session lists userID
func (s *SQLiteStore) RemoveMember(ctx context.Context, userID string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Unavailable("session.remove_member", err)
	}
	defer tx.Rollback()

	// Take the write lock before reading, as in Update.
	_, err = tx.ExecContext(ctx,
		`UPDATE session SET version = version + 1
		 WHERE EXISTS (SELECT 1 FROM json_each(session.enrolled_user_ids) WHERE value = ?)`, userID)
	if err != nil {
		return nil, storage.Unavailable("session.remove_member", err)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT "+selectColumns+` FROM session
		 WHERE EXISTS (SELECT 1 FROM json_each(session.enrolled_user_ids) WHERE value = ?)`, userID)
	if err != nil {
		return nil, storage.Unavailable("session.remove_member", err)
	}
	var affected []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, storage.Unavailable("session.remove_member", err)
		}
		affected = append(affected, sess)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("session.remove_member", err)
	}

	ids := make([]string, 0, len(affected))
	for _, sess := range affected {
		sess.Cancel(userID)
		members, err := encodeMembers(sess.EnrolledUserIDs)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE session SET enrolled_user_ids = ? WHERE id = ?`, members, sess.ID); err != nil {
			return nil, storage.Unavailable("session.remove_member", err)
		}
		ids = append(ids, sess.ID)
	}
	if err := tx.Commit(); err != nil {
		return nil, storage.Unavailable("session.remove_member", err)
	}
	return ids, nil
}

// CountByInstructor counts sessions whose current instructor is instructorID.
func (s *SQLiteStore) CountByInstructor(ctx context.Context, instructorID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session WHERE instructor_id = ?`, instructorID).Scan(&n)
	if err != nil {
		return 0, storage.Unavailable("session.count_by_instructor", err)
	}
	return n, nil
}
