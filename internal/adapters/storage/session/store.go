package session

import (
	"context"

	domain "studio/internal/domain/session"
)

// MutateFunc edits a session inside Update. Returning an error aborts the
// update and leaves the stored record unchanged.
type MutateFunc func(s *domain.Session) error

// Store persists Session aggregates. Enrollment, catalog and substitution
// writes all go through Update so each is one atomic read-modify-write.
type Store interface {
	// GetByID retrieves a session.
	// POST: Returns storage.ErrNotFound if the id does not exist
	GetByID(ctx context.Context, id string) (domain.Session, error)

	// List returns every session ordered by day and start time.
	List(ctx context.Context) ([]domain.Session, error)

	// Create inserts a new session.
	// PRE: s has been validated and carries a fresh id
	Create(ctx context.Context, s domain.Session) error

	// Update loads the session, applies fn and writes the result in one transaction.
	// Concurrent Updates of the same id are serialized.
	// POST: Returns the committed session, or fn's error unwrapped
	Update(ctx context.Context, id string, fn MutateFunc) (domain.Session, error)

	// Delete removes a session.
	// POST: Returns storage.ErrNotFound if the id does not exist
	Delete(ctx context.Context, id string) error

	// RemoveMember drops userID from every session's member set.
	// POST: Returns the ids of the sessions that changed
	RemoveMember(ctx context.Context, userID string) ([]string, error)

	// CountByInstructor counts sessions currently taught by instructorID.
	CountByInstructor(ctx context.Context, instructorID string) (int, error)
}
