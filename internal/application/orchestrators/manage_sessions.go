package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"studio/internal/adapters/changefeed"
	"studio/internal/adapters/storage"
	sessionStore "studio/internal/adapters/storage/session"
	"studio/internal/domain/instructor"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

// CatalogStore is the session store surface used by catalog CRUD.
type CatalogStore interface {
	GetByID(ctx context.Context, id string) (session.Session, error)
	Create(ctx context.Context, s session.Session) error
	Update(ctx context.Context, id string, fn sessionStore.MutateFunc) (session.Session, error)
	Delete(ctx context.Context, id string) error
}

// InstructorLookup loads a single instructor.
type InstructorLookup interface {
	GetByID(ctx context.Context, id string) (instructor.Instructor, error)
}

// CreateSessionInput carries input for creating a weekly session.
// Enrollment and substitution fields are not accepted.
type CreateSessionInput struct {
	Actor               viewer.Viewer
	Title               string
	DayOfWeek           int
	StartTime           string
	DurationMinutes     int
	InstructorID        string
	Capacity            int
	Location            string
	Difficulty          string
	NotificationMessage string
}

// CatalogDeps holds dependencies for the catalog orchestrators.
type CatalogDeps struct {
	SessionStore    CatalogStore
	InstructorStore InstructorLookup // optional: verifies instructorId exists
	Changes         ChangePublisher  // optional
	GenerateID      func() string
}

// ExecuteCreateSession adds a weekly session to the catalog.
// PRE: Actor is ADMIN
// POST: Session persisted with a fresh id, an empty member set and isSubstitute=false
func ExecuteCreateSession(ctx context.Context, input CreateSessionInput, deps CatalogDeps) (session.Session, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return session.Session{}, err
	}

	s := session.Session{
		ID:                  deps.GenerateID(),
		Title:               strings.TrimSpace(input.Title),
		DayOfWeek:           input.DayOfWeek,
		StartTime:           strings.TrimSpace(input.StartTime),
		DurationMinutes:     input.DurationMinutes,
		InstructorID:        strings.TrimSpace(input.InstructorID),
		Capacity:            input.Capacity,
		EnrolledUserIDs:     []string{},
		Location:            strings.TrimSpace(input.Location),
		Difficulty:          input.Difficulty,
		IsSubstitute:        false,
		NotificationMessage: input.NotificationMessage,
	}
	if err := s.Validate(); err != nil {
		return session.Session{}, err
	}
	if err := checkInstructorExists(ctx, deps.InstructorStore, s.InstructorID); err != nil {
		return session.Session{}, err
	}

	if err := deps.SessionStore.Create(ctx, s); err != nil {
		return session.Session{}, err
	}

	slog.Info("catalog_event", "event", "session_created", "session_id", s.ID, "title", s.Title, "day", s.DayOfWeek, "start", s.StartTime)
	publishChange(ctx, deps.Changes, changefeed.TopicSessions)
	return s, nil
}

// UpdateSessionInput carries a partial catalog update.
type UpdateSessionInput struct {
	Actor viewer.Viewer
	ID    string
	Patch session.Patch
}

// ExecuteUpdateSession merges a patch into a session.
// PRE: Actor is ADMIN
// POST: The stored record either reflects the whole patch or is unchanged
func ExecuteUpdateSession(ctx context.Context, input UpdateSessionInput, deps CatalogDeps) (session.Session, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return session.Session{}, err
	}
	if input.Patch.IsEmpty() {
		return deps.SessionStore.GetByID(ctx, input.ID)
	}

	updated, err := deps.SessionStore.Update(ctx, input.ID, func(s *session.Session) error {
		s.Apply(input.Patch)
		s.Title = strings.TrimSpace(s.Title)
		return s.Validate()
	})
	if err != nil {
		return session.Session{}, err
	}

	slog.Info("catalog_event", "event", "session_updated", "session_id", updated.ID)
	publishChange(ctx, deps.Changes, changefeed.TopicSessions)
	return updated, nil
}

// DeleteSessionInput identifies the session to remove.
type DeleteSessionInput struct {
	Actor viewer.Viewer
	ID    string
}

// ExecuteDeleteSession removes a session. Nothing else references a session id.
// PRE: Actor is ADMIN
// POST: Session removed, or storage.ErrNotFound
func ExecuteDeleteSession(ctx context.Context, input DeleteSessionInput, deps CatalogDeps) error {
	if err := requireAdmin(input.Actor); err != nil {
		return err
	}
	if err := deps.SessionStore.Delete(ctx, input.ID); err != nil {
		return err
	}
	slog.Info("catalog_event", "event", "session_deleted", "session_id", input.ID)
	publishChange(ctx, deps.Changes, changefeed.TopicSessions)
	return nil
}

func checkInstructorExists(ctx context.Context, store InstructorLookup, id string) error {
	if store == nil {
		return nil
	}
	_, err := store.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return &session.ValidationError{Field: "instructorId", Reason: "does not match an instructor"}
	}
	return err
}
