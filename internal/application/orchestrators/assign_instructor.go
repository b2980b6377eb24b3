package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"studio/internal/adapters/changefeed"
	"studio/internal/adapters/storage"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

// Notifier delivers a committed session's notification message to its members.
type Notifier interface {
	Notify(ctx context.Context, s session.Session, instructorName string) NoticeReport
}

// AssignInstructorInput carries input for a substitution or revert.
type AssignInstructorInput struct {
	Actor        viewer.Viewer
	SessionID    string
	InstructorID string
	Notification string // empty keeps the previous message
}

// AssignInstructorResult reports the committed session.
type AssignInstructorResult struct {
	Session session.Session
	Notices NoticeReport
}

// AssignInstructorDeps holds dependencies for AssignInstructor.
type AssignInstructorDeps struct {
	SessionStore    SessionUpdater
	InstructorStore InstructorLookup
	Notifier        Notifier        // optional
	Changes         ChangePublisher // optional
}

// ExecuteAssignInstructor moves a session to a new instructor, or back home.
// PRE: Actor is ADMIN; InstructorID names an existing instructor
// POST: IsSubstitute reflects whether the session is away from its home instructor
// INVARIANT: Notice delivery runs after commit and cannot undo the transition
func ExecuteAssignInstructor(ctx context.Context, input AssignInstructorInput, deps AssignInstructorDeps) (AssignInstructorResult, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return AssignInstructorResult{}, err
	}
	newID := strings.TrimSpace(input.InstructorID)
	if newID == "" {
		return AssignInstructorResult{}, &session.ValidationError{Field: "instructorId", Reason: "is required"}
	}

	inst, err := deps.InstructorStore.GetByID(ctx, newID)
	if errors.Is(err, storage.ErrNotFound) {
		return AssignInstructorResult{}, &session.ValidationError{Field: "instructorId", Reason: "does not match an instructor"}
	}
	if err != nil {
		return AssignInstructorResult{}, err
	}

	notification := strings.TrimSpace(input.Notification)
	var previous string
	updated, err := deps.SessionStore.Update(ctx, input.SessionID, func(s *session.Session) error {
		previous = s.InstructorID
		return s.Assign(newID, notification)
	})
	if err != nil {
		return AssignInstructorResult{}, err
	}

	slog.Info("substitution_event", "event", "instructor_assigned", "session_id", updated.ID,
		"from", previous, "to", updated.InstructorID, "home", updated.HomeInstructorID(), "substitute", updated.IsSubstitute)
	publishChange(ctx, deps.Changes, changefeed.TopicSessions)

	result := AssignInstructorResult{Session: updated}
	if notification != "" && deps.Notifier != nil {
		result.Notices = deps.Notifier.Notify(ctx, updated, inst.Name)
	}
	return result, nil
}
