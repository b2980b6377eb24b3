package orchestrators

import (
	"context"
	"errors"
	"log/slog"

	"studio/internal/adapters/changefeed"
	"studio/internal/adapters/storage"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

// CancelSessionInput carries input for the cancellation orchestrator.
type CancelSessionInput struct {
	Actor     viewer.Viewer
	SessionID string
	UserID    string // required for ADMIN; optional (self) for STUDENT
}

// CancelSessionResult reports whether the member set changed.
type CancelSessionResult struct {
	Session session.Session
	Changed bool
}

// CancelSessionDeps holds dependencies for CancelSession.
type CancelSessionDeps struct {
	SessionStore SessionUpdater
	Changes      ChangePublisher // optional
}

// ExecuteCancelSession removes a user from a session's member set.
// Cancelling a non-member, or on a session that no longer exists, is a no-op.
// PRE: SessionID is non-empty
// POST: The user id is not in the member set
func ExecuteCancelSession(ctx context.Context, input CancelSessionInput, deps CancelSessionDeps) (CancelSessionResult, error) {
	target, err := resolveTarget(input.Actor, input.UserID)
	if err != nil {
		return CancelSessionResult{}, err
	}

	var changed bool
	updated, err := deps.SessionStore.Update(ctx, input.SessionID, func(s *session.Session) error {
		changed = s.Cancel(target)
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("booking_event", "event", "cancel_noop", "session_id", input.SessionID, "user_id", target, "reason", "session_missing")
		return CancelSessionResult{}, nil
	}
	if err != nil {
		return CancelSessionResult{}, err
	}

	if changed {
		slog.Info("booking_event", "event", "session_cancelled", "session_id", updated.ID, "user_id", target,
			"actor", input.Actor.Kind().String())
		publishChange(ctx, deps.Changes, changefeed.TopicSessions)
	}
	return CancelSessionResult{Session: updated, Changed: changed}, nil
}
