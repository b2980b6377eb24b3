package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"studio/internal/adapters/changefeed"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

// ErrForbidden is returned when the actor's role or identity does not permit the operation.
var ErrForbidden = errors.New("not permitted for this user")

// requireAdmin rejects every actor except ADMIN.
func requireAdmin(actor viewer.Viewer) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// resolveTarget decides whose membership an enrollment call acts on.
// ADMIN may name any user; STUDENT acts only for themselves; GUEST never.
func resolveTarget(actor viewer.Viewer, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	switch actor.Kind() {
	case viewer.KindAdmin:
		if userID == "" {
			return "", &session.ValidationError{Field: "userId", Reason: "is required"}
		}
		return userID, nil
	case viewer.KindStudent:
		if userID != "" && userID != actor.UserID() {
			return "", ErrForbidden
		}
		return actor.UserID(), nil
	}
	return "", ErrForbidden
}

// ChangePublisher signals that a collection changed after a commit.
type ChangePublisher interface {
	Publish(ctx context.Context, topic changefeed.Topic) error
}

// publishChange is best effort: the mutation has already committed.
func publishChange(ctx context.Context, p ChangePublisher, topics ...changefeed.Topic) {
	if p == nil {
		return
	}
	for _, topic := range topics {
		if err := p.Publish(ctx, topic); err != nil {
			slog.Warn("changefeed_publish_failed", "topic", topic, "error", err.Error())
		}
	}
}
