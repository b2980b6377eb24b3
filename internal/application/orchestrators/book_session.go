package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"studio/internal/adapters/changefeed"
	sessionStore "studio/internal/adapters/storage/session"
	"studio/internal/domain/account"
	"studio/internal/domain/schedule"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

// SessionUpdater is the atomic read-modify-write used by every session mutation.
type SessionUpdater interface {
	Update(ctx context.Context, id string, fn sessionStore.MutateFunc) (session.Session, error)
}

// AccountLookup loads the live account record.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

// BookSessionInput carries input for the booking orchestrator.
type BookSessionInput struct {
	Actor     viewer.Viewer
	SessionID string
	UserID    string // required for ADMIN; optional (self) for STUDENT
}

// BookSessionResult carries the committed session and what happened.
type BookSessionResult struct {
	Session session.Session
	Outcome session.BookOutcome
}

// BookSessionDeps holds dependencies for BookSession.
type BookSessionDeps struct {
	SessionStore SessionUpdater
	AccountStore AccountLookup
	Changes      ChangePublisher // optional
	Now          func() time.Time
}

// ExecuteBookSession enrolls a user in a session.
// PRE: SessionID is non-empty
// PRE: The target account is a student
// POST: On Booked, the user id is in the member set exactly once and the set fits capacity
// INVARIANT: Payment is read from the account at call time; the membership and
// capacity checks run inside the same transaction as the write
func ExecuteBookSession(ctx context.Context, input BookSessionInput, deps BookSessionDeps) (BookSessionResult, error) {
	target, err := resolveTarget(input.Actor, input.UserID)
	if err != nil {
		return BookSessionResult{}, err
	}

	acct, err := deps.AccountStore.GetByID(ctx, target)
	if err != nil {
		return BookSessionResult{}, fmt.Errorf("load user %s: %w", target, err)
	}
	// Only student accounts hold seats.
	if !acct.IsStudent() {
		slog.Warn("auth_denied", "action", "book_session", "actor", input.Actor.Kind().String(), "target", target, "reason", "target_not_student")
		return BookSessionResult{}, ErrForbidden
	}
	enrollee := session.Enrollee{UserID: acct.ID, IsStudent: acct.IsStudent(), HasPaid: acct.HasPaid}

	// Students book only inside the window; an admin booking on their behalf is exempt.
	enforceWindow := input.Actor.IsStudent()
	now := deps.Now()

	var outcome session.BookOutcome
	updated, err := deps.SessionStore.Update(ctx, input.SessionID, func(s *session.Session) error {
		if !s.IsEnrolled(enrollee.UserID) {
			if enrollee.IsStudent && !enrollee.HasPaid {
				return session.ErrPaymentRequired
			}
			if enforceWindow {
				occ, err := schedule.NextOccurrence(s.DayOfWeek, s.StartTime, now)
				if err != nil || !schedule.IsBookingOpen(occ, now) {
					return schedule.ErrBookingClosed
				}
			}
		}
		var err error
		outcome, err = s.Book(enrollee)
		return err
	})
	if err != nil {
		slog.Info("booking_event", "event", "book_rejected", "session_id", input.SessionID, "user_id", target,
			"actor", input.Actor.Kind().String(), "reason", err.Error())
		return BookSessionResult{}, err
	}

	if outcome == session.Booked {
		slog.Info("booking_event", "event", "session_booked", "session_id", updated.ID, "user_id", target,
			"actor", input.Actor.Kind().String(), "seats_left", updated.SeatsLeft())
		publishChange(ctx, deps.Changes, changefeed.TopicSessions)
	}
	return BookSessionResult{Session: updated, Outcome: outcome}, nil
}
