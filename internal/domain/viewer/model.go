package viewer

import (
	"fmt"
	"time"

	"studio/internal/domain/account"
	"studio/internal/domain/schedule"
	"studio/internal/domain/session"
)

// Kind is the closed set of viewer roles.
type Kind int

const (
	KindGuest Kind = iota
	KindStudent
	KindAdmin
)

func (k Kind) String() string {
	switch k {
	case KindStudent:
		return account.RoleStudent
	case KindAdmin:
		return account.RoleAdmin
	}
	return "guest"
}

// Viewer is who is looking at the schedule. The zero value is the guest.
type Viewer struct {
	kind    Kind
	userID  string
	hasPaid bool
}

// Guest is the unauthenticated sentinel.
func Guest() Viewer { return Viewer{} }

// Admin builds an admin viewer.
func Admin(userID string) Viewer { return Viewer{kind: KindAdmin, userID: userID} }

// Student builds a student viewer with live payment state.
func Student(userID string, hasPaid bool) Viewer {
	return Viewer{kind: KindStudent, userID: userID, hasPaid: hasPaid}
}

// FromAccount maps a persisted account to its viewer.
func FromAccount(a account.Account) Viewer {
	if a.IsAdmin() {
		return Admin(a.ID)
	}
	return Student(a.ID, a.HasPaid)
}

func (v Viewer) Kind() Kind { return v.kind }
func (v Viewer) UserID() string { return v.userID }
func (v Viewer) HasPaid() bool { return v.hasPaid }
func (v Viewer) IsGuest() bool { return v.kind == KindGuest }
func (v Viewer) IsAdmin() bool { return v.kind == KindAdmin }
func (v Viewer) IsStudent() bool { return v.kind == KindStudent }
func (v Viewer) IsUnpaid() bool { return v.kind == KindStudent && !v.hasPaid }

// Action kinds exposed on a session card.
const (
	ActionManage        = "MANAGE"
	ActionLogin         = "LOGIN"
	ActionCancel        = "CANCEL"
	ActionBook          = "BOOK"
	ActionBlockedUnpaid = "BLOCKED_UNPAID"
	ActionBlockedWindow = "BLOCKED_WINDOW"
	ActionBlockedFull   = "BLOCKED_FULL"
)

// Action is the single affordance shown to a viewer for a session.
type Action struct {
	Kind    string `json:"kind"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// ResolveAction decides the affordance for v on s at now. First match wins:
// admin, guest, already enrolled, unpaid student, window closed, full, book.
// A session whose weekly pattern cannot be projected is treated as outside the window.
func ResolveAction(v Viewer, s *session.Session, now time.Time) Action {
	switch {
	case v.IsAdmin():
		return Action{Kind: ActionManage, Label: "Manage", Enabled: true}
	case v.IsGuest():
		return Action{Kind: ActionLogin, Label: "Log in to book", Enabled: true}
	case s.IsEnrolled(v.UserID()):
		return Action{Kind: ActionCancel, Label: "Cancel", Enabled: true}
	case v.IsUnpaid():
		return Action{Kind: ActionBlockedUnpaid, Label: "Membership unpaid", Enabled: false}
	case !bookingOpen(s, now):
		return Action{Kind: ActionBlockedWindow, Label: windowLabel(), Enabled: false}
	case s.IsFull():
		return Action{Kind: ActionBlockedFull, Label: "Full", Enabled: false}
	}
	return Action{Kind: ActionBook, Label: "Book", Enabled: true}
}

func bookingOpen(s *session.Session, now time.Time) bool {
	occ, err := schedule.NextOccurrence(s.DayOfWeek, s.StartTime, now)
	if err != nil {
		return false
	}
	return schedule.IsBookingOpen(occ, now)
}

func windowLabel() string {
	return fmt.Sprintf("Not open yet (within %dh)", int(schedule.BookingWindow.Hours()))
}
