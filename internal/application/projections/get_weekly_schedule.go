package projections

import (
	"context"
	"slices"
	"strings"
	"time"

	accountStore "studio/internal/adapters/storage/account"
	"studio/internal/domain/account"
	"studio/internal/domain/instructor"
	"studio/internal/domain/schedule"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

// Display fallbacks for references that no longer resolve.
const (
	UnknownInstructor = "Unknown instructor"
	UnknownStudent    = "Unknown student"
)

// DateLabelLayout formats an occurrence for the timetable, e.g. "Wed 4 Mar".
const DateLabelLayout = "Mon 2 Jan"

// WeeklyScheduleDeps holds dependencies for the schedule projection.
type WeeklyScheduleDeps struct {
	SessionStore    SessionLister
	InstructorStore InstructorLister
	AccountStore    AccountLister // read only for admin viewers
}

// RosterEntry is one enrolled member as shown to the admin.
type RosterEntry struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	HasPaid  bool   `json:"hasPaid"`
}

// SessionCard is one session resolved for a viewer at a point in time.
type SessionCard struct {
	Session            session.Session `json:"session"`
	NextOccurrence     time.Time       `json:"nextOccurrence"`
	DateLabel          string          `json:"dateLabel"`
	InstructorName     string          `json:"instructorName"`
	InstructorImageURL string          `json:"instructorImageUrl,omitempty"`
	HomeInstructorName string          `json:"homeInstructorName,omitempty"` // set while substituted
	SeatsTaken         int             `json:"seatsTaken"`
	SeatsLeft          int             `json:"seatsLeft"`
	BookingOpen        bool            `json:"bookingOpen"`
	Action             viewer.Action   `json:"action"`
	Roster             []RosterEntry   `json:"roster,omitempty"` // admin only
}

// ScheduleDay groups a day's sessions in start-time order.
type ScheduleDay struct {
	DayOfWeek int           `json:"dayOfWeek"`
	DayName   string        `json:"dayName"`
	Sessions  []SessionCard `json:"sessions"`
}

// WeeklySchedule is the full timetable as one viewer sees it.
type WeeklySchedule struct {
	GeneratedAt time.Time     `json:"generatedAt"`
	RuleText    string        `json:"ruleText"`
	Viewer      string        `json:"viewer"`
	Days        []ScheduleDay `json:"days"`
}

// QueryWeeklySchedule projects the catalog onto the week starting at now.
// PRE: now carries the studio's location
// POST: Days holds 1..7 in order, each with sessions sorted by start time then title
// INVARIANT: Every card's Action is viewer.ResolveAction for the same viewer and now
func QueryWeeklySchedule(ctx context.Context, v viewer.Viewer, now time.Time, deps WeeklyScheduleDeps) (WeeklySchedule, error) {
	sessions, err := deps.SessionStore.List(ctx)
	if err != nil {
		return WeeklySchedule{}, err
	}
	instructors, err := deps.InstructorStore.List(ctx)
	if err != nil {
		return WeeklySchedule{}, err
	}
	byInstructor := make(map[string]instructor.Instructor, len(instructors))
	for _, i := range instructors {
		byInstructor[i.ID] = i
	}

	var students map[string]account.Account
	if v.IsAdmin() && deps.AccountStore != nil {
		list, err := deps.AccountStore.List(ctx, accountStore.ListFilter{Role: account.RoleStudent})
		if err != nil {
			return WeeklySchedule{}, err
		}
		students = make(map[string]account.Account, len(list))
		for _, a := range list {
			students[a.ID] = a
		}
	}

	days := make([]ScheduleDay, 7)
	for d := range days {
		days[d] = ScheduleDay{DayOfWeek: d + 1, DayName: schedule.DayName(d + 1), Sessions: []SessionCard{}}
	}

	for _, s := range sessions {
		if !schedule.IsValidDay(s.DayOfWeek) {
			continue
		}
		card := buildCard(v, s, now, byInstructor)
		if students != nil {
			card.Roster = roster(s.EnrolledUserIDs, students)
		}
		days[s.DayOfWeek-1].Sessions = append(days[s.DayOfWeek-1].Sessions, card)
	}
	for d := range days {
		slices.SortStableFunc(days[d].Sessions, func(a, b SessionCard) int {
			if c := strings.Compare(a.Session.StartTime, b.Session.StartTime); c != 0 {
				return c
			}
			return strings.Compare(a.Session.Title, b.Session.Title)
		})
	}

	return WeeklySchedule{
		GeneratedAt: now,
		RuleText:    schedule.BookingRuleText(),
		Viewer:      v.Kind().String(),
		Days:        days,
	}, nil
}

func buildCard(v viewer.Viewer, s session.Session, now time.Time, byInstructor map[string]instructor.Instructor) SessionCard {
	card := SessionCard{
		Session:        s,
		InstructorName: UnknownInstructor,
		SeatsTaken:     len(s.EnrolledUserIDs),
		SeatsLeft:      s.SeatsLeft(),
		Action:         viewer.ResolveAction(v, &s, now),
	}
	if occ, err := schedule.NextOccurrence(s.DayOfWeek, s.StartTime, now); err == nil {
		card.NextOccurrence = occ
		card.DateLabel = occ.Format(DateLabelLayout)
		card.BookingOpen = schedule.IsBookingOpen(occ, now)
	}
	if i, ok := byInstructor[s.InstructorID]; ok && i.Name != "" {
		card.InstructorName = i.Name
		card.InstructorImageURL = i.ImageURL
	}
	if s.IsSubstitute {
		card.HomeInstructorName = UnknownInstructor
		if home, ok := byInstructor[s.HomeInstructorID()]; ok && home.Name != "" {
			card.HomeInstructorName = home.Name
		}
	}
	return card
}

func roster(ids []string, students map[string]account.Account) []RosterEntry {
	out := make([]RosterEntry, 0, len(ids))
	for _, id := range ids {
		a, ok := students[id]
		if !ok {
			out = append(out, RosterEntry{UserID: id, Name: UnknownStudent})
			continue
		}
		out = append(out, RosterEntry{UserID: id, Name: a.Name, Username: a.Username, HasPaid: a.HasPaid})
	}
	return out
}
