package projections

import (
	"context"
	"slices"
	"time"

	"studio/internal/domain/instructor"
	"studio/internal/domain/viewer"
)

// StudentBookingsDeps holds dependencies for the bookings projection.
type StudentBookingsDeps struct {
	SessionStore    SessionLister
	InstructorStore InstructorLister
}

// QueryStudentBookings lists the viewer's booked sessions, soonest first.
// PRE: v is a student
// POST: Every returned card's session lists v.UserID()
func QueryStudentBookings(ctx context.Context, v viewer.Viewer, now time.Time, deps StudentBookingsDeps) ([]SessionCard, error) {
	if !v.IsStudent() {
		return []SessionCard{}, nil
	}
	sessions, err := deps.SessionStore.List(ctx)
	if err != nil {
		return nil, err
	}
	instructors, err := deps.InstructorStore.List(ctx)
	if err != nil {
		return nil, err
	}
	byInstructor := make(map[string]instructor.Instructor, len(instructors))
	for _, i := range instructors {
		byInstructor[i.ID] = i
	}

	cards := []SessionCard{}
	for _, s := range sessions {
		if !s.IsEnrolled(v.UserID()) {
			continue
		}
		cards = append(cards, buildCard(v, s, now, byInstructor))
	}
	slices.SortStableFunc(cards, func(a, b SessionCard) int {
		return a.NextOccurrence.Compare(b.NextOccurrence)
	})
	return cards, nil
}
