package projections

import (
	"context"

	accountStore "studio/internal/adapters/storage/account"
	"studio/internal/domain/account"
)

// StudentSummary is a student as listed in the admin directory.
type StudentSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	HasPaid  bool   `json:"hasPaid"`
	Bookings int    `json:"bookings"`
}

// StudentListDeps holds dependencies for the directory projection.
type StudentListDeps struct {
	AccountStore AccountLister
	SessionStore SessionLister
}

// QueryStudentList returns students ordered by name with their booking counts.
// PRE: limit <= 0 means no limit
func QueryStudentList(ctx context.Context, limit, offset int, deps StudentListDeps) ([]StudentSummary, error) {
	students, err := deps.AccountStore.List(ctx, accountStore.ListFilter{Role: account.RoleStudent, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	sessions, err := deps.SessionStore.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, s := range sessions {
		for _, id := range s.EnrolledUserIDs {
			counts[id]++
		}
	}

	out := make([]StudentSummary, 0, len(students))
	for _, a := range students {
		out = append(out, StudentSummary{
			ID:       a.ID,
			Name:     a.Name,
			Username: a.Username,
			Email:    a.Email,
			HasPaid:  a.HasPaid,
			Bookings: counts[a.ID],
		})
	}
	return out, nil
}
