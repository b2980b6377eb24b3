package projections

import (
	"context"

	accountStore "studio/internal/adapters/storage/account"
	"studio/internal/domain/account"
	"studio/internal/domain/instructor"
	"studio/internal/domain/session"
)

// SessionLister returns the whole session catalog.
type SessionLister interface {
	List(ctx context.Context) ([]session.Session, error)
}

// InstructorLister returns every instructor.
type InstructorLister interface {
	List(ctx context.Context) ([]instructor.Instructor, error)
}

// AccountLister returns accounts matching a filter.
type AccountLister interface {
	List(ctx context.Context, filter accountStore.ListFilter) ([]account.Account, error)
}
