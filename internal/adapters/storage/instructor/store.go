package instructor

import (
	"context"

	domain "studio/internal/domain/instructor"
)

// Store persists Instructor records.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Instructor, error)
	List(ctx context.Context) ([]domain.Instructor, error)
	Save(ctx context.Context, value domain.Instructor) error
	Delete(ctx context.Context, id string) error
}
