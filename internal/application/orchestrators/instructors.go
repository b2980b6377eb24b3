package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"studio/internal/adapters/changefeed"
	"studio/internal/domain/instructor"
	"studio/internal/domain/viewer"
)

// InstructorStore is the registry surface used by instructor orchestrators.
type InstructorStore interface {
	GetByID(ctx context.Context, id string) (instructor.Instructor, error)
	Save(ctx context.Context, i instructor.Instructor) error
	Delete(ctx context.Context, id string) error
}

// InstructorUsage counts sessions currently taught by an instructor.
type InstructorUsage interface {
	CountByInstructor(ctx context.Context, instructorID string) (int, error)
}

// InstructorDeps holds dependencies for the instructor orchestrators.
type InstructorDeps struct {
	InstructorStore InstructorStore
	Sessions        InstructorUsage
	Changes         ChangePublisher // optional
	GenerateID      func() string
}

// CreateInstructorInput carries input for adding an instructor.
type CreateInstructorInput struct {
	Actor    viewer.Viewer
	Name     string
	Bio      string
	ImageURL string // empty selects a generated avatar
}

// ExecuteCreateInstructor adds an instructor to the registry.
// PRE: Actor is ADMIN
// POST: Instructor persisted with a fresh id and a non-empty image URL
func ExecuteCreateInstructor(ctx context.Context, input CreateInstructorInput, deps InstructorDeps) (instructor.Instructor, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return instructor.Instructor{}, err
	}
	i := instructor.Instructor{
		ID:       deps.GenerateID(),
		Name:     strings.TrimSpace(input.Name),
		Bio:      strings.TrimSpace(input.Bio),
		ImageURL: strings.TrimSpace(input.ImageURL),
	}
	if err := i.Validate(); err != nil {
		return instructor.Instructor{}, err
	}
	if i.ImageURL == "" {
		i.ImageURL = instructor.AvatarURL(i.Name)
	}
	if err := deps.InstructorStore.Save(ctx, i); err != nil {
		return instructor.Instructor{}, err
	}
	slog.Info("instructor_event", "event", "instructor_created", "instructor_id", i.ID, "name", i.Name)
	publishChange(ctx, deps.Changes, changefeed.TopicInstructors)
	return i, nil
}

// DeleteInstructorInput identifies the instructor to remove.
type DeleteInstructorInput struct {
	Actor viewer.Viewer
	ID    string
}

// ExecuteDeleteInstructor removes an instructor that no session currently uses.
// A session whose home instructor is deleted shows it as unknown.
// PRE: Actor is ADMIN
// POST: Instructor removed, or instructor.ErrInUse / storage.ErrNotFound
func ExecuteDeleteInstructor(ctx context.Context, input DeleteInstructorInput, deps InstructorDeps) error {
	if err := requireAdmin(input.Actor); err != nil {
		return err
	}
	n, err := deps.Sessions.CountByInstructor(ctx, input.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("instructor %s teaches %d classes: %w", input.ID, n, instructor.ErrInUse)
	}
	if err := deps.InstructorStore.Delete(ctx, input.ID); err != nil {
		return err
	}
	slog.Info("instructor_event", "event", "instructor_deleted", "instructor_id", input.ID)
	publishChange(ctx, deps.Changes, changefeed.TopicInstructors)
	return nil
}
