package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studio/internal/adapters/changefeed"
	"studio/internal/adapters/storage"
	"studio/internal/domain/account"
	"studio/internal/domain/viewer"
)

// DefaultStudentPassword is set on students created without one.
const DefaultStudentPassword = "123456"

// StudentStore is the account surface used by the student directory.
type StudentStore interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Delete(ctx context.Context, id string) error
}

// MemberRemover drops a user from every session's member set.
type MemberRemover interface {
	RemoveMember(ctx context.Context, userID string) ([]string, error)
}

// StudentDeps holds dependencies for the student directory orchestrators.
type StudentDeps struct {
	AccountStore StudentStore
	Sessions     MemberRemover
	Changes      ChangePublisher // optional
	GenerateID   func() string
	Now          func() time.Time
}

// CreateStudentInput carries input for adding a student. Every field is optional.
type CreateStudentInput struct {
	Actor    viewer.Viewer
	Name     string
	Username string
	Email    string
	Password string
	HasPaid  bool
}

// ExecuteCreateStudent adds a student account.
// PRE: Actor is ADMIN
// POST: Student persisted with defaults for omitted fields
// INVARIANT: Usernames are unique
func ExecuteCreateStudent(ctx context.Context, input CreateStudentInput, deps StudentDeps) (account.Account, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return account.Account{}, err
	}

	id := deps.GenerateID()
	a := account.Account{
		ID:        id,
		Name:      strings.TrimSpace(input.Name),
		Username:  strings.TrimSpace(input.Username),
		Email:     strings.TrimSpace(input.Email),
		Role:      account.RoleStudent,
		HasPaid:   input.HasPaid,
		CreatedAt: deps.Now(),
	}
	if a.Name == "" {
		a.Name = account.DefaultStudentName
	}
	if a.Username == "" {
		a.Username = generatedUsername(id)
	}
	password := input.Password
	if password == "" {
		password = DefaultStudentPassword
	}

	if err := a.Validate(); err != nil {
		return account.Account{}, err
	}
	if err := a.SetPassword(password); err != nil {
		return account.Account{}, err
	}
	if err := deps.AccountStore.Save(ctx, a); err != nil {
		return account.Account{}, err
	}

	slog.Info("student_event", "event", "student_created", "user_id", a.ID, "username", a.Username, "has_paid", a.HasPaid)
	publishChange(ctx, deps.Changes, changefeed.TopicUsers)
	return a, nil
}

func generatedUsername(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 6 {
		compact = compact[:6]
	}
	return "user" + compact
}

// StudentPatch carries a partial student update. Nil fields are unchanged.
type StudentPatch struct {
	Name     *string
	Username *string
	Email    *string
	Password *string
	HasPaid  *bool
}

// UpdateStudentInput carries input for editing a student.
type UpdateStudentInput struct {
	Actor viewer.Viewer
	ID    string
	Patch StudentPatch
}

// ExecuteUpdateStudent edits a student. A payment change takes effect on the
// student's next booking attempt.
// PRE: Actor is ADMIN
// POST: Student saved with the patch applied
func ExecuteUpdateStudent(ctx context.Context, input UpdateStudentInput, deps StudentDeps) (account.Account, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return account.Account{}, err
	}
	a, err := loadStudent(ctx, deps.AccountStore, input.ID)
	if err != nil {
		return account.Account{}, err
	}

	p := input.Patch
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Username != nil {
		a.Username = strings.TrimSpace(*p.Username)
	}
	if p.Email != nil {
		a.Email = strings.TrimSpace(*p.Email)
	}
	if p.HasPaid != nil {
		a.HasPaid = *p.HasPaid
	}
	if err := a.Validate(); err != nil {
		return account.Account{}, err
	}
	if p.Password != nil {
		if err := a.SetPassword(*p.Password); err != nil {
			return account.Account{}, err
		}
	}
	if err := deps.AccountStore.Save(ctx, a); err != nil {
		return account.Account{}, err
	}

	slog.Info("student_event", "event", "student_updated", "user_id", a.ID, "has_paid", a.HasPaid)
	publishChange(ctx, deps.Changes, changefeed.TopicUsers)
	return a, nil
}

// DeleteStudentInput identifies the student to remove.
type DeleteStudentInput struct {
	Actor viewer.Viewer
	ID    string
}

// ExecuteDeleteStudent removes a student and drops them from every class.
// PRE: Actor is ADMIN
// POST: Account removed; no session lists the id
func ExecuteDeleteStudent(ctx context.Context, input DeleteStudentInput, deps StudentDeps) error {
	if err := requireAdmin(input.Actor); err != nil {
		return err
	}
	if _, err := loadStudent(ctx, deps.AccountStore, input.ID); err != nil {
		return err
	}
	if err := deps.AccountStore.Delete(ctx, input.ID); err != nil {
		return err
	}
	changed, err := deps.Sessions.RemoveMember(ctx, input.ID)
	if err != nil {
		return fmt.Errorf("remove %s from classes: %w", input.ID, err)
	}

	slog.Info("student_event", "event", "student_deleted", "user_id", input.ID, "sessions_changed", len(changed))
	publishChange(ctx, deps.Changes, changefeed.TopicUsers)
	if len(changed) > 0 {
		publishChange(ctx, deps.Changes, changefeed.TopicSessions)
	}
	return nil
}

// loadStudent hides admin accounts from the student directory.
func loadStudent(ctx context.Context, store StudentStore, id string) (account.Account, error) {
	a, err := store.GetByID(ctx, id)
	if err != nil {
		return account.Account{}, err
	}
	if !a.IsStudent() {
		return account.Account{}, fmt.Errorf("student %s: %w", id, storage.ErrNotFound)
	}
	return a, nil
}
