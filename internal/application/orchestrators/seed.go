package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"studio/internal/adapters/storage"
	"studio/internal/domain/account"
	"studio/internal/domain/instructor"
	"studio/internal/domain/session"
)

// SeedAccountStore is the account surface used by seeding.
type SeedAccountStore interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// SeedSessionStore is the session surface used by seeding.
type SeedSessionStore interface {
	GetByID(ctx context.Context, id string) (session.Session, error)
	Create(ctx context.Context, s session.Session) error
}

// SeedInstructorStore is the instructor surface used by seeding.
type SeedInstructorStore interface {
	GetByID(ctx context.Context, id string) (instructor.Instructor, error)
	Save(ctx context.Context, i instructor.Instructor) error
}

// SeedDeps holds stores needed for seeding.
type SeedDeps struct {
	AccountStore    SeedAccountStore
	InstructorStore SeedInstructorStore
	SessionStore    SeedSessionStore
	GenerateID      func() string
	Now             func() time.Time
}

// ExecuteSeedAdmin creates the admin account if its username is not taken.
// PRE: Database is initialized
// POST: An account named username exists
func ExecuteSeedAdmin(ctx context.Context, deps SeedDeps, username, password string) error {
	_, err := deps.AccountStore.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	a := account.Account{
		ID:        deps.GenerateID(),
		Name:      "Studio Admin",
		Username:  username,
		Role:      account.RoleAdmin,
		CreatedAt: deps.Now(),
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if err := a.SetPassword(password); err != nil {
		return err
	}
	if err := deps.AccountStore.Save(ctx, a); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "admin_seeded", "username", username)
	return nil
}

// demoPassword is shared by every seeded demo student.
const demoPassword = "lotus123"

func demoInstructors() []instructor.Instructor {
	return []instructor.Instructor{
		{ID: "i1", Name: "Sarah Jenkins", Bio: "Vinyasa flow and breath work. Ten years of teaching early risers."},
		{ID: "i2", Name: "David Chen", Bio: "Hatha and alignment. Former physiotherapist."},
		{ID: "i3", Name: "Elena Rodriguez", Bio: "Power yoga and arm balances."},
		{ID: "i4", Name: "Marcus Cole", Bio: "Yin, restorative and guided meditation."},
	}
}

func demoSessions() []session.Session {
	return []session.Session{
		{ID: "c1", Title: "Sunrise Vinyasa", DayOfWeek: 1, StartTime: "08:00", DurationMinutes: 60, InstructorID: "i1",
			Capacity: 20, EnrolledUserIDs: []string{"student1", "student2"}, Location: "Studio A", Difficulty: session.DifficultyIntermediate},
		{ID: "c2", Title: "Power Lunch", DayOfWeek: 3, StartTime: "12:00", DurationMinutes: 45, InstructorID: "i3",
			Capacity: 15, EnrolledUserIDs: []string{"student3"}, Location: "Studio B", Difficulty: session.DifficultyAdvanced},
		{ID: "c3", Title: "Evening Yin", DayOfWeek: 5, StartTime: "18:30", DurationMinutes: 75, InstructorID: "i4",
			Capacity: 25, EnrolledUserIDs: []string{}, Location: "Studio A", Difficulty: session.DifficultyBeginner},
		{ID: "c4", Title: "Weekend Hatha", DayOfWeek: 6, StartTime: "10:00", DurationMinutes: 90, InstructorID: "i2",
			Capacity: 20, EnrolledUserIDs: []string{}, Location: "Studio C", Difficulty: session.DifficultyBeginner},
	}
}

func demoStudents() []account.Account {
	return []account.Account{
		{ID: "student1", Name: "Alice Smith", Username: "alice", Email: "alice@example.com", HasPaid: true},
		{ID: "student2", Name: "Bob Jones", Username: "bob", Email: "bob@example.com", HasPaid: false},
		{ID: "student3", Name: "Charlie Day", Username: "charlie", HasPaid: true},
		{ID: "student4", Name: "Diana Prince", Username: "diana", HasPaid: true},
	}
}

// ExecuteSeedDemo loads demo instructors, classes and students for local development.
// Records that already exist are left alone, so running it twice is harmless.
// PRE: Database is initialized
// POST: Demo records exist
func ExecuteSeedDemo(ctx context.Context, deps SeedDeps) error {
	for _, i := range demoInstructors() {
		if _, err := deps.InstructorStore.GetByID(ctx, i.ID); err == nil {
			continue
		}
		i.ImageURL = instructor.AvatarURL(i.Name)
		if err := deps.InstructorStore.Save(ctx, i); err != nil {
			return err
		}
	}

	for _, a := range demoStudents() {
		if _, err := deps.AccountStore.GetByUsername(ctx, a.Username); err == nil {
			continue
		}
		a.Role = account.RoleStudent
		a.CreatedAt = deps.Now()
		if err := a.SetPassword(demoPassword); err != nil {
			return err
		}
		if err := deps.AccountStore.Save(ctx, a); err != nil {
			return err
		}
	}

	for _, s := range demoSessions() {
		if _, err := deps.SessionStore.GetByID(ctx, s.ID); err == nil {
			continue
		}
		if err := deps.SessionStore.Create(ctx, s); err != nil {
			return err
		}
	}

	slog.Info("seed_event", "event", "demo_seeded", "instructors", len(demoInstructors()), "sessions", len(demoSessions()), "students", len(demoStudents()))
	return nil
}
