package orchestrators

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"studio/internal/adapters/changefeed"
	"studio/internal/adapters/storage"
	"studio/internal/domain/account"
	"studio/internal/domain/instructor"
	"studio/internal/domain/viewer"
)

// --- Instructors ---

// TestExecuteCreateInstructor tests defaults and validation.
func TestExecuteCreateInstructor(t *testing.T) {
	store := newMockInstructorStore()
	pub := &recordingPublisher{}
	deps := InstructorDeps{InstructorStore: store, Sessions: newMockSessionStore(), Changes: pub, GenerateID: fixedID}

	i, err := ExecuteCreateInstructor(context.Background(), CreateInstructorInput{Actor: viewer.Admin("a1"), Name: " Marcus Cole ", Bio: "Yin"}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if i.Name != "Marcus Cole" || !strings.HasPrefix(i.ImageURL, "https://ui-avatars.com/api/?name=Marcus+Cole") {
		t.Errorf("instructor = %+v", i)
	}
	if !slices.Equal(pub.published(), []changefeed.Topic{changefeed.TopicInstructors}) {
		t.Errorf("published = %v", pub.published())
	}

	if _, err := ExecuteCreateInstructor(context.Background(), CreateInstructorInput{Actor: viewer.Admin("a1"), Name: " "}, deps); !errors.Is(err, instructor.ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if _, err := ExecuteCreateInstructor(context.Background(), CreateInstructorInput{Actor: viewer.Guest(), Name: "X"}, deps); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// TestExecuteDeleteInstructor tests the in-use guard.
func TestExecuteDeleteInstructor(t *testing.T) {
	ctx := context.Background()
	store := threeInstructors()
	s := wednesdayNoon() // taught by i1
	s.InstructorID, s.OriginalInstructorID, s.IsSubstitute = "i2", "i1", true
	deps := InstructorDeps{InstructorStore: store, Sessions: newMockSessionStore(s), GenerateID: fixedID}
	admin := viewer.Admin("a1")

	if err := ExecuteDeleteInstructor(ctx, DeleteInstructorInput{Actor: admin, ID: "i2"}, deps); !errors.Is(err, instructor.ErrInUse) {
		t.Errorf("current instructor: expected ErrInUse, got %v", err)
	}
	// Only the current instructor blocks deletion; the home instructor does not.
	if err := ExecuteDeleteInstructor(ctx, DeleteInstructorInput{Actor: admin, ID: "i1"}, deps); err != nil {
		t.Errorf("home instructor: %v", err)
	}
	if err := ExecuteDeleteInstructor(ctx, DeleteInstructorInput{Actor: admin, ID: "i1"}, deps); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Students ---

func studentDeps(accounts *mockAccountStore, sessions *mockSessionStore, pub *recordingPublisher) StudentDeps {
	return StudentDeps{AccountStore: accounts, Sessions: sessions, Changes: pub, GenerateID: fixedID, Now: fixedNow}
}

// TestExecuteCreateStudent_Defaults tests the defaults for an empty form.
func TestExecuteCreateStudent_Defaults(t *testing.T) {
	accounts := newMockAccountStore()
	a, err := ExecuteCreateStudent(context.Background(), CreateStudentInput{Actor: viewer.Admin("a1")},
		studentDeps(accounts, newMockSessionStore(), nil))
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != account.DefaultStudentName || a.Username != "usertestid" || a.HasPaid || a.Role != account.RoleStudent {
		t.Errorf("student = %+v", a)
	}
	if err := a.CheckPassword(DefaultStudentPassword); err != nil {
		t.Errorf("default password not set: %v", err)
	}
	if !a.CreatedAt.Equal(fixedTime) {
		t.Errorf("CreatedAt = %v", a.CreatedAt)
	}
}

// TestExecuteCreateStudent_UsernameTaken tests uniqueness.
func TestExecuteCreateStudent_UsernameTaken(t *testing.T) {
	accounts := newMockAccountStore(paidStudent("alice"))
	_, err := ExecuteCreateStudent(context.Background(), CreateStudentInput{Actor: viewer.Admin("a1"), Username: "alice"},
		studentDeps(accounts, newMockSessionStore(), nil))
	if !errors.Is(err, account.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

// TestExecuteUpdateStudent tests the payment toggle and password change.
func TestExecuteUpdateStudent(t *testing.T) {
	accounts := newMockAccountStore(unpaidStudent("S"), adminAccount("a1"))
	deps := studentDeps(accounts, newMockSessionStore(), &recordingPublisher{})
	admin := viewer.Admin("a1")

	a, err := ExecuteUpdateStudent(context.Background(), UpdateStudentInput{Actor: admin, ID: "S", Patch: StudentPatch{
		HasPaid:  ptr(true),
		Password: ptr("new-secret"),
	}}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if !a.HasPaid || a.CheckPassword("new-secret") != nil {
		t.Errorf("update not applied: %+v", a)
	}

	_, err = ExecuteUpdateStudent(context.Background(), UpdateStudentInput{Actor: admin, ID: "S", Patch: StudentPatch{Password: ptr("abc")}}, deps)
	if !errors.Is(err, account.ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
	_, err = ExecuteUpdateStudent(context.Background(), UpdateStudentInput{Actor: admin, ID: "a1", Patch: StudentPatch{HasPaid: ptr(true)}}, deps)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("admin via student directory: expected ErrNotFound, got %v", err)
	}
}

// TestExecuteDeleteStudent_Cascade tests removal from every member set.
func TestExecuteDeleteStudent_Cascade(t *testing.T) {
	a := wednesdayNoon()
	a.ID, a.Capacity, a.EnrolledUserIDs = "a", 3, []string{"S", "T"}
	b := wednesdayNoon()
	b.ID, b.EnrolledUserIDs = "b", []string{"T"}
	sessions := newMockSessionStore(a, b)
	accounts := newMockAccountStore(paidStudent("S"), paidStudent("T"))
	pub := &recordingPublisher{}

	if err := ExecuteDeleteStudent(context.Background(), DeleteStudentInput{Actor: viewer.Admin("a1"), ID: "T"},
		studentDeps(accounts, sessions, pub)); err != nil {
		t.Fatal(err)
	}
	if _, ok := accounts.accounts["T"]; ok {
		t.Error("account still present")
	}
	for _, id := range []string{"a", "b"} {
		if sessions.get(id).IsEnrolled("T") {
			t.Errorf("session %s still lists T", id)
		}
	}
	if !sessions.get("a").IsEnrolled("S") {
		t.Error("other members were removed")
	}
	if !slices.Equal(pub.published(), []changefeed.Topic{changefeed.TopicUsers, changefeed.TopicSessions}) {
		t.Errorf("published = %v", pub.published())
	}
}

// --- Login ---

// TestExecuteLogin tests credentials, lockout and the resulting viewer.
func TestExecuteLogin(t *testing.T) {
	ctx := context.Background()
	alice := paidStudent("alice")
	if err := alice.SetPassword("lotus123"); err != nil {
		t.Fatal(err)
	}
	accounts := newMockAccountStore(alice)
	now := fixedTime
	deps := LoginDeps{AccountStore: accounts, Now: func() time.Time { return now }}

	res, err := ExecuteLogin(ctx, LoginInput{Username: "alice", Password: "lotus123"}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Viewer.IsStudent() || res.Viewer.UserID() != "alice" || !res.Viewer.HasPaid() {
		t.Errorf("viewer = %+v", res.Viewer)
	}

	if _, err := ExecuteLogin(ctx, LoginInput{Username: "nobody", Password: "x"}, deps); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", err)
	}
	for range 5 {
		if _, err := ExecuteLogin(ctx, LoginInput{Username: "alice", Password: "wrong"}, deps); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("wrong password: %v", err)
		}
	}
	if _, err := ExecuteLogin(ctx, LoginInput{Username: "alice", Password: "lotus123"}, deps); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("expected ErrAccountLocked, got %v", err)
	}

	now = fixedTime.Add(16 * time.Minute)
	if _, err := ExecuteLogin(ctx, LoginInput{Username: "alice", Password: "lotus123"}, deps); err != nil {
		t.Errorf("after lockout expiry: %v", err)
	}
	if accounts.accounts["alice"].FailedLogins != 0 {
		t.Error("failed logins not reset")
	}
}

// --- Seeding ---

// TestExecuteSeed tests the admin and demo seeds and that rerunning them is harmless.
func TestExecuteSeed(t *testing.T) {
	ctx := context.Background()
	accounts := newMockAccountStore()
	instructors := newMockInstructorStore()
	sessions := newMockSessionStore()
	deps := SeedDeps{AccountStore: accounts, InstructorStore: instructors, SessionStore: sessions, GenerateID: fixedID, Now: fixedNow}

	for range 2 {
		if err := ExecuteSeedAdmin(ctx, deps, "admin", "change-me"); err != nil {
			t.Fatal(err)
		}
		if err := ExecuteSeedDemo(ctx, deps); err != nil {
			t.Fatal(err)
		}
	}

	admin, err := accounts.GetByUsername(ctx, "admin")
	if err != nil || !admin.IsAdmin() {
		t.Fatalf("admin = %+v, %v", admin, err)
	}
	if len(accounts.accounts) != 5 || len(instructors.instructors) != 4 || len(sessions.sessions) != 4 {
		t.Errorf("accounts=%d instructors=%d sessions=%d", len(accounts.accounts), len(instructors.instructors), len(sessions.sessions))
	}
	bob, _ := accounts.GetByUsername(ctx, "bob")
	if bob.HasPaid {
		t.Error("bob should be unpaid")
	}
	for _, s := range sessions.sessions {
		if err := s.Validate(); err != nil {
			t.Errorf("seeded session %s invalid: %v", s.ID, err)
		}
	}
	if got := sessions.get("c1").EnrolledUserIDs; !slices.Equal(got, []string{"student1", "student2"}) {
		t.Errorf("c1 members = %v", got)
	}
}
