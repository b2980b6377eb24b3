package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"studio/internal/domain/instructor"
	"studio/internal/domain/outbox"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

func threeInstructors() *mockInstructorStore {
	return newMockInstructorStore(
		instructor.Instructor{ID: "i1", Name: "Sarah Jenkins"},
		instructor.Instructor{ID: "i2", Name: "David Chen"},
		instructor.Instructor{ID: "i3", Name: "Elena Rodriguez"},
	)
}

// TestExecuteAssignInstructor_SubstituteAndRevert reassigns i1 → i2 → i1.
func TestExecuteAssignInstructor_SubstituteAndRevert(t *testing.T) {
	ctx := context.Background()
	sessions := newMockSessionStore(wednesdayNoon())
	pub := &recordingPublisher{}
	deps := AssignInstructorDeps{SessionStore: sessions, InstructorStore: threeInstructors(), Changes: pub}
	admin := viewer.Admin("a1")

	res, err := ExecuteAssignInstructor(ctx, AssignInstructorInput{Actor: admin, SessionID: "c2", InstructorID: "i2"}, deps)
	if err != nil {
		t.Fatalf("assign i2: %v", err)
	}
	if !res.Session.IsSubstitute || res.Session.OriginalInstructorID != "i1" || res.Session.InstructorID != "i2" {
		t.Fatalf("after i2: %+v", res.Session)
	}

	res, err = ExecuteAssignInstructor(ctx, AssignInstructorInput{Actor: admin, SessionID: "c2", InstructorID: "i1"}, deps)
	if err != nil {
		t.Fatalf("assign i1: %v", err)
	}
	s := res.Session
	if s.IsSubstitute || s.InstructorID != "i1" || s.OriginalInstructorID != "i1" {
		t.Errorf("after revert: %+v", s)
	}
	if len(pub.published()) != 2 {
		t.Errorf("published %d signals, want 2", len(pub.published()))
	}
}

// TestExecuteAssignInstructor_ChainedSubstitutions keeps the home instructor across A then B.
func TestExecuteAssignInstructor_ChainedSubstitutions(t *testing.T) {
	ctx := context.Background()
	sessions := newMockSessionStore(wednesdayNoon())
	deps := AssignInstructorDeps{SessionStore: sessions, InstructorStore: threeInstructors()}
	admin := viewer.Admin("a1")

	for _, id := range []string{"i2", "i3", "i1"} {
		if _, err := ExecuteAssignInstructor(ctx, AssignInstructorInput{Actor: admin, SessionID: "c2", InstructorID: id}, deps); err != nil {
			t.Fatalf("assign %s: %v", id, err)
		}
	}
	s := sessions.get("c2")
	if s.IsSubstitute || s.InstructorID != "i1" || s.OriginalInstructorID != "i1" {
		t.Errorf("final: %+v", s)
	}
}

// TestExecuteAssignInstructor_Rejections tests role and reference checks.
func TestExecuteAssignInstructor_Rejections(t *testing.T) {
	ctx := context.Background()
	sessions := newMockSessionStore(wednesdayNoon())
	deps := AssignInstructorDeps{SessionStore: sessions, InstructorStore: threeInstructors()}

	if _, err := ExecuteAssignInstructor(ctx, AssignInstructorInput{Actor: viewer.Student("S", true), SessionID: "c2", InstructorID: "i2"}, deps); !errors.Is(err, ErrForbidden) {
		t.Errorf("student: expected ErrForbidden, got %v", err)
	}
	_, err := ExecuteAssignInstructor(ctx, AssignInstructorInput{Actor: viewer.Admin("a1"), SessionID: "c2", InstructorID: "i9"}, deps)
	var ve *session.ValidationError
	if !errors.As(err, &ve) || ve.Field != "instructorId" {
		t.Errorf("unknown instructor: expected instructorId ValidationError, got %v", err)
	}
	if sessions.get("c2").InstructorID != "i1" {
		t.Error("rejected assign changed the session")
	}
}

// TestExecuteAssignInstructor_NotifiesMembers tests that notices go to members with an email after commit.
func TestExecuteAssignInstructor_NotifiesMembers(t *testing.T) {
	ctx := context.Background()
	s := wednesdayNoon()
	s.Capacity = 3
	s.EnrolledUserIDs = []string{"S", "T", "U"}
	sessions := newMockSessionStore(s)

	withEmail := paidStudent("S")
	withEmail.Email = "s@example.com"
	other := paidStudent("T")
	other.Email = "t@example.com"
	accounts := newMockAccountStore(withEmail, other, paidStudent("U"))

	sender := &mockSender{}
	notifier := &SubstitutionNotifier{
		Accounts: accounts, Sender: sender, Outbox: newMockOutboxStore(),
		FromAddress: "Lotus Studio <classes@lotus.example>", StudioName: "Lotus Studio",
		GenerateID: fixedID, Now: fixedNow,
	}
	res, err := ExecuteAssignInstructor(ctx, AssignInstructorInput{
		Actor: viewer.Admin("a1"), SessionID: "c2", InstructorID: "i2",
		Notification: "David will be **covering** this week.",
	}, AssignInstructorDeps{SessionStore: sessions, InstructorStore: threeInstructors(), Notifier: notifier})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Notices != (NoticeReport{Sent: 2}) || len(sender.sent) != 2 {
		t.Fatalf("notices=%+v sent=%d, want 2 sent", res.Notices, len(sender.sent))
	}
	if res.Session.NotificationMessage != "David will be **covering** this week." {
		t.Errorf("message = %q", res.Session.NotificationMessage)
	}
	html := sender.sent[0].HTML
	if !strings.Contains(html, "<strong>covering</strong>") || !strings.Contains(html, "David Chen") {
		t.Errorf("html = %s", html)
	}
	if sender.sent[0].Tag != "substitution" {
		t.Errorf("tag = %q", sender.sent[0].Tag)
	}
}

// TestExecuteAssignInstructor_EmptyNotificationKeepsMessage tests that no message means no notice and no overwrite.
func TestExecuteAssignInstructor_EmptyNotificationKeepsMessage(t *testing.T) {
	s := wednesdayNoon()
	s.NotificationMessage = "Earlier note"
	s.EnrolledUserIDs = []string{"S"}
	sender := &mockSender{}
	acct := paidStudent("S")
	acct.Email = "s@example.com"
	notifier := &SubstitutionNotifier{Accounts: newMockAccountStore(acct), Sender: sender, GenerateID: fixedID, Now: fixedNow}

	res, err := ExecuteAssignInstructor(context.Background(),
		AssignInstructorInput{Actor: viewer.Admin("a1"), SessionID: "c2", InstructorID: "i2"},
		AssignInstructorDeps{SessionStore: newMockSessionStore(s), InstructorStore: threeInstructors(), Notifier: notifier})
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.NotificationMessage != "Earlier note" {
		t.Errorf("message = %q", res.Session.NotificationMessage)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d notices without a new message", len(sender.sent))
	}
}

// TestSubstitutionNotifier_QueuesOnFailure tests that a failed send lands in the outbox per recipient.
func TestSubstitutionNotifier_QueuesOnFailure(t *testing.T) {
	s := wednesdayNoon()
	s.Capacity = 2
	s.EnrolledUserIDs = []string{"S", "T"}
	s.NotificationMessage = "Cover this week"
	a1, a2 := paidStudent("S"), paidStudent("T")
	a1.Email, a2.Email = "s@example.com", "t@example.com"

	store := newMockOutboxStore()
	notifier := &SubstitutionNotifier{
		Accounts: newMockAccountStore(a1, a2), Sender: &mockSender{failErr: errors.New("provider down")},
		Outbox: store, GenerateID: sequentialIDs(), Now: fixedNow,
	}
	if got := notifier.Notify(context.Background(), s, "David Chen"); got != (NoticeReport{Queued: 2}) {
		t.Fatalf("Notify = %+v, want 2 queued and none sent", got)
	}
	if len(store.entries) != 2 {
		t.Fatalf("queued %d entries, want 2", len(store.entries))
	}
	for _, e := range store.entries {
		if e.ActionType != outbox.ActionTypeSubstitutionNotice || e.Status != outbox.StatusRetrying || e.Attempts != 1 {
			t.Errorf("entry = %+v", e)
		}
		var p NoticePayload
		if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.To == "" || p.Subject != "Power Lunch: instructor change" {
			t.Errorf("payload = %+v", p)
		}
	}
}

// TestSubstitutionNotifier_NilSafe tests that an unconfigured notifier sends nothing.
func TestSubstitutionNotifier_NilSafe(t *testing.T) {
	var n *SubstitutionNotifier
	if got := n.Notify(context.Background(), session.Session{NotificationMessage: "x"}, ""); got != (NoticeReport{}) {
		t.Errorf("nil notifier returned %+v", got)
	}
}

// TestSubstitutionNotifier_OutlivesRequest tests that a notice whose request
// was cancelled after the assign committed still lands in the outbox.
func TestSubstitutionNotifier_OutlivesRequest(t *testing.T) {
	s := wednesdayNoon()
	s.EnrolledUserIDs = []string{"S"}
	s.NotificationMessage = "Cover this week"
	acct := paidStudent("S")
	acct.Email = "s@example.com"

	store := newMockOutboxStore()
	notifier := &SubstitutionNotifier{
		Accounts: newMockAccountStore(acct), Sender: &mockSender{failErr: errors.New("provider down")},
		Outbox: store, GenerateID: sequentialIDs(), Now: fixedNow,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := notifier.Notify(ctx, s, "David Chen"); got != (NoticeReport{Queued: 1}) {
		t.Fatalf("Notify = %+v, want 1 queued", got)
	}
	if len(store.entries) != 1 {
		t.Fatalf("queued %d entries, want 1", len(store.entries))
	}
}

// TestSubstitutionNotifier_QueueFailureNotCounted tests that a notice lost
// from both the provider and the outbox is reported as neither.
func TestSubstitutionNotifier_QueueFailureNotCounted(t *testing.T) {
	s := wednesdayNoon()
	s.EnrolledUserIDs = []string{"S"}
	s.NotificationMessage = "Cover this week"
	acct := paidStudent("S")
	acct.Email = "s@example.com"

	notifier := &SubstitutionNotifier{
		Accounts: newMockAccountStore(acct), Sender: &mockSender{failErr: errors.New("provider down")},
		GenerateID: sequentialIDs(), Now: fixedNow,
	}
	if got := notifier.Notify(context.Background(), s, "David Chen"); got != (NoticeReport{}) {
		t.Errorf("Notify = %+v, want nothing sent or queued", got)
	}
}
