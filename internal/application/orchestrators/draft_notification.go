package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"studio/internal/adapters/drafting"
	"studio/internal/adapters/storage"
	"studio/internal/domain/instructor"
	"studio/internal/domain/schedule"
	"studio/internal/domain/session"
	"studio/internal/domain/viewer"
)

// UnknownInstructorName is shown wherever an instructor id no longer resolves.
const UnknownInstructorName = "Unknown instructor"

// DefaultDraftTimeout bounds a single drafting call.
const DefaultDraftTimeout = 20 * time.Second

// Draft states.
const (
	DraftPending = "drafting"
	DraftReady   = "ready"
	DraftEdited  = "edited"
)

var (
	// ErrDraftFailed wraps drafter failures in logs. Callers never see it.
	ErrDraftFailed = errors.New("notification draft failed")
	// ErrNoDraft is returned when a session has no open draft workflow.
	ErrNoDraft = errors.New("no draft in progress for this class")
)

// Draft is the admin's in-progress notification for one session.
type Draft struct {
	SessionID    string `json:"sessionId"`
	InstructorID string `json:"instructorId"`
	Token        string `json:"token"`
	Status       string `json:"status"`
	Text         string `json:"text"`
	Fallback     bool   `json:"fallback"`
}

// SessionGetter loads one session.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (session.Session, error)
}

// DraftWorkflowDeps holds dependencies for DraftWorkflow.
type DraftWorkflowDeps struct {
	SessionStore    SessionGetter
	InstructorStore InstructorLookup
	Drafter         drafting.Drafter
	GenerateID      func() string
	Timeout         time.Duration // zero means DefaultDraftTimeout
}

type draftState struct {
	draft  Draft
	cancel context.CancelFunc
}

// DraftWorkflow runs notification drafting in the background, one workflow per
// session. Each Begin or Edit issues a new token; a drafting result is applied
// only while its token is still current, so a late draft never overwrites text
// the admin has typed since.
type DraftWorkflow struct {
	deps DraftWorkflowDeps

	mu     sync.Mutex
	drafts map[string]*draftState
	wg     sync.WaitGroup
}

// NewDraftWorkflow creates an empty workflow registry.
func NewDraftWorkflow(deps DraftWorkflowDeps) *DraftWorkflow {
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultDraftTimeout
	}
	return &DraftWorkflow{deps: deps, drafts: make(map[string]*draftState)}
}

// Begin starts drafting a notice for moving sessionID to instructorID.
// Any earlier workflow for the session is superseded.
// PRE: Actor is ADMIN
// POST: Returns the pending draft; its text arrives asynchronously
func (w *DraftWorkflow) Begin(ctx context.Context, actor viewer.Viewer, sessionID, instructorID string) (Draft, error) {
	if err := requireAdmin(actor); err != nil {
		return Draft{}, err
	}
	instructorID = strings.TrimSpace(instructorID)
	if instructorID == "" {
		return Draft{}, &session.ValidationError{Field: "instructorId", Reason: "is required"}
	}

	s, err := w.deps.SessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return Draft{}, err
	}
	newName, err := w.instructorName(ctx, instructorID)
	if err != nil {
		return Draft{}, err
	}
	oldName, err := w.instructorName(ctx, s.InstructorID)
	if err != nil {
		return Draft{}, err
	}
	req := drafting.Request{
		ClassName:     s.Title,
		OldInstructor: oldName,
		NewInstructor: newName,
		ClassTime:     schedule.FormatRecurring(s.DayOfWeek, s.StartTime),
	}

	// The draft outlives the request that started it.
	draftCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.deps.Timeout)
	d := Draft{
		SessionID:    sessionID,
		InstructorID: instructorID,
		Token:        w.deps.GenerateID(),
		Status:       DraftPending,
	}

	w.mu.Lock()
	if prev, ok := w.drafts[sessionID]; ok {
		prev.cancel()
	}
	w.drafts[sessionID] = &draftState{draft: d, cancel: cancel}
	w.mu.Unlock()

	slog.Info("draft_event", "event", "draft_started", "session_id", sessionID, "token", d.Token, "instructor_id", instructorID)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer cancel()
		text, fallback := w.run(draftCtx, req)
		w.apply(sessionID, d.Token, text, fallback)
	}()
	return d, nil
}

func (w *DraftWorkflow) run(ctx context.Context, req drafting.Request) (string, bool) {
	text, err := w.deps.Drafter.Draft(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = drafting.ErrEmptyDraft
	}
	if err != nil {
		slog.Warn("draft_event", "event", "draft_failed", "class", req.ClassName, "error", fmt.Errorf("%w: %w", ErrDraftFailed, err).Error())
		return drafting.FallbackText, true
	}
	return strings.TrimSpace(text), false
}

// apply stores text if token still names the session's current workflow.
func (w *DraftWorkflow) apply(sessionID, token, text string, fallback bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.drafts[sessionID]
	if !ok || st.draft.Token != token {
		slog.Info("draft_event", "event", "draft_discarded", "session_id", sessionID, "token", token)
		return false
	}
	st.draft.Text = text
	st.draft.Fallback = fallback
	st.draft.Status = DraftReady
	slog.Info("draft_event", "event", "draft_ready", "session_id", sessionID, "token", token, "fallback", fallback)
	return true
}

// Get returns the current draft for sessionID.
func (w *DraftWorkflow) Get(sessionID string) (Draft, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.drafts[sessionID]
	if !ok {
		return Draft{}, ErrNoDraft
	}
	return st.draft, nil
}

// Edit replaces the draft text with the admin's own. Any drafting still in
// flight for the session is cancelled and its result discarded.
// PRE: Actor is ADMIN; sessionID names an existing session
// POST: Draft status is edited and carries a fresh token
func (w *DraftWorkflow) Edit(ctx context.Context, actor viewer.Viewer, sessionID, text string) (Draft, error) {
	if err := requireAdmin(actor); err != nil {
		return Draft{}, err
	}
	if _, err := w.deps.SessionStore.GetByID(ctx, sessionID); err != nil {
		return Draft{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	st, ok := w.drafts[sessionID]
	if !ok {
		st = &draftState{draft: Draft{SessionID: sessionID}, cancel: func() {}}
		w.drafts[sessionID] = st
	}
	st.cancel()
	st.cancel = func() {}
	st.draft.Token = w.deps.GenerateID()
	st.draft.Text = text
	st.draft.Fallback = false
	st.draft.Status = DraftEdited
	return st.draft, nil
}

// Close abandons the session's workflow. Closing an absent workflow is a no-op.
// PRE: Actor is ADMIN
func (w *DraftWorkflow) Close(actor viewer.Viewer, sessionID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if st, ok := w.drafts[sessionID]; ok {
		st.cancel()
		delete(w.drafts, sessionID)
		slog.Info("draft_event", "event", "draft_closed", "session_id", sessionID)
	}
	return nil
}

// Wait blocks until every background draft has finished.
func (w *DraftWorkflow) Wait() {
	w.wg.Wait()
}

func (w *DraftWorkflow) instructorName(ctx context.Context, id string) (string, error) {
	inst, err := w.deps.InstructorStore.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return UnknownInstructorName, nil
	}
	if err != nil {
		return "", err
	}
	return displayName(inst), nil
}

func displayName(i instructor.Instructor) string {
	if strings.TrimSpace(i.Name) == "" {
		return UnknownInstructorName
	}
	return i.Name
}
