package web

import (
	"net/http"

	"studio/internal/application/orchestrators"
	"studio/internal/application/projections"
	"studio/internal/domain/session"
)

// handleSchedule handles GET /api/schedule. The schedule is viewer specific:
// admins see rosters, students see their own book/cancel actions.
func handleSchedule(w http.ResponseWriter, r *http.Request) {
	v, ok := requireViewer(w, r)
	if !ok {
		return
	}
	schedule, err := projections.QueryWeeklySchedule(r.Context(), v, now(), scheduleDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func scheduleDeps() projections.WeeklyScheduleDeps {
	return projections.WeeklyScheduleDeps{
		SessionStore:    stores.SessionStore,
		InstructorStore: stores.InstructorStore,
		AccountStore:    stores.AccountStore,
	}
}

// handleListSessions handles GET /api/sessions (admin catalog view).
func handleListSessions(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	list, err := stores.SessionStore.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []session.Session{}
	}
	writeJSON(w, http.StatusOK, list)
}

// sessionBody is the create payload. dayOfWeek, capacity and
// durationMinutes accept numbers or numeric strings.
type sessionBody struct {
	Title               string  `json:"title"`
	DayOfWeek           flexInt `json:"dayOfWeek"`
	StartTime           string  `json:"startTimeStr"`
	DurationMinutes     flexInt `json:"durationMinutes"`
	InstructorID        string  `json:"instructorId"`
	Capacity            flexInt `json:"capacity"`
	Location            string  `json:"location"`
	Difficulty          string  `json:"difficulty"`
	NotificationMessage string  `json:"notificationMessage"`
}

// handleCreateSession handles POST /api/sessions
func handleCreateSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var body sessionBody
	if err := strictDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}

	created, err := orchestrators.ExecuteCreateSession(r.Context(), orchestrators.CreateSessionInput{
		Actor:               actor,
		Title:               body.Title,
		DayOfWeek:           body.DayOfWeek.Value,
		StartTime:           body.StartTime,
		DurationMinutes:     body.DurationMinutes.Value,
		InstructorID:        body.InstructorID,
		Capacity:            body.Capacity.Value,
		Location:            body.Location,
		Difficulty:          body.Difficulty,
		NotificationMessage: body.NotificationMessage,
	}, catalogDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// sessionPatchBody is the update payload. Absent fields are left untouched.
type sessionPatchBody struct {
	Title               *string `json:"title"`
	DayOfWeek           flexInt `json:"dayOfWeek"`
	StartTime           *string `json:"startTimeStr"`
	DurationMinutes     flexInt `json:"durationMinutes"`
	Capacity            flexInt `json:"capacity"`
	Location            *string `json:"location"`
	Difficulty          *string `json:"difficulty"`
	NotificationMessage *string `json:"notificationMessage"`
}

func (b sessionPatchBody) patch() session.Patch {
	return session.Patch{
		Title:               b.Title,
		DayOfWeek:           b.DayOfWeek.ptr(),
		StartTime:           b.StartTime,
		DurationMinutes:     b.DurationMinutes.ptr(),
		Capacity:            b.Capacity.ptr(),
		Location:            b.Location,
		Difficulty:          b.Difficulty,
		NotificationMessage: b.NotificationMessage,
	}
}

// handleUpdateSession handles PUT /api/sessions/{id}. Instructor changes go
// through the assign endpoint so substitution state stays consistent.
func handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var body sessionPatchBody
	if err := strictDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}

	updated, err := orchestrators.ExecuteUpdateSession(r.Context(), orchestrators.UpdateSessionInput{
		Actor: actor,
		ID:    r.PathValue("id"),
		Patch: body.patch(),
	}, catalogDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteSession handles DELETE /api/sessions/{id}
func handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	err := orchestrators.ExecuteDeleteSession(r.Context(), orchestrators.DeleteSessionInput{Actor: actor, ID: id}, catalogDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if services != nil && services.Drafts != nil {
		if err := services.Drafts.Close(actor, id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// enrollmentBody names the member for admin calls; students may omit it.
type enrollmentBody struct {
	UserID string `json:"userId"`
}

// enrollmentResponse reports the committed session after book or cancel.
type enrollmentResponse struct {
	Session   session.Session `json:"session"`
	Changed   bool            `json:"changed"`
	SeatsLeft int             `json:"seatsLeft"`
}

// handleBookSession handles POST /api/sessions/{id}/book
func handleBookSession(w http.ResponseWriter, r *http.Request) {
	v, ok := requireViewer(w, r)
	if !ok {
		return
	}
	var body enrollmentBody
	if err := optionalDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}

	result, err := orchestrators.ExecuteBookSession(r.Context(), orchestrators.BookSessionInput{
		Actor:     v,
		SessionID: r.PathValue("id"),
		UserID:    body.UserID,
	}, orchestrators.BookSessionDeps{
		SessionStore: stores.SessionStore,
		AccountStore: stores.AccountStore,
		Changes:      publisher(),
		Now:          now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentResponse{
		Session:   result.Session,
		Changed:   result.Outcome == session.Booked,
		SeatsLeft: result.Session.SeatsLeft(),
	})
}

// handleCancelSession handles POST /api/sessions/{id}/cancel
func handleCancelSession(w http.ResponseWriter, r *http.Request) {
	v, ok := requireViewer(w, r)
	if !ok {
		return
	}
	var body enrollmentBody
	if err := optionalDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}

	result, err := orchestrators.ExecuteCancelSession(r.Context(), orchestrators.CancelSessionInput{
		Actor:     v,
		SessionID: r.PathValue("id"),
		UserID:    body.UserID,
	}, orchestrators.CancelSessionDeps{
		SessionStore: stores.SessionStore,
		Changes:      publisher(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentResponse{
		Session:   result.Session,
		Changed:   result.Changed,
		SeatsLeft: result.Session.SeatsLeft(),
	})
}

// handleAssignInstructor handles POST /api/sessions/{id}/instructor.
// Assigning the home instructor reverts a substitution.
func handleAssignInstructor(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var body struct {
		InstructorID string `json:"instructorId"`
		Notification string `json:"notification"`
	}
	if err := strictDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	id := r.PathValue("id")

	result, err := orchestrators.ExecuteAssignInstructor(r.Context(), orchestrators.AssignInstructorInput{
		Actor:        actor,
		SessionID:    id,
		InstructorID: body.InstructorID,
		Notification: body.Notification,
	}, orchestrators.AssignInstructorDeps{
		SessionStore:    stores.SessionStore,
		InstructorStore: stores.InstructorStore,
		Notifier:        notifier(),
		Changes:         publisher(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	// The assignment settles the workflow; a draft still running is stale.
	if services != nil && services.Drafts != nil {
		if err := services.Drafts.Close(actor, id); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  result.Session,
		"state":    result.Session.State(),
		"notified": result.Notices.Sent,
		"queued":   result.Notices.Queued,
	})
}
