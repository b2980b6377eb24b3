package web

import (
	"net/http"

	"studio/internal/application/orchestrators"
)

// drafts returns the draft workflow, writing a 503 when none is configured.
func drafts(w http.ResponseWriter) (*orchestrators.DraftWorkflow, bool) {
	if services == nil || services.Drafts == nil {
		http.Error(w, "notification drafting is not configured", http.StatusServiceUnavailable)
		return nil, false
	}
	return services.Drafts, true
}

// handleBeginDraft handles POST /api/sessions/{id}/draft. It answers at once
// with the pending draft; the client polls GET until the status is ready.
func handleBeginDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	wf, ok := drafts(w)
	if !ok {
		return
	}
	var body struct {
		InstructorID string `json:"instructorId"`
	}
	if err := strictDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}

	d, err := wf.Begin(r.Context(), actor, r.PathValue("id"), body.InstructorID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, d)
}

// handleGetDraft handles GET /api/sessions/{id}/draft
func handleGetDraft(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	wf, ok := drafts(w)
	if !ok {
		return
	}
	d, err := wf.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleEditDraft handles PUT /api/sessions/{id}/draft. Manual text wins
// over any draft still being generated.
func handleEditDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	wf, ok := drafts(w)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := strictDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	d, err := wf.Edit(r.Context(), actor, r.PathValue("id"), body.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleCloseDraft handles DELETE /api/sessions/{id}/draft
func handleCloseDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	wf, ok := drafts(w)
	if !ok {
		return
	}
	if err := wf.Close(actor, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
