package web

import (
	"net/http"

	"studio/internal/application/listutil"
	"studio/internal/application/orchestrators"
	"studio/internal/domain/outbox"
)

// outboxProcessor returns the shared processor, or one without executors when
// none is wired. Without executors a retry marks the entry failed.
func outboxProcessor() *orchestrators.OutboxProcessor {
	if services != nil && services.Outbox != nil {
		return services.Outbox
	}
	return orchestrators.NewOutboxProcessor(stores.OutboxStore, nil).WithClock(now)
}

// handleAdminOutbox handles GET /admin/outbox?status=pending|all&limit=N&offset=M.
// The default lists the most recent entries in every state.
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()

	win := listutil.ParseWindow(r.URL.Query(), listutil.Outbox)
	// The store has no offset; read through the window and slice.
	limit := win.Limit + win.Offset

	var entries []outbox.Entry
	var err error
	switch r.URL.Query().Get("status") {
	case "pending":
		entries, err = stores.OutboxStore.ListPending(ctx, limit)
	case "", "all":
		entries, err = stores.OutboxStore.ListRecent(ctx, limit)
	default:
		badRequest(w, "status must be pending or all")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries = listutil.Apply(entries, win)
	writeJSON(w, http.StatusOK, entries)
}

// handleAdminOutboxRetry handles POST /admin/outbox/{id}/retry. It runs the
// entry once now, ignoring backoff, and returns its new state.
func handleAdminOutboxRetry(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	entry, err := outboxProcessor().ProcessSingle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleAdminOutboxAbandon handles POST /admin/outbox/{id}/abandon
func handleAdminOutboxAbandon(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	id := r.PathValue("id")
	if err := outboxProcessor().AbandonEntry(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": outbox.StatusAbandoned})
}
