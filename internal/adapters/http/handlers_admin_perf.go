package web

import (
	"net/http"
	"strconv"
	"time"
)

// handleAdminPerf handles GET /admin/perf?minutes=N: request percentiles and
// the slowest routes and queries over the window (default 15 minutes).
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if perfCollector == nil {
		http.Error(w, "timing is not enabled", http.StatusServiceUnavailable)
		return
	}
	window := 15 * time.Minute
	if v := r.URL.Query().Get("minutes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 24*60 {
			window = time.Duration(n) * time.Minute
		}
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-window), 10))
}
