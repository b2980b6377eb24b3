package web

import "net/http"

// registerRoutes mounts every handler. Admin checks happen inside handlers so
// a wrong method still gets 405 from the mux before any auth work.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", handleLogin)
	mux.HandleFunc("POST /api/logout", handleLogout)
	mux.HandleFunc("GET /api/me", handleMe)
	mux.HandleFunc("GET /api/me/bookings", handleMyBookings)

	mux.HandleFunc("GET /api/schedule", handleSchedule)
	mux.HandleFunc("GET /ws/schedule", handleScheduleSocket)

	mux.HandleFunc("GET /api/sessions", handleListSessions)
	mux.HandleFunc("POST /api/sessions", handleCreateSession)
	mux.HandleFunc("PUT /api/sessions/{id}", handleUpdateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/book", handleBookSession)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", handleCancelSession)
	mux.HandleFunc("POST /api/sessions/{id}/instructor", handleAssignInstructor)

	mux.HandleFunc("POST /api/sessions/{id}/draft", handleBeginDraft)
	mux.HandleFunc("GET /api/sessions/{id}/draft", handleGetDraft)
	mux.HandleFunc("PUT /api/sessions/{id}/draft", handleEditDraft)
	mux.HandleFunc("DELETE /api/sessions/{id}/draft", handleCloseDraft)

	mux.HandleFunc("GET /api/instructors", handleListInstructors)
	mux.HandleFunc("POST /api/instructors", handleCreateInstructor)
	mux.HandleFunc("DELETE /api/instructors/{id}", handleDeleteInstructor)

	mux.HandleFunc("GET /api/students", handleListStudents)
	mux.HandleFunc("POST /api/students", handleCreateStudent)
	mux.HandleFunc("PUT /api/students/{id}", handleUpdateStudent)
	mux.HandleFunc("DELETE /api/students/{id}", handleDeleteStudent)

	mux.HandleFunc("GET /admin/outbox", handleAdminOutbox)
	mux.HandleFunc("POST /admin/outbox/{id}/retry", handleAdminOutboxRetry)
	mux.HandleFunc("POST /admin/outbox/{id}/abandon", handleAdminOutboxAbandon)
	mux.HandleFunc("GET /admin/perf", handleAdminPerf)
}
