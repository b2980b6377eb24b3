package web

import (
	"net/http"

	"studio/internal/application/listutil"
	"studio/internal/application/orchestrators"
	"studio/internal/application/projections"
	"studio/internal/domain/account"
	"studio/internal/domain/instructor"
)

// handleListInstructors handles GET /api/instructors. The registry is public
// because the schedule shows instructor names and photos to guests.
func handleListInstructors(w http.ResponseWriter, r *http.Request) {
	list, err := stores.InstructorStore.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []instructor.Instructor{}
	}
	writeJSON(w, http.StatusOK, list)
}

func instructorDeps() orchestrators.InstructorDeps {
	return orchestrators.InstructorDeps{
		InstructorStore: stores.InstructorStore,
		Sessions:        stores.SessionStore,
		Changes:         publisher(),
		GenerateID:      generateID,
	}
}

// handleCreateInstructor handles POST /api/instructors
func handleCreateInstructor(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var body struct {
		Name     string `json:"name"`
		Bio      string `json:"bio"`
		ImageURL string `json:"imageUrl"`
	}
	if err := strictDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	created, err := orchestrators.ExecuteCreateInstructor(r.Context(), orchestrators.CreateInstructorInput{
		Actor:    actor,
		Name:     body.Name,
		Bio:      body.Bio,
		ImageURL: body.ImageURL,
	}, instructorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleDeleteInstructor handles DELETE /api/instructors/{id}
func handleDeleteInstructor(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteDeleteInstructor(r.Context(), orchestrators.DeleteInstructorInput{
		Actor: actor,
		ID:    r.PathValue("id"),
	}, instructorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// studentResponse is the public shape of a student account; the password
// hash and lockout state never leave the server.
type studentResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	HasPaid  bool   `json:"hasPaid"`
}

func toStudentResponse(a account.Account) studentResponse {
	return studentResponse{ID: a.ID, Name: a.Name, Username: a.Username, Email: a.Email, HasPaid: a.HasPaid}
}

func studentDeps() orchestrators.StudentDeps {
	return orchestrators.StudentDeps{
		AccountStore: stores.AccountStore,
		Sessions:     stores.SessionStore,
		Changes:      publisher(),
		GenerateID:   generateID,
		Now:          now,
	}
}

// handleListStudents handles GET /api/students?limit=&offset=
func handleListStudents(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	win := listutil.ParseWindow(r.URL.Query(), listutil.Directory)

	list, err := projections.QueryStudentList(r.Context(), win.Limit, win.Offset, projections.StudentListDeps{
		AccountStore: stores.AccountStore,
		SessionStore: stores.SessionStore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateStudent handles POST /api/students. Every field is optional.
func handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var body struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		HasPaid  bool   `json:"hasPaid"`
	}
	if err := optionalDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	created, err := orchestrators.ExecuteCreateStudent(r.Context(), orchestrators.CreateStudentInput{
		Actor:    actor,
		Name:     body.Name,
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
		HasPaid:  body.HasPaid,
	}, studentDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentResponse(created))
}

// handleUpdateStudent handles PUT /api/students/{id}
func handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	var body struct {
		Name     *string `json:"name"`
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		HasPaid  *bool   `json:"hasPaid"`
	}
	if err := strictDecode(r, &body); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	updated, err := orchestrators.ExecuteUpdateStudent(r.Context(), orchestrators.UpdateStudentInput{
		Actor: actor,
		ID:    r.PathValue("id"),
		Patch: orchestrators.StudentPatch{
			Name:     body.Name,
			Username: body.Username,
			Email:    body.Email,
			Password: body.Password,
			HasPaid:  body.HasPaid,
		},
	}, studentDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentResponse(updated))
}

// handleDeleteStudent handles DELETE /api/students/{id}. The student's
// logins are revoked along with the account.
func handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := orchestrators.ExecuteDeleteStudent(r.Context(), orchestrators.DeleteStudentInput{Actor: actor, ID: id}, studentDeps()); err != nil {
		writeError(w, r, err)
		return
	}
	sessions.DeleteAccount(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleMyBookings handles GET /api/me/bookings: the student's upcoming
// classes in date order. Other viewers get an empty list.
func handleMyBookings(w http.ResponseWriter, r *http.Request) {
	v, ok := requireViewer(w, r)
	if !ok {
		return
	}
	cards, err := projections.QueryStudentBookings(r.Context(), v, now(), projections.StudentBookingsDeps{
		SessionStore:    stores.SessionStore,
		InstructorStore: stores.InstructorStore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}
