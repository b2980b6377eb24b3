package web

import (
	"errors"
	"net/http"

	"studio/internal/adapters/http/middleware"
	"studio/internal/adapters/storage"
	"studio/internal/application/orchestrators"
	"studio/internal/domain/account"
	"studio/internal/domain/viewer"
)

// meResponse describes the logged-in user to the client.
type meResponse struct {
	Kind     string `json:"kind"`
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	HasPaid  bool   `json:"hasPaid"`
}

func meFromAccount(a account.Account) meResponse {
	v := viewer.FromAccount(a)
	return meResponse{
		Kind:     v.Kind().String(),
		ID:       a.ID,
		Name:     a.Name,
		Username: a.Username,
		HasPaid:  v.HasPaid(),
	}
}

// handleLogin handles POST /api/login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := strictDecode(r, &input); err != nil {
		badRequest(w, "invalid JSON")
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Username: input.Username,
		Password: input.Password,
	}, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
		Now:          now,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := sessions.Create(result.Account.ID, result.Account.Username, result.Account.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, meFromAccount(result.Account))
}

// handleLogout handles POST /api/logout. Logging out twice is harmless.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /api/me. Guests get {"kind":"guest"}.
func handleMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, meResponse{Kind: viewer.KindGuest.String()})
		return
	}
	acct, err := stores.AccountStore.GetByID(r.Context(), sess.AccountID)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusOK, meResponse{Kind: viewer.KindGuest.String()})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meFromAccount(acct))
}
