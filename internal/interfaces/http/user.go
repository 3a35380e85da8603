package http

import (
	"encoding/json"
	"log"
	"net/http"

	"horizon/internal/shared/middleware"
)

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// HandleMe returns the user behind the session cookie. Unlike the protected
// routes this reads the cookie directly, so clients can probe whether they
// are signed in without tripping the session middleware.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	secret := ""
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		secret = cookie.Value
	}

	u, err := h.users.LoggedInUser(r.Context(), secret)
	if err != nil {
		log.Printf("Error resolving session: %v", err)
		http.Error(w, "Failed to resolve session", http.StatusInternalServerError)
		return
	}
	if u == nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}
