package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/appwrite"
	"horizon/internal/shared/middleware"
)

// UserService is the slice of the user domain the auth handlers need.
type UserService interface {
	SignUp(ctx context.Context, params user.SignUpParams) (*user.User, *appwrite.Session, error)
	SignIn(ctx context.Context, params user.SignInParams) (*user.User, *appwrite.Session, error)
	LoggedInUser(ctx context.Context, sessionSecret string) (*user.User, error)
	Logout(ctx context.Context, sessionSecret string) error
}

type AuthHandler struct {
	users UserService
}

func NewAuthHandler(users UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// HandleSignUp registers a new user and opens a session.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params user.SignUpParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Printf("Error decoding sign-up request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if params.Email == "" || params.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	u, session, err := h.users.SignUp(r.Context(), params)
	if err != nil {
		log.Printf("Error signing up %s: %v", params.Email, err)
		writeAuthError(w, err)
		return
	}

	setSessionCookie(w, r, session.Secret)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(u)
}

// HandleSignIn opens a session for an existing user.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params user.SignInParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Printf("Error decoding sign-in request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, session, err := h.users.SignIn(r.Context(), params)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Printf("Error signing in %s: %v", params.Email, err)
		writeAuthError(w, err)
		return
	}

	setSessionCookie(w, r, session.Secret)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

// HandleLogout deletes the current session and clears the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.users.Logout(r.Context(), cookie.Value); err != nil {
			log.Printf("Error deleting session: %v", err)
		}
	}

	clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// writeAuthError maps identity service errors onto response codes. Invalid
// credentials and duplicate accounts are the caller's fault; anything else
// from downstream is a bad gateway.
func writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *appwrite.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Type == "user_already_exists":
			http.Error(w, "An account with this email already exists", http.StatusConflict)
			return
		case apiErr.Status == http.StatusUnauthorized:
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		case apiErr.Status >= 400 && apiErr.Status < 500:
			http.Error(w, apiErr.Message, http.StatusBadRequest)
			return
		}
	}
	http.Error(w, "Upstream service error", http.StatusBadGateway)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, secret string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    secret,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   isSecureRequest(r),
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   isSecureRequest(r),
	})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
