package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"horizon/internal/domain/user"
	"horizon/internal/shared/middleware"
)

func TestHandleMe_NotAuthenticated(t *testing.T) {
	users := &mockUserService{
		loggedInUserFunc: func(ctx context.Context, sessionSecret string) (*user.User, error) {
			return nil, nil
		},
	}

	handler := NewUserHandler(users)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rr := httptest.NewRecorder()

	handler.HandleMe(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestHandleMe_Success(t *testing.T) {
	users := &mockUserService{
		loggedInUserFunc: func(ctx context.Context, sessionSecret string) (*user.User, error) {
			if sessionSecret != "secret-1" {
				t.Errorf("secret = %q", sessionSecret)
			}
			return &user.User{ID: "doc-1", FirstName: "Ada", LastName: "Lovelace"}, nil
		},
	}

	handler := NewUserHandler(users)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "secret-1"})
	rr := httptest.NewRecorder()

	handler.HandleMe(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var u user.User
	if err := json.NewDecoder(rr.Body).Decode(&u); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if u.ID != "doc-1" {
		t.Errorf("user ID = %q", u.ID)
	}
}
