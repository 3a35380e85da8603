package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"horizon/internal/domain/linking"
	"horizon/internal/domain/user"
	"horizon/internal/shared/middleware"
)

type mockLinkingService struct {
	createLinkTokenFunc     func(ctx context.Context, u *user.User) (string, error)
	exchangePublicTokenFunc func(ctx context.Context, u *user.User, publicToken string) (*linking.Result, error)
	banksForUserFunc        func(ctx context.Context, userID string) ([]linking.BankLink, error)
}

func (m *mockLinkingService) CreateLinkToken(ctx context.Context, u *user.User) (string, error) {
	return m.createLinkTokenFunc(ctx, u)
}

func (m *mockLinkingService) ExchangePublicToken(ctx context.Context, u *user.User, publicToken string) (*linking.Result, error) {
	return m.exchangePublicTokenFunc(ctx, u, publicToken)
}

func (m *mockLinkingService) BanksForUser(ctx context.Context, userID string) ([]linking.BankLink, error) {
	return m.banksForUserFunc(ctx, userID)
}

// withUser places an authenticated user on the request context, as the
// session middleware would.
func withUser(r *http.Request, u *user.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserKey, u)
	return r.WithContext(ctx)
}

func TestHandleCreateLinkToken(t *testing.T) {
	links := &mockLinkingService{
		createLinkTokenFunc: func(ctx context.Context, u *user.User) (string, error) {
			if u.ID != "doc-1" {
				t.Errorf("user ID = %q", u.ID)
			}
			return "link-token-1", nil
		},
	}

	handler := NewLinkingHandler(links)

	req := httptest.NewRequest(http.MethodPost, "/api/link/token", nil)
	req = withUser(req, &user.User{ID: "doc-1"})
	rr := httptest.NewRecorder()

	handler.HandleCreateLinkToken(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp LinkTokenResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LinkToken != "link-token-1" {
		t.Errorf("linkToken = %q", resp.LinkToken)
	}
}

func TestHandleCreateLinkToken_NoUser(t *testing.T) {
	handler := NewLinkingHandler(&mockLinkingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/link/token", nil)
	rr := httptest.NewRecorder()

	handler.HandleCreateLinkToken(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestHandleExchange_Success(t *testing.T) {
	links := &mockLinkingService{
		exchangePublicTokenFunc: func(ctx context.Context, u *user.User, publicToken string) (*linking.Result, error) {
			if publicToken != "public-token-1" {
				t.Errorf("publicToken = %q", publicToken)
			}
			return &linking.Result{
				State: linking.StateDone,
				Link:  &linking.BankLink{ID: "doc-link-1", AccountID: "acct-1"},
			}, nil
		},
	}

	handler := NewLinkingHandler(links)

	req := httptest.NewRequest(http.MethodPost, "/api/link/exchange",
		strings.NewReader(`{"publicToken":"public-token-1"}`))
	req = withUser(req, &user.User{ID: "doc-1"})
	rr := httptest.NewRecorder()

	handler.HandleExchange(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
	}

	var link linking.BankLink
	if err := json.NewDecoder(rr.Body).Decode(&link); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if link.ID != "doc-link-1" {
		t.Errorf("link ID = %q", link.ID)
	}
}

func TestHandleExchange_NoAccounts(t *testing.T) {
	links := &mockLinkingService{
		exchangePublicTokenFunc: func(ctx context.Context, u *user.User, publicToken string) (*linking.Result, error) {
			return nil, &linking.StepError{State: linking.StateTokenExchanged, Err: linking.ErrNoAccounts}
		},
	}

	handler := NewLinkingHandler(links)

	req := httptest.NewRequest(http.MethodPost, "/api/link/exchange",
		strings.NewReader(`{"publicToken":"public-token-1"}`))
	req = withUser(req, &user.User{ID: "doc-1"})
	rr := httptest.NewRecorder()

	handler.HandleExchange(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rr.Code)
	}
}

func TestHandleExchange_MissingToken(t *testing.T) {
	handler := NewLinkingHandler(&mockLinkingService{})

	req := httptest.NewRequest(http.MethodPost, "/api/link/exchange", strings.NewReader(`{}`))
	req = withUser(req, &user.User{ID: "doc-1"})
	rr := httptest.NewRecorder()

	handler.HandleExchange(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleBanks(t *testing.T) {
	links := &mockLinkingService{
		banksForUserFunc: func(ctx context.Context, userID string) ([]linking.BankLink, error) {
			return []linking.BankLink{
				{ID: "doc-link-1", BankID: "item-1", AccessToken: "should-not-leak"},
			}, nil
		},
	}

	handler := NewLinkingHandler(links)

	req := httptest.NewRequest(http.MethodGet, "/api/banks", nil)
	req = withUser(req, &user.User{ID: "doc-1"})
	rr := httptest.NewRecorder()

	handler.HandleBanks(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "should-not-leak") {
		t.Error("access token leaked in response body")
	}
}
