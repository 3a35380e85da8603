package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"horizon/internal/domain/linking"
	"horizon/internal/domain/user"
	"horizon/internal/shared/middleware"
)

// LinkingService is the slice of the linking domain the handlers need.
type LinkingService interface {
	CreateLinkToken(ctx context.Context, u *user.User) (string, error)
	ExchangePublicToken(ctx context.Context, u *user.User, publicToken string) (*linking.Result, error)
	BanksForUser(ctx context.Context, userID string) ([]linking.BankLink, error)
}

type LinkingHandler struct {
	links LinkingService
}

func NewLinkingHandler(links LinkingService) *LinkingHandler {
	return &LinkingHandler{links: links}
}

type LinkTokenResponse struct {
	LinkToken string `json:"linkToken"`
}

type ExchangeRequest struct {
	PublicToken string `json:"publicToken"`
}

// HandleCreateLinkToken mints a fresh token for the client-side linking widget.
func (h *LinkingHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	token, err := h.links.CreateLinkToken(r.Context(), u)
	if err != nil {
		log.Printf("Error creating link token for user %s: %v", u.ID, err)
		http.Error(w, "Failed to create link token", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LinkTokenResponse{LinkToken: token})
}

// HandleExchange runs the public-token exchange flow and returns the new link.
func (h *LinkingHandler) HandleExchange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	var req ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding exchange request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PublicToken == "" {
		http.Error(w, "publicToken is required", http.StatusBadRequest)
		return
	}

	result, err := h.links.ExchangePublicToken(r.Context(), u, req.PublicToken)
	if err != nil {
		var stepErr *linking.StepError
		if errors.As(err, &stepErr) {
			log.Printf("Exchange failed for user %s at %s: %v", u.ID, stepErr.State, stepErr.Err)
		} else {
			log.Printf("Exchange failed for user %s: %v", u.ID, err)
		}

		if errors.Is(err, linking.ErrNoAccounts) {
			http.Error(w, "Bank connection has no accounts", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "Failed to link bank account", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result.Link)
}

// HandleBanks lists the user's linked banks.
func (h *LinkingHandler) HandleBanks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	links, err := h.links.BanksForUser(r.Context(), u.ID)
	if err != nil {
		log.Printf("Error listing banks for user %s: %v", u.ID, err)
		http.Error(w, "Failed to list banks", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(links)
}
