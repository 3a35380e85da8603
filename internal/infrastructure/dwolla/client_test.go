package dwolla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testServer serves the token endpoint plus a caller-provided handler for
// everything else, counting token requests.
func testServer(t *testing.T, handler http.HandlerFunc) (*Client, *int) {
	t.Helper()
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "app-key" || pass != "app-secret" {
			t.Errorf("bad basic auth: %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "app-token-1",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "app-key", "app-secret", 5*time.Second), &tokenCalls
}

func TestCreateCustomer(t *testing.T) {
	client, tokenCalls := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer app-token-1" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}

		var params CustomerParams
		json.NewDecoder(r.Body).Decode(&params)
		if params.Type != "personal" {
			t.Errorf("type = %q, want personal", params.Type)
		}
		if params.FirstName != "Ada" {
			t.Errorf("firstName = %q", params.FirstName)
		}

		w.Header().Set("Location", "https://api-sandbox.dwolla.com/customers/abc123")
		w.WriteHeader(http.StatusCreated)
	})

	customerURL, err := client.CreateCustomer(context.Background(), CustomerParams{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	})
	if err != nil {
		t.Fatalf("CreateCustomer() failed: %v", err)
	}
	if customerURL != "https://api-sandbox.dwolla.com/customers/abc123" {
		t.Errorf("customerURL = %q", customerURL)
	}
	if *tokenCalls != 1 {
		t.Errorf("token calls = %d, want 1", *tokenCalls)
	}
}

func TestCreateFundingSource(t *testing.T) {
	client, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		want := "/customers/abc123/funding-sources"
		if r.URL.Path != want {
			t.Errorf("path = %q, want %q", r.URL.Path, want)
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["plaidToken"] != "processor-token" {
			t.Errorf("plaidToken = %q", body["plaidToken"])
		}
		if body["name"] != "First Platypus Bank" {
			t.Errorf("name = %q", body["name"])
		}

		w.Header().Set("Location", "https://api-sandbox.dwolla.com/funding-sources/fs-1")
		w.WriteHeader(http.StatusCreated)
	})

	fsURL, err := client.CreateFundingSource(context.Background(), "abc123", "processor-token", "First Platypus Bank")
	if err != nil {
		t.Fatalf("CreateFundingSource() failed: %v", err)
	}
	if fsURL != "https://api-sandbox.dwolla.com/funding-sources/fs-1" {
		t.Errorf("fsURL = %q", fsURL)
	}
}

func TestCreateCustomer_MissingLocation(t *testing.T) {
	client, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	_, err := client.CreateCustomer(context.Background(), CustomerParams{FirstName: "Ada"})
	if err == nil {
		t.Error("CreateCustomer() expected error for missing Location header")
	}
}

func TestTokenCaching(t *testing.T) {
	client, tokenCalls := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://api-sandbox.dwolla.com/customers/c")
		w.WriteHeader(http.StatusCreated)
	})

	for i := 0; i < 3; i++ {
		if _, err := client.CreateCustomer(context.Background(), CustomerParams{FirstName: "Ada"}); err != nil {
			t.Fatalf("CreateCustomer() #%d failed: %v", i, err)
		}
	}

	if *tokenCalls != 1 {
		t.Errorf("token calls = %d, want 1 (token should be cached)", *tokenCalls)
	}
}

func TestRemoveFundingSource(t *testing.T) {
	var gotRemoved bool
	client, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/funding-sources/fs-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]bool
		json.NewDecoder(r.Body).Decode(&body)
		gotRemoved = body["removed"]
		w.WriteHeader(http.StatusOK)
	})

	// The client follows the resource URL it was handed back.
	err := client.RemoveFundingSource(context.Background(), client.baseURL+"/funding-sources/fs-1")
	if err != nil {
		t.Fatalf("RemoveFundingSource() failed: %v", err)
	}
	if !gotRemoved {
		t.Error("request body missing removed=true")
	}
}

func TestAPIError_Decode(t *testing.T) {
	client, _ := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"code":    "ValidationError",
			"message": "Validation error(s) present. See embedded errors list for more details.",
		})
	})

	_, err := client.CreateCustomer(context.Background(), CustomerParams{})
	if err == nil {
		t.Fatal("CreateCustomer() expected error, got nil")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Code != "ValidationError" || apiErr.Status != http.StatusBadRequest {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestExtractResourceID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://api-sandbox.dwolla.com/customers/abc123", "abc123"},
		{"https://api-sandbox.dwolla.com/customers/abc123/", "abc123"},
		{"abc123", "abc123"},
	}

	for _, tt := range tests {
		if got := ExtractResourceID(tt.url); got != tt.want {
			t.Errorf("ExtractResourceID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
