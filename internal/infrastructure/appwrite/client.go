package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	accountPath        = "/account"
	emailSessionPath   = "/account/sessions/email"
	currentSessionPath = "/account/sessions/current"
)

// ErrNotAuthenticated is returned when a session secret is missing, expired,
// or rejected by the identity service.
var ErrNotAuthenticated = errors.New("not authenticated")

// Client handles communication with the identity/document service.
// Requests authenticated with the server API key act on behalf of the
// project; requests carrying a session secret act as that session's user.
type Client struct {
	httpClient *http.Client
	endpoint   string
	projectID  string
	apiKey     string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new identity service client.
func NewClient(endpoint, projectID, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(endpoint, "/"),
		projectID:  projectID,
		apiKey:     apiKey,
	}
}

// Account represents an identity account.
type Account struct {
	ID           string `json:"$id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Status       bool   `json:"status"`
	Registration string `json:"registration"`
}

// Session represents a password session. Secret is opaque and only ever
// surfaced to the client inside the session cookie.
type Session struct {
	ID       string `json:"$id"`
	UserID   string `json:"userId"`
	Secret   string `json:"secret"`
	Expire   string `json:"expire"`
	Provider string `json:"provider"`
}

// Document is a stored document. Data carries the collection attributes;
// service-managed fields ($id, $collectionId, ...) are lifted out.
type Document struct {
	ID           string
	CollectionID string
	Data         map[string]any
}

// UnmarshalJSON splits the service's flat document representation into
// metadata and attribute data.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	d.Data = make(map[string]any, len(raw))
	for k, v := range raw {
		if strings.HasPrefix(k, "$") {
			switch k {
			case "$id":
				d.ID, _ = v.(string)
			case "$collectionId":
				d.CollectionID, _ = v.(string)
			}
			continue
		}
		d.Data[k] = v
	}
	return nil
}

// String returns the attribute as a string, or "" when absent.
func (d *Document) String(attr string) string {
	s, _ := d.Data[attr].(string)
	return s
}

// DocumentList is the response for a document listing.
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// APIError is a decoded error response from the identity service.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity service error (status %d, type %s): %s", e.Status, e.Type, e.Message)
}

// QueryEqual builds an equality query for document listings.
func QueryEqual(attribute, value string) string {
	q, _ := json.Marshal(map[string]any{
		"method":    "equal",
		"attribute": attribute,
		"values":    []string{value},
	})
	return string(q)
}

// CreateAccount registers a new identity account.
func (c *Client) CreateAccount(ctx context.Context, userID, email, password, name string) (*Account, error) {
	body := map[string]string{
		"userId":   userID,
		"email":    email,
		"password": password,
		"name":     name,
	}

	var account Account
	if err := c.do(ctx, http.MethodPost, accountPath, "", body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateEmailSession creates a password session and returns its secret.
func (c *Client) CreateEmailSession(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, emailSessionPath, "", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetAccount fetches the account behind a session secret.
// Returns ErrNotAuthenticated when the session is missing or invalid.
func (c *Client) GetAccount(ctx context.Context, sessionSecret string) (*Account, error) {
	if sessionSecret == "" {
		return nil, ErrNotAuthenticated
	}

	var account Account
	if err := c.do(ctx, http.MethodGet, accountPath, sessionSecret, nil, &account); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	return &account, nil
}

// DeleteSession deletes the session behind a session secret.
func (c *Client) DeleteSession(ctx context.Context, sessionSecret string) error {
	return c.do(ctx, http.MethodDelete, currentSessionPath, sessionSecret, nil, nil)
}

// CreateDocument stores a document in the given database/collection scope.
func (c *Client) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*Document, error) {
	path := fmt.Sprintf("/databases/%s/collections/%s/documents", databaseID, collectionID)
	body := map[string]any{
		"documentId": documentID,
		"data":       data,
	}

	var doc Document
	if err := c.do(ctx, http.MethodPost, path, "", body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments lists documents matching the given queries.
func (c *Client) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []string) (*DocumentList, error) {
	path := fmt.Sprintf("/databases/%s/collections/%s/documents", databaseID, collectionID)
	if len(queries) > 0 {
		params := url.Values{}
		for _, q := range queries {
			params.Add("queries[]", q)
		}
		path += "?" + params.Encode()
	}

	var list DocumentList
	if err := c.do(ctx, http.MethodGet, path, "", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// do executes a request against the identity service. When sessionSecret is
// empty the server API key is used; otherwise the session header is sent.
func (c *Client) do(ctx context.Context, method, path, sessionSecret string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Appwrite-Project", c.projectID)
	if sessionSecret != "" {
		req.Header.Set("X-Appwrite-Session", sessionSecret)
	} else {
		req.Header.Set("X-Appwrite-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil {
			return fmt.Errorf("identity service request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
