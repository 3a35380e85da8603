package dwolla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	tokenPath     = "/token"
	customersPath = "/customers"

	// Refresh the app token a minute before the network expires it.
	tokenExpirySlack = 60 * time.Second
)

// Client handles communication with the payment network API.
// Application tokens are fetched via client-credentials and cached until
// shortly before expiry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	secret     string

	mu          sync.Mutex
	appToken    string
	tokenExpiry time.Time
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new payment network client
func NewClient(baseURL, key, secret string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		secret:     secret,
	}
}

// CustomerParams describes a personal customer profile.
type CustomerParams struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Type        string `json:"type"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
}

// APIError is a decoded error response from the payment network.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment network error (status %d, %s): %s", e.Status, e.Code, e.Message)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// CreateCustomer registers a personal customer profile and returns the
// customer resource URL (the trailing path segment is the customer id).
func (c *Client) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	if params.Type == "" {
		params.Type = "personal"
	}
	return c.createResource(ctx, c.baseURL+customersPath, params)
}

// CreateFundingSource attaches a funding source to a customer using an
// aggregator-issued processor token. Returns the funding source URL.
func (c *Client) CreateFundingSource(ctx context.Context, customerID, processorToken, bankName string) (string, error) {
	endpoint := fmt.Sprintf("%s%s/%s/funding-sources", c.baseURL, customersPath, customerID)
	body := map[string]string{
		"plaidToken": processorToken,
		"name":       bankName,
	}
	return c.createResource(ctx, endpoint, body)
}

// RemoveFundingSource soft-deletes a funding source by its resource URL.
// Used as compensation when a link flow fails after the source was created.
func (c *Client) RemoveFundingSource(ctx context.Context, fundingSourceURL string) error {
	body := map[string]bool{"removed": true}
	_, err := c.doJSON(ctx, http.MethodPost, fundingSourceURL, body)
	return err
}

// createResource POSTs a resource and returns the Location header.
func (c *Client) createResource(ctx context.Context, endpoint string, body any) (string, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("payment network response missing Location header")
	}
	return location, nil
}

// doJSON executes an authenticated JSON request. The response body is fully
// read and closed; callers use headers only.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	token, err := c.applicationToken(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/vnd.dwolla.v1.hal+json")
	req.Header.Set("Accept", "application/vnd.dwolla.v1.hal+json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil {
			return nil, fmt.Errorf("payment network request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, apiErr
	}

	return resp, nil
}

// applicationToken returns a cached app token, fetching a new one via
// client-credentials when missing or near expiry.
func (c *Client) applicationToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.appToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.appToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.key, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.appToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpirySlack)
	return c.appToken, nil
}

// ExtractResourceID returns the trailing path segment of a resource URL,
// e.g. ".../customers/abc123" -> "abc123".
func ExtractResourceID(resourceURL string) string {
	trimmed := strings.TrimRight(resourceURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx != -1 {
		return trimmed[idx+1:]
	}
	return trimmed
}
