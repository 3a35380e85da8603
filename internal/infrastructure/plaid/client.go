package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	linkTokenCreatePath     = "/link/token/create"
	publicTokenExchangePath = "/item/public_token/exchange"
	accountsGetPath         = "/accounts/get"
	processorTokenPath      = "/processor/token/create"
	transactionsGetPath     = "/transactions/get"
)

// ProcessorDwolla scopes a processor token to the Dwolla payment network.
const ProcessorDwolla = "dwolla"

// Client handles communication with the bank aggregation API
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new aggregation API client
func NewClient(baseURL, clientID, secret string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
	}
}

// LinkTokenRequest names the user and scope for a client-side linking session.
type LinkTokenRequest struct {
	ClientUserID string
	ClientName   string
}

// LinkTokenResponse carries the opaque token handed to the linking widget.
type LinkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
	RequestID  string `json:"request_id"`
}

// ExchangeResponse is the result of exchanging a public token.
type ExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

// Balances carries account balance amounts as reported by the aggregator.
type Balances struct {
	Available              *float64 `json:"available"`
	Current                *float64 `json:"current"`
	ISOCurrencyCode        string   `json:"iso_currency_code"`
	UnofficialCurrencyCode *string  `json:"unofficial_currency_code"`
}

// Account represents a linked account's metadata.
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName *string  `json:"official_name"`
	Mask         string   `json:"mask"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
	Balances     Balances `json:"balances"`
}

// AccountsResponse is the accounts listing for an access token.
type AccountsResponse struct {
	Accounts  []Account `json:"accounts"`
	Item      Item      `json:"item"`
	RequestID string    `json:"request_id"`
}

// Item identifies the bank connection behind an access token.
type Item struct {
	ItemID          string `json:"item_id"`
	InstitutionID   string `json:"institution_id"`
	InstitutionName string `json:"institution_name"`
}

// ProcessorTokenResponse carries a token scoped to a downstream processor.
type ProcessorTokenResponse struct {
	ProcessorToken string `json:"processor_token"`
	RequestID      string `json:"request_id"`
}

// Transaction represents a transaction from the aggregation API.
type Transaction struct {
	TransactionID  string   `json:"transaction_id"`
	AccountID      string   `json:"account_id"`
	Name           string   `json:"name"`
	Amount         float64  `json:"amount"`
	Date           string   `json:"date"` // "2006-01-02"
	Pending        bool     `json:"pending"`
	Category       []string `json:"category"`
	PaymentChannel string   `json:"payment_channel"`
}

// TransactionsResponse is the transactions listing for an access token.
type TransactionsResponse struct {
	Accounts          []Account     `json:"accounts"`
	Transactions      []Transaction `json:"transactions"`
	TotalTransactions int           `json:"total_transactions"`
	RequestID         string        `json:"request_id"`
}

// APIError is a decoded error response from the aggregation API.
type APIError struct {
	Status       int
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	RequestID    string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aggregation API error (status %d, %s/%s): %s", e.Status, e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

// CreateLinkToken requests a link token for the client-side linking widget.
// Product scope is "auth", country "US", language "en".
func (c *Client) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error) {
	body := map[string]any{
		"client_name": req.ClientName,
		"user": map[string]string{
			"client_user_id": req.ClientUserID,
		},
		"products":      []string{"auth"},
		"country_codes": []string{"US"},
		"language":      "en",
	}

	var resp LinkTokenResponse
	if err := c.post(ctx, linkTokenCreatePath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExchangePublicToken exchanges a short-lived public token for a durable
// access token and the item id of the new bank connection.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error) {
	body := map[string]any{
		"public_token": publicToken,
	}

	var resp ExchangeResponse
	if err := c.post(ctx, publicTokenExchangePath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccounts fetches the linked accounts for an access token.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	body := map[string]any{
		"access_token": accessToken,
	}

	var resp AccountsResponse
	if err := c.post(ctx, accountsGetPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateProcessorToken mints a token scoped to the given payment processor.
func (c *Client) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (*ProcessorTokenResponse, error) {
	body := map[string]any{
		"access_token": accessToken,
		"account_id":   accountID,
		"processor":    processor,
	}

	var resp ProcessorTokenResponse
	if err := c.post(ctx, processorTokenPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTransactions fetches transactions for an access token in the given
// date range (inclusive, "2006-01-02").
func (c *Client) GetTransactions(ctx context.Context, accessToken, startDate, endDate string) (*TransactionsResponse, error) {
	body := map[string]any{
		"access_token": accessToken,
		"start_date":   startDate,
		"end_date":     endDate,
	}

	var resp TransactionsResponse
	if err := c.post(ctx, transactionsGetPath, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post executes an authenticated POST. Client credentials ride in the
// request body, per the aggregation API's convention.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil {
			return fmt.Errorf("aggregation API request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
