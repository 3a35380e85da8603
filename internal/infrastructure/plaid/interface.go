package plaid

import (
	"context"
)

// ClientInterface defines the methods required from the bank aggregation client
type ClientInterface interface {
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error)
	GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error)
	CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (*ProcessorTokenResponse, error)
	GetTransactions(ctx context.Context, accessToken, startDate, endDate string) (*TransactionsResponse, error)
}
