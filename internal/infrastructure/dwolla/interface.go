package dwolla

import (
	"context"
)

// ClientInterface defines the methods required from the payment network client
type ClientInterface interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateFundingSource(ctx context.Context, customerID, processorToken, bankName string) (string, error)
	RemoveFundingSource(ctx context.Context, fundingSourceURL string) error
}
