package linking

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/google/uuid"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/appwrite"
	"horizon/internal/infrastructure/crypto"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/plaid"
	"horizon/internal/shared/config"
)

var tracer = otel.Tracer("horizon.linking")

// Invalidator drops cached derived data for a user after their set of
// linked banks changes.
type Invalidator interface {
	Invalidate(userID string)
}

// Notifier tells a user's devices that a bank link completed.
type Notifier interface {
	LinkCompleted(ctx context.Context, userID, bankName string) error
}

// Service runs the bank-linking flow: link-token minting, public-token
// exchange, funding-source creation and link persistence.
type Service struct {
	aggregator plaid.ClientInterface
	payments   dwolla.ClientInterface
	store      appwrite.ClientInterface
	encryptor  *crypto.Encryptor
	cfg        config.IdentityConfig
	cache      Invalidator // optional
	notifier   Notifier    // optional
}

// NewService creates the linking service. cache and notifier may be nil.
func NewService(
	aggregator plaid.ClientInterface,
	payments dwolla.ClientInterface,
	store appwrite.ClientInterface,
	encryptor *crypto.Encryptor,
	cfg config.IdentityConfig,
	cache Invalidator,
	notifier Notifier,
) *Service {
	return &Service{
		aggregator: aggregator,
		payments:   payments,
		store:      store,
		encryptor:  encryptor,
		cfg:        cfg,
		cache:      cache,
		notifier:   notifier,
	}
}

// CreateLinkToken mints a fresh link token for the client-side widget.
// Tokens are single-use and short-lived, so every call hits the aggregator.
func (s *Service) CreateLinkToken(ctx context.Context, u *user.User) (string, error) {
	ctx, span := tracer.Start(ctx, "linking.CreateLinkToken")
	defer span.End()

	resp, err := s.aggregator.CreateLinkToken(ctx, plaid.LinkTokenRequest{
		ClientUserID: u.IdentityID,
		ClientName:   u.FullName(),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if apiErr, ok := err.(*plaid.APIError); ok {
			log.Printf("link token creation rejected (status %d, %s/%s): %s",
				apiErr.Status, apiErr.ErrorType, apiErr.ErrorCode, apiErr.ErrorMessage)
		}
		return "", fmt.Errorf("failed to create link token: %w", err)
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken runs the full exchange flow for a public token handed
// back by the linking widget: exchange, account selection, processor token,
// funding source, then link persistence. On a persistence failure the
// funding source is removed again so the payment network holds no orphan.
func (s *Service) ExchangePublicToken(ctx context.Context, u *user.User, publicToken string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "linking.ExchangePublicToken")
	defer span.End()

	f := newFlow(span)

	exchange, err := s.aggregator.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, f.fail(fmt.Errorf("failed to exchange public token: %w", err))
	}
	f.advance(StateTokenExchanged)

	accounts, err := s.aggregator.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, f.fail(fmt.Errorf("failed to fetch accounts: %w", err))
	}
	if len(accounts.Accounts) == 0 {
		span.SetStatus(codes.Error, ErrNoAccounts.Error())
		return nil, f.fail(ErrNoAccounts)
	}
	account := accounts.Accounts[0]
	f.advance(StateAccountSelected)

	processor, err := s.aggregator.CreateProcessorToken(ctx, exchange.AccessToken, account.AccountID, plaid.ProcessorDwolla)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, f.fail(fmt.Errorf("failed to create processor token: %w", err))
	}
	f.advance(StateProcessorTokenCreated)

	fundingSourceURL, err := s.payments.CreateFundingSource(ctx, u.DwollaCustomerID, processor.ProcessorToken, account.Name)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, f.fail(fmt.Errorf("failed to create funding source: %w", err))
	}
	if fundingSourceURL == "" {
		span.SetStatus(codes.Error, ErrEmptyFundingSource.Error())
		return nil, f.fail(ErrEmptyFundingSource)
	}
	f.advance(StateFundingSourceCreated)

	link, err := s.persistLink(ctx, u, exchange, account.AccountID, fundingSourceURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		// Compensate: the funding source must not outlive a failed link.
		if rmErr := s.payments.RemoveFundingSource(ctx, fundingSourceURL); rmErr != nil {
			log.Printf("failed to remove funding source after persist failure: %v", rmErr)
		}
		return nil, f.fail(err)
	}
	f.advance(StateLinkPersisted)

	if s.cache != nil {
		s.cache.Invalidate(u.ID)
	}
	if s.notifier != nil {
		if err := s.notifier.LinkCompleted(ctx, u.IdentityID, account.Name); err != nil {
			log.Printf("failed to send link notification: %v", err)
		}
	}

	f.advance(StateDone)
	return &Result{State: StateDone, Link: link}, nil
}

func (s *Service) persistLink(ctx context.Context, u *user.User, exchange *plaid.ExchangeResponse, accountID, fundingSourceURL string) (*BankLink, error) {
	encryptedToken, err := s.encryptor.Encrypt(exchange.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	sharableID, err := s.encryptor.Encrypt(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt account id: %w", err)
	}

	doc, err := s.store.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.BankCollectionID, uuid.NewString(), map[string]any{
		"userId":           u.ID,
		"bankId":           exchange.ItemID,
		"accountId":        accountID,
		"accessToken":      encryptedToken,
		"fundingSourceUrl": fundingSourceURL,
		"shareableId":      sharableID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist bank link: %w", err)
	}

	return &BankLink{
		ID:               doc.ID,
		UserID:           u.ID,
		BankID:           exchange.ItemID,
		AccountID:        accountID,
		AccessToken:      exchange.AccessToken,
		FundingSourceURL: fundingSourceURL,
		SharableID:       sharableID,
	}, nil
}

// BanksForUser returns the user's persisted bank links with access tokens
// decrypted for immediate use against the aggregator.
func (s *Service) BanksForUser(ctx context.Context, userID string) ([]BankLink, error) {
	ctx, span := tracer.Start(ctx, "linking.BanksForUser")
	defer span.End()

	list, err := s.store.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.BankCollectionID, []string{
		appwrite.QueryEqual("userId", userID),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list bank links: %w", err)
	}

	links := make([]BankLink, 0, len(list.Documents))
	for _, doc := range list.Documents {
		accessToken, err := s.encryptor.Decrypt(doc.String("accessToken"))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token for link %s: %w", doc.ID, err)
		}
		links = append(links, BankLink{
			ID:               doc.ID,
			UserID:           doc.String("userId"),
			BankID:           doc.String("bankId"),
			AccountID:        doc.String("accountId"),
			AccessToken:      accessToken,
			FundingSourceURL: doc.String("fundingSourceUrl"),
			SharableID:       doc.String("shareableId"),
		})
	}
	return links, nil
}
