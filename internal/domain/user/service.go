package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"horizon/internal/infrastructure/appwrite"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/shared/config"
)

// ErrUserNotFound is returned when an identity account has no user document.
var ErrUserNotFound = errors.New("user record not found")

// Service sequences the sign-up, sign-in and session flows across the
// identity service and the payment network.
type Service struct {
	identity appwrite.ClientInterface
	payments dwolla.ClientInterface
	cfg      config.IdentityConfig
}

// NewService creates the user orchestration service.
func NewService(identity appwrite.ClientInterface, payments dwolla.ClientInterface, cfg config.IdentityConfig) *Service {
	return &Service{
		identity: identity,
		payments: payments,
		cfg:      cfg,
	}
}

// SignUp creates the identity account, registers a payment customer,
// persists the user document and opens a session, in that order. A failed
// payment-customer step leaves the identity account in place but creates no
// session and persists nothing.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*User, *appwrite.Session, error) {
	name := params.FirstName + " " + params.LastName

	account, err := s.identity.CreateAccount(ctx, uuid.NewString(), params.Email, params.Password, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create identity account: %w", err)
	}

	customerURL, err := s.payments.CreateCustomer(ctx, dwolla.CustomerParams{
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Email:       params.Email,
		Type:        "personal",
		Address1:    params.Address1,
		City:        params.City,
		State:       params.State,
		PostalCode:  params.PostalCode,
		DateOfBirth: params.DateOfBirth,
		SSN:         params.SSN,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create payment customer: %w", err)
	}
	customerID := dwolla.ExtractResourceID(customerURL)

	// The SSN is forwarded to the payment network only; it is never stored.
	doc, err := s.identity.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.UserCollectionID, uuid.NewString(), map[string]any{
		"userId":            account.ID,
		"email":             params.Email,
		"firstName":         params.FirstName,
		"lastName":          params.LastName,
		"address1":          params.Address1,
		"city":              params.City,
		"state":             params.State,
		"postalCode":        params.PostalCode,
		"dateOfBirth":       params.DateOfBirth,
		"dwollaCustomerId":  customerID,
		"dwollaCustomerUrl": customerURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to persist user record: %w", err)
	}

	session, err := s.identity.CreateEmailSession(ctx, params.Email, params.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return fromDocument(doc), session, nil
}

// SignIn opens a password session and returns the stored user record.
func (s *Service) SignIn(ctx context.Context, params SignInParams) (*User, *appwrite.Session, error) {
	session, err := s.identity.CreateEmailSession(ctx, params.Email, params.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	u, err := s.byIdentityID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	return u, session, nil
}

// LoggedInUser resolves a session secret to the stored user record.
// Returns (nil, nil) when there is no valid session, so callers can treat
// the absence of a user as "not signed in" rather than a failure.
func (s *Service) LoggedInUser(ctx context.Context, sessionSecret string) (*User, error) {
	if sessionSecret == "" {
		return nil, nil
	}

	account, err := s.identity.GetAccount(ctx, sessionSecret)
	if err != nil {
		if errors.Is(err, appwrite.ErrNotAuthenticated) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch session account: %w", err)
	}

	return s.byIdentityID(ctx, account.ID)
}

// Logout deletes the session behind the given secret.
func (s *Service) Logout(ctx context.Context, sessionSecret string) error {
	if sessionSecret == "" {
		return nil
	}
	if err := s.identity.DeleteSession(ctx, sessionSecret); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Service) byIdentityID(ctx context.Context, identityID string) (*User, error) {
	list, err := s.identity.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.UserCollectionID, []string{
		appwrite.QueryEqual("userId", identityID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query user record: %w", err)
	}
	if len(list.Documents) == 0 {
		return nil, ErrUserNotFound
	}
	return fromDocument(&list.Documents[0]), nil
}

func fromDocument(doc *appwrite.Document) *User {
	return &User{
		ID:                doc.ID,
		IdentityID:        doc.String("userId"),
		Email:             doc.String("email"),
		FirstName:         doc.String("firstName"),
		LastName:          doc.String("lastName"),
		Address1:          doc.String("address1"),
		City:              doc.String("city"),
		State:             doc.String("state"),
		PostalCode:        doc.String("postalCode"),
		DateOfBirth:       doc.String("dateOfBirth"),
		DwollaCustomerID:  doc.String("dwollaCustomerId"),
		DwollaCustomerURL: doc.String("dwollaCustomerUrl"),
	}
}
