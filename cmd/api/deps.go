package main

import (
	"context"
	"log"

	"horizon/internal/domain/linking"
	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/appwrite"
	"horizon/internal/infrastructure/crypto"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/firebase"
	"horizon/internal/infrastructure/plaid"
	httphandlers "horizon/internal/interfaces/http"
	"horizon/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	// Handlers
	AuthHandler      *httphandlers.AuthHandler
	UserHandler      *httphandlers.UserHandler
	LinkingHandler   *httphandlers.LinkingHandler
	DashboardHandler *httphandlers.DashboardHandler

	// Services
	UserService    *user.Service
	LinkingService *linking.Service
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	// Initialize external service clients
	identityClient := appwrite.NewClient(cfg.Identity.Endpoint, cfg.Identity.ProjectID, cfg.Identity.APIKey, cfg.Client.Timeout)
	aggregatorClient := plaid.NewClient(cfg.Plaid.BaseURL, cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Client.Timeout)
	paymentClient := dwolla.NewClient(cfg.Dwolla.BaseURL, cfg.Dwolla.Key, cfg.Dwolla.Secret, cfg.Client.Timeout)

	// Initialize encryptor
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, err
	}

	// Initialize push notifications if configured
	var notifier linking.Notifier
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Printf("Warning: Failed to initialize Firebase messaging: %v", err)
		} else {
			notifier = fcmClient
			log.Println("Firebase messaging enabled")
		}
	}

	// Initialize domain services
	dashboardCache := httphandlers.NewDashboardCache()
	userService := user.NewService(identityClient, paymentClient, cfg.Identity)
	linkingService := linking.NewService(aggregatorClient, paymentClient, identityClient, encryptor, cfg.Identity, dashboardCache, notifier)

	// Initialize handlers
	authHandler := httphandlers.NewAuthHandler(userService)
	userHandler := httphandlers.NewUserHandler(userService)
	linkingHandler := httphandlers.NewLinkingHandler(linkingService)
	dashboardHandler := httphandlers.NewDashboardHandler(linkingService, aggregatorClient, dashboardCache)

	return &Dependencies{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		LinkingHandler:   linkingHandler,
		DashboardHandler: dashboardHandler,
		UserService:      userService,
		LinkingService:   linkingService,
	}, nil
}
