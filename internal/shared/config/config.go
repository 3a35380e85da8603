package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	TLS        TLSConfig
	Identity   IdentityConfig
	Plaid      PlaidConfig
	Dwolla     DwollaConfig
	Encryption EncryptionConfig
	Client     ClientConfig
	Telemetry  TelemetryConfig
	Firebase   FirebaseConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

// IdentityConfig scopes the external identity/document service. Database and
// collection identifiers select where user and bank-link documents live.
type IdentityConfig struct {
	Endpoint         string
	ProjectID        string
	APIKey           string
	DatabaseID       string
	UserCollectionID string
	BankCollectionID string
}

type PlaidConfig struct {
	BaseURL  string
	ClientID string
	Secret   string
}

type DwollaConfig struct {
	BaseURL string
	Key     string
	Secret  string
}

type EncryptionConfig struct {
	Key string
}

// ClientConfig applies to every outbound HTTP client.
type ClientConfig struct {
	Timeout time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

type FirebaseConfig struct {
	CredentialsFile string
}

func Load() (*Config, error) {
	clientTimeout, err := time.ParseDuration(getEnv("CLIENT_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLIENT_TIMEOUT: %w", err)
	}

	// Parse allowed hosts (comma-separated list)
	allowedHostsStr := getEnv("ALLOWED_HOSTS", "")
	var allowedHosts []string
	if allowedHostsStr != "" {
		for _, host := range strings.Split(allowedHostsStr, ",") {
			host = strings.TrimSpace(host)
			if host != "" {
				allowedHosts = append(allowedHosts, host)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: allowedHosts,
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Identity: IdentityConfig{
			Endpoint:         getEnv("APPWRITE_ENDPOINT", "https://cloud.appwrite.io/v1"),
			ProjectID:        getEnv("APPWRITE_PROJECT_ID", ""),
			APIKey:           getEnv("APPWRITE_API_KEY", ""),
			DatabaseID:       getEnv("APPWRITE_DATABASE_ID", ""),
			UserCollectionID: getEnv("APPWRITE_USER_COLLECTION_ID", ""),
			BankCollectionID: getEnv("APPWRITE_BANK_COLLECTION_ID", ""),
		},
		Plaid: PlaidConfig{
			BaseURL:  getEnv("PLAID_BASE_URL", "https://sandbox.plaid.com"),
			ClientID: getEnv("PLAID_CLIENT_ID", ""),
			Secret:   getEnv("PLAID_SECRET", ""),
		},
		Dwolla: DwollaConfig{
			BaseURL: getEnv("DWOLLA_BASE_URL", "https://api-sandbox.dwolla.com"),
			Key:     getEnv("DWOLLA_KEY", ""),
			Secret:  getEnv("DWOLLA_SECRET", ""),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Client: ClientConfig{
			Timeout: clientTimeout,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "horizon-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
	}

	// Validate required fields
	if cfg.Identity.ProjectID == "" {
		return nil, fmt.Errorf("APPWRITE_PROJECT_ID is required")
	}
	if cfg.Identity.APIKey == "" {
		return nil, fmt.Errorf("APPWRITE_API_KEY is required")
	}
	if cfg.Identity.DatabaseID == "" {
		return nil, fmt.Errorf("APPWRITE_DATABASE_ID is required")
	}
	if cfg.Identity.UserCollectionID == "" {
		return nil, fmt.Errorf("APPWRITE_USER_COLLECTION_ID is required")
	}
	if cfg.Identity.BankCollectionID == "" {
		return nil, fmt.Errorf("APPWRITE_BANK_COLLECTION_ID is required")
	}
	if cfg.Plaid.ClientID == "" || cfg.Plaid.Secret == "" {
		return nil, fmt.Errorf("PLAID_CLIENT_ID and PLAID_SECRET are required")
	}
	if cfg.Dwolla.Key == "" || cfg.Dwolla.Secret == "" {
		return nil, fmt.Errorf("DWOLLA_KEY and DWOLLA_SECRET are required")
	}
	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
