package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Tunnel    TunnelConfig
	Vault     VaultConfig
	DHL       DHLConfig
	Billbee   BillbeeConfig
	Zendesk   ZendeskConfig
	Tracking  TrackingConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // "postgres" (default) or "mysql"
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// TunnelConfig holds SSH tunnel configuration. The tunnel is active when
// Host is set; credentials come from the vault when VaultEntry is set.
type TunnelConfig struct {
	Host       string
	Port       string
	Username   string
	Password   string
	PrivateKey []byte // filled from a vault attachment, never from env
	VaultEntry string
}

// VaultConfig holds the credential vault location. The master passphrase is
// read from the environment and kept only in memory.
type VaultConfig struct {
	Path       string
	Passphrase string
}

// DHLConfig holds DHL Parcel DE API configuration
type DHLConfig struct {
	BaseURL    string
	ClientID   string
	Username   string
	Password   string
	BillingNum string
	VaultEntry string
}

// BillbeeConfig holds order system API configuration
type BillbeeConfig struct {
	BaseURL    string
	APIKey     string
	APIUser    string
	APIPass    string
	VaultEntry string
}

// ZendeskConfig holds helpdesk API configuration
type ZendeskConfig struct {
	BaseURL    string
	Email      string
	APIToken   string
	VaultEntry string
}

// TrackingConfig controls the background tracking refresh
type TrackingConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	trackingInterval := 30 * time.Minute
	if v := os.Getenv("TRACKING_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TRACKING_INTERVAL %q: %w", v, err)
		}
		trackingInterval = d
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3210"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", ""),
			Username: getEnv("DB_USERNAME", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: getEnv("DB_DATABASE", "rmadesk"),
		},
		Tunnel: TunnelConfig{
			Host:       os.Getenv("SSH_HOST"),
			Port:       getEnv("SSH_PORT", "22"),
			Username:   os.Getenv("SSH_USERNAME"),
			Password:   os.Getenv("SSH_PASSWORD"),
			VaultEntry: getEnv("SSH_VAULT_ENTRY", "RMA-Tool/SSH"),
		},
		Vault: VaultConfig{
			Path:       os.Getenv("VAULT_PATH"),
			Passphrase: os.Getenv("VAULT_PASSPHRASE"),
		},
		DHL: DHLConfig{
			BaseURL:    getEnv("DHL_BASE_URL", "https://api-eu.dhl.com"),
			ClientID:   os.Getenv("DHL_CLIENT_ID"),
			Username:   os.Getenv("DHL_USERNAME"),
			Password:   os.Getenv("DHL_PASSWORD"),
			BillingNum: os.Getenv("DHL_BILLING_NUMBER"),
			VaultEntry: getEnv("DHL_VAULT_ENTRY", "RMA-Tool/DHL"),
		},
		Billbee: BillbeeConfig{
			BaseURL:    getEnv("BILLBEE_BASE_URL", "https://api.billbee.io/api/v1"),
			APIKey:     os.Getenv("BILLBEE_API_KEY"),
			APIUser:    os.Getenv("BILLBEE_API_USER"),
			APIPass:    os.Getenv("BILLBEE_API_PASSWORD"),
			VaultEntry: getEnv("BILLBEE_VAULT_ENTRY", "RMA-Tool/Billbee"),
		},
		Zendesk: ZendeskConfig{
			BaseURL:    os.Getenv("ZENDESK_BASE_URL"),
			Email:      os.Getenv("ZENDESK_EMAIL"),
			APIToken:   os.Getenv("ZENDESK_API_TOKEN"),
			VaultEntry: getEnv("ZENDESK_VAULT_ENTRY", "RMA-Tool/Zendesk"),
		},
		Tracking: TrackingConfig{
			Enabled:  getEnv("TRACKING_ENABLED", "true") == "true",
			Interval: trackingInterval,
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
