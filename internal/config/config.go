package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Freightcom
	FreightcomAPIKey          string `envconfig:"FREIGHTCOM_API_KEY"`
	FreightcomBaseURL         string `envconfig:"FREIGHTCOM_BASE_URL" default:"https://api.freightcom.com/v1"`
	FreightcomPaymentMethodID int    `envconfig:"FREIGHTCOM_PAYMENT_METHOD_ID" default:"1"`
	FreightcomEnabled         bool   `envconfig:"FREIGHTCOM_ENABLED" default:"true"`
	FreightcomUseMock         bool   `envconfig:"FREIGHTCOM_USE_MOCK" default:"false"`

	// Canada Post
	CanadaPostAPIKey     string `envconfig:"CANADAPOST_API_KEY"`
	CanadaPostAPISecret  string `envconfig:"CANADAPOST_API_SECRET"`
	CanadaPostCustomerID string `envconfig:"CANADAPOST_CUSTOMER_ID"`
	CanadaPostBaseURL    string `envconfig:"CANADAPOST_BASE_URL" default:"https://soa-gw.canadapost.ca"`
	CanadaPostEnabled    bool   `envconfig:"CANADAPOST_ENABLED" default:"true"`
	CanadaPostUseMock    bool   `envconfig:"CANADAPOST_USE_MOCK" default:"false"`

	// Provider quotas. Per-carrier overrides fall back to the defaults
	// when left at zero.
	QuotaMaxRequests           int           `envconfig:"QUOTA_MAX_REQUESTS" default:"60"`
	QuotaWindow                time.Duration `envconfig:"QUOTA_WINDOW" default:"1m"`
	FreightcomQuotaMaxRequests int           `envconfig:"FREIGHTCOM_QUOTA_MAX_REQUESTS"`
	FreightcomQuotaWindow      time.Duration `envconfig:"FREIGHTCOM_QUOTA_WINDOW"`
	CanadaPostQuotaMaxRequests int           `envconfig:"CANADAPOST_QUOTA_MAX_REQUESTS"`
	CanadaPostQuotaWindow      time.Duration `envconfig:"CANADAPOST_QUOTA_WINDOW"`

	// Address book
	StorageDriver        string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	StorageDSN           string `envconfig:"STORAGE_DSN" default:"shipmux.db"`
	AddressContactName   string `envconfig:"ADDRESS_CONTACT_NAME" default:"Shipping Desk"`
	AddressContactPhone  string `envconfig:"ADDRESS_CONTACT_PHONE"`
	AddressContactEmail  string `envconfig:"ADDRESS_CONTACT_EMAIL"`
	AddressRetentionDays int    `envconfig:"ADDRESS_RETENTION_DAYS" default:"90"`
	CleanupSchedule      string `envconfig:"CLEANUP_SCHEDULE" default:"0 3 * * *"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"shipmux"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("freightcom.enabled", c.FreightcomEnabled),
		attribute.Bool("canadapost.enabled", c.CanadaPostEnabled),
		attribute.String("storage.driver", c.StorageDriver),
	}
}
