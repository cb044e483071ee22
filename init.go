package main

import (
	"context"
	"time"

	"github.com/shipmux/shipmux/internal/config"
	"github.com/shipmux/shipmux/internal/gateway"
	"github.com/shipmux/shipmux/internal/telemetry"
	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/shipmux/shipmux/pkg/quota"
	"github.com/shipmux/shipmux/pkg/shipper"
	"github.com/shipmux/shipmux/pkg/shipper/canadapost"
	"github.com/shipmux/shipmux/pkg/shipper/freightcom"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.Attributes())
}

func initStore(cfg *config.Config) (addressbook.Store, error) {
	return addressbook.Open(addressbook.StoreConfig{
		Driver: cfg.StorageDriver,
		DSN:    cfg.StorageDSN,
	})
}

func initAddressBook(cfg *config.Config, store addressbook.Store, logger *otelzap.Logger) *addressbook.Book {
	return addressbook.New(store, addressbook.Contact{
		Name:  cfg.AddressContactName,
		Phone: cfg.AddressContactPhone,
		Email: cfg.AddressContactEmail,
	}, logger)
}

func initLimiter(cfg *config.Config) *quota.Limiter {
	limiter := quota.NewLimiter(quota.Config{
		MaxRequests: cfg.QuotaMaxRequests,
		Window:      cfg.QuotaWindow,
	})

	// Per-carrier overrides; zero values keep the defaults.
	configureQuota(limiter, "freightcom", cfg.FreightcomQuotaMaxRequests, cfg.FreightcomQuotaWindow)
	configureQuota(limiter, "canadapost", cfg.CanadaPostQuotaMaxRequests, cfg.CanadaPostQuotaWindow)
	return limiter
}

func configureQuota(limiter *quota.Limiter, provider string, maxRequests int, window time.Duration) {
	if maxRequests <= 0 || window <= 0 {
		return
	}
	limiter.Configure(provider, quota.Config{MaxRequests: maxRequests, Window: window}) //nolint:errcheck // validated above
}

func initShipperRegistry(cfg *config.Config, limiter *quota.Limiter, book *addressbook.Book, logger *otelzap.Logger) *shipper.Registry {
	registry := shipper.NewRegistry()

	if cfg.FreightcomEnabled {
		fc := freightcom.New(freightcom.Config{
			APIKey:          cfg.FreightcomAPIKey,
			BaseURL:         cfg.FreightcomBaseURL,
			PaymentMethodID: cfg.FreightcomPaymentMethodID,
			UseMock:         cfg.FreightcomUseMock,
		}, logger)
		registry.Register(shipper.Limit(fc, limiter, logger))
		// Address-book registrations count against the same quota
		// window as the carrier's other calls.
		book.RegisterCarrier(fc.Name(), gateway.LimitRegistrar(fc.Name(), fc, limiter))
	}

	if cfg.CanadaPostEnabled {
		cp := canadapost.New(canadapost.Config{
			APIKey:     cfg.CanadaPostAPIKey,
			APISecret:  cfg.CanadaPostAPISecret,
			CustomerID: cfg.CanadaPostCustomerID,
			BaseURL:    cfg.CanadaPostBaseURL,
			UseMock:    cfg.CanadaPostUseMock,
		}, logger)
		registry.Register(shipper.Limit(cp, limiter, logger))
	}

	return registry
}

func initGateway(registry *shipper.Registry, book *addressbook.Book, limiter *quota.Limiter, logger *otelzap.Logger) *gateway.Gateway {
	return gateway.New(registry, book, limiter, telemetry.NewMetrics(), logger)
}
