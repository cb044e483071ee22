// Package gateway orchestrates carrier calls: quota admission, address
// resolution, and metrics sit here, between the HTTP surface and the
// carrier clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shipmux/shipmux/internal/telemetry"
	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/shipmux/shipmux/pkg/quota"
	"github.com/shipmux/shipmux/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Gateway fronts the carrier registry. Carriers in the registry are
// quota-wrapped, so every path through here is admitted locally before
// any network I/O.
type Gateway struct {
	registry *shipper.Registry
	book     *addressbook.Book
	limiter  *quota.Limiter
	metrics  *telemetry.Metrics
	logger   *otelzap.Logger
}

// New creates a Gateway.
func New(registry *shipper.Registry, book *addressbook.Book, limiter *quota.Limiter, metrics *telemetry.Metrics, logger *otelzap.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		book:     book,
		limiter:  limiter,
		metrics:  metrics,
		logger:   logger,
	}
}

// Carriers returns the names of the registered carriers.
func (g *Gateway) Carriers() []string {
	return g.registry.Names()
}

// GetQuotes fans the quote request out to the requested carriers.
// Partial failure is normal: quotes from healthy carriers are returned
// alongside the errors from the rest.
func (g *Gateway) GetQuotes(ctx context.Context, req *shipper.QuoteRequest) ([]*shipper.QuoteResponse, []error) {
	start := time.Now()
	responses, errs := g.registry.GetQuotes(ctx, req)

	g.metrics.RecordRequest("get_quotes", "all", outcome(len(errs) == 0), time.Since(start).Seconds())
	for _, err := range errs {
		g.recordCallError("get_quotes", err)
	}
	return responses, errs
}

// CreateOrder creates a shipment with the named carrier. For carriers
// whose order API takes address-book identifiers, both addresses are
// resolved through the registration cache first; a quota denial during
// resolution or creation surfaces unchanged as a QuotaError.
func (g *Gateway) CreateOrder(ctx context.Context, carrier string, req *shipper.CreateOrderRequest) (*shipper.CreateOrderResponse, error) {
	s, err := g.registry.Get(carrier)
	if err != nil {
		return nil, err
	}

	if s.RequiresRegisteredAddresses() {
		if err := g.resolveAddresses(ctx, carrier, req); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := s.CreateOrder(ctx, req)
	g.metrics.RecordRequest("create_order", carrier, outcome(err == nil), time.Since(start).Seconds())
	g.metrics.SetQuotaRemaining(carrier, g.limiter.Remaining(carrier))
	if err != nil {
		g.recordCallError("create_order", err)
		return nil, err
	}
	return resp, nil
}

// GetLabel retrieves a label from the named carrier.
func (g *Gateway) GetLabel(ctx context.Context, carrier string, req *shipper.GetLabelRequest) (*shipper.GetLabelResponse, error) {
	s, err := g.registry.Get(carrier)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.GetLabel(ctx, req)
	g.metrics.RecordRequest("get_label", carrier, outcome(err == nil), time.Since(start).Seconds())
	if err != nil {
		g.recordCallError("get_label", err)
		return nil, err
	}
	return resp, nil
}

// CancelOrder cancels an order with the named carrier.
func (g *Gateway) CancelOrder(ctx context.Context, carrier string, req *shipper.CancelOrderRequest) (*shipper.CancelOrderResponse, error) {
	s, err := g.registry.Get(carrier)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.CancelOrder(ctx, req)
	g.metrics.RecordRequest("cancel_order", carrier, outcome(err == nil), time.Since(start).Seconds())
	if err != nil {
		g.recordCallError("cancel_order", err)
		return nil, err
	}
	return resp, nil
}

// resolveAddresses fills the request's address-book identifiers from
// the registration cache.
func (g *Gateway) resolveAddresses(ctx context.Context, carrier string, req *shipper.CreateOrderRequest) error {
	senderID, err := g.book.GetOrCreate(ctx, carrier, req.SenderAddress.Line())
	if err != nil {
		g.metrics.RecordAddressResolution(carrier, "error")
		return fmt.Errorf("resolving sender address: %w", err)
	}
	recipientID, err := g.book.GetOrCreate(ctx, carrier, req.RecipientAddress.Line())
	if err != nil {
		g.metrics.RecordAddressResolution(carrier, "error")
		return fmt.Errorf("resolving recipient address: %w", err)
	}
	g.metrics.RecordAddressResolution(carrier, "resolved")

	req.SenderAddressID = senderID
	req.RecipientAddressID = recipientID
	return nil
}

// ConfigureQuota replaces a provider's quota parameters at runtime.
func (g *Gateway) ConfigureQuota(provider string, cfg quota.Config) error {
	if err := g.limiter.Configure(provider, cfg); err != nil {
		return err
	}
	g.logger.Info("Reconfigured provider quota",
		zap.String("provider", provider),
		zap.Int("max_requests", cfg.MaxRequests),
		zap.Duration("window", cfg.Window),
	)
	return nil
}

// QuotaStatus returns the provider's current window snapshot.
func (g *Gateway) QuotaStatus(provider string) quota.Status {
	return g.limiter.Status(provider)
}

// AllQuotas returns window snapshots for every provider seen so far.
func (g *Gateway) AllQuotas() []quota.Status {
	return g.limiter.All()
}

// CleanupAddresses removes address registrations unused for longer than
// retention.
func (g *Gateway) CleanupAddresses(ctx context.Context, retention time.Duration) (int64, error) {
	return g.book.Cleanup(ctx, retention)
}

// AddressStats returns aggregate address-book statistics.
func (g *Gateway) AddressStats(ctx context.Context) (*addressbook.Stats, error) {
	return g.book.Stats(ctx)
}

// recordCallError classifies a failed carrier call for metrics.
func (g *Gateway) recordCallError(operation string, err error) {
	var quotaErr *shipper.QuotaError
	if errors.As(err, &quotaErr) {
		g.metrics.RecordQuotaDenial(quotaErr.Carrier, operation)
		return
	}
	var carrierErr *shipper.CarrierError
	if errors.As(err, &carrierErr) {
		g.metrics.RecordError(carrierErr.Carrier, carrierErr.Code)
		return
	}
	g.metrics.RecordError("unknown", "internal")
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
