package shipper

import (
	"context"

	"github.com/shipmux/shipmux/pkg/quota"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Limited wraps a Shipper with the per-provider quota limiter. Every
// carrier API call is checked against the provider's window first; a
// denied call is rejected locally with a QuotaError and no network
// I/O is issued.
type Limited struct {
	shipper Shipper
	limiter *quota.Limiter
	logger  *otelzap.Logger
}

// Limit wraps s so that its carrier calls are admitted through limiter.
func Limit(s Shipper, limiter *quota.Limiter, logger *otelzap.Logger) *Limited {
	return &Limited{shipper: s, limiter: limiter, logger: logger}
}

// Name returns the wrapped carrier's name.
func (l *Limited) Name() string {
	return l.shipper.Name()
}

// RequiresRegisteredAddresses defers to the wrapped carrier.
func (l *Limited) RequiresRegisteredAddresses() bool {
	return l.shipper.RequiresRegisteredAddresses()
}

// Unwrap returns the underlying carrier client.
func (l *Limited) Unwrap() Shipper {
	return l.shipper
}

// admit runs the quota check for one outbound call.
func (l *Limited) admit(operation string) error {
	d := l.limiter.Admit(l.shipper.Name())
	if d.Allowed {
		return nil
	}
	l.logger.Warn("Quota denied carrier call",
		zap.String("carrier", l.shipper.Name()),
		zap.String("operation", operation),
		zap.Duration("retry_after", d.RetryAfter),
	)
	return &QuotaError{Carrier: l.shipper.Name(), RetryAfter: d.RetryAfter}
}

// GetQuote fetches quotes if the provider's quota admits the call.
func (l *Limited) GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	if err := l.admit("get_quote"); err != nil {
		return nil, err
	}
	return l.shipper.GetQuote(ctx, req)
}

// CreateOrder creates a shipment if the provider's quota admits the call.
func (l *Limited) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	if err := l.admit("create_order"); err != nil {
		return nil, err
	}
	return l.shipper.CreateOrder(ctx, req)
}

// GetLabel fetches a label if the provider's quota admits the call.
func (l *Limited) GetLabel(ctx context.Context, req *GetLabelRequest) (*GetLabelResponse, error) {
	if err := l.admit("get_label"); err != nil {
		return nil, err
	}
	return l.shipper.GetLabel(ctx, req)
}

// CancelOrder cancels a shipment if the provider's quota admits the call.
func (l *Limited) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*CancelOrderResponse, error) {
	if err := l.admit("cancel_order"); err != nil {
		return nil, err
	}
	return l.shipper.CancelOrder(ctx, req)
}
