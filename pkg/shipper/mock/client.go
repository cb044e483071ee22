// Package mock provides a mock shipper implementation for testing.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shipmux/shipmux/pkg/shipper"
)

// Client is a mock shipper for testing. It records how many carrier
// calls reached it, which lets tests assert that quota-denied calls
// never touch the carrier.
type Client struct {
	name          string
	requiresAddrs bool
	calls         atomic.Int64

	// Err, when set, is returned by every operation.
	Err error
}

// New creates a new mock shipper.
func New(name string) *Client {
	return &Client{name: name}
}

// NewWithRegisteredAddresses creates a mock shipper whose order API
// pretends to require address-book identifiers.
func NewWithRegisteredAddresses(name string) *Client {
	return &Client{name: name, requiresAddrs: true}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// RequiresRegisteredAddresses reports the configured capability.
func (c *Client) RequiresRegisteredAddresses() bool {
	return c.requiresAddrs
}

// Calls reports how many operations reached this mock.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// GetQuote returns mock shipping quotes.
func (c *Client) GetQuote(ctx context.Context, req *shipper.QuoteRequest) (*shipper.QuoteResponse, error) {
	c.calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}

	now := time.Now()
	expiresAt := now.Add(30 * time.Minute)
	standardDelivery := now.Add(5 * 24 * time.Hour)
	expressDelivery := now.Add(2 * 24 * time.Hour)

	return &shipper.QuoteResponse{
		QuoteID:   fmt.Sprintf("%s-quote-%d", c.name, now.UnixNano()),
		Carrier:   c.name,
		ExpiresAt: expiresAt,
		Rates: []shipper.RateOption{
			{
				RateID:            fmt.Sprintf("%s-rate-standard-%d", c.name, now.UnixNano()),
				Carrier:           c.name,
				ServiceCode:       "STANDARD",
				ServiceName:       fmt.Sprintf("%s Standard", c.name),
				ServiceType:       shipper.ServiceStandard,
				BaseRate:          shipper.Money{Amount: 12.50, Currency: "CAD"},
				FuelSurcharge:     shipper.Money{Amount: 1.50, Currency: "CAD"},
				Taxes:             shipper.Money{Amount: 1.82, Currency: "CAD"},
				TotalPrice:        shipper.Money{Amount: 15.82, Currency: "CAD"},
				TransitDays:       5,
				EstimatedDelivery: &standardDelivery,
				ExpiresAt:         expiresAt,
			},
			{
				RateID:            fmt.Sprintf("%s-rate-express-%d", c.name, now.UnixNano()),
				Carrier:           c.name,
				ServiceCode:       "EXPRESS",
				ServiceName:       fmt.Sprintf("%s Express", c.name),
				ServiceType:       shipper.ServiceExpress,
				BaseRate:          shipper.Money{Amount: 24.00, Currency: "CAD"},
				FuelSurcharge:     shipper.Money{Amount: 2.50, Currency: "CAD"},
				Taxes:             shipper.Money{Amount: 3.45, Currency: "CAD"},
				TotalPrice:        shipper.Money{Amount: 29.95, Currency: "CAD"},
				TransitDays:       2,
				EstimatedDelivery: &expressDelivery,
				ExpiresAt:         expiresAt,
				Guaranteed:        true,
			},
		},
	}, nil
}

// CreateOrder creates a mock shipping order.
func (c *Client) CreateOrder(ctx context.Context, req *shipper.CreateOrderRequest) (*shipper.CreateOrderResponse, error) {
	c.calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}

	now := time.Now()
	orderID := fmt.Sprintf("%s-order-%d", c.name, now.UnixNano())
	trackingNumber := fmt.Sprintf("1Z%s%d", c.name[:3], now.UnixNano()%1000000000)
	estimatedDelivery := now.Add(5 * 24 * time.Hour)

	return &shipper.CreateOrderResponse{
		OrderID:           orderID,
		TrackingNumber:    trackingNumber,
		TrackingURL:       fmt.Sprintf("https://track.%s.mock/track/%s", c.name, trackingNumber),
		Status:            shipper.StatusConfirmed,
		Carrier:           c.name,
		ServiceName:       fmt.Sprintf("%s Standard", c.name),
		TotalCharged:      shipper.Money{Amount: 15.82, Currency: "CAD"},
		EstimatedDelivery: &estimatedDelivery,
		LabelURL:          fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.name, orderID),
	}, nil
}

// GetLabel returns a mock shipping label.
func (c *Client) GetLabel(ctx context.Context, req *shipper.GetLabelRequest) (*shipper.GetLabelResponse, error) {
	c.calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}

	format := req.Format
	if format == "" {
		format = shipper.LabelPDF
	}

	return &shipper.GetLabelResponse{
		OrderID: req.OrderID,
		Label: shipper.Label{
			Format: format,
			URL:    fmt.Sprintf("https://labels.%s.mock/%s.%s", c.name, req.OrderID, format),
		},
	}, nil
}

// CancelOrder cancels a mock order.
func (c *Client) CancelOrder(ctx context.Context, req *shipper.CancelOrderRequest) (*shipper.CancelOrderResponse, error) {
	c.calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}

	return &shipper.CancelOrderResponse{
		OrderID:            req.OrderID,
		Status:             shipper.StatusCancelled,
		RefundAmount:       &shipper.Money{Amount: 15.82, Currency: "CAD"},
		ConfirmationNumber: fmt.Sprintf("%s-cancel-%d", c.name, time.Now().UnixNano()),
	}, nil
}
