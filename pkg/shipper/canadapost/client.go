// Package canadapost provides integration with the Canada Post shipping API.
package canadapost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shipmux/shipmux/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const carrierName = "canadapost"

// Config holds Canada Post configuration.
type Config struct {
	APIKey     string
	APISecret  string
	CustomerID string
	BaseURL    string
	UseMock    bool // When true, uses mock API client
}

// Client is the Canada Post shipper client. It implements the
// shipper.Shipper interface and delegates API calls to the underlying
// APIClient (mock or HTTP). Unlike Freightcom, Canada Post takes full
// addresses inline on every shipment.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
}

// New creates a new Canada Post client. If cfg.UseMock is true, it uses
// a mock API client instead of the real HTTP one.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var apiClient APIClient
	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			APISecret:  cfg.APISecret,
			CustomerID: cfg.CustomerID,
			Timeout:    30 * time.Second,
		})
	}
	return &Client{config: cfg, apiClient: apiClient, logger: logger}
}

// NewWithAPIClient creates a Canada Post client with a custom API
// client. Useful for injecting mocks in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger) *Client {
	return &Client{config: cfg, apiClient: apiClient, logger: logger}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// RequiresRegisteredAddresses is false: shipments carry full addresses.
func (c *Client) RequiresRegisteredAddresses() bool {
	return false
}

// GetQuote returns shipping quotes from Canada Post.
func (c *Client) GetQuote(ctx context.Context, req *shipper.QuoteRequest) (*shipper.QuoteResponse, error) {
	c.logger.Info("Getting Canada Post quotes",
		zap.String("origin_postal", req.Origin.PostalCode),
		zap.String("destination_postal", req.Destination.PostalCode),
		zap.Int("package_count", len(req.Packages)),
	)

	apiReq := &RatesRequest{
		OriginPostal:       req.Origin.PostalCode,
		DestinationPostal:  req.Destination.PostalCode,
		DestinationCountry: req.Destination.CountryCode,
	}
	if len(req.Packages) > 0 {
		p := req.Packages[0]
		apiReq.WeightKG = p.Weight
		apiReq.LengthCM = p.Length
		apiReq.WidthCM = p.Width
		apiReq.HeightCM = p.Height
	}

	apiResp, err := c.apiClient.GetRates(ctx, apiReq)
	if err != nil {
		return nil, c.wrapError("get_quote", err)
	}
	return ratesResponseToShipper(apiResp), nil
}

// CreateOrder creates a shipment with Canada Post.
func (c *Client) CreateOrder(ctx context.Context, req *shipper.CreateOrderRequest) (*shipper.CreateOrderResponse, error) {
	c.logger.Info("Creating Canada Post order",
		zap.String("rate_id", req.RateID),
		zap.String("reference", req.Reference),
	)

	apiReq := &ShipmentRequest{
		ServiceCode:       serviceCodeFromRateID(req.RateID),
		SenderName:        req.Sender.Name,
		SenderAddress:     req.SenderAddress.Line1,
		SenderCity:        req.SenderAddress.City,
		SenderProvince:    req.SenderAddress.ProvinceCode,
		SenderPostal:      req.SenderAddress.PostalCode,
		RecipientName:     req.Recipient.Name,
		RecipientAddress:  req.RecipientAddress.Line1,
		RecipientCity:     req.RecipientAddress.City,
		RecipientProvince: req.RecipientAddress.ProvinceCode,
		RecipientCountry:  req.RecipientAddress.CountryCode,
		RecipientPostal:   req.RecipientAddress.PostalCode,
		Reference:         req.Reference,
	}
	for _, p := range req.Packages {
		apiReq.WeightKG += p.Weight
	}

	apiResp, err := c.apiClient.CreateShipment(ctx, apiReq)
	if err != nil {
		return nil, c.wrapError("create_order", err)
	}
	return shipmentResponseToShipper(apiResp), nil
}

// GetLabel retrieves the shipping label from Canada Post. Labels are
// always PDF links on the shipment resource.
func (c *Client) GetLabel(ctx context.Context, req *shipper.GetLabelRequest) (*shipper.GetLabelResponse, error) {
	apiResp, err := c.apiClient.GetLabel(ctx, req.OrderID)
	if err != nil {
		return nil, c.wrapError("get_label", err)
	}
	return &shipper.GetLabelResponse{
		OrderID: apiResp.ShipmentID,
		Label: shipper.Label{
			Format: shipper.LabelPDF,
			URL:    apiResp.URL,
		},
	}, nil
}

// CancelOrder voids a shipment with Canada Post.
func (c *Client) CancelOrder(ctx context.Context, req *shipper.CancelOrderRequest) (*shipper.CancelOrderResponse, error) {
	c.logger.Info("Voiding Canada Post shipment",
		zap.String("order_id", req.OrderID),
		zap.String("reason", req.Reason),
	)

	apiResp, err := c.apiClient.VoidShipment(ctx, req.OrderID)
	if err != nil {
		return nil, c.wrapError("cancel_order", err)
	}
	return &shipper.CancelOrderResponse{
		OrderID: apiResp.ShipmentID,
		Status:  shipper.StatusCancelled,
	}, nil
}

// wrapError maps an API error onto the carrier error model.
func (c *Client) wrapError(operation string, err error) error {
	c.logger.Error("Canada Post API error",
		zap.String("operation", operation),
		zap.Error(err),
	)

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		carrierErr := shipper.NewCarrierError(carrierName, apiErr.Code, apiErr.Message).
			WithStatusCode(apiErr.StatusCode)
		switch {
		case apiErr.StatusCode == http.StatusNotFound || apiErr.Code == "AA004":
			carrierErr.WithCause(shipper.ErrOrderNotFound)
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			carrierErr.WithCause(shipper.ErrAuthenticationFailed)
		case apiErr.Code == "label-not-ready":
			carrierErr.WithCause(shipper.ErrLabelNotAvailable).WithRetryable(true)
		case apiErr.StatusCode >= 500:
			carrierErr.WithRetryable(true)
		}
		return carrierErr
	}
	return shipper.NewCarrierError(carrierName, "api_error", "request failed").WithCause(err).WithRetryable(true)
}

func ratesResponseToShipper(resp *RatesResponse) *shipper.QuoteResponse {
	// Quotes are priced live; give callers a short validity window.
	expiresAt := time.Now().Add(30 * time.Minute)

	rates := make([]shipper.RateOption, len(resp.Rates))
	for i, r := range resp.Rates {
		var estimatedDelivery *time.Time
		if r.ExpectedDelivery != "" {
			if t, err := time.Parse("2006-01-02", r.ExpectedDelivery); err == nil {
				estimatedDelivery = &t
			}
		}

		rates[i] = shipper.RateOption{
			RateID:            fmt.Sprintf("cp:%s", r.ServiceCode),
			Carrier:           carrierName,
			ServiceCode:       r.ServiceCode,
			ServiceName:       r.ServiceName,
			ServiceType:       mapServiceType(r.ServiceCode),
			BaseRate:          shipper.Money{Amount: r.BaseRate, Currency: "CAD"},
			Taxes:             shipper.Money{Amount: r.Taxes, Currency: "CAD"},
			TotalPrice:        shipper.Money{Amount: r.TotalPrice, Currency: "CAD"},
			TransitDays:       r.TransitDays,
			EstimatedDelivery: estimatedDelivery,
			ExpiresAt:         expiresAt,
			Guaranteed:        r.Guaranteed,
		}
	}

	return &shipper.QuoteResponse{
		QuoteID:   fmt.Sprintf("cp-quote-%d", time.Now().UnixNano()),
		Carrier:   carrierName,
		Rates:     rates,
		ExpiresAt: expiresAt,
	}
}

func shipmentResponseToShipper(resp *ShipmentResponse) *shipper.CreateOrderResponse {
	var estimatedDelivery *time.Time
	if resp.ExpectedDelivery != "" {
		if t, err := time.Parse("2006-01-02", resp.ExpectedDelivery); err == nil {
			estimatedDelivery = &t
		}
	}

	return &shipper.CreateOrderResponse{
		OrderID:           resp.ShipmentID,
		TrackingNumber:    resp.TrackingPIN,
		TrackingURL:       fmt.Sprintf("https://www.canadapost-postescanada.ca/track-reperage/en#/search?searchFor=%s", resp.TrackingPIN),
		Status:            shipper.StatusConfirmed,
		Carrier:           carrierName,
		ServiceName:       resp.ServiceName,
		TotalCharged:      shipper.Money{Amount: resp.TotalDue, Currency: "CAD"},
		EstimatedDelivery: estimatedDelivery,
		LabelURL:          resp.LabelURL,
	}
}

// serviceCodeFromRateID recovers the service code from a rate ID of the
// form "cp:DOM.RP". Bare service codes pass through.
func serviceCodeFromRateID(rateID string) string {
	if code, ok := strings.CutPrefix(rateID, "cp:"); ok {
		return code
	}
	if rateID == "" {
		return "DOM.RP"
	}
	return rateID
}

func mapServiceType(code string) shipper.ServiceType {
	switch code {
	case "DOM.RP", "USA.SP.AIR", "INT.SP.AIR":
		return shipper.ServiceStandard
	case "DOM.XP", "USA.XP", "INT.XP":
		return shipper.ServiceExpress
	case "DOM.PC", "USA.PW.PARCEL", "INT.PW.PARCEL":
		return shipper.ServicePriority
	case "DOM.EP":
		return shipper.ServiceEconomy
	default:
		return shipper.ServiceStandard
	}
}
