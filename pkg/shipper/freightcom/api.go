package freightcom

import (
	"context"
	"fmt"
)

// APIClient defines the interface for Freightcom API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetRates fetches shipping rates.
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)

	// CreateShipment creates a new shipment order.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// GetLabel retrieves the shipping label for an order.
	GetLabel(ctx context.Context, orderID string, format string) (*LabelResponse, error)

	// CancelShipment cancels an existing shipment.
	CancelShipment(ctx context.Context, orderID string, reason string) (*CancelResponse, error)

	// CreateAddress registers an address in the Freightcom address
	// book. A 409 from the API surfaces as *APIError with code
	// "address_exists", carrying the existing entry's ID when the
	// response discloses it.
	CreateAddress(ctx context.Context, req *AddressBookRequest) (*AddressBookResponse, error)
}

// ============================================================================
// API Request/Response Types (match Freightcom REST API v2 structure)
// ============================================================================

// RatesRequest represents a rate quote request. POST /rate endpoint.
type RatesRequest struct {
	Services []int           `json:"services,omitempty"` // Service IDs to query (all if omitted)
	Details  ShippingDetails `json:"details"`
}

// ShippingDetails contains shipping information for rate requests.
type ShippingDetails struct {
	Origin      Location      `json:"origin"`
	Destination Location      `json:"destination"`
	Packaging   PackagingInfo `json:"packaging"`
}

// Location represents origin or destination.
type Location struct {
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2,omitempty"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"` // ISO 3166-1 alpha-2 code
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Residential bool   `json:"residential,omitempty"`
}

// PackagingInfo contains package details.
type PackagingInfo struct {
	Type     string    `json:"type"` // "package", "envelope", "pallet"
	Packages []Package `json:"packages"`
}

// Package represents a single package.
type Package struct {
	Length      float64 `json:"length"` // cm
	Width       float64 `json:"width"`  // cm
	Height      float64 `json:"height"` // cm
	Weight      float64 `json:"weight"` // kg
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
}

// RateRequestResponse is the initial response from POST /rate (async).
type RateRequestResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"` // "pending", "complete", "error"
}

// RatesResponse represents the rate quote response.
// GET /rate/{request_id} endpoint.
type RatesResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"` // "pending", "complete", "error"
	Rates     []Rate `json:"rates,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Rate represents a single shipping rate option.
type Rate struct {
	ID                string  `json:"id"`
	ServiceID         int     `json:"service_id"`
	CarrierCode       string  `json:"carrier_code"`
	ServiceCode       string  `json:"service_code"`
	ServiceName       string  `json:"service_name"`
	BaseRate          float64 `json:"base_rate"`
	FuelSurcharge     float64 `json:"fuel_surcharge"`
	TotalTax          float64 `json:"total_tax"`
	TotalPrice        float64 `json:"total_price"`
	Currency          string  `json:"currency"`
	TransitDays       int     `json:"transit_days"`
	EstimatedDelivery string  `json:"estimated_delivery,omitempty"`
	Guaranteed        bool    `json:"guaranteed"`
	ExpiresAt         string  `json:"expires_at"`
}

// ShipmentRequest represents a shipment creation request.
// POST /shipment endpoint. Origin and destination are given either
// inline in Details or as address-book entry IDs.
type ShipmentRequest struct {
	UniqueID             string          `json:"unique_id"` // Max 128 chars, prevents duplicates
	PaymentMethodID      int             `json:"payment_method_id"`
	ServiceID            int             `json:"service_id"`
	Details              ShippingDetails `json:"details"`
	OriginAddressID      string          `json:"origin_address_id,omitempty"`
	DestinationAddressID string          `json:"destination_address_id,omitempty"`
	Sender               Contact         `json:"sender"`
	Recipient            Contact         `json:"recipient"`
	Reference            string          `json:"reference,omitempty"`
	Instructions         string          `json:"instructions,omitempty"`
}

// Contact represents sender/recipient contact info.
type Contact struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
}

// ShipmentResponse represents the shipment creation response.
type ShipmentResponse struct {
	ID                string   `json:"id"`
	UniqueID          string   `json:"unique_id"`
	PreviouslyCreated bool     `json:"previously_created"`
	Status            string   `json:"status"`
	TrackingNumbers   []string `json:"tracking_numbers"`
	TrackingURL       string   `json:"tracking_url,omitempty"`
	ServiceName       string   `json:"service_name"`
	TotalCharged      float64  `json:"total_charged"`
	Currency          string   `json:"currency"`
	EstimatedDelivery string   `json:"estimated_delivery,omitempty"`
	Labels            []Label  `json:"labels,omitempty"`
}

// Label represents a shipping label.
type Label struct {
	Size   string `json:"size"`   // "4x6", "letter"
	Format string `json:"format"` // "pdf", "zpl", "png"
	URL    string `json:"url"`
}

// LabelResponse represents the label response.
// Obtained from GET /shipment/{shipment_id}.
type LabelResponse struct {
	ShipmentID string  `json:"shipment_id"`
	Labels     []Label `json:"labels"`
}

// CancelResponse represents the cancellation response.
// DELETE /shipment/{shipment_id}.
type CancelResponse struct {
	ShipmentID         string  `json:"shipment_id"`
	Status             string  `json:"status"`
	RefundAmount       float64 `json:"refund_amount,omitempty"`
	Currency           string  `json:"currency,omitempty"`
	ConfirmationNumber string  `json:"confirmation_number,omitempty"`
}

// AddressBookRequest registers an address. POST /address-book.
type AddressBookRequest struct {
	Address      string `json:"address"` // single-line canonical form
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// AddressBookResponse is the created address-book entry.
type AddressBookResponse struct {
	ID string `json:"id"`
}

// codeAddressExists is the APIError code on an address-book 409.
const codeAddressExists = "address_exists"

// APIError represents an error from the Freightcom API.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	ExistingID string `json:"existing_id,omitempty"` // set on address-book conflicts
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConflict reports whether the error is an address-book conflict.
func (e *APIError) IsConflict() bool {
	return e.Code == codeAddressExists
}
