package canadapost

import (
	"context"
	"fmt"
)

// APIClient defines the interface for Canada Post API operations.
type APIClient interface {
	// GetRates fetches shipping rates.
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)

	// CreateShipment creates a new shipment.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// GetLabel retrieves the label artifact for a shipment.
	GetLabel(ctx context.Context, shipmentID string) (*LabelResponse, error)

	// VoidShipment voids an existing shipment.
	VoidShipment(ctx context.Context, shipmentID string) (*VoidResponse, error)
}

// RatesRequest represents a rate quote request.
type RatesRequest struct {
	OriginPostal       string
	DestinationPostal  string
	DestinationCountry string
	WeightKG           float64
	LengthCM           float64
	WidthCM            float64
	HeightCM           float64
}

// Rate is a single priced service option.
type Rate struct {
	ServiceCode      string
	ServiceName      string
	BaseRate         float64
	Taxes            float64
	TotalPrice       float64
	TransitDays      int
	ExpectedDelivery string
	Guaranteed       bool
}

// RatesResponse represents the rate quote response.
type RatesResponse struct {
	Rates []Rate
}

// ShipmentRequest represents a shipment creation request.
type ShipmentRequest struct {
	ServiceCode       string
	SenderName        string
	SenderPostal      string
	SenderAddress     string
	SenderCity        string
	SenderProvince    string
	RecipientName     string
	RecipientPostal   string
	RecipientAddress  string
	RecipientCity     string
	RecipientProvince string
	RecipientCountry  string
	WeightKG          float64
	Reference         string
}

// ShipmentResponse represents the shipment creation response.
type ShipmentResponse struct {
	ShipmentID       string
	TrackingPIN      string
	Status           string
	ServiceName      string
	TotalDue         float64
	ExpectedDelivery string
	LabelURL         string
}

// LabelResponse carries the label artifact location.
type LabelResponse struct {
	ShipmentID string
	URL        string
	MediaType  string
}

// VoidResponse represents the void/cancel response.
type VoidResponse struct {
	ShipmentID string
	Voided     bool
}

// APIError represents an error message from the Canada Post API.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
