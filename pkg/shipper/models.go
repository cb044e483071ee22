package shipper

import (
	"time"
)

// ShipmentStatus represents the normalized status of a shipment.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "pending"
	StatusQuoted         ShipmentStatus = "quoted"
	StatusConfirmed      ShipmentStatus = "confirmed"
	StatusPickedUp       ShipmentStatus = "picked_up"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusCancelled      ShipmentStatus = "cancelled"
	StatusException      ShipmentStatus = "exception"
)

// ServiceType represents the shipping service type.
type ServiceType string

const (
	ServiceStandard  ServiceType = "standard"
	ServiceExpress   ServiceType = "express"
	ServicePriority  ServiceType = "priority"
	ServiceOvernight ServiceType = "overnight"
	ServiceEconomy   ServiceType = "economy"
)

// LabelFormat represents the format of shipping labels.
type LabelFormat string

const (
	LabelPDF LabelFormat = "pdf"
	LabelPNG LabelFormat = "png"
	LabelZPL LabelFormat = "zpl"
)

// Address represents a shipping address.
type Address struct {
	Name          string
	Company       string
	Line1         string
	Line2         string
	City          string
	ProvinceCode  string // e.g., "ON", "QC", "BC"
	PostalCode    string
	CountryCode   string // ISO 3166-1 alpha-2, e.g., "CA", "US"
	Phone         string
	Email         string
	Instructions  string
	IsResidential bool
}

// Line flattens the address into a single line suitable for
// address-book canonicalization.
func (a Address) Line() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.ProvinceCode, a.PostalCode, a.CountryCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	line := ""
	for i, p := range parts {
		if i > 0 {
			line += ", "
		}
		line += p
	}
	return line
}

// Contact represents sender or recipient contact info.
type Contact struct {
	Name    string
	Company string
	Phone   string
	Email   string
}

// Package represents a package to be shipped. Dimensions are in cm,
// weight in kg.
type Package struct {
	Length        float64
	Width         float64
	Height        float64
	Weight        float64
	Description   string
	DeclaredValue float64
	Currency      string
}

// Money represents a monetary amount.
type Money struct {
	Amount   float64
	Currency string
}

// RateOption represents a shipping rate option from a carrier.
type RateOption struct {
	RateID            string
	Carrier           string
	ServiceCode       string
	ServiceName       string
	ServiceType       ServiceType
	BaseRate          Money
	FuelSurcharge     Money
	Taxes             Money
	TotalPrice        Money
	TransitDays       int
	EstimatedDelivery *time.Time
	ExpiresAt         time.Time
	Guaranteed        bool
}

// Label represents a shipping label.
type Label struct {
	Format LabelFormat
	Data   string // Base64 encoded if inline
	URL    string // URL if hosted
}

// QuoteRequest is the request for getting shipping quotes.
type QuoteRequest struct {
	TenantID    string
	Origin      Address
	Destination Address
	Packages    []Package
	Carriers    []string // Empty = all carriers
}

// QuoteResponse is the response from getting shipping quotes.
type QuoteResponse struct {
	QuoteID   string
	Carrier   string
	Rates     []RateOption
	ExpiresAt time.Time
}

// CreateOrderRequest is the request for creating a shipping order.
type CreateOrderRequest struct {
	TenantID         string
	RateID           string // Selected rate from a quote
	Sender           Contact
	SenderAddress    Address
	Recipient        Contact
	RecipientAddress Address
	Packages         []Package
	Reference        string
	Instructions     string

	// Address-book identifiers, resolved by the gateway for carriers
	// whose order API requires registered addresses.
	SenderAddressID    string
	RecipientAddressID string
}

// CreateOrderResponse is the response from creating a shipping order.
type CreateOrderResponse struct {
	OrderID           string
	TrackingNumber    string
	TrackingURL       string
	Status            ShipmentStatus
	Carrier           string
	ServiceName       string
	TotalCharged      Money
	EstimatedDelivery *time.Time
	LabelURL          string
}

// GetLabelRequest is the request for getting a shipping label.
type GetLabelRequest struct {
	OrderID string
	Format  LabelFormat
}

// GetLabelResponse is the response from getting a shipping label.
type GetLabelResponse struct {
	OrderID string
	Label   Label
}

// CancelOrderRequest is the request for cancelling an order.
type CancelOrderRequest struct {
	OrderID string
	Reason  string
}

// CancelOrderResponse is the response from cancelling an order.
type CancelOrderResponse struct {
	OrderID            string
	Status             ShipmentStatus
	RefundAmount       *Money
	ConfirmationNumber string
}
