package canadapost

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAPIClient is an in-memory APIClient for tests and local development.
type MockAPIClient struct {
	mu        sync.Mutex
	shipments map[string]*ShipmentResponse
	nextID    int
}

// NewMockAPIClient creates a mock API client.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{
		shipments: make(map[string]*ShipmentResponse),
	}
}

// GetRates returns deterministic mock rates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	delivery := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	return &RatesResponse{
		Rates: []Rate{
			{
				ServiceCode:      "DOM.RP",
				ServiceName:      "Regular Parcel",
				BaseRate:         11.25,
				Taxes:            1.46,
				TotalPrice:       12.71,
				TransitDays:      5,
				ExpectedDelivery: delivery,
			},
			{
				ServiceCode:      "DOM.XP",
				ServiceName:      "Xpresspost",
				BaseRate:         22.40,
				Taxes:            2.91,
				TotalPrice:       25.31,
				TransitDays:      2,
				ExpectedDelivery: delivery,
				Guaranteed:       true,
			},
		},
	}, nil
}

// CreateShipment records and returns a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("cp-%d", m.nextID)
	resp := &ShipmentResponse{
		ShipmentID:  id,
		TrackingPIN: fmt.Sprintf("%016d", m.nextID),
		Status:      "created",
		ServiceName: req.ServiceCode,
		TotalDue:    12.71,
		LabelURL:    fmt.Sprintf("https://labels.canadapost.mock/%s.pdf", id),
	}
	m.shipments[id] = resp
	return resp, nil
}

// GetLabel returns the label link for a recorded shipment.
func (m *MockAPIClient) GetLabel(ctx context.Context, shipmentID string) (*LabelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shipments[shipmentID]
	if !ok {
		return nil, &APIError{Code: "AA004", Message: "shipment not found", StatusCode: 404}
	}
	return &LabelResponse{ShipmentID: shipmentID, URL: s.LabelURL, MediaType: "application/pdf"}, nil
}

// VoidShipment voids a recorded shipment.
func (m *MockAPIClient) VoidShipment(ctx context.Context, shipmentID string) (*VoidResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shipments[shipmentID]
	if !ok {
		return nil, &APIError{Code: "AA004", Message: "shipment not found", StatusCode: 404}
	}
	s.Status = "voided"
	return &VoidResponse{ShipmentID: shipmentID, Voided: true}, nil
}
