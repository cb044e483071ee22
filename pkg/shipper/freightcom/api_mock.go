package freightcom

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAPIClient is an in-memory APIClient for tests and local
// development. Its address book behaves like the real one: a repeated
// registration of the same address returns an address_exists conflict
// carrying the existing entry's ID.
type MockAPIClient struct {
	mu        sync.Mutex
	shipments map[string]*ShipmentResponse
	addresses map[string]string // address line -> entry ID
	nextID    int

	// RegisterCalls counts CreateAddress invocations.
	RegisterCalls int

	// HideConflictID, when true, makes conflicts omit the existing
	// entry ID, modeling entries owned by another account.
	HideConflictID bool
}

// NewMockAPIClient creates a mock API client.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{
		shipments: make(map[string]*ShipmentResponse),
		addresses: make(map[string]string),
	}
}

// GetRates returns deterministic mock rates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	now := time.Now()
	expires := now.Add(30 * time.Minute).Format(time.RFC3339)

	return &RatesResponse{
		RequestID: fmt.Sprintf("rate-req-%d", now.UnixNano()),
		Status:    "complete",
		Rates: []Rate{
			{
				ID:            fmt.Sprintf("rate-%d-1", now.UnixNano()),
				ServiceID:     101,
				CarrierCode:   "FEDEX",
				ServiceCode:   "GROUND",
				ServiceName:   "FedEx Ground",
				BaseRate:      14.00,
				FuelSurcharge: 1.75,
				TotalTax:      2.05,
				TotalPrice:    17.80,
				Currency:      "CAD",
				TransitDays:   4,
				ExpiresAt:     expires,
			},
			{
				ID:            fmt.Sprintf("rate-%d-2", now.UnixNano()),
				ServiceID:     102,
				CarrierCode:   "UPS",
				ServiceCode:   "EXPRESS",
				ServiceName:   "UPS Express Saver",
				BaseRate:      27.50,
				FuelSurcharge: 3.10,
				TotalTax:      3.98,
				TotalPrice:    34.58,
				Currency:      "CAD",
				TransitDays:   1,
				Guaranteed:    true,
				ExpiresAt:     expires,
			},
		},
	}, nil
}

// CreateShipment records and returns a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// unique_id gives idempotent creation, like the real API.
	for _, s := range m.shipments {
		if s.UniqueID == req.UniqueID {
			prev := *s
			prev.PreviouslyCreated = true
			return &prev, nil
		}
	}

	m.nextID++
	id := fmt.Sprintf("shipment-%d", m.nextID)
	resp := &ShipmentResponse{
		ID:              id,
		UniqueID:        req.UniqueID,
		Status:          "confirmed",
		TrackingNumbers: []string{fmt.Sprintf("FC%09d", m.nextID)},
		TrackingURL:     fmt.Sprintf("https://tracking.freightcom.mock/%s", id),
		ServiceName:     "FedEx Ground",
		TotalCharged:    17.80,
		Currency:        "CAD",
		Labels: []Label{
			{Size: "4x6", Format: "pdf", URL: fmt.Sprintf("https://labels.freightcom.mock/%s.pdf", id)},
		},
	}
	m.shipments[id] = resp
	return resp, nil
}

// GetLabel returns the labels for a recorded shipment.
func (m *MockAPIClient) GetLabel(ctx context.Context, orderID string, format string) (*LabelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shipments[orderID]
	if !ok {
		return nil, &APIError{Code: "not_found", Message: "shipment not found"}
	}
	return &LabelResponse{ShipmentID: orderID, Labels: s.Labels}, nil
}

// CancelShipment cancels a recorded shipment.
func (m *MockAPIClient) CancelShipment(ctx context.Context, orderID string, reason string) (*CancelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.shipments[orderID]
	if !ok {
		return nil, &APIError{Code: "not_found", Message: "shipment not found"}
	}
	s.Status = "cancelled"
	return &CancelResponse{
		ShipmentID:         orderID,
		Status:             "cancelled",
		RefundAmount:       s.TotalCharged,
		Currency:           s.Currency,
		ConfirmationNumber: fmt.Sprintf("cancel-%s", orderID),
	}, nil
}

// CreateAddress registers an address-book entry, or returns an
// address_exists conflict for a repeated address.
func (m *MockAPIClient) CreateAddress(ctx context.Context, req *AddressBookRequest) (*AddressBookResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegisterCalls++

	if id, ok := m.addresses[req.Address]; ok {
		apiErr := &APIError{Code: codeAddressExists, Message: "address already registered"}
		if !m.HideConflictID {
			apiErr.ExistingID = id
		}
		return nil, apiErr
	}

	m.nextID++
	id := fmt.Sprintf("ab-%d", m.nextID)
	m.addresses[req.Address] = id
	return &AddressBookResponse{ID: id}, nil
}

// SeedAddress preloads an address-book entry so the next CreateAddress
// for it conflicts. Tests only.
func (m *MockAPIClient) SeedAddress(address, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addresses[address] = id
}
