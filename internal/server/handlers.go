package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/shipmux/shipmux/pkg/quota"
	"github.com/shipmux/shipmux/pkg/shipper"
	"go.uber.org/zap"
)

// API payloads. Carrier-facing structs in pkg/shipper stay free of
// JSON tags; the wire shape is owned here.

type addressPayload struct {
	Name          string `json:"name,omitempty"`
	Company       string `json:"company,omitempty"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	City          string `json:"city"`
	ProvinceCode  string `json:"province_code"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	IsResidential bool   `json:"is_residential,omitempty"`
}

func (a addressPayload) toShipper() shipper.Address {
	return shipper.Address{
		Name:          a.Name,
		Company:       a.Company,
		Line1:         a.Line1,
		Line2:         a.Line2,
		City:          a.City,
		ProvinceCode:  a.ProvinceCode,
		PostalCode:    a.PostalCode,
		CountryCode:   a.CountryCode,
		Phone:         a.Phone,
		Email:         a.Email,
		IsResidential: a.IsResidential,
	}
}

type contactPayload struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

type packagePayload struct {
	Length float64 `json:"length_cm"`
	Width  float64 `json:"width_cm"`
	Height float64 `json:"height_cm"`
	Weight float64 `json:"weight_kg"`
}

type quoteRequestPayload struct {
	TenantID    string           `json:"tenant_id,omitempty"`
	Origin      addressPayload   `json:"origin"`
	Destination addressPayload   `json:"destination"`
	Packages    []packagePayload `json:"packages"`
	Carriers    []string         `json:"carriers,omitempty"`
}

type ratePayload struct {
	RateID      string  `json:"rate_id"`
	Carrier     string  `json:"carrier"`
	ServiceCode string  `json:"service_code"`
	ServiceName string  `json:"service_name"`
	ServiceType string  `json:"service_type"`
	TotalPrice  float64 `json:"total_price"`
	Currency    string  `json:"currency"`
	TransitDays int     `json:"transit_days"`
	Guaranteed  bool    `json:"guaranteed"`
}

type quoteResponsePayload struct {
	Quotes []carrierQuotePayload `json:"quotes"`
	Errors []string              `json:"errors,omitempty"`
}

type carrierQuotePayload struct {
	QuoteID string        `json:"quote_id"`
	Carrier string        `json:"carrier"`
	Rates   []ratePayload `json:"rates"`
}

type orderRequestPayload struct {
	RateID           string           `json:"rate_id"`
	Reference        string           `json:"reference,omitempty"`
	Instructions     string           `json:"instructions,omitempty"`
	Sender           contactPayload   `json:"sender"`
	SenderAddress    addressPayload   `json:"sender_address"`
	Recipient        contactPayload   `json:"recipient"`
	RecipientAddress addressPayload   `json:"recipient_address"`
	Packages         []packagePayload `json:"packages"`
}

type orderResponsePayload struct {
	OrderID        string  `json:"order_id"`
	TrackingNumber string  `json:"tracking_number"`
	TrackingURL    string  `json:"tracking_url,omitempty"`
	Status         string  `json:"status"`
	Carrier        string  `json:"carrier"`
	ServiceName    string  `json:"service_name,omitempty"`
	TotalCharged   float64 `json:"total_charged"`
	Currency       string  `json:"currency,omitempty"`
	LabelURL       string  `json:"label_url,omitempty"`
}

func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"carriers": s.gateway.Carriers()})
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	var payload quoteRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if len(payload.Packages) == 0 {
		s.badRequest(w, "at least one package is required")
		return
	}

	req := &shipper.QuoteRequest{
		TenantID:    payload.TenantID,
		Origin:      payload.Origin.toShipper(),
		Destination: payload.Destination.toShipper(),
		Carriers:    payload.Carriers,
	}
	for _, p := range payload.Packages {
		req.Packages = append(req.Packages, shipper.Package{
			Length: p.Length, Width: p.Width, Height: p.Height, Weight: p.Weight,
		})
	}

	responses, errs := s.gateway.GetQuotes(r.Context(), req)

	resp := quoteResponsePayload{Quotes: make([]carrierQuotePayload, 0, len(responses))}
	for _, qr := range responses {
		cq := carrierQuotePayload{QuoteID: qr.QuoteID, Carrier: qr.Carrier, Rates: make([]ratePayload, 0, len(qr.Rates))}
		for _, rate := range qr.Rates {
			cq.Rates = append(cq.Rates, ratePayload{
				RateID:      rate.RateID,
				Carrier:     rate.Carrier,
				ServiceCode: rate.ServiceCode,
				ServiceName: rate.ServiceName,
				ServiceType: string(rate.ServiceType),
				TotalPrice:  rate.TotalPrice.Amount,
				Currency:    rate.TotalPrice.Currency,
				TransitDays: rate.TransitDays,
				Guaranteed:  rate.Guaranteed,
			})
		}
		resp.Quotes = append(resp.Quotes, cq)
	}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}

	// All carriers failing is a failure; partial results are not.
	if len(resp.Quotes) == 0 && len(resp.Errors) > 0 {
		s.writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	carrier := r.PathValue("carrier")

	var payload orderRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if payload.RateID == "" {
		s.badRequest(w, "rate_id is required")
		return
	}

	req := &shipper.CreateOrderRequest{
		RateID:           payload.RateID,
		Reference:        payload.Reference,
		Instructions:     payload.Instructions,
		Sender:           shipper.Contact(payload.Sender),
		SenderAddress:    payload.SenderAddress.toShipper(),
		Recipient:        shipper.Contact(payload.Recipient),
		RecipientAddress: payload.RecipientAddress.toShipper(),
	}
	for _, p := range payload.Packages {
		req.Packages = append(req.Packages, shipper.Package{
			Length: p.Length, Width: p.Width, Height: p.Height, Weight: p.Weight,
		})
	}

	resp, err := s.gateway.CreateOrder(r.Context(), carrier, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, orderResponsePayload{
		OrderID:        resp.OrderID,
		TrackingNumber: resp.TrackingNumber,
		TrackingURL:    resp.TrackingURL,
		Status:         string(resp.Status),
		Carrier:        resp.Carrier,
		ServiceName:    resp.ServiceName,
		TotalCharged:   resp.TotalCharged.Amount,
		Currency:       resp.TotalCharged.Currency,
		LabelURL:       resp.LabelURL,
	})
}

func (s *Server) handleGetLabel(w http.ResponseWriter, r *http.Request) {
	carrier := r.PathValue("carrier")
	orderID := r.PathValue("id")

	resp, err := s.gateway.GetLabel(r.Context(), carrier, &shipper.GetLabelRequest{
		OrderID: orderID,
		Format:  shipper.LabelFormat(r.URL.Query().Get("format")),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"order_id": resp.OrderID,
		"format":   string(resp.Label.Format),
		"url":      resp.Label.URL,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	carrier := r.PathValue("carrier")
	orderID := r.PathValue("id")

	var payload struct {
		Reason string `json:"reason"`
	}
	// Body is optional on cancel.
	json.NewDecoder(r.Body).Decode(&payload) //nolint:errcheck

	resp, err := s.gateway.CancelOrder(r.Context(), carrier, &shipper.CancelOrderRequest{
		OrderID: orderID,
		Reason:  payload.Reason,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"order_id": resp.OrderID,
		"status":   string(resp.Status),
	})
}

// Admin surface.

type quotaPayload struct {
	MaxRequests int    `json:"max_requests"`
	Window      string `json:"window"`
}

func (s *Server) handleListQuotas(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"quotas": s.gateway.AllQuotas()})
}

func (s *Server) handleGetQuota(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.gateway.QuotaStatus(r.PathValue("provider")))
}

func (s *Server) handlePutQuota(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	var payload quotaPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	window, err := time.ParseDuration(payload.Window)
	if err != nil {
		s.badRequest(w, "invalid window: "+err.Error())
		return
	}

	if err := s.gateway.ConfigureQuota(provider, quota.Config{
		MaxRequests: payload.MaxRequests,
		Window:      window,
	}); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.gateway.QuotaStatus(provider))
}

func (s *Server) handleAddressStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.gateway.AddressStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAddressCleanup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RetentionDays *int `json:"retention_days"`
	}
	// Empty body means the default retention.
	json.NewDecoder(r.Body).Decode(&payload) //nolint:errcheck

	retention := addressbook.DefaultRetention
	if payload.RetentionDays != nil {
		retention = time.Duration(*payload.RetentionDays) * 24 * time.Hour
	}

	removed, err := s.gateway.CleanupAddresses(r.Context(), retention)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var quotaErr *shipper.QuotaError
	switch {
	case errors.As(err, &quotaErr):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(quotaErr.RetryAfter.Seconds())+1))
		s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case errors.Is(err, shipper.ErrCarrierNotFound), errors.Is(err, shipper.ErrOrderNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, quota.ErrInvalidConfig), errors.Is(err, addressbook.ErrEmptyAddress), errors.Is(err, addressbook.ErrInvalidRetention):
		s.badRequest(w, err.Error())
	case errors.Is(err, addressbook.ErrConflictUnresolved):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, shipper.ErrAuthenticationFailed):
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	case errors.Is(err, addressbook.ErrRegistrarUnavailable), shipper.IsRetryable(err):
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("Request failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
