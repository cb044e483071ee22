package canadapost

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using the
// Canada Post XML REST API.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	customerID string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	CustomerID string
	Timeout    time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		customerID: cfg.CustomerID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Wire types. Canada Post speaks XML with vendor media types; the
// exported request/response structs in api.go stay transport-neutral.

type mailingScenario struct {
	XMLName        xml.Name       `xml:"mailing-scenario"`
	Xmlns          string         `xml:"xmlns,attr"`
	CustomerNumber string         `xml:"customer-number,omitempty"`
	ParcelChars    parcelChars    `xml:"parcel-characteristics"`
	OriginPostal   string         `xml:"origin-postal-code"`
	Destination    xmlDestination `xml:"destination"`
}

type parcelChars struct {
	Weight     float64        `xml:"weight"`
	Dimensions *xmlDimensions `xml:"dimensions,omitempty"`
}

type xmlDimensions struct {
	Length float64 `xml:"length"`
	Width  float64 `xml:"width"`
	Height float64 `xml:"height"`
}

type xmlDestination struct {
	Domestic      *domesticDest      `xml:"domestic,omitempty"`
	UnitedStates  *unitedStatesDest  `xml:"united-states,omitempty"`
	International *internationalDest `xml:"international,omitempty"`
}

type domesticDest struct {
	PostalCode string `xml:"postal-code"`
}

type unitedStatesDest struct {
	ZipCode string `xml:"zip-code"`
}

type internationalDest struct {
	CountryCode string `xml:"country-code"`
}

type priceQuotes struct {
	XMLName xml.Name   `xml:"price-quotes"`
	Quotes  []xmlQuote `xml:"price-quote"`
}

type xmlQuote struct {
	ServiceCode     string          `xml:"service-code"`
	ServiceName     string          `xml:"service-name"`
	PriceDetails    xmlPriceDetails `xml:"price-details"`
	ServiceStandard xmlServiceStd   `xml:"service-standard"`
}

type xmlPriceDetails struct {
	Base  float64 `xml:"base"`
	Taxes struct {
		GST float64 `xml:"gst"`
		PST float64 `xml:"pst"`
		HST float64 `xml:"hst"`
	} `xml:"taxes"`
	Due float64 `xml:"due"`
}

type xmlServiceStd struct {
	ExpectedTransitTime  int    `xml:"expected-transit-time"`
	ExpectedDeliveryDate string `xml:"expected-delivery-date"`
	GuaranteedDelivery   bool   `xml:"guaranteed-delivery"`
}

type xmlShipment struct {
	XMLName          xml.Name `xml:"non-contract-shipment"`
	Xmlns            string   `xml:"xmlns,attr"`
	RequestedService string   `xml:"delivery-spec>service-code"`
	Sender           struct {
		Name    string `xml:"name"`
		Company string `xml:"company,omitempty"`
		Address struct {
			AddressLine1 string `xml:"address-line-1"`
			City         string `xml:"city"`
			Province     string `xml:"prov-state"`
			PostalCode   string `xml:"postal-zip-code"`
		} `xml:"address-details"`
	} `xml:"delivery-spec>sender"`
	Destination struct {
		Name    string `xml:"name"`
		Address struct {
			AddressLine1 string `xml:"address-line-1"`
			City         string `xml:"city"`
			Province     string `xml:"prov-state"`
			CountryCode  string `xml:"country-code"`
			PostalCode   string `xml:"postal-zip-code"`
		} `xml:"address-details"`
	} `xml:"delivery-spec>destination"`
	ParcelChars parcelChars `xml:"delivery-spec>parcel-characteristics"`
	Reference   string      `xml:"delivery-spec>references>customer-ref-1,omitempty"`
}

type xmlShipmentInfo struct {
	XMLName     xml.Name  `xml:"non-contract-shipment-info"`
	ShipmentID  string    `xml:"shipment-id"`
	TrackingPIN string    `xml:"tracking-pin"`
	Links       []xmlLink `xml:"links>link"`
}

type xmlLink struct {
	Rel       string `xml:"rel,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type xmlShipmentReceipt struct {
	XMLName  xml.Name `xml:"non-contract-shipment-receipt"`
	TotalDue float64  `xml:"cc-receipt-details>charge-amount"`
	Service  string   `xml:"service-standard>service-name"`
}

type xmlMessages struct {
	XMLName  xml.Name `xml:"messages"`
	Messages []struct {
		Code        string `xml:"code"`
		Description string `xml:"description"`
	} `xml:"message"`
}

const ratesNamespace = "http://www.canadapost.ca/ws/ship/rate-v4"
const shipmentNamespace = "http://www.canadapost.ca/ws/ncshipment-v4"

// GetRates fetches shipping rates. POST /rs/ship/price.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	scenario := mailingScenario{
		Xmlns:          ratesNamespace,
		CustomerNumber: c.customerID,
		OriginPostal:   normalizePostal(req.OriginPostal),
		ParcelChars: parcelChars{
			Weight: req.WeightKG,
		},
	}
	if req.LengthCM > 0 {
		scenario.ParcelChars.Dimensions = &xmlDimensions{
			Length: req.LengthCM,
			Width:  req.WidthCM,
			Height: req.HeightCM,
		}
	}

	switch req.DestinationCountry {
	case "", "CA":
		scenario.Destination.Domestic = &domesticDest{PostalCode: normalizePostal(req.DestinationPostal)}
	case "US":
		scenario.Destination.UnitedStates = &unitedStatesDest{ZipCode: req.DestinationPostal}
	default:
		scenario.Destination.International = &internationalDest{CountryCode: req.DestinationCountry}
	}

	var quotes priceQuotes
	if err := c.doRequest(ctx, http.MethodPost, "/rs/ship/price", "application/vnd.cpc.ship.rate-v4+xml", &scenario, &quotes); err != nil {
		return nil, err
	}

	result := &RatesResponse{Rates: make([]Rate, 0, len(quotes.Quotes))}
	for _, q := range quotes.Quotes {
		taxes := q.PriceDetails.Taxes.GST + q.PriceDetails.Taxes.PST + q.PriceDetails.Taxes.HST
		result.Rates = append(result.Rates, Rate{
			ServiceCode:      q.ServiceCode,
			ServiceName:      q.ServiceName,
			BaseRate:         q.PriceDetails.Base,
			Taxes:            taxes,
			TotalPrice:       q.PriceDetails.Due,
			TransitDays:      q.ServiceStandard.ExpectedTransitTime,
			ExpectedDelivery: q.ServiceStandard.ExpectedDeliveryDate,
			Guaranteed:       q.ServiceStandard.GuaranteedDelivery,
		})
	}
	return result, nil
}

// CreateShipment creates a non-contract shipment.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	shipment := xmlShipment{
		Xmlns:            shipmentNamespace,
		RequestedService: req.ServiceCode,
		ParcelChars:      parcelChars{Weight: req.WeightKG},
		Reference:        req.Reference,
	}
	shipment.Sender.Name = req.SenderName
	shipment.Sender.Address.AddressLine1 = req.SenderAddress
	shipment.Sender.Address.City = req.SenderCity
	shipment.Sender.Address.Province = req.SenderProvince
	shipment.Sender.Address.PostalCode = normalizePostal(req.SenderPostal)
	shipment.Destination.Name = req.RecipientName
	shipment.Destination.Address.AddressLine1 = req.RecipientAddress
	shipment.Destination.Address.City = req.RecipientCity
	shipment.Destination.Address.Province = req.RecipientProvince
	shipment.Destination.Address.CountryCode = req.RecipientCountry
	shipment.Destination.Address.PostalCode = normalizePostal(req.RecipientPostal)

	path := fmt.Sprintf("/rs/%s/ncshipment", c.customerID)
	var info xmlShipmentInfo
	if err := c.doRequest(ctx, http.MethodPost, path, "application/vnd.cpc.ncshipment-v4+xml", &shipment, &info); err != nil {
		return nil, err
	}

	resp := &ShipmentResponse{
		ShipmentID:  info.ShipmentID,
		TrackingPIN: info.TrackingPIN,
		Status:      "created",
		ServiceName: req.ServiceCode,
	}
	for _, link := range info.Links {
		if link.Rel == "label" {
			resp.LabelURL = link.Href
		}
	}
	return resp, nil
}

// GetLabel returns the label link for a shipment.
func (c *HTTPAPIClient) GetLabel(ctx context.Context, shipmentID string) (*LabelResponse, error) {
	path := fmt.Sprintf("/rs/%s/ncshipment/%s", c.customerID, shipmentID)
	var info xmlShipmentInfo
	if err := c.doRequest(ctx, http.MethodGet, path, "application/vnd.cpc.ncshipment-v4+xml", nil, &info); err != nil {
		return nil, err
	}

	for _, link := range info.Links {
		if link.Rel == "label" {
			return &LabelResponse{ShipmentID: shipmentID, URL: link.Href, MediaType: link.MediaType}, nil
		}
	}
	return nil, &APIError{Code: "label-not-ready", Message: "no label link on shipment"}
}

// VoidShipment voids a shipment. DELETE on the shipment resource.
func (c *HTTPAPIClient) VoidShipment(ctx context.Context, shipmentID string) (*VoidResponse, error) {
	path := fmt.Sprintf("/rs/%s/ncshipment/%s", c.customerID, shipmentID)
	if err := c.doRequest(ctx, http.MethodDelete, path, "application/vnd.cpc.ncshipment-v4+xml", nil, nil); err != nil {
		return nil, err
	}
	return &VoidResponse{ShipmentID: shipmentID, Voided: true}, nil
}

// doRequest issues an authenticated XML request and decodes the response
// into out (when non-nil).
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path, mediaType string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := xml.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(append([]byte(xml.Header), data...))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Content-Type", mediaType)
	req.Header.Set("Accept", mediaType)
	req.Header.Set("Accept-Language", "en-CA")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("canadapost request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// parseError decodes the <messages> error body.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	var msgs xmlMessages
	if err := xml.NewDecoder(resp.Body).Decode(&msgs); err == nil && len(msgs.Messages) > 0 {
		return &APIError{
			Code:       msgs.Messages[0].Code,
			Message:    msgs.Messages[0].Description,
			StatusCode: resp.StatusCode,
		}
	}
	return &APIError{
		Code:       fmt.Sprintf("http_%d", resp.StatusCode),
		Message:    http.StatusText(resp.StatusCode),
		StatusCode: resp.StatusCode,
	}
}

// normalizePostal uppercases and strips spaces, the format the API expects.
func normalizePostal(postal string) string {
	return strings.ToUpper(strings.ReplaceAll(postal, " ", ""))
}
