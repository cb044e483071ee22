package freightcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration // Interval between polling for async operations
	PollTimeout  time.Duration // Max time to wait for async operations
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 500 * time.Millisecond
	}

	pollTimeout := cfg.PollTimeout
	if pollTimeout == 0 {
		pollTimeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// GetRates fetches shipping rates. This is an async operation:
// POST /rate returns a request_id, then we poll GET /rate/{request_id}
// until complete.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/rate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var rateReq RateRequestResponse
	if err := json.NewDecoder(resp.Body).Decode(&rateReq); err != nil {
		return nil, fmt.Errorf("decoding rate request response: %w", err)
	}

	return c.pollRates(ctx, rateReq.RequestID)
}

// pollRates polls the rate endpoint until results are ready or timeout.
func (c *HTTPAPIClient) pollRates(ctx context.Context, requestID string) (*RatesResponse, error) {
	deadline := time.Now().Add(c.pollTimeout)
	path := fmt.Sprintf("/rate/%s", requestID)

	for {
		if time.Now().After(deadline) {
			return nil, &APIError{
				Code:    "timeout",
				Message: "rate request timed out waiting for results",
			}
		}

		resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			err := c.parseError(resp)
			resp.Body.Close()
			return nil, err
		}

		var result RatesResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decoding rates response: %w", err)
		}
		resp.Body.Close()

		switch result.Status {
		case "complete":
			return &result, nil
		case "error":
			return nil, &APIError{Code: "rate_error", Message: result.Error}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// CreateShipment creates a new shipment. POST /shipment.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/shipment", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result ShipmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding shipment response: %w", err)
	}
	return &result, nil
}

// GetLabel retrieves shipment labels. GET /shipment/{id}.
func (c *HTTPAPIClient) GetLabel(ctx context.Context, orderID string, format string) (*LabelResponse, error) {
	path := fmt.Sprintf("/shipment/%s?format=%s", orderID, format)
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result LabelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding label response: %w", err)
	}
	return &result, nil
}

// CancelShipment cancels a shipment. DELETE /shipment/{id}.
func (c *HTTPAPIClient) CancelShipment(ctx context.Context, orderID string, reason string) (*CancelResponse, error) {
	path := fmt.Sprintf("/shipment/%s", orderID)
	resp, err := c.doRequest(ctx, http.MethodDelete, path, map[string]string{"reason": reason})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result CancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding cancel response: %w", err)
	}
	return &result, nil
}

// CreateAddress registers an address-book entry. POST /address-book.
// A 409 is returned as *APIError with code "address_exists" so the
// caller can recover the existing entry's ID.
func (c *HTTPAPIClient) CreateAddress(ctx context.Context, req *AddressBookRequest) (*AddressBookResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/address-book", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result AddressBookResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding address-book response: %w", err)
	}
	return &result, nil
}

// doRequest issues an authenticated request against the API.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("freightcom request failed: %w", err)
	}
	return resp, nil
}

// parseError decodes an API error response body.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	var apiErr APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
		return &APIError{
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: http.StatusText(resp.StatusCode),
		}
	}
	return &apiErr
}
