package shipper_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shipmux/shipmux/pkg/shipper"
	"github.com/stretchr/testify/assert"
)

func TestCarrierError_Error(t *testing.T) {
	err := shipper.NewCarrierError("freightcom", "INVALID_ADDRESS", "Invalid postal code")
	assert.Equal(t, "freightcom error (INVALID_ADDRESS): Invalid postal code", err.Error())
}

func TestCarrierError_ErrorWithCause(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.NewCarrierError("freightcom", "API_ERROR", "API call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "API call failed")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestCarrierError_Unwrap(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.NewCarrierError("freightcom", "API_ERROR", "API call failed").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestCarrierError_IsMatchesByCode(t *testing.T) {
	err1 := shipper.NewCarrierError("freightcom", "INVALID_ADDRESS", "Invalid postal code")
	err2 := shipper.NewCarrierError("canadapost", "INVALID_ADDRESS", "Different message")
	assert.True(t, errors.Is(err1, err2))

	err3 := shipper.NewCarrierError("freightcom", "DIFFERENT_CODE", "Different error")
	assert.False(t, errors.Is(err1, err3))
}

func TestCarrierError_WithStatusCode(t *testing.T) {
	err := shipper.NewCarrierError("freightcom", "AUTH_ERROR", "Unauthorized").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}

func TestQuotaError_IsQuotaExceeded(t *testing.T) {
	var err error = &shipper.QuotaError{Carrier: "freightcom", RetryAfter: 30 * time.Second}
	assert.True(t, errors.Is(err, shipper.ErrQuotaExceeded))
	assert.Contains(t, err.Error(), "freightcom")
	assert.Contains(t, err.Error(), "30s")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable carrier error", shipper.NewCarrierError("freightcom", "RATE_LIMIT", "slow down").WithRetryable(true), true},
		{"non-retryable carrier error", shipper.NewCarrierError("freightcom", "INVALID_ADDRESS", "bad address"), false},
		{"service unavailable", shipper.ErrServiceUnavailable, true},
		{"quota exceeded sentinel", shipper.ErrQuotaExceeded, true},
		{"quota error", &shipper.QuotaError{Carrier: "freightcom", RetryAfter: time.Second}, true},
		{"invalid address", shipper.ErrInvalidAddress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shipper.IsRetryable(tt.err))
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrInvalidAddress", shipper.ErrInvalidAddress},
		{"ErrServiceUnavailable", shipper.ErrServiceUnavailable},
		{"ErrQuoteExpired", shipper.ErrQuoteExpired},
		{"ErrOrderNotFound", shipper.ErrOrderNotFound},
		{"ErrCancellationNotAllowed", shipper.ErrCancellationNotAllowed},
		{"ErrLabelNotAvailable", shipper.ErrLabelNotAvailable},
		{"ErrAuthenticationFailed", shipper.ErrAuthenticationFailed},
		{"ErrQuotaExceeded", shipper.ErrQuotaExceeded},
		{"ErrCarrierNotFound", shipper.ErrCarrierNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
