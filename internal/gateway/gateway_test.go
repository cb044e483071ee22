package gateway_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shipmux/shipmux/internal/gateway"
	"github.com/shipmux/shipmux/internal/telemetry"
	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/shipmux/shipmux/pkg/quota"
	"github.com/shipmux/shipmux/pkg/shipper"
	"github.com/shipmux/shipmux/pkg/shipper/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Prometheus collectors register globally; one set for the package.
var testMetrics = telemetry.NewMetrics()

type stubRegistrar struct {
	calls atomic.Int64
	err   error
}

func (s *stubRegistrar) RegisterAddress(ctx context.Context, canonicalAddress string, contact addressbook.Contact) (string, error) {
	n := s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "ext-" + strconv.FormatInt(n, 10), nil
}

type fixture struct {
	gateway   *gateway.Gateway
	limiter   *quota.Limiter
	registrar *stubRegistrar
	direct    *mock.Client // carrier with inline addresses
	regAddrs  *mock.Client // carrier requiring registered addresses
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := otelzap.New(zap.NewNop())
	limiter := quota.NewLimiter(quota.Config{MaxRequests: 100, Window: time.Minute})

	registrar := &stubRegistrar{}
	book := addressbook.New(addressbook.NewMemoryStore(), addressbook.Contact{Name: "Ops"}, logger)
	book.RegisterCarrier("bookish", registrar)

	direct := mock.New("plain")
	regAddrs := mock.NewWithRegisteredAddresses("bookish")

	registry := shipper.NewRegistry()
	registry.Register(shipper.Limit(direct, limiter, logger))
	registry.Register(shipper.Limit(regAddrs, limiter, logger))

	return &fixture{
		gateway:   gateway.New(registry, book, limiter, testMetrics, logger),
		limiter:   limiter,
		registrar: registrar,
		direct:    direct,
		regAddrs:  regAddrs,
	}
}

func orderRequest() *shipper.CreateOrderRequest {
	return &shipper.CreateOrderRequest{
		RateID:           "rate-1",
		Sender:           shipper.Contact{Name: "Acme Ops"},
		SenderAddress:    shipper.Address{Line1: "12 High St", City: "Toronto", ProvinceCode: "ON", PostalCode: "M5V 1A1", CountryCode: "CA"},
		Recipient:        shipper.Contact{Name: "Jo Customer"},
		RecipientAddress: shipper.Address{Line1: "800 Granville St", City: "Vancouver", ProvinceCode: "BC", PostalCode: "V6B 2W2", CountryCode: "CA"},
	}
}

func TestGateway_GetQuotes_AllCarriers(t *testing.T) {
	f := newFixture(t)

	responses, errs := f.gateway.GetQuotes(context.Background(), &shipper.QuoteRequest{})
	assert.Empty(t, errs)
	assert.Len(t, responses, 2)
}

func TestGateway_CreateOrder_ResolvesAddresses(t *testing.T) {
	f := newFixture(t)

	resp, err := f.gateway.CreateOrder(context.Background(), "bookish", orderRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, int64(2), f.registrar.calls.Load(), "sender and recipient each registered once")

	// Same addresses again: cache hits, no new registrations.
	_, err = f.gateway.CreateOrder(context.Background(), "bookish", orderRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.registrar.calls.Load())
}

func TestGateway_CreateOrder_InlineAddressCarrierSkipsBook(t *testing.T) {
	f := newFixture(t)

	_, err := f.gateway.CreateOrder(context.Background(), "plain", orderRequest())
	require.NoError(t, err)
	assert.Zero(t, f.registrar.calls.Load())
}

func TestGateway_CreateOrder_RegistrarFailureBlocksOrder(t *testing.T) {
	f := newFixture(t)
	f.registrar.err = errors.New("carrier 503")

	_, err := f.gateway.CreateOrder(context.Background(), "bookish", orderRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, addressbook.ErrRegistrarUnavailable))
	assert.Zero(t, f.regAddrs.Calls(), "order call must not reach the carrier")
}

func TestGateway_CreateOrder_UnknownCarrier(t *testing.T) {
	f := newFixture(t)

	_, err := f.gateway.CreateOrder(context.Background(), "nope", orderRequest())
	assert.True(t, errors.Is(err, shipper.ErrCarrierNotFound))
}

func TestGateway_QuotaDenialSurfacesToCaller(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.gateway.ConfigureQuota("plain", quota.Config{MaxRequests: 1, Window: time.Hour}))

	_, err := f.gateway.GetLabel(context.Background(), "plain", &shipper.GetLabelRequest{OrderID: "o1"})
	require.NoError(t, err)

	_, err = f.gateway.CancelOrder(context.Background(), "plain", &shipper.CancelOrderRequest{OrderID: "o1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrQuotaExceeded))

	var quotaErr *shipper.QuotaError
	require.True(t, errors.As(err, &quotaErr))
	assert.Greater(t, quotaErr.RetryAfter, time.Duration(0))
	assert.Equal(t, int64(1), f.direct.Calls(), "denied call must not reach the carrier")
}

func TestGateway_ConfigureQuota_Invalid(t *testing.T) {
	f := newFixture(t)

	err := f.gateway.ConfigureQuota("plain", quota.Config{MaxRequests: 0, Window: time.Minute})
	assert.True(t, errors.Is(err, quota.ErrInvalidConfig))
}

func TestGateway_QuotaStatusAndAll(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.gateway.ConfigureQuota("plain", quota.Config{MaxRequests: 5, Window: time.Minute}))

	status := f.gateway.QuotaStatus("plain")
	assert.Equal(t, 5, status.MaxRequests)
	assert.Equal(t, 5, status.Remaining)

	all := f.gateway.AllQuotas()
	assert.NotEmpty(t, all)
}

func TestLimitedRegistrar_DeniedBeforeCarrierCall(t *testing.T) {
	limiter := quota.NewLimiter(quota.Config{MaxRequests: 1, Window: time.Hour})
	inner := &stubRegistrar{}
	registrar := gateway.LimitRegistrar("acme", inner, limiter)

	_, err := registrar.RegisterAddress(context.Background(), "12 high st", addressbook.Contact{Name: "Ops"})
	require.NoError(t, err)

	_, err = registrar.RegisterAddress(context.Background(), "99 low rd", addressbook.Contact{Name: "Ops"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrQuotaExceeded))
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestGateway_AddressAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.gateway.CreateOrder(context.Background(), "bookish", orderRequest())
	require.NoError(t, err)

	stats, err := f.gateway.AddressStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)

	removed, err := f.gateway.CleanupAddresses(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}
