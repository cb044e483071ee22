package shipper_test

import (
	"context"
	"testing"

	"github.com/shipmux/shipmux/pkg/shipper"
	"github.com/shipmux/shipmux/pkg/shipper/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteRequest() *shipper.QuoteRequest {
	return &shipper.QuoteRequest{
		Origin: shipper.Address{
			Name:         "Sender",
			Line1:        "123 Main St",
			City:         "Toronto",
			ProvinceCode: "ON",
			PostalCode:   "M5V 1A1",
			CountryCode:  "CA",
		},
		Destination: shipper.Address{
			Name:         "Receiver",
			Line1:        "456 Oak Ave",
			City:         "Vancouver",
			ProvinceCode: "BC",
			PostalCode:   "V6B 2W2",
			CountryCode:  "CA",
		},
		Packages: []shipper.Package{{Length: 10, Width: 10, Height: 10, Weight: 5}},
	}
}

func TestRegistry_Register(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("test-shipper"))

	got, err := registry.Get("test-shipper")
	require.NoError(t, err)
	assert.Equal(t, "test-shipper", got.Name())
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("test-shipper"))
	registry.Register(mock.New("test-shipper"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := shipper.NewRegistry()

	_, err := registry.Get("nonexistent")
	assert.ErrorIs(t, err, shipper.ErrCarrierNotFound)
}

func TestRegistry_NamesAndCount(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("freightcom"))
	registry.Register(mock.New("canadapost"))

	assert.Equal(t, 2, registry.Count())
	names := registry.Names()
	assert.Contains(t, names, "freightcom")
	assert.Contains(t, names, "canadapost")
	assert.Len(t, registry.All(), 2)
}

func TestRegistry_GetQuotes_AllCarriers(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("freightcom"))
	registry.Register(mock.New("canadapost"))

	results, errs := registry.GetQuotes(context.Background(), quoteRequest())

	assert.Empty(t, errs)
	assert.Len(t, results, 2)
	for _, result := range results {
		assert.NotEmpty(t, result.QuoteID)
		assert.NotEmpty(t, result.Rates)
	}
}

func TestRegistry_GetQuotes_EmptyRegistry(t *testing.T) {
	registry := shipper.NewRegistry()

	results, errs := registry.GetQuotes(context.Background(), quoteRequest())

	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], shipper.ErrCarrierNotFound)
}

func TestRegistry_GetQuotes_NamedCarriers(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("freightcom"))
	registry.Register(mock.New("canadapost"))
	registry.Register(mock.New("purolator"))

	req := quoteRequest()
	req.Carriers = []string{"freightcom", "purolator"}
	results, errs := registry.GetQuotes(context.Background(), req)

	assert.Empty(t, errs)
	assert.Len(t, results, 2)
}

func TestRegistry_GetQuotes_UnknownCarrier(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("freightcom"))

	req := quoteRequest()
	req.Carriers = []string{"nonexistent"}
	results, errs := registry.GetQuotes(context.Background(), req)

	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], shipper.ErrCarrierNotFound)
}

func TestRegistry_GetQuotes_PartialFailure(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("freightcom"))

	failing := mock.New("canadapost")
	failing.Err = shipper.ErrServiceUnavailable
	registry.Register(failing)

	results, errs := registry.GetQuotes(context.Background(), quoteRequest())

	// One carrier down must not fail the whole request.
	require.Len(t, results, 1)
	assert.Equal(t, "freightcom", results[0].Carrier)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], shipper.ErrServiceUnavailable)
}
