package canadapost_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shipmux/shipmux/pkg/shipper"
	"github.com/shipmux/shipmux/pkg/shipper/canadapost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) *canadapost.Client {
	t.Helper()
	return canadapost.NewWithAPIClient(
		canadapost.Config{CustomerID: "0001234567"},
		canadapost.NewMockAPIClient(),
		otelzap.New(zap.NewNop()),
	)
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(t)
	assert.Equal(t, "canadapost", client.Name())
	assert.False(t, client.RequiresRegisteredAddresses())
}

func TestClient_GetQuote(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GetQuote(context.Background(), &shipper.QuoteRequest{
		Origin:      shipper.Address{PostalCode: "M5V 1A1", CountryCode: "CA"},
		Destination: shipper.Address{PostalCode: "V6B 2W2", CountryCode: "CA"},
		Packages:    []shipper.Package{{Length: 20, Width: 15, Height: 10, Weight: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, "canadapost", resp.Carrier)
	require.Len(t, resp.Rates, 2)
	assert.Equal(t, "DOM.RP", resp.Rates[0].ServiceCode)
	assert.Equal(t, shipper.ServiceStandard, resp.Rates[0].ServiceType)
	assert.Equal(t, shipper.ServiceExpress, resp.Rates[1].ServiceType)
	assert.Equal(t, "cp:DOM.XP", resp.Rates[1].RateID)
	assert.Equal(t, "CAD", resp.Rates[0].TotalPrice.Currency)
}

func TestClient_CreateOrder_InlineAddresses(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.CreateOrder(context.Background(), &shipper.CreateOrderRequest{
		RateID:           "cp:DOM.XP",
		Reference:        "ref-7",
		Sender:           shipper.Contact{Name: "Acme Ops"},
		SenderAddress:    shipper.Address{Line1: "12 High St", City: "Toronto", ProvinceCode: "ON", PostalCode: "M5V 1A1", CountryCode: "CA"},
		Recipient:        shipper.Contact{Name: "Jo Customer"},
		RecipientAddress: shipper.Address{Line1: "800 Granville St", City: "Vancouver", ProvinceCode: "BC", PostalCode: "V6B 2W2", CountryCode: "CA"},
		Packages:         []shipper.Package{{Weight: 2}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.OrderID)
	assert.NotEmpty(t, resp.TrackingNumber)
	assert.Equal(t, shipper.StatusConfirmed, resp.Status)
	assert.Equal(t, "DOM.XP", resp.ServiceName)
}

func TestClient_GetLabelAndCancel(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	order, err := client.CreateOrder(ctx, &shipper.CreateOrderRequest{RateID: "cp:DOM.RP"})
	require.NoError(t, err)

	labelResp, err := client.GetLabel(ctx, &shipper.GetLabelRequest{OrderID: order.OrderID})
	require.NoError(t, err)
	assert.Equal(t, shipper.LabelPDF, labelResp.Label.Format)
	assert.NotEmpty(t, labelResp.Label.URL)

	cancelResp, err := client.CancelOrder(ctx, &shipper.CancelOrderRequest{OrderID: order.OrderID})
	require.NoError(t, err)
	assert.Equal(t, shipper.StatusCancelled, cancelResp.Status)
}

func TestClient_GetLabel_NotFound(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetLabel(context.Background(), &shipper.GetLabelRequest{OrderID: "missing"})
	require.Error(t, err)

	var carrierErr *shipper.CarrierError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "AA004", carrierErr.Code)
	assert.True(t, errors.Is(err, shipper.ErrOrderNotFound))
}
