package fulfillment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/sendcloud-bridge/internal/fulfillment"
	"github.com/tournevent/sendcloud-bridge/internal/telemetry"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper/manual"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper/sendcloud"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type testEnv struct {
	service *fulfillment.Service
	store   *fulfillment.MemoryStore
	metrics *telemetry.Metrics
	mock    *sendcloud.MockAPIClient
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()

	mock := sendcloud.NewMockAPIClient()
	registry := shipper.NewRegistry()
	registry.Register(sendcloud.NewWithAPIClient(sendcloud.Config{UseMock: true}, mock, nil))
	registry.Register(manual.New(""))

	store := fulfillment.NewMemoryStore()
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	logger := otelzap.New(zap.NewNop())

	return &testEnv{
		service: fulfillment.NewService(registry, store, logger, metrics),
		store:   store,
		metrics: metrics,
		mock:    mock,
	}
}

func parcelRequest() *shipper.CreateParcelRequest {
	return &shipper.CreateParcelRequest{
		Address: shipper.Address{
			Name:        "John Doe",
			Line1:       "Stadhuisplein",
			HouseNumber: "10",
			City:        "Eindhoven",
			PostalCode:  "5611EM",
			CountryCode: "NL",
		},
		Weight:           1.5,
		OrderNumber:      "ORDER-1001",
		ShippingMethodID: 8,
	}
}

func TestUpdateFulfillmentStatus(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	err := env.service.UpdateFulfillmentStatus(ctx, 12345, "3SYZXG1234567", "Delivered")
	require.NoError(t, err)

	rec, err := env.service.Status(ctx, fulfillment.WebhookProvider, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), rec.ParcelID)
	assert.Equal(t, "3SYZXG1234567", rec.TrackingNumber)
	assert.Equal(t, "Delivered", rec.StatusMessage)
	assert.Equal(t, shipper.StatusDelivered, rec.Status)
	assert.False(t, rec.UpdatedAt.IsZero())

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StatusUpdates.WithLabelValues("delivered")))
}

func TestUpdateFulfillmentStatus_LastWriteWins(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	require.NoError(t, env.service.UpdateFulfillmentStatus(ctx, 1, "TRACK", "Delivered"))
	require.NoError(t, env.service.UpdateFulfillmentStatus(ctx, 1, "", "En route to sorting center"))

	rec, err := env.service.Status(ctx, fulfillment.WebhookProvider, 1)
	require.NoError(t, err)
	assert.Equal(t, shipper.StatusInTransit, rec.Status)
	assert.Equal(t, "TRACK", rec.TrackingNumber)
}

func TestUpdateFulfillmentStatus_InvalidParcel(t *testing.T) {
	env := newTestService(t)
	assert.Error(t, env.service.UpdateFulfillmentStatus(context.Background(), 0, "", "Delivered"))
}

func TestUpdateFulfillmentStatus_Concurrent(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, env.service.UpdateFulfillmentStatus(ctx, id, "", "Ready to send"))
		}(i)
	}
	wg.Wait()

	for i := int64(1); i <= 20; i++ {
		rec, err := env.service.Status(ctx, fulfillment.WebhookProvider, i)
		require.NoError(t, err)
		assert.Equal(t, shipper.StatusConfirmed, rec.Status)
	}
}

func TestShippingOptions(t *testing.T) {
	env := newTestService(t)

	methods, err := env.service.ShippingOptions(context.Background(), &shipper.ShippingMethodsRequest{ToCountry: "be"})
	require.NoError(t, err)
	require.Len(t, methods, 3)

	assert.Equal(t, "manual", methods[0].Provider)
	assert.Equal(t, "sendcloud", methods[1].Provider)
	assert.Equal(t, int64(8), methods[1].ID)
	assert.Equal(t, []string{"BE"}, methods[1].Countries)
}

func TestShippingOptions_PartialFailure(t *testing.T) {
	env := newTestService(t)
	env.mock.SimulateErrors = true

	methods, err := env.service.ShippingOptions(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "manual", methods[0].Provider)
}

func TestCreateAndGetFulfillment(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	created, err := env.service.CreateFulfillment(ctx, "sendcloud", parcelRequest())
	require.NoError(t, err)
	require.NotNil(t, created.Parcel)
	assert.NotZero(t, created.Parcel.ID)
	assert.Equal(t, shipper.StatusConfirmed, created.Status.Status)

	rec, err := env.store.Get(ctx, "sendcloud", created.Parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Parcel.TrackingNumber, rec.TrackingNumber)

	got, err := env.service.GetFulfillment(ctx, "sendcloud", created.Parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1001", got.Parcel.OrderNumber)
	assert.Equal(t, "Ready to send", got.Status.StatusMessage)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RequestsTotal.WithLabelValues("create_parcel", "sendcloud", "success")))
}

func TestCancelFulfillment(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	created, err := env.service.CreateFulfillment(ctx, "manual", parcelRequest())
	require.NoError(t, err)

	result, err := env.service.CancelFulfillment(ctx, "manual", created.Parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.Status)

	rec, err := env.service.Status(ctx, "manual", created.Parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, shipper.StatusCancelled, rec.Status)
	assert.Equal(t, created.Parcel.TrackingNumber, rec.TrackingNumber)
}

func TestCancelFulfillment_NotFound(t *testing.T) {
	env := newTestService(t)

	_, err := env.service.CancelFulfillment(context.Background(), "sendcloud", 999)
	require.Error(t, err)
	assert.True(t, shipper.IsInvalidData(err))
	assert.Equal(t, "No Parcel matches the given query.", err.Error())

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ProviderErrors.WithLabelValues("sendcloud", "cancel_parcel")))
}

func TestGetLabel(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	created, err := env.service.CreateFulfillment(ctx, "sendcloud", parcelRequest())
	require.NoError(t, err)

	label, err := env.service.GetLabel(ctx, "sendcloud", created.Parcel.ID)
	require.NoError(t, err)
	assert.Len(t, label.NormalPrinter, 1)
	assert.NotEmpty(t, label.LabelPrinter)
}

func TestUnknownProvider(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	_, err := env.service.CreateFulfillment(ctx, "dhl", parcelRequest())
	assert.ErrorIs(t, err, shipper.ErrProviderNotFound)

	_, err = env.service.GetFulfillment(ctx, "dhl", 1)
	assert.ErrorIs(t, err, shipper.ErrProviderNotFound)

	_, err = env.service.CancelFulfillment(ctx, "dhl", 1)
	assert.ErrorIs(t, err, shipper.ErrProviderNotFound)

	_, err = env.service.GetLabel(ctx, "dhl", 1)
	assert.ErrorIs(t, err, shipper.ErrProviderNotFound)
}

type failingStore struct{ fulfillment.Store }

func (failingStore) Save(context.Context, *fulfillment.StatusRecord) error {
	return errors.New("store down")
}

func TestUpdateFulfillmentStatus_StoreFailure(t *testing.T) {
	svc := fulfillment.NewService(shipper.NewRegistry(), failingStore{fulfillment.NewMemoryStore()}, nil, nil)

	err := svc.UpdateFulfillmentStatus(context.Background(), 5, "T", "Delivered")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store down")
}
