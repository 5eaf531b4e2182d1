package manual_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper/manual"
)

func TestClient_Name_Default(t *testing.T) {
	assert.Equal(t, "manual", manual.New("").Name())
	assert.Equal(t, "backroom", manual.New("backroom").Name())
}

func TestClient_ParcelLifecycle(t *testing.T) {
	client := manual.New("")
	ctx := context.Background()

	parcel, err := client.CreateParcel(ctx, &shipper.CreateParcelRequest{OrderNumber: "ORD-1", Weight: 1.2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), parcel.ID)
	assert.Equal(t, "ORD-1", parcel.OrderNumber)
	assert.Equal(t, shipper.StatusConfirmed, parcel.Status)
	assert.Contains(t, parcel.TrackingNumber, "MAN-")

	got, err := client.GetParcel(ctx, parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, parcel.TrackingNumber, got.TrackingNumber)

	label, err := client.GetLabel(ctx, parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"manual://labels/1"}, label.NormalPrinter)

	result, err := client.CancelParcel(ctx, parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.Status)

	got, err = client.GetParcel(ctx, parcel.ID)
	require.NoError(t, err)
	assert.Equal(t, shipper.StatusCancelled, got.Status)
}

func TestClient_UnknownParcel(t *testing.T) {
	client := manual.New("")
	ctx := context.Background()

	_, err := client.CancelParcel(ctx, 99)
	require.Error(t, err)
	assert.True(t, shipper.IsInvalidData(err))
	assert.Equal(t, "No Parcel matches the given query.", err.Error())

	_, err = client.GetLabel(ctx, 99)
	assert.True(t, shipper.IsInvalidData(err))
}

func TestClient_CreateParcel_NilRequest(t *testing.T) {
	_, err := manual.New("").CreateParcel(context.Background(), nil)
	assert.True(t, shipper.IsInvalidData(err))
}

func TestClient_ShippingMethods(t *testing.T) {
	methods, err := manual.New("").ShippingMethods(context.Background(), &shipper.ShippingMethodsRequest{ToCountry: "nl"})
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, []string{"NL"}, methods[0].Countries)
	assert.True(t, manual.New("").Ping(context.Background()))
}
