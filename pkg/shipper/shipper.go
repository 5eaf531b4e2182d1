// Package shipper provides an abstraction layer for parcel fulfillment providers.
package shipper

import (
	"context"
)

// Shipper defines the interface that all fulfillment providers must implement.
type Shipper interface {
	// Name returns the provider identifier (e.g., "sendcloud", "manual").
	Name() string

	// ShippingMethods lists the shipping methods available for a route.
	ShippingMethods(ctx context.Context, req *ShippingMethodsRequest) ([]ShippingMethod, error)

	// CreateParcel announces a new parcel with the provider.
	CreateParcel(ctx context.Context, req *CreateParcelRequest) (*Parcel, error)

	// GetParcel returns the provider's current view of a parcel.
	GetParcel(ctx context.Context, parcelID int64) (*Parcel, error)

	// CancelParcel cancels an existing parcel.
	CancelParcel(ctx context.Context, parcelID int64) (*CancelResult, error)

	// GetLabel retrieves the printable labels for a parcel.
	GetLabel(ctx context.Context, parcelID int64) (*Label, error)

	// Ping reports whether the provider is reachable. It never fails.
	Ping(ctx context.Context) bool
}
