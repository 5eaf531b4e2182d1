// Package fulfillment tracks the shipment status of fulfillments and runs
// parcel lifecycle operations against the registered providers.
package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
)

// ErrStatusNotFound is returned when no status has been recorded for a parcel.
var ErrStatusNotFound = errors.New("fulfillment status not found")

// StatusRecord is the latest known status of a parcel.
type StatusRecord struct {
	ParcelID       int64                  `json:"parcel_id"`
	Provider       string                 `json:"provider"`
	TrackingNumber string                 `json:"tracking_number"`
	StatusMessage  string                 `json:"status_message"`
	Status         shipper.ShipmentStatus `json:"status"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Store persists the latest StatusRecord per provider parcel.
type Store interface {
	Save(ctx context.Context, rec *StatusRecord) error
	Get(ctx context.Context, provider string, parcelID int64) (*StatusRecord, error)
	Ping(ctx context.Context) error
}
