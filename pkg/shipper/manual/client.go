// Package manual provides an in-process fulfillment provider for parcels that
// are shipped by hand, outside any carrier integration.
package manual

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
)

// ProviderName is the registry name of the manual provider.
const ProviderName = "manual"

// Client is the manual provider. Parcels live in memory for the lifetime of
// the process.
type Client struct {
	name    string
	mu      sync.Mutex
	nextID  int64
	parcels map[int64]*shipper.Parcel
	now     func() time.Time
}

// New creates a new manual provider registered under name. An empty name
// uses ProviderName.
func New(name string) *Client {
	if name == "" {
		name = ProviderName
	}
	return &Client{
		name:    name,
		nextID:  1,
		parcels: make(map[int64]*shipper.Parcel),
		now:     time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// ShippingMethods returns the single hand-delivery method.
func (c *Client) ShippingMethods(ctx context.Context, req *shipper.ShippingMethodsRequest) ([]shipper.ShippingMethod, error) {
	method := shipper.ShippingMethod{
		ID:        1,
		Provider:  c.name,
		Name:      "Manual fulfillment",
		Carrier:   c.name,
		MinWeight: 0,
		MaxWeight: 1000,
	}
	if req != nil && req.ToCountry != "" {
		method.Countries = []string{strings.ToUpper(req.ToCountry)}
	}
	return []shipper.ShippingMethod{method}, nil
}

// CreateParcel records a parcel and assigns it a tracking number.
func (c *Client) CreateParcel(ctx context.Context, req *shipper.CreateParcelRequest) (*shipper.Parcel, error) {
	if req == nil {
		return nil, shipper.InvalidData("parcel request is required").WithProvider(c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	id := c.nextID
	c.nextID++

	parcel := &shipper.Parcel{
		ID:             id,
		Provider:       c.name,
		TrackingNumber: "MAN-" + strings.ToUpper(uuid.New().String()[:8]),
		StatusMessage:  "Ready to send",
		Status:         shipper.StatusConfirmed,
		OrderNumber:    req.OrderNumber,
		CreatedAt:      &now,
	}
	c.parcels[id] = parcel

	out := *parcel
	return &out, nil
}

// GetParcel returns a recorded parcel.
func (c *Client) GetParcel(ctx context.Context, parcelID int64) (*shipper.Parcel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parcel, ok := c.parcels[parcelID]
	if !ok {
		return nil, shipper.InvalidData("No Parcel matches the given query.").WithProvider(c.name)
	}
	out := *parcel
	return &out, nil
}

// CancelParcel marks a recorded parcel as cancelled.
func (c *Client) CancelParcel(ctx context.Context, parcelID int64) (*shipper.CancelResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	parcel, ok := c.parcels[parcelID]
	if !ok {
		return nil, shipper.InvalidData("No Parcel matches the given query.").WithProvider(c.name)
	}
	parcel.Status = shipper.StatusCancelled
	parcel.StatusMessage = "Cancelled"

	return &shipper.CancelResult{
		ParcelID: parcelID,
		Status:   "cancelled",
		Message:  "Parcel has been cancelled",
	}, nil
}

// GetLabel returns a placeholder label reference; manual parcels are
// labelled by hand.
func (c *Client) GetLabel(ctx context.Context, parcelID int64) (*shipper.Label, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.parcels[parcelID]; !ok {
		return nil, shipper.InvalidData("No Parcel matches the given query.").WithProvider(c.name)
	}
	return &shipper.Label{
		ParcelID:      parcelID,
		NormalPrinter: []string{fmt.Sprintf("manual://labels/%d", parcelID)},
	}, nil
}

// Ping always succeeds.
func (c *Client) Ping(ctx context.Context) bool {
	return true
}

var _ shipper.Shipper = (*Client)(nil)
