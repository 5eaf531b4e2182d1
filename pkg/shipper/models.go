package shipper

import (
	"time"
)

// ShipmentStatus represents the normalized status of a parcel.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "pending"
	StatusConfirmed      ShipmentStatus = "confirmed"
	StatusPickedUp       ShipmentStatus = "picked_up"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusCancelled      ShipmentStatus = "cancelled"
	StatusException      ShipmentStatus = "exception"
)

// Address represents a shipping address.
type Address struct {
	Name        string
	Company     string
	Line1       string
	HouseNumber string
	Line2       string
	City        string
	PostalCode  string
	CountryCode string // ISO 3166-1 alpha-2, e.g., "NL", "DE"
	Phone       string
	Email       string
}

// ShippingMethodsRequest filters the shipping methods listing. Empty
// fields are not sent to the provider.
type ShippingMethodsRequest struct {
	ToCountry   string
	FromCountry string
}

// ShippingMethod represents a provider shipping method.
type ShippingMethod struct {
	ID        int64    `json:"id"`
	Provider  string   `json:"provider"`
	Name      string   `json:"name"`
	Carrier   string   `json:"carrier"`
	MinWeight float64  `json:"min_weight"`
	MaxWeight float64  `json:"max_weight"`
	Countries []string `json:"countries,omitempty"`
}

// CreateParcelRequest is the request for creating a parcel.
type CreateParcelRequest struct {
	Address          Address
	Weight           float64 // kg
	OrderNumber      string
	ShippingMethodID int64
	RequestLabel     bool
}

// Parcel is the provider-neutral view of a parcel.
type Parcel struct {
	ID             int64          `json:"id"`
	Provider       string         `json:"provider"`
	TrackingNumber string         `json:"tracking_number"`
	TrackingURL    string         `json:"tracking_url,omitempty"`
	StatusID       int64          `json:"status_id"`
	StatusMessage  string         `json:"status_message"`
	Status         ShipmentStatus `json:"status"`
	OrderNumber    string         `json:"order_number"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
	LabelURLs      []string       `json:"label_urls,omitempty"`
}

// Label represents the printer-ready label references of a parcel.
type Label struct {
	ParcelID      int64    `json:"parcel_id"`
	NormalPrinter []string `json:"normal_printer"`
	LabelPrinter  string   `json:"label_printer,omitempty"`
}

// CancelResult is the response from cancelling a parcel.
type CancelResult struct {
	ParcelID int64  `json:"parcel_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}
