package sendcloud

import (
	"context"
	"encoding/json"
)

// APIClient defines the interface for Sendcloud API operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// GetShippingMethods lists shipping methods, optionally filtered by route.
	GetShippingMethods(ctx context.Context, params *ShippingMethodsParams) (*ShippingMethodsResponse, error)

	// CreateParcel announces a new parcel.
	CreateParcel(ctx context.Context, req *CreateParcelRequest) (*CreateParcelResponse, error)

	// GetParcel retrieves a parcel by id.
	GetParcel(ctx context.Context, id int64) (*Parcel, error)

	// CancelParcel cancels or deletes a parcel.
	CancelParcel(ctx context.Context, id int64) (*CancelResponse, error)

	// GetLabel retrieves the label references of a parcel.
	GetLabel(ctx context.Context, id int64) (*LabelResponse, error)

	// TestConnection reports whether the API is reachable with the configured
	// credentials. It never fails.
	TestConnection(ctx context.Context) bool
}

// ============================================================================
// API Request/Response Types (match Sendcloud REST API v2 structure)
// ============================================================================

// ShippingMethodsParams filters GET /shipping_methods. Empty fields are omitted
// from the query string.
type ShippingMethodsParams struct {
	ToCountry   string
	FromCountry string
}

// ShippingMethodsResponse is the response of GET /shipping_methods.
type ShippingMethodsResponse struct {
	ShippingMethods []ShippingMethod `json:"shipping_methods"`
}

// ShippingMethod represents a single Sendcloud shipping method.
type ShippingMethod struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Carrier           string        `json:"carrier"`
	MinWeight         json.Number   `json:"min_weight"`
	MaxWeight         json.Number   `json:"max_weight"`
	ServicePointInput string        `json:"service_point_input,omitempty"`
	Price             float64       `json:"price"`
	Countries         []CountryInfo `json:"countries,omitempty"`
}

// CountryInfo is a destination country supported by a shipping method.
type CountryInfo struct {
	ID    int64   `json:"id"`
	ISO2  string  `json:"iso_2"`
	ISO3  string  `json:"iso_3,omitempty"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CreateParcelRequest is the body of POST /parcels. Fields are passed through
// to the provider without validation.
type CreateParcelRequest struct {
	Parcel ParcelInput `json:"parcel"`
}

// ParcelInput holds the parcel fields of a creation request.
type ParcelInput struct {
	Name         string       `json:"name"`
	CompanyName  string       `json:"company_name,omitempty"`
	Address      string       `json:"address"`
	HouseNumber  string       `json:"house_number,omitempty"`
	Address2     string       `json:"address_2,omitempty"`
	City         string       `json:"city"`
	PostalCode   string       `json:"postal_code"`
	Country      string       `json:"country"`
	Telephone    string       `json:"telephone,omitempty"`
	Email        string       `json:"email,omitempty"`
	Weight       string       `json:"weight,omitempty"` // kg, e.g. "1.250"
	OrderNumber  string       `json:"order_number,omitempty"`
	Shipment     *ShipmentRef `json:"shipment,omitempty"`
	RequestLabel bool         `json:"request_label"`
}

// ShipmentRef selects the shipping method of a parcel.
type ShipmentRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// CreateParcelResponse is the response of POST /parcels.
type CreateParcelResponse struct {
	Parcel Parcel `json:"parcel"`
}

// Parcel represents a Sendcloud parcel.
type Parcel struct {
	ID             int64        `json:"id"`
	Name           string       `json:"name,omitempty"`
	Address        string       `json:"address,omitempty"`
	City           string       `json:"city,omitempty"`
	PostalCode     string       `json:"postal_code,omitempty"`
	TrackingNumber string       `json:"tracking_number"`
	TrackingURL    string       `json:"tracking_url,omitempty"`
	Status         ParcelStatus `json:"status"`
	OrderNumber    string       `json:"order_number,omitempty"`
	DateCreated    string       `json:"date_created,omitempty"` // "02-01-2006 15:04:05"
	Weight         string       `json:"weight,omitempty"`
	Label          *Label       `json:"label,omitempty"`
	Shipment       *ShipmentRef `json:"shipment,omitempty"`
	Carrier        *CarrierRef  `json:"carrier,omitempty"`
}

// ParcelStatus is the provider status of a parcel.
type ParcelStatus struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// CarrierRef identifies the carrier handling a parcel.
type CarrierRef struct {
	Code string `json:"code"`
}

// Label holds printer-ready label references.
type Label struct {
	NormalPrinter []string `json:"normal_printer"`
	LabelPrinter  string   `json:"label_printer,omitempty"`
}

// LabelResponse is the response of GET /labels/{id}.
type LabelResponse struct {
	Label Label `json:"label"`
}

// CancelResponse is the response of POST /parcels/{id}/cancel.
type CancelResponse struct {
	Status  string `json:"status"` // "cancelled", "deleted", "queued"
	Message string `json:"message"`
}

// parcelEnvelope wraps the GET /parcels/{id} response.
type parcelEnvelope struct {
	Parcel Parcel `json:"parcel"`
}

// errorMessage is an entry of a Sendcloud error body.
type errorMessage struct {
	Code    any    `json:"code,omitempty"`
	Message string `json:"message"`
}
