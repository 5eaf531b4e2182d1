package sendcloud

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
)

// MockAPIClient is a mock implementation of APIClient for testing and for
// running the service without Sendcloud credentials.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetShippingMethods func(ctx context.Context, params *ShippingMethodsParams) (*ShippingMethodsResponse, error)
	OnCreateParcel       func(ctx context.Context, req *CreateParcelRequest) (*CreateParcelResponse, error)
	OnGetParcel          func(ctx context.Context, id int64) (*Parcel, error)
	OnCancelParcel       func(ctx context.Context, id int64) (*CancelResponse, error)
	OnGetLabel           func(ctx context.Context, id int64) (*LabelResponse, error)

	mu      sync.Mutex
	nextID  int64
	parcels map[int64]*Parcel
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{
		nextID:  100000,
		parcels: make(map[int64]*Parcel),
	}
}

func (m *MockAPIClient) simulate() error {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}
	if m.SimulateErrors {
		return shipper.InvalidData("Simulated Sendcloud API error").WithProvider(providerName)
	}
	return nil
}

// GetShippingMethods returns mock shipping methods.
func (m *MockAPIClient) GetShippingMethods(ctx context.Context, params *ShippingMethodsParams) (*ShippingMethodsResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetShippingMethods != nil {
		return m.OnGetShippingMethods(ctx, params)
	}

	country := "NL"
	if params != nil && params.ToCountry != "" {
		country = strings.ToUpper(params.ToCountry)
	}

	return &ShippingMethodsResponse{
		ShippingMethods: []ShippingMethod{
			{
				ID:        8,
				Name:      "Unstamped letter",
				Carrier:   "sendcloud",
				MinWeight: "0.001",
				MaxWeight: "1000.001",
				Countries: []CountryInfo{{ID: 1, ISO2: country, Name: country, Price: 0}},
			},
			{
				ID:        1317,
				Name:      "PostNL Standard 0-23kg",
				Carrier:   "postnl",
				MinWeight: "0.001",
				MaxWeight: "23.001",
				Price:     6.95,
				Countries: []CountryInfo{{ID: 1, ISO2: country, Name: country, Price: 6.95}},
			},
		},
	}, nil
}

// CreateParcel records a mock parcel.
func (m *MockAPIClient) CreateParcel(ctx context.Context, req *CreateParcelRequest) (*CreateParcelResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCreateParcel != nil {
		return m.OnCreateParcel(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	tracking := "3SYZXG" + strings.ToUpper(uuid.New().String()[:8])

	parcel := &Parcel{
		ID:             id,
		TrackingNumber: tracking,
		TrackingURL:    fmt.Sprintf("https://tracking.sendcloud.sc/forward?carrier=postnl&code=%s", tracking),
		Status:         ParcelStatus{ID: 1000, Message: "Ready to send"},
		DateCreated:    time.Now().Format(dateLayout),
	}
	if req != nil {
		parcel.Name = req.Parcel.Name
		parcel.Address = req.Parcel.Address
		parcel.City = req.Parcel.City
		parcel.PostalCode = req.Parcel.PostalCode
		parcel.OrderNumber = req.Parcel.OrderNumber
		parcel.Weight = req.Parcel.Weight
		parcel.Shipment = req.Parcel.Shipment
	}
	parcel.Label = &Label{
		NormalPrinter: []string{fmt.Sprintf("https://panel.sendcloud.sc/api/v2/labels/normal_printer/%d?start_from=0", id)},
		LabelPrinter:  fmt.Sprintf("https://panel.sendcloud.sc/api/v2/labels/label_printer/%d", id),
	}
	m.parcels[id] = parcel

	return &CreateParcelResponse{Parcel: *parcel}, nil
}

// GetParcel returns a mock parcel.
func (m *MockAPIClient) GetParcel(ctx context.Context, id int64) (*Parcel, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetParcel != nil {
		return m.OnGetParcel(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parcel, ok := m.parcels[id]
	if !ok {
		return nil, shipper.InvalidData("No Parcel matches the given query.").WithProvider(providerName)
	}
	out := *parcel
	return &out, nil
}

// CancelParcel cancels a mock parcel.
func (m *MockAPIClient) CancelParcel(ctx context.Context, id int64) (*CancelResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnCancelParcel != nil {
		return m.OnCancelParcel(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parcel, ok := m.parcels[id]
	if !ok {
		return nil, shipper.InvalidData(notFoundOnCancel).WithProvider(providerName)
	}
	parcel.Status = ParcelStatus{ID: 2000, Message: "Cancelled"}

	return &CancelResponse{Status: "cancelled", Message: "Parcel has been cancelled"}, nil
}

// GetLabel returns the labels of a mock parcel.
func (m *MockAPIClient) GetLabel(ctx context.Context, id int64) (*LabelResponse, error) {
	if err := m.simulate(); err != nil {
		return nil, err
	}
	if m.OnGetLabel != nil {
		return m.OnGetLabel(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parcel, ok := m.parcels[id]
	if !ok || parcel.Label == nil {
		return nil, shipper.InvalidData("No Parcel matches the given query.").WithProvider(providerName)
	}
	return &LabelResponse{Label: *parcel.Label}, nil
}

// TestConnection mirrors the HTTP client: it wraps GetShippingMethods.
func (m *MockAPIClient) TestConnection(ctx context.Context) bool {
	_, err := m.GetShippingMethods(ctx, nil)
	return err == nil
}

var _ APIClient = (*MockAPIClient)(nil)
