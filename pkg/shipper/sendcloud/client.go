// Package sendcloud provides integration with the Sendcloud parcel API.
package sendcloud

import (
	"context"
	"strconv"
	"time"

	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const providerName = "sendcloud"

// dateLayout is the format of parcel timestamps returned by the API.
const dateLayout = "02-01-2006 15:04:05"

// Config holds Sendcloud configuration.
type Config struct {
	PublicKey string
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
	UseMock   bool // When true, uses mock API client
}

// Client is the Sendcloud shipper client.
// It implements the shipper.Shipper interface and delegates
// API calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
}

// New creates a new Sendcloud client.
// If cfg.UseMock is true, it uses a mock API client.
// Otherwise, it uses the real HTTP API client, which requires both keys.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		httpClient, err := NewHTTPAPIClient(HTTPAPIClientConfig{
			PublicKey: cfg.PublicKey,
			SecretKey: cfg.SecretKey,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			Logger:    logger,
			Tracer:    tracer,
		})
		if err != nil {
			return nil, err
		}
		apiClient = httpClient
	}

	return NewWithAPIClient(cfg, apiClient, logger), nil
}

// NewWithAPIClient creates a new Sendcloud client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger) *Client {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// API returns the underlying API client.
func (c *Client) API() APIClient {
	return c.apiClient
}

// ShippingMethods lists Sendcloud shipping methods for a route.
func (c *Client) ShippingMethods(ctx context.Context, req *shipper.ShippingMethodsRequest) ([]shipper.ShippingMethod, error) {
	params := &ShippingMethodsParams{}
	if req != nil {
		params.ToCountry = req.ToCountry
		params.FromCountry = req.FromCountry
	}

	c.logger.Ctx(ctx).Info("Fetching Sendcloud shipping methods",
		zap.String("to_country", params.ToCountry),
		zap.String("from_country", params.FromCountry),
	)

	resp, err := c.apiClient.GetShippingMethods(ctx, params)
	if err != nil {
		return nil, err
	}
	return shippingMethodsToShipper(resp), nil
}

// CreateParcel announces a parcel with Sendcloud.
func (c *Client) CreateParcel(ctx context.Context, req *shipper.CreateParcelRequest) (*shipper.Parcel, error) {
	if req == nil {
		return nil, shipper.InvalidData("parcel request is required").WithProvider(providerName)
	}

	c.logger.Ctx(ctx).Info("Creating Sendcloud parcel",
		zap.String("order_number", req.OrderNumber),
		zap.Int64("shipping_method_id", req.ShippingMethodID),
		zap.String("country", req.Address.CountryCode),
	)

	resp, err := c.apiClient.CreateParcel(ctx, parcelRequestToAPI(req))
	if err != nil {
		return nil, err
	}
	return parcelToShipper(&resp.Parcel), nil
}

// GetParcel retrieves a Sendcloud parcel.
func (c *Client) GetParcel(ctx context.Context, parcelID int64) (*shipper.Parcel, error) {
	c.logger.Ctx(ctx).Info("Fetching Sendcloud parcel", zap.Int64("parcel_id", parcelID))

	parcel, err := c.apiClient.GetParcel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	return parcelToShipper(parcel), nil
}

// CancelParcel cancels a Sendcloud parcel.
func (c *Client) CancelParcel(ctx context.Context, parcelID int64) (*shipper.CancelResult, error) {
	c.logger.Ctx(ctx).Info("Cancelling Sendcloud parcel", zap.Int64("parcel_id", parcelID))

	resp, err := c.apiClient.CancelParcel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	return &shipper.CancelResult{
		ParcelID: parcelID,
		Status:   resp.Status,
		Message:  resp.Message,
	}, nil
}

// GetLabel retrieves the label references of a Sendcloud parcel.
func (c *Client) GetLabel(ctx context.Context, parcelID int64) (*shipper.Label, error) {
	c.logger.Ctx(ctx).Info("Fetching Sendcloud label", zap.Int64("parcel_id", parcelID))

	resp, err := c.apiClient.GetLabel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	return &shipper.Label{
		ParcelID:      parcelID,
		NormalPrinter: resp.Label.NormalPrinter,
		LabelPrinter:  resp.Label.LabelPrinter,
	}, nil
}

// Ping runs the API connection test.
func (c *Client) Ping(ctx context.Context) bool {
	return c.apiClient.TestConnection(ctx)
}

var _ shipper.Shipper = (*Client)(nil)

// ============================================================================
// Conversion helpers: Shipper models -> API models
// ============================================================================

func parcelRequestToAPI(req *shipper.CreateParcelRequest) *CreateParcelRequest {
	input := ParcelInput{
		Name:         req.Address.Name,
		CompanyName:  req.Address.Company,
		Address:      req.Address.Line1,
		HouseNumber:  req.Address.HouseNumber,
		Address2:     req.Address.Line2,
		City:         req.Address.City,
		PostalCode:   req.Address.PostalCode,
		Country:      req.Address.CountryCode,
		Telephone:    req.Address.Phone,
		Email:        req.Address.Email,
		OrderNumber:  req.OrderNumber,
		RequestLabel: req.RequestLabel,
	}
	if req.Weight > 0 {
		input.Weight = strconv.FormatFloat(req.Weight, 'f', 3, 64)
	}
	if req.ShippingMethodID != 0 {
		input.Shipment = &ShipmentRef{ID: req.ShippingMethodID}
	}
	return &CreateParcelRequest{Parcel: input}
}

// ============================================================================
// Conversion helpers: API models -> Shipper models
// ============================================================================

func shippingMethodsToShipper(resp *ShippingMethodsResponse) []shipper.ShippingMethod {
	methods := make([]shipper.ShippingMethod, len(resp.ShippingMethods))
	for i, m := range resp.ShippingMethods {
		countries := make([]string, 0, len(m.Countries))
		for _, country := range m.Countries {
			countries = append(countries, country.ISO2)
		}
		minWeight, _ := m.MinWeight.Float64()
		maxWeight, _ := m.MaxWeight.Float64()

		methods[i] = shipper.ShippingMethod{
			ID:        m.ID,
			Provider:  providerName,
			Name:      m.Name,
			Carrier:   m.Carrier,
			MinWeight: minWeight,
			MaxWeight: maxWeight,
			Countries: countries,
		}
	}
	return methods
}

func parcelToShipper(p *Parcel) *shipper.Parcel {
	parcel := &shipper.Parcel{
		ID:             p.ID,
		Provider:       providerName,
		TrackingNumber: p.TrackingNumber,
		TrackingURL:    p.TrackingURL,
		StatusID:       p.Status.ID,
		StatusMessage:  p.Status.Message,
		Status:         MapStatus(p.Status.ID, p.Status.Message),
		OrderNumber:    p.OrderNumber,
	}
	if p.DateCreated != "" {
		if t, err := time.Parse(dateLayout, p.DateCreated); err == nil {
			parcel.CreatedAt = &t
		}
	}
	if p.Label != nil {
		parcel.LabelURLs = p.Label.NormalPrinter
	}
	return parcel
}
