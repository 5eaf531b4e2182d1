package sendcloud

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultBaseURL is the Sendcloud REST API v2 root.
const DefaultBaseURL = "https://panel.sendcloud.sc/api/v2"

const notFoundOnCancel = "No Parcel matches the given query."

// HTTPAPIClient is the production implementation of APIClient using HTTP.
// It is read-only after construction and safe for concurrent use.
type HTTPAPIClient struct {
	baseURL    string
	auth       string
	httpClient *http.Client
	logger     *otelzap.Logger
	tracer     trace.Tracer
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	PublicKey string
	SecretKey string
	BaseURL   string
	Timeout   time.Duration     // Zero leaves the transport default in place
	Transport http.RoundTripper // Defaults to an instrumented http.DefaultTransport
	Logger    *otelzap.Logger
	Tracer    trace.Tracer
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
// It fails with an InvalidData error when either key is empty.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) (*HTTPAPIClient, error) {
	if cfg.PublicKey == "" || cfg.SecretKey == "" {
		return nil, shipper.InvalidData("Sendcloud public_key and secret_key are required").WithProvider(providerName)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/tournevent/sendcloud-bridge/pkg/shipper/sendcloud")
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewTransport(logger)
	}

	logger.Debug("Sendcloud API client initialized", zap.String("base_url", baseURL))

	return &HTTPAPIClient{
		baseURL: baseURL,
		auth:    authToken(cfg.PublicKey, cfg.SecretKey),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
		tracer: tracer,
	}, nil
}

// authToken derives the Basic auth token from the key pair.
func authToken(publicKey, secretKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(publicKey + ":" + secretKey))
}

// AuthToken returns the Basic auth token sent with every request.
func (c *HTTPAPIClient) AuthToken() string {
	return c.auth
}

// TestConnection fetches the shipping methods and reports whether that
// succeeded. Errors are logged, never returned.
func (c *HTTPAPIClient) TestConnection(ctx context.Context) bool {
	if _, err := c.GetShippingMethods(ctx, nil); err != nil {
		c.logger.Ctx(ctx).Error("Sendcloud connection test failed", zap.Error(err))
		return false
	}
	c.logger.Ctx(ctx).Info("Sendcloud connection test successful")
	return true
}

// GetShippingMethods lists shipping methods.
// GET /shipping_methods[?to_country=..&from_country=..]
func (c *HTTPAPIClient) GetShippingMethods(ctx context.Context, params *ShippingMethodsParams) (*ShippingMethodsResponse, error) {
	ctx, span := c.tracer.Start(ctx, "sendcloud.GetShippingMethods")
	defer span.End()

	var result ShippingMethodsResponse
	if err := c.sendRequest(ctx, http.MethodGet, shippingMethodsEndpoint(params), nil, nil, &result); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return &result, nil
}

// shippingMethodsEndpoint builds the endpoint path. Only present filters are
// sent, to_country first.
func shippingMethodsEndpoint(params *ShippingMethodsParams) string {
	var query []string
	if params != nil {
		if params.ToCountry != "" {
			query = append(query, "to_country="+url.QueryEscape(params.ToCountry))
		}
		if params.FromCountry != "" {
			query = append(query, "from_country="+url.QueryEscape(params.FromCountry))
		}
	}
	if len(query) == 0 {
		return "/shipping_methods"
	}
	return "/shipping_methods?" + strings.Join(query, "&")
}

// CreateParcel announces a new parcel.
// POST /parcels
func (c *HTTPAPIClient) CreateParcel(ctx context.Context, req *CreateParcelRequest) (*CreateParcelResponse, error) {
	ctx, span := c.tracer.Start(ctx, "sendcloud.CreateParcel")
	defer span.End()

	if req != nil {
		span.SetAttributes(attribute.String("sendcloud.order_number", req.Parcel.OrderNumber))
	}

	var result CreateParcelResponse
	if err := c.sendRequest(ctx, http.MethodPost, "/parcels", req, nil, &result); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("sendcloud.parcel_id", result.Parcel.ID))
	return &result, nil
}

// GetParcel retrieves a parcel, unwrapping the {"parcel": ...} envelope.
// GET /parcels/{id}
func (c *HTTPAPIClient) GetParcel(ctx context.Context, id int64) (*Parcel, error) {
	ctx, span := c.tracer.Start(ctx, "sendcloud.GetParcel",
		trace.WithAttributes(attribute.Int64("sendcloud.parcel_id", id)))
	defer span.End()

	var envelope parcelEnvelope
	if err := c.sendRequest(ctx, http.MethodGet, fmt.Sprintf("/parcels/%d", id), nil, nil, &envelope); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return &envelope.Parcel, nil
}

// CancelParcel cancels a parcel. A 404 from the provider is reported as
// "No Parcel matches the given query.".
// POST /parcels/{id}/cancel
func (c *HTTPAPIClient) CancelParcel(ctx context.Context, id int64) (*CancelResponse, error) {
	ctx, span := c.tracer.Start(ctx, "sendcloud.CancelParcel",
		trace.WithAttributes(attribute.Int64("sendcloud.parcel_id", id)))
	defer span.End()

	var result CancelResponse
	if err := c.sendRequest(ctx, http.MethodPost, fmt.Sprintf("/parcels/%d/cancel", id), nil, nil, &result); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return &result, nil
}

// GetLabel retrieves the label references of a parcel.
// GET /labels/{id}
func (c *HTTPAPIClient) GetLabel(ctx context.Context, id int64) (*LabelResponse, error) {
	ctx, span := c.tracer.Start(ctx, "sendcloud.GetLabel",
		trace.WithAttributes(attribute.Int64("sendcloud.parcel_id", id)))
	defer span.End()

	var result LabelResponse
	if err := c.sendRequest(ctx, http.MethodGet, fmt.Sprintf("/labels/%d", id), nil, nil, &result); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return &result, nil
}

// sendRequest performs a request against the API and decodes a successful
// response into out. Every failure comes back as an InvalidData error.
func (c *HTTPAPIClient) sendRequest(ctx context.Context, method, endpoint string, body any, header http.Header, out any) error {
	log := c.logger.Ctx(ctx)
	log.Debug("Sending Sendcloud request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	)

	err := c.do(ctx, method, endpoint, body, header, out)
	if err == nil {
		log.Debug("Sendcloud request succeeded", zap.String("endpoint", endpoint))
		return nil
	}

	log.Error("Sendcloud request failed",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Error(err),
	)

	if shipper.IsInvalidData(err) {
		return err
	}
	return shipper.InvalidData("Error contacting Sendcloud API: " + err.Error()).
		WithProvider(providerName).
		WithCause(err)
}

func (c *HTTPAPIClient) do(ctx context.Context, method, endpoint string, body any, header http.Header, out any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Basic "+c.auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		key = http.CanonicalHeaderKey(key)
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")
	if isJSON {
		if err := json.Unmarshal(raw, new(json.RawMessage)); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if strings.Contains(endpoint, "/cancel") && resp.StatusCode == http.StatusNotFound {
		c.logger.Ctx(ctx).Info("Parcel not found during cancel operation", zap.String("endpoint", endpoint))
		return shipper.InvalidData(notFoundOnCancel).WithProvider(providerName)
	}

	if !ok {
		message := ""
		if isJSON {
			message = providerErrorMessage(raw)
		}
		if message == "" {
			message = "Sendcloud API error: " + statusText(resp)
		}
		return shipper.InvalidData(message).WithProvider(providerName)
	}

	if out == nil {
		return nil
	}
	if !isJSON {
		return fmt.Errorf("unexpected response content type %q", resp.Header.Get("Content-Type"))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// providerErrorMessage extracts the message of an error body, preferring
// {"error": {"message"}} over {"errors": [{"message"}]}.
func providerErrorMessage(raw []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}

	if single, ok := fields["error"]; ok {
		var e errorMessage
		if err := json.Unmarshal(single, &e); err == nil && e.Message != "" {
			return e.Message
		}
	}

	if list, ok := fields["errors"]; ok {
		var es []errorMessage
		if err := json.Unmarshal(list, &es); err == nil && len(es) > 0 && es[0].Message != "" {
			return es[0].Message
		}
	}
	return ""
}

// statusText returns the reason phrase sent by the server, or the standard
// text for the status code when the server sent none.
func statusText(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		return http.StatusText(resp.StatusCode)
	}
	return reason
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
