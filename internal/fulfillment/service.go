package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/sendcloud-bridge/internal/telemetry"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// WebhookProvider is the provider whose webhooks feed UpdateFulfillmentStatus.
const WebhookProvider = "sendcloud"

// Fulfillment is a provider parcel together with its recorded status.
type Fulfillment struct {
	Parcel *shipper.Parcel `json:"parcel"`
	Status *StatusRecord   `json:"status"`
}

// Service runs fulfillment operations over the provider registry and keeps
// the latest status of every parcel it sees.
type Service struct {
	registry *shipper.Registry
	store    Store
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// NewService creates a fulfillment service.
func NewService(registry *shipper.Registry, store Store, logger *otelzap.Logger, metrics *telemetry.Metrics) *Service {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Service{
		registry: registry,
		store:    store,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// UpdateFulfillmentStatus records a status reported by a provider webhook.
// Deliveries are applied in arrival order; the last write wins.
func (s *Service) UpdateFulfillmentStatus(ctx context.Context, parcelID int64, trackingNumber, status string) error {
	if parcelID <= 0 {
		return fmt.Errorf("invalid parcel id %d", parcelID)
	}

	rec := &StatusRecord{
		ParcelID:       parcelID,
		Provider:       WebhookProvider,
		TrackingNumber: trackingNumber,
		StatusMessage:  status,
		Status:         shipper.NormalizeStatus(status),
		UpdatedAt:      s.now().UTC(),
	}

	// Webhooks may omit the tracking number; keep the one already known.
	if rec.TrackingNumber == "" {
		if prev, err := s.store.Get(ctx, WebhookProvider, parcelID); err == nil {
			rec.TrackingNumber = prev.TrackingNumber
		}
	}

	if err := s.save(ctx, rec); err != nil {
		return err
	}

	s.logger.Ctx(ctx).Info("Fulfillment status updated",
		zap.Int64("parcel_id", parcelID),
		zap.String("tracking_number", rec.TrackingNumber),
		zap.String("status_message", status),
		zap.String("status", string(rec.Status)),
	)
	return nil
}

// Status returns the recorded status of a parcel.
func (s *Service) Status(ctx context.Context, provider string, parcelID int64) (*StatusRecord, error) {
	return s.store.Get(ctx, provider, parcelID)
}

// ShippingOptions lists shipping methods from every registered provider.
// Provider failures are logged and skipped.
func (s *Service) ShippingOptions(ctx context.Context, req *shipper.ShippingMethodsRequest) ([]shipper.ShippingMethod, error) {
	start := time.Now()
	methods, errs := s.registry.AllShippingMethods(ctx, req)

	for _, err := range errs {
		s.logger.Ctx(ctx).Warn("Provider shipping methods failed", zap.Error(err))
	}
	if len(methods) == 0 && len(errs) > 0 {
		s.observe("shipping_options", "all", start, errs[0])
		return nil, errs[0]
	}
	s.observe("shipping_options", "all", start, nil)
	return methods, nil
}

// CreateFulfillment creates a parcel with the named provider and records its
// initial status.
func (s *Service) CreateFulfillment(ctx context.Context, provider string, req *shipper.CreateParcelRequest) (*Fulfillment, error) {
	p, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	parcel, err := p.CreateParcel(ctx, req)
	s.observe("create_parcel", provider, start, err)
	if err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Fulfillment created",
		zap.String("provider", provider),
		zap.Int64("parcel_id", parcel.ID),
		zap.String("order_number", parcel.OrderNumber),
	)
	return s.track(ctx, parcel)
}

// GetFulfillment fetches the current parcel from the provider and refreshes
// its recorded status.
func (s *Service) GetFulfillment(ctx context.Context, provider string, parcelID int64) (*Fulfillment, error) {
	p, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	parcel, err := p.GetParcel(ctx, parcelID)
	s.observe("get_parcel", provider, start, err)
	if err != nil {
		return nil, err
	}
	return s.track(ctx, parcel)
}

// CancelFulfillment cancels a parcel and records it as cancelled.
func (s *Service) CancelFulfillment(ctx context.Context, provider string, parcelID int64) (*shipper.CancelResult, error) {
	p, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := p.CancelParcel(ctx, parcelID)
	s.observe("cancel_parcel", provider, start, err)
	if err != nil {
		return nil, err
	}

	rec := &StatusRecord{
		ParcelID:      parcelID,
		Provider:      provider,
		StatusMessage: result.Message,
		Status:        shipper.StatusCancelled,
		UpdatedAt:     s.now().UTC(),
	}
	if prev, err := s.store.Get(ctx, provider, parcelID); err == nil {
		rec.TrackingNumber = prev.TrackingNumber
	}
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Fulfillment cancelled",
		zap.String("provider", provider),
		zap.Int64("parcel_id", parcelID),
		zap.String("result", result.Status),
	)
	return result, nil
}

// GetLabel returns the label references of a parcel.
func (s *Service) GetLabel(ctx context.Context, provider string, parcelID int64) (*shipper.Label, error) {
	p, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	label, err := p.GetLabel(ctx, parcelID)
	s.observe("get_label", provider, start, err)
	if err != nil {
		return nil, err
	}
	return label, nil
}

func (s *Service) track(ctx context.Context, parcel *shipper.Parcel) (*Fulfillment, error) {
	rec := &StatusRecord{
		ParcelID:       parcel.ID,
		Provider:       parcel.Provider,
		TrackingNumber: parcel.TrackingNumber,
		StatusMessage:  parcel.StatusMessage,
		Status:         parcel.Status,
		UpdatedAt:      s.now().UTC(),
	}
	if err := s.save(ctx, rec); err != nil {
		return nil, err
	}
	return &Fulfillment{Parcel: parcel, Status: rec}, nil
}

func (s *Service) save(ctx context.Context, rec *StatusRecord) error {
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Ctx(ctx).Error("Failed to save fulfillment status",
			zap.String("provider", rec.Provider),
			zap.Int64("parcel_id", rec.ParcelID),
			zap.Error(err),
		)
		return fmt.Errorf("saving status of parcel %d: %w", rec.ParcelID, err)
	}
	if s.metrics != nil {
		s.metrics.RecordStatusUpdate(string(rec.Status))
	}
	return nil
}

func (s *Service) observe(operation, provider string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		s.metrics.RecordError(provider, operation)
	}
	s.metrics.RecordRequest(operation, provider, status, time.Since(start).Seconds())
}
