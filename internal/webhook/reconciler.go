// Package webhook reconciles Sendcloud parcel webhooks into fulfillment
// status updates.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tournevent/sendcloud-bridge/internal/telemetry"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ActionParcelStatusChanged is the only action that updates a fulfillment.
const ActionParcelStatusChanged = "parcel_status_changed"

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "Sendcloud-Signature"

const maxBodyBytes = 1 << 20

// Webhook outcomes, used as metric labels.
const (
	OutcomeSuccess      = "success"
	OutcomeIgnored      = "ignored"
	OutcomeInvalid      = "invalid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// StatusSink receives normalized parcel status updates.
type StatusSink interface {
	UpdateFulfillmentStatus(ctx context.Context, parcelID int64, trackingNumber, status string) error
}

// Event is the webhook body posted by Sendcloud. Unknown fields are ignored.
type Event struct {
	Action string       `json:"action"`
	Parcel *EventParcel `json:"parcel"`
}

// EventParcel is the parcel carried by an Event. Only the id is typed; the
// tracking number and status are read leniently when a status change is
// processed.
type EventParcel struct {
	ID             int64           `json:"id"`
	TrackingNumber json.RawMessage `json:"tracking_number"`
	Status         json.RawMessage `json:"status"`
}

type eventStatus struct {
	Message json.RawMessage `json:"message"`
}

// text renders a loosely typed JSON value: strings are unquoted, null and
// absent values are empty, anything else keeps its JSON text.
func text(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Result is the acknowledgement body. It is always sent with HTTP 200.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	outcome string
}

// Outcome returns the metric outcome of the result.
func (r Result) Outcome() string {
	return r.outcome
}

func failure(outcome, format string, args ...any) Result {
	return Result{
		Success: false,
		Message: "Error processing webhook: " + fmt.Sprintf(format, args...),
		outcome: outcome,
	}
}

// Config holds reconciler configuration.
type Config struct {
	// SecretKey signs webhook bodies. Required when VerifySignature is set.
	SecretKey       string
	VerifySignature bool
}

// Reconciler validates webhook events and forwards status changes to a sink.
type Reconciler struct {
	cfg     Config
	sink    StatusSink
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// New creates a reconciler. A nil sink is reported on every status change
// instead of failing construction.
func New(cfg Config, sink StatusSink, logger *otelzap.Logger, metrics *telemetry.Metrics) *Reconciler {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Reconciler{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		tracer:  otel.Tracer("github.com/tournevent/sendcloud-bridge/internal/webhook"),
	}
}

// Reconcile processes one webhook body. Every outcome, including panics in
// the sink, is reported through the Result.
func (r *Reconciler) Reconcile(ctx context.Context, body []byte) (res Result) {
	ctx, span := r.tracer.Start(ctx, "webhook.Reconcile")
	defer span.End()

	var action string
	defer func() {
		if p := recover(); p != nil {
			r.logger.Ctx(ctx).Error("Webhook processing panicked", zap.Any("panic", p))
			res = failure(OutcomeError, "%v", p)
		}
		span.SetAttributes(attribute.String("webhook.outcome", res.outcome))
		if !res.Success {
			span.SetStatus(codes.Error, res.Message)
		}
		if r.metrics != nil {
			r.metrics.RecordWebhook(action, res.outcome)
		}
	}()

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		r.logger.Ctx(ctx).Warn("Invalid webhook body", zap.Error(err))
		return failure(OutcomeInvalid, "Invalid webhook data: %v", err)
	}
	action = event.Action

	if event.Action == "" {
		return failure(OutcomeInvalid, "Invalid webhook data: missing action")
	}
	if event.Parcel == nil || event.Parcel.ID == 0 {
		return failure(OutcomeInvalid, "Invalid webhook data: missing parcel information")
	}

	span.SetAttributes(
		attribute.String("webhook.action", event.Action),
		attribute.Int64("sendcloud.parcel_id", event.Parcel.ID),
	)

	if event.Action != ActionParcelStatusChanged {
		r.logger.Ctx(ctx).Info("Ignoring webhook action", zap.String("action", event.Action))
		return Result{Success: true, Message: fmt.Sprintf("Action %s ignored", event.Action), outcome: OutcomeIgnored}
	}

	if len(event.Parcel.Status) == 0 || string(event.Parcel.Status) == "null" {
		return failure(OutcomeInvalid, "Invalid webhook data: missing parcel status")
	}
	var st eventStatus
	if err := json.Unmarshal(event.Parcel.Status, &st); err != nil {
		return failure(OutcomeInvalid, "Invalid webhook data: %v", err)
	}

	parcelID := event.Parcel.ID
	tracking := text(event.Parcel.TrackingNumber)
	status := text(st.Message)

	log := r.logger.Ctx(ctx).WithOptions(zap.Fields(
		zap.Int64("parcel_id", parcelID),
		zap.String("tracking_number", tracking),
		zap.String("status", status),
	))
	log.Info("Processing parcel status update")

	if r.sink == nil {
		log.Error("Fulfillment status sink not configured")
		return failure(OutcomeError, "fulfillment status sink not configured")
	}

	if err := r.sink.UpdateFulfillmentStatus(ctx, parcelID, tracking, status); err != nil {
		span.RecordError(err)
		log.Error("Failed to update fulfillment status", zap.Error(err))
		return failure(OutcomeError, "%v", err)
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Successfully updated status for parcel %d to %s", parcelID, status),
		outcome: OutcomeSuccess,
	}
}

// ServeHTTP reads the body, checks the signature when enabled and always
// answers 200 with the Result.
func (r *Reconciler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	res := r.handle(ctx, w, req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		r.logger.Ctx(ctx).Error("Failed to write webhook response", zap.Error(err))
	}
}

func (r *Reconciler) handle(ctx context.Context, w http.ResponseWriter, req *http.Request) Result {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		r.logger.Ctx(ctx).Warn("Failed to read webhook body", zap.Error(err))
		if r.metrics != nil {
			r.metrics.RecordWebhook("", OutcomeInvalid)
		}
		return failure(OutcomeInvalid, "Invalid webhook data: %v", err)
	}

	if r.cfg.VerifySignature {
		signature := strings.TrimSpace(req.Header.Get(SignatureHeader))
		if !VerifySignature(r.cfg.SecretKey, body, signature) {
			r.logger.Ctx(ctx).Warn("Rejected webhook with invalid signature")
			if r.metrics != nil {
				r.metrics.RecordWebhook("", OutcomeUnauthorized)
			}
			return failure(OutcomeUnauthorized, "Invalid webhook signature")
		}
	}

	return r.Reconcile(ctx, body)
}
