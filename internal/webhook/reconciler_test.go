package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/sendcloud-bridge/internal/telemetry"
	"github.com/tournevent/sendcloud-bridge/internal/webhook"
)

type statusCall struct {
	ParcelID       int64
	TrackingNumber string
	Status         string
}

type recordingSink struct {
	mu    sync.Mutex
	calls []statusCall
	err   error
	panic bool
}

func (s *recordingSink) UpdateFulfillmentStatus(_ context.Context, parcelID int64, trackingNumber, status string) error {
	if s.panic {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, statusCall{parcelID, trackingNumber, status})
	return s.err
}

func (s *recordingSink) Calls() []statusCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]statusCall(nil), s.calls...)
}

func newReconciler(cfg webhook.Config, sink webhook.StatusSink) (*webhook.Reconciler, *telemetry.Metrics) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	return webhook.New(cfg, sink, nil, metrics), metrics
}

func post(t *testing.T, h http.Handler, body string, header http.Header) webhook.Result {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/sendcloud", strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res webhook.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

const deliveredBody = `{"action":"parcel_status_changed","timestamp":1525271885993,"parcel":{"id":42,"tracking_number":"TRK1","status":{"id":11,"message":"Delivered"},"carrier":{"code":"postnl"}}}`

func TestServeHTTP_StatusChanged(t *testing.T) {
	sink := &recordingSink{}
	r, metrics := newReconciler(webhook.Config{}, sink)

	res := post(t, r, deliveredBody, nil)

	assert.True(t, res.Success)
	assert.Equal(t, "Successfully updated status for parcel 42 to Delivered", res.Message)
	assert.Equal(t, []statusCall{{42, "TRK1", "Delivered"}}, sink.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebhooksTotal.WithLabelValues("parcel_status_changed", "success")))
}

func TestServeHTTP_MissingTrackingNumber(t *testing.T) {
	sink := &recordingSink{}
	r, _ := newReconciler(webhook.Config{}, sink)

	res := post(t, r, `{"action":"parcel_status_changed","parcel":{"id":42,"status":{"id":3,"message":"En route to sorting center"}}}`, nil)

	assert.True(t, res.Success)
	assert.Equal(t, []statusCall{{42, "", "En route to sorting center"}}, sink.Calls())
}

func TestServeHTTP_NullTrackingNumber(t *testing.T) {
	sink := &recordingSink{}
	r, _ := newReconciler(webhook.Config{}, sink)

	res := post(t, r, `{"action":"parcel_status_changed","parcel":{"id":7,"tracking_number":null,"status":{"id":1,"message":"Announced"}}}`, nil)

	assert.True(t, res.Success)
	assert.Equal(t, []statusCall{{7, "", "Announced"}}, sink.Calls())
}

func TestServeHTTP_IgnoredAction(t *testing.T) {
	sink := &recordingSink{}
	r, metrics := newReconciler(webhook.Config{}, sink)

	res := post(t, r, `{"action":"parcel_refund","parcel":{"id":42}}`, nil)

	assert.True(t, res.Success)
	assert.Equal(t, "Action parcel_refund ignored", res.Message)
	assert.Empty(t, sink.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebhooksTotal.WithLabelValues("parcel_refund", "ignored")))
}

func TestServeHTTP_InvalidEvents(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "missing action",
			body:    `{"parcel":{"id":42,"status":{"id":11,"message":"Delivered"}}}`,
			message: "Error processing webhook: Invalid webhook data: missing action",
		},
		{
			name:    "empty action",
			body:    `{"action":"","parcel":{"id":42}}`,
			message: "Error processing webhook: Invalid webhook data: missing action",
		},
		{
			name:    "missing parcel",
			body:    `{"action":"parcel_status_changed"}`,
			message: "Error processing webhook: Invalid webhook data: missing parcel information",
		},
		{
			name:    "missing parcel id",
			body:    `{"action":"parcel_status_changed","parcel":{"tracking_number":"TRK1"}}`,
			message: "Error processing webhook: Invalid webhook data: missing parcel information",
		},
		{
			name:    "missing parcel id on ignored action",
			body:    `{"action":"parcel_refund","parcel":{}}`,
			message: "Error processing webhook: Invalid webhook data: missing parcel information",
		},
		{
			name:    "missing status",
			body:    `{"action":"parcel_status_changed","parcel":{"id":42}}`,
			message: "Error processing webhook: Invalid webhook data: missing parcel status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			r, _ := newReconciler(webhook.Config{}, sink)

			res := post(t, r, tt.body, nil)

			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
			assert.Empty(t, sink.Calls())
		})
	}
}

func TestServeHTTP_MalformedJSON(t *testing.T) {
	sink := &recordingSink{}
	r, metrics := newReconciler(webhook.Config{}, sink)

	res := post(t, r, `{"action":`, nil)

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "Error processing webhook: Invalid webhook data: "))
	assert.Empty(t, sink.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebhooksTotal.WithLabelValues("unknown", "invalid")))
}

func TestServeHTTP_SinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("fulfillment not found")}
	r, metrics := newReconciler(webhook.Config{}, sink)

	res := post(t, r, deliveredBody, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "Error processing webhook: fulfillment not found", res.Message)
	assert.Len(t, sink.Calls(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebhooksTotal.WithLabelValues("parcel_status_changed", "error")))
}

func TestServeHTTP_SinkNotConfigured(t *testing.T) {
	r, _ := newReconciler(webhook.Config{}, nil)

	res := post(t, r, deliveredBody, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "Error processing webhook: fulfillment status sink not configured", res.Message)
}

func TestServeHTTP_SinkPanic(t *testing.T) {
	r, _ := newReconciler(webhook.Config{}, &recordingSink{panic: true})

	res := post(t, r, deliveredBody, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "Error processing webhook: sink exploded", res.Message)
}

func TestServeHTTP_BodyTooLarge(t *testing.T) {
	sink := &recordingSink{}
	r, _ := newReconciler(webhook.Config{}, sink)

	body := `{"action":"parcel_status_changed","padding":"` + strings.Repeat("x", 2<<20) + `"}`
	res := post(t, r, body, nil)

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Message, "Error processing webhook: Invalid webhook data: "))
	assert.Empty(t, sink.Calls())
}

func TestServeHTTP_Signature(t *testing.T) {
	cfg := webhook.Config{SecretKey: "secret", VerifySignature: true}

	t.Run("valid", func(t *testing.T) {
		sink := &recordingSink{}
		r, _ := newReconciler(cfg, sink)

		header := http.Header{}
		header.Set(webhook.SignatureHeader, webhook.Sign("secret", []byte(deliveredBody)))
		res := post(t, r, deliveredBody, header)

		assert.True(t, res.Success)
		assert.Len(t, sink.Calls(), 1)
	})

	t.Run("missing", func(t *testing.T) {
		sink := &recordingSink{}
		r, metrics := newReconciler(cfg, sink)

		res := post(t, r, deliveredBody, nil)

		assert.False(t, res.Success)
		assert.Equal(t, "Error processing webhook: Invalid webhook signature", res.Message)
		assert.Empty(t, sink.Calls())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WebhooksTotal.WithLabelValues("unknown", "unauthorized")))
	})

	t.Run("mismatch", func(t *testing.T) {
		sink := &recordingSink{}
		r, _ := newReconciler(cfg, sink)

		header := http.Header{}
		header.Set(webhook.SignatureHeader, webhook.Sign("other", []byte(deliveredBody)))
		res := post(t, r, deliveredBody, header)

		assert.False(t, res.Success)
		assert.Empty(t, sink.Calls())
	})

	t.Run("disabled ignores header", func(t *testing.T) {
		sink := &recordingSink{}
		r, _ := newReconciler(webhook.Config{SecretKey: "secret"}, sink)

		header := http.Header{}
		header.Set(webhook.SignatureHeader, "deadbeef")
		res := post(t, r, deliveredBody, header)

		assert.True(t, res.Success)
	})
}

func TestReconcile_Concurrent(t *testing.T) {
	sink := &recordingSink{}
	r, _ := newReconciler(webhook.Config{}, sink)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := r.Reconcile(context.Background(), []byte(deliveredBody))
			assert.True(t, res.Success)
		}()
	}
	wg.Wait()

	assert.Len(t, sink.Calls(), 25)
}

func TestReconcile_Outcome(t *testing.T) {
	r, _ := newReconciler(webhook.Config{}, &recordingSink{})

	assert.Equal(t, webhook.OutcomeSuccess, r.Reconcile(context.Background(), []byte(deliveredBody)).Outcome())
	assert.Equal(t, webhook.OutcomeIgnored, r.Reconcile(context.Background(), []byte(`{"action":"label_printed","parcel":{"id":1}}`)).Outcome())
	assert.Equal(t, webhook.OutcomeInvalid, r.Reconcile(context.Background(), []byte(`{}`)).Outcome())
}

func TestServeHTTP_LooselyTypedParcelFields(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []statusCall
		message string
	}{
		{
			name:    "string status id",
			body:    `{"action":"parcel_status_changed","parcel":{"id":42,"tracking_number":"TRK1","status":{"id":"11","message":"Delivered"}}}`,
			want:    []statusCall{{42, "TRK1", "Delivered"}},
			message: "Successfully updated status for parcel 42 to Delivered",
		},
		{
			name:    "numeric tracking number",
			body:    `{"action":"parcel_status_changed","parcel":{"id":42,"tracking_number":12345,"status":{"id":11,"message":"Delivered"}}}`,
			want:    []statusCall{{42, "12345", "Delivered"}},
			message: "Successfully updated status for parcel 42 to Delivered",
		},
		{
			name:    "ignored action with odd extra fields",
			body:    `{"action":"parcel_refund","parcel":{"id":42,"tracking_number":12345,"status":"refunded","carrier":7}}`,
			message: "Action parcel_refund ignored",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			r, _ := newReconciler(webhook.Config{}, sink)

			res := post(t, r, tt.body, nil)

			assert.True(t, res.Success, res.Message)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.want, sink.Calls())
		})
	}
}

func TestServeHTTP_NullStatus(t *testing.T) {
	sink := &recordingSink{}
	r, _ := newReconciler(webhook.Config{}, sink)

	res := post(t, r, `{"action":"parcel_status_changed","parcel":{"id":42,"status":null}}`, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "Error processing webhook: Invalid webhook data: missing parcel status", res.Message)
	assert.Empty(t, sink.Calls())
}
