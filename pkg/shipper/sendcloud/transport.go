package sendcloud

import (
	"net/http"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// LoggingRoundTripper logs every outbound request at debug level and
// failures at error level.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
	Logger  *otelzap.Logger
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := lrt.Logger.Ctx(req.Context())

	resp, err := lrt.Proxied.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		log.Error("HTTP request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	log.Debug("HTTP request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

// NewTransport returns the default transport for the API client: an
// OpenTelemetry-instrumented http.DefaultTransport with request logging.
func NewTransport(logger *otelzap.Logger) http.RoundTripper {
	return &LoggingRoundTripper{
		Proxied: otelhttp.NewTransport(http.DefaultTransport),
		Logger:  logger,
	}
}
