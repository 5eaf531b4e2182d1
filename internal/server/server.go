package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/sendcloud-bridge/internal/fulfillment"
	"github.com/tournevent/sendcloud-bridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Server is the HTTP server for the fulfillment bridge.
type Server struct {
	port        int
	corsOrigins []string
	registry    *shipper.Registry
	service     *fulfillment.Service
	store       fulfillment.Store
	webhook     http.Handler
	gatherer    prometheus.Gatherer
	logger      *otelzap.Logger
	validate    *validator.Validate
}

// Config holds server configuration.
type Config struct {
	Port               int
	CORSAllowedOrigins []string
}

// Deps are the components the server routes to.
type Deps struct {
	Registry *shipper.Registry
	Service  *fulfillment.Service
	Store    fulfillment.Store
	Webhook  http.Handler
	// Gatherer serves /metrics. Nil uses the default Prometheus gatherer.
	Gatherer prometheus.Gatherer
	Logger   *otelzap.Logger
}

// New creates a new server instance.
func New(cfg Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		port:        cfg.Port,
		corsOrigins: origins,
		registry:    deps.Registry,
		service:     deps.Service,
		store:       deps.Store,
		webhook:     deps.Webhook,
		gatherer:    gatherer,
		logger:      logger,
		validate:    validator.New(),
	}
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Sendcloud cannot present session credentials or satisfy CORS.
	if s.webhook != nil {
		r.Post("/webhooks/sendcloud", s.webhook.ServeHTTP)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))

		api.Get("/shipping-methods", s.handleShippingMethods)
		api.Post("/fulfillments", s.handleCreateFulfillment)
		api.Route("/fulfillments/{provider}/{parcelID}", func(f chi.Router) {
			f.Get("/", s.handleGetFulfillment)
			f.Get("/status", s.handleGetStatus)
			f.Post("/cancel", s.handleCancelFulfillment)
			f.Get("/label", s.handleGetLabel)
		})
	})

	return otelhttp.NewHandler(r, "sendcloud-bridge")
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type readyResponse struct {
	Ready     bool            `json:"ready"`
	Providers map[string]bool `json:"providers"`
	Store     bool            `json:"store"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := readyResponse{Ready: true, Providers: map[string]bool{}, Store: true}
	if s.registry != nil {
		resp.Providers = s.registry.PingAll(ctx)
	}
	for name, ok := range resp.Providers {
		if !ok {
			s.logger.Ctx(ctx).Warn("Provider not ready", zap.String("provider", name))
			resp.Ready = false
		}
	}
	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Ctx(ctx).Warn("Status store not ready", zap.Error(err))
			resp.Store = false
			resp.Ready = false
		}
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
