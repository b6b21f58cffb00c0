package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paymesh/walletgate"
	"github.com/paymesh/walletgate/logger"
	"github.com/paymesh/walletgate/metrics"
	"github.com/paymesh/walletgate/types"
)

// Service is the main application struct containing the payment gateway,
// the gated hook handlers, the http server and logger. It can be called
// to start and stop.
type Service struct {
	cfg      Config
	log      logger.Logger
	registry *prometheus.Registry
	gateway  *walletgate.Gateway
	hooks    map[string]http.Handler
	server   *http.Server
}

// New constructs a Service from configuration. Payment requirements are
// built eagerly so a bad config fails at startup, not on first request.
func New(cfg Config, l logger.Logger) (*Service, error) {
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		log:      l,
		registry: prometheus.NewRegistry(),
		hooks:    make(map[string]http.Handler),
	}

	if len(cfg.Payments) > 0 {
		gw, err := walletgate.New(cfg.Payments,
			walletgate.WithLogger(l),
			walletgate.WithMetrics(metrics.NewPrometheusRecorderWith(s.registry)),
			walletgate.WithCredentials(cfg.CDPKeyID, cfg.CDPKeySecret),
			walletgate.WithFacilitatorURL(cfg.FacilitatorURL),
		)
		if err != nil {
			return nil, err
		}
		s.gateway = gw
	}

	for _, hook := range cfg.Hooks {
		body, err := hookBody(hook)
		if err != nil {
			return nil, err
		}
		s.hooks[hook.Name] = s.gateway.Gate(hookResponder(body))
	}

	router := makeServiceAPIs(s).routes(l, s.registry)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

// Start spawns the server which will listen on the TCP address
// srv.Addr for incoming requests.
func (s *Service) Start() {
	s.log.Info("starting service", map[string]any{
		"service": ServiceName,
		"version": walletgate.Version,
		"port":    s.cfg.Port,
		"hooks":   len(s.hooks),
	})
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Warn("server terminated", map[string]any{"error": err.Error()})
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Service) Stop(sig os.Signal) {
	s.log.Info("stopping service", map[string]any{"service": ServiceName, "signal": sig.String()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Error("error stopping server", map[string]any{"error": err.Error()})
	}
}

// Addr returns the TCP address the server listens on.
func (s *Service) Addr() string {
	return s.server.Addr
}

// Handler exposes the router externally.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

// hookBody resolves the JSON document a hook releases after payment. A
// configured response must be valid JSON; empty means a generic
// acknowledgement.
func hookBody(hook HookConfig) ([]byte, error) {
	if hook.Response == "" {
		return json.Marshal(map[string]string{"hook": hook.Name, "status": "accepted"})
	}
	if !json.Valid([]byte(hook.Response)) {
		return nil, types.X402Error{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("hook %q response is not valid JSON", hook.Name),
		}
	}
	return []byte(hook.Response), nil
}

func hookResponder(body []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}
