// Package server wires the cigarro handlers into the API and probe HTTP servers.
package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/cigarro-stock/internal/auth"
	"github.com/vyrodovalexey/cigarro-stock/internal/config"
	"github.com/vyrodovalexey/cigarro-stock/internal/handler"
	"github.com/vyrodovalexey/cigarro-stock/internal/middleware"
)

// ErrInvalidCA is returned when the CA file holds no usable certificate.
var ErrInvalidCA = errors.New("no valid certificates in CA file")

// Server runs the public API server and the optional probe server.
type Server struct {
	httpServer    *http.Server
	probeServer   *http.Server
	router        *mux.Router
	probeRouter   *mux.Router
	handler       http.Handler
	config        *config.Config
	logger        *zap.Logger
	hub           *handler.EventHub
	authenticator auth.Authenticator
	initErr       error
}

// New creates a Server. hub and authenticator may be nil. Errors preparing
// TLS are reported by Start.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	svc handler.CigarroService,
	hub *handler.EventHub,
	authenticator auth.Authenticator,
) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		config:        cfg,
		logger:        logger,
		hub:           hub,
		authenticator: authenticator,
	}

	cigarros := handler.NewCigarroHandler(svc, logger)

	s.setupMiddleware()
	s.setupRoutes(cigarros)
	s.handler = s.corsHandler().Handler(s.router)
	s.setupHTTPServer()

	if cfg.ProbePort != 0 {
		s.setupProbeServer(cigarros)
	}

	return s
}

// setupMiddleware configures the middleware chain, outermost first.
func (s *Server) setupMiddleware() {
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.Auth(s.authenticator, s.logger, handler.EventPath)))
}

func (s *Server) setupRoutes(cigarros *handler.CigarroHandler) {
	api := cigarros.RegisterRoutes(s.router)
	gz, err := gzhttp.NewWrapper()
	if err != nil {
		s.initErr = fmt.Errorf("building gzip wrapper: %w", err)
	} else {
		api.Use(func(next http.Handler) http.Handler {
			return gz(next)
		})
	}

	if s.hub != nil {
		s.hub.RegisterRoutes(s.router)
	}

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// corsHandler builds the CORS policy. Credentials are only allowed for an
// explicit origin list.
func (s *Server) corsHandler() *cors.Cors {
	wildcard := slices.Contains(s.config.CORSAllowedOrigins, "*")

	return cors.New(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			auth.APIKeyHeader,
			middleware.RequestIDHeader,
		},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: !wildcard,
		MaxAge:           int((24 * time.Hour).Seconds()),
	})
}

func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}

	if s.config.TLSEnabled {
		tlsConfig, err := buildTLSConfig(s.config)
		if err != nil {
			s.initErr = err
			return
		}
		s.httpServer.TLSConfig = tlsConfig
	}
}

// setupProbeServer serves health, readiness and metrics on a separate
// plain HTTP port without authentication.
func (s *Server) setupProbeServer(cigarros *handler.CigarroHandler) {
	s.probeRouter = mux.NewRouter()
	s.probeRouter.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.probeRouter.HandleFunc("/health", cigarros.HealthCheck).Methods(http.MethodGet)
	s.probeRouter.HandleFunc("/ready", cigarros.ReadyCheck).Methods(http.MethodGet)
	if s.config.MetricsEnabled {
		s.probeRouter.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	s.probeServer = &http.Server{
		Addr:              s.config.ProbeAddress(),
		Handler:           s.probeRouter,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// buildTLSConfig loads the server key pair and, when configured, the CA used
// to verify client certificates.
func buildTLSConfig(cfg *config.Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading TLS key pair: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.TLSCAPath != "" {
		caPEM, err := os.ReadFile(cfg.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, ErrInvalidCA
		}
		tlsConfig.ClientCAs = pool
	}

	switch cfg.TLSClientAuthOrDefault() {
	case "require":
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	case "request":
		if tlsConfig.ClientCAs != nil {
			tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
		} else {
			tlsConfig.ClientAuth = tls.RequestClientCert
		}
	default:
		tlsConfig.ClientAuth = tls.NoClientCert
	}

	return tlsConfig, nil
}

// Start runs the API and probe servers until both stop. When one of them
// fails the other is closed.
func (s *Server) Start() error {
	if s.initErr != nil {
		return fmt.Errorf("server initialization: %w", s.initErr)
	}

	var g errgroup.Group

	g.Go(func() error {
		return s.closeOnError(s.serveAPI())
	})

	if s.probeServer != nil {
		g.Go(func() error {
			return s.closeOnError(s.serveProbe())
		})
	}

	return g.Wait()
}

func (s *Server) serveAPI() error {
	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("tls_enabled", s.config.TLSEnabled),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	var err error
	if s.config.TLSEnabled {
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}
	return nil
}

func (s *Server) serveProbe() error {
	s.logger.Info("starting probe server", zap.String("address", s.config.ProbeAddress()))

	if err := s.probeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("probe server listen and serve: %w", err)
	}
	return nil
}

func (s *Server) closeOnError(err error) error {
	if err == nil {
		return nil
	}
	s.logger.Error("server stopped with error, closing listeners", zap.Error(err))
	_ = s.httpServer.Close()
	if s.probeServer != nil {
		_ = s.probeServer.Close()
	}
	return err
}

// Shutdown gracefully stops the API server, then closes WebSocket clients
// and stops the probe server. http.Server does not track hijacked
// connections, so the hub must be closed after the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	if s.hub != nil {
		s.hub.CloseAllConnections()
	}
	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("probe server shutdown: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the API router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the API handler including the CORS layer.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ProbeRouter returns the probe router, or nil when the probe server is disabled.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}
