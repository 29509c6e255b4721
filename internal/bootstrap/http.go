package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shepherd-church/shepherd/config"
	httpx "github.com/shepherd-church/shepherd/internal/http"
)

const shutdownTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config       *config.AppConfig
	Services     *ServiceContainer
	HealthChecks map[string]httpx.HealthCheck
	Logger       *slog.Logger
}

// BuildHTTPHandler assembles the router and the outer middleware.
// Order: Recover -> Logging -> Router.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	if cfg == nil || cfg.Config == nil || cfg.Services == nil {
		return nil, errors.New("http server config requires app config and services")
	}
	if cfg.Services.Auth == nil {
		return nil, errors.New("http server requires the auth service")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := cfg.Services

	var renderer *httpx.TemplateRenderer
	if cfg.Config.HTTP.AdminUIEnabled {
		var err error
		if renderer, err = httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{Logger: logger}); err != nil {
			return nil, fmt.Errorf("admin templates: %w", err)
		}
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Auth:         svc.Auth,
		Accounts:     svc.Accounts,
		Assigner:     svc.Assigner,
		Sessions:     svc.Sessions,
		Audit:        svc.Audit,
		Evaluator:    svc.Evaluator,
		Metrics:      svc.Metrics,
		Renderer:     renderer,
		HealthChecks: cfg.HealthChecks,
		CookieDomain: cfg.Config.HTTP.CookieDomain,
		ContactURL:   cfg.Config.HTTP.ContactURL,
		Logger:       logger,
	})

	return httpx.Recover(logger)(httpx.Logging(logger)(router)), nil
}

// NewHTTPServer returns a server with conservative timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Serve runs server until ctx is cancelled or the listener fails, then shuts
// it down gracefully.
func Serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(ctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(ctx, "shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		logger.InfoContext(ctx, "HTTP server stopped")
		return nil
	})

	return g.Wait()
}
