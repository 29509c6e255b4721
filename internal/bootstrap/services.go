package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/shepherd-church/shepherd/config"
	redisadapter "github.com/shepherd-church/shepherd/internal/adapters/redis"
	"github.com/shepherd-church/shepherd/internal/data"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/observability/notify/slack"
	"github.com/shepherd-church/shepherd/internal/observability/statsd"
	"github.com/shepherd-church/shepherd/internal/ports"
	"github.com/shepherd-church/shepherd/internal/service"
	"github.com/shepherd-church/shepherd/internal/service/rolenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Evaluator *domainauth.Evaluator
	Auth      *service.AuthService // nil for the admin CLI
	Accounts  *service.AccountDirectory
	Assigner  *service.RoleAssignmentService
	Audit     *service.AuditTrail
	Sessions  *redisadapter.SessionStore
	Metrics   *statsd.Client
}

// Close releases resources owned by the container (not the DB or Redis
// clients passed in).
func (c *ServiceContainer) Close() error {
	if c == nil {
		return nil
	}
	return c.Metrics.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	// Provider overrides the provider built from config.
	Provider ports.AuthProvider
}

func (d *ServiceDeps) validate() error {
	if d == nil || d.Config == nil {
		return errors.New("service deps require config")
	}
	if d.DB == nil || d.RedisClient == nil {
		return errors.New("service deps require database and redis clients")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return nil
}

// NewServices wires the full HTTP runtime including authentication.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	c, err := NewAdminServices(deps)
	if err != nil {
		return nil, err
	}

	provider := deps.Provider
	if provider == nil {
		if provider, err = BuildAuthProvider(deps.Config.Auth, deps.Logger); err != nil {
			return nil, errors.Join(err, c.Close())
		}
	}
	c.Auth = service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Stores: service.AuthStores{
			Sessions: c.Sessions,
			Accounts: data.NewAccountRepo(deps.DB),
		},
		Config: service.AuthServiceConfig{
			SessionTTL: deps.Config.Auth.SessionTTL,
			Logger:     deps.Logger,
		},
	})
	return c, nil
}

// NewAdminServices wires everything except login. The admin CLI uses it so
// that it does not depend on the identity provider being reachable.
func NewAdminServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg, logger := deps.Config, deps.Logger

	evaluator, err := BuildEvaluator(cfg.Auth)
	if err != nil {
		return nil, err
	}

	metrics := buildMetrics(logger, cfg.Observability.Metrics)
	accounts := data.NewAccountRepo(deps.DB)

	auditOpts := service.AuditTrailOptions{Repo: data.NewRoleAuditRepo(deps.DB), Logger: logger}
	if n := buildRoleNotifier(logger, cfg.Observability.Notifications); n != nil {
		auditOpts.Notifier = n
	}
	audit := service.NewAuditTrail(auditOpts)

	assigner := service.NewRoleAssignmentService(service.RoleAssignmentServiceOptions{
		Accounts: accounts,
		Audit:    audit,
		Config: service.RoleAssignmentConfig{
			Evaluator: evaluator,
			Metrics:   metrics,
			Logger:    logger,
			Lock:      data.NewRedisCacheRepo(deps.RedisClient),
		},
	})

	return &ServiceContainer{
		Evaluator: evaluator,
		Accounts:  service.NewAccountDirectory(service.AccountDirectoryOptions{Accounts: accounts}),
		Assigner:  assigner,
		Audit:     audit,
		Sessions:  redisadapter.NewSessionStoreWithPrefix(deps.RedisClient, cfg.Redis.SessionPrefix),
		Metrics:   metrics,
	}, nil
}

// buildMetrics never fails: an unreachable StatsD endpoint degrades to a
// client that drops metrics.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client; metrics disabled", "error", err)
		client, _ = statsd.NewClient(statsd.Config{Prefix: cfg.Prefix, Logger: logger})
	}
	return client
}

// buildRoleNotifier returns nil when no chat sink is configured.
func buildRoleNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *rolenotifier.Service {
	if !cfg.Enabled || !cfg.Slack.Enabled {
		return nil
	}
	client, err := slack.NewClient(slack.Config{
		WebhookURL: cfg.Slack.WebhookURL,
		Channel:    cfg.Slack.Channel,
		Username:   cfg.Slack.Username,
		Timeout:    cfg.Timeout,
		RetryLimit: cfg.RetryLimit,
		AdminURL:   cfg.Slack.AdminURL,
	})
	if err != nil {
		logger.Error("slack notifications disabled", "error", fmt.Errorf("slack client: %w", err))
		return nil
	}
	return rolenotifier.NewService(rolenotifier.Options{
		Logger: logger,
		Sinks:  []rolenotifier.SinkRegistration{{Name: "slack", Sink: client}},
	})
}
