package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/shepherd-church/shepherd/config"
	"github.com/shepherd-church/shepherd/internal/adapters/devauth"
	"github.com/shepherd-church/shepherd/internal/adapters/oidc"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/ports"
)

// BuildEvaluator validates the built-in matrix and applies the configured
// super admin peer policy. A failure here must stop startup.
func BuildEvaluator(cfg config.AuthConfig) (*domainauth.Evaluator, error) {
	peer, err := cfg.PeerPolicy()
	if err != nil {
		return nil, err
	}
	ev, err := domainauth.NewEvaluator(domainauth.DefaultMatrix(), domainauth.Policy{SuperAdminPeerModification: peer})
	if err != nil {
		return nil, fmt.Errorf("permission matrix: %w", err)
	}
	return ev, nil
}

// BuildAuthProvider returns the identity provider for the configured mode.
// OIDC discovery happens here, so an unreachable issuer fails startup.
//
//nolint:ireturn // callers only need the port.
func BuildAuthProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.AuthProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Mode {
	case config.AuthModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			UserID:    cfg.DevAuth.UserID,
			Email:     cfg.DevAuth.Email,
			FirstName: cfg.DevAuth.FirstName,
			LastName:  cfg.DevAuth.LastName,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth provider: %w", err)
		}
		logger.Warn("mock authentication enabled; every login signs in as the dev identity",
			"uid", cfg.DevAuth.UserID)
		return prov, nil

	case config.AuthModeOAuth, "":
		mapper, err := oidc.NewClaimMapper(oidc.ClaimExpressions{
			UserID:    cfg.OAuth.Claims.UserID,
			Email:     cfg.OAuth.Claims.Email,
			FirstName: cfg.OAuth.Claims.FirstName,
			LastName:  cfg.OAuth.Claims.LastName,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc claim mapping: %w", err)
		}
		prov, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scope:        cfg.OAuth.Scope,
			DiscoveryURL: cfg.OAuth.DiscoveryURL,
			ClaimMapper:  mapper,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}
