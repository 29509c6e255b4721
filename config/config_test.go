package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "OAuth")
	t.Setenv("AUTH_SESSION_TTL", "12h")
	t.Setenv("AUTH_SUPER_ADMIN_PEER_POLICY", "denied")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "https://admin.example.org/auth/callback")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.example.org/.well-known/openid-configuration")
	t.Setenv("OAUTH_SCOPE", "openid email")
	t.Setenv("OAUTH_CLAIM_UID", "extension_uid")
	t.Setenv("OAUTH_CLAIM_EMAIL", "emails[0]")
	t.Setenv("DEV_AUTH_USER_ID", "dev-user")
	t.Setenv("DEV_AUTH_EMAIL", "dev@example.org")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode:                 AuthModeOAuth,
		SessionTTL:           12 * time.Hour,
		SuperAdminPeerPolicy: "denied",
		OAuth: OAuthConfig{
			ClientID:     "app-client",
			ClientSecret: "super-secret",
			RedirectURL:  "https://admin.example.org/auth/callback",
			Scope:        "openid email",
			DiscoveryURL: "https://login.example.org/.well-known/openid-configuration",
			Claims: ClaimConfig{
				UserID: "extension_uid",
				Email:  "emails[0]",
			},
		},
		DevAuth: DevAuthConfig{
			UserID:    "dev-user",
			Email:     "dev@example.org",
			FirstName: "Dev",
			LastName:  "User",
		},
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_ParseRejectsUnknownAuthMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "saml")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

func TestAuthConfig_SanitizeClampsSessionTTL(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{name: "within window", in: 24 * time.Hour, want: 24 * time.Hour},
		{name: "above window", in: 30 * 24 * time.Hour, want: domainauth.SessionWindow},
		{name: "zero", in: 0, want: domainauth.SessionWindow},
		{name: "negative", in: -time.Hour, want: domainauth.SessionWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AuthConfig{SessionTTL: tt.in}
			cfg.Sanitize()
			if cfg.SessionTTL != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, cfg.SessionTTL)
			}
		})
	}
}

func TestAuthConfig_SanitizeTrimsClaims(t *testing.T) {
	cfg := AuthConfig{OAuth: OAuthConfig{Claims: ClaimConfig{UserID: "  ", Email: " mail || email "}}}
	cfg.Sanitize()

	want := ClaimConfig{Email: "mail || email"}
	if cfg.OAuth.Claims != want {
		t.Fatalf("unexpected claims: %#v", cfg.OAuth.Claims)
	}
}

func TestAuthConfig_Validate(t *testing.T) {
	complete := OAuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		DiscoveryURL: "https://login.example.org",
	}

	tests := []struct {
		name    string
		cfg     AuthConfig
		isDev   bool
		wantErr string
	}{
		{name: "oauth complete", cfg: AuthConfig{Mode: AuthModeOAuth, OAuth: complete}},
		{
			name:    "oauth missing fields",
			cfg:     AuthConfig{Mode: AuthModeOAuth, OAuth: OAuthConfig{ClientID: "id"}},
			wantErr: "OAUTH_DISCOVERY_URL, OAUTH_CLIENT_SECRET",
		},
		{name: "mock in dev", cfg: AuthConfig{Mode: AuthModeMock, DevAuth: DevAuthConfig{UserID: "dev"}}, isDev: true},
		{
			name:    "mock outside dev",
			cfg:     AuthConfig{Mode: AuthModeMock, DevAuth: DevAuthConfig{UserID: "dev"}},
			wantErr: "DEV=true",
		},
		{
			name:    "mock without user",
			cfg:     AuthConfig{Mode: AuthModeMock},
			isDev:   true,
			wantErr: "DEV_AUTH_USER_ID",
		},
		{
			name:    "unknown peer policy",
			cfg:     AuthConfig{Mode: AuthModeOAuth, OAuth: complete, SuperAdminPeerPolicy: "sometimes"},
			wantErr: "peer policy",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.isDev)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthConfig_PeerPolicy(t *testing.T) {
	cfg := AuthConfig{SuperAdminPeerPolicy: " Denied "}
	cfg.Sanitize()

	p, err := cfg.PeerPolicy()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != domainauth.PeerDenied {
		t.Fatalf("expected denied, got %q", p)
	}
}

func TestValidateCookieDomain(t *testing.T) {
	tests := []struct {
		domain string
		ok     bool
	}{
		{domain: "", ok: true},
		{domain: "localhost", ok: true},
		{domain: "example.org", ok: true},
		{domain: "admin.stmarys.org.uk", ok: true},
		{domain: "org.uk", ok: false},
		{domain: "com", ok: false},
		{domain: "127.0.0.1", ok: false},
		{domain: "example.org:8080", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			err := ValidateCookieDomain(tt.domain)
			if tt.ok && err != nil {
				t.Fatalf("expected %q to be accepted: %v", tt.domain, err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected %q to be rejected", tt.domain)
			}
		})
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	cfg := HTTPConfig{Addr: " ", CookieDomain: " .Example.ORG "}
	cfg.Sanitize()

	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.CookieDomain != "example.org" {
		t.Fatalf("expected normalised domain, got %q", cfg.CookieDomain)
	}
}

func TestHTTPConfig_ValidateContactURL(t *testing.T) {
	cfg := HTTPConfig{ContactURL: "mailto:office@example.org"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.ContactURL = "javascript:alert(1)"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected javascript URL to be rejected")
	}
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	cfg := AppConfig{}
	cfg.Sanitize()

	if !cfg.IsDev {
		t.Fatal("expected NODE_ENV=development to enable dev mode")
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
		Prefix:        ".shepherd.",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
	if cfg.Prefix != "shepherd" {
		t.Fatalf("expected prefix dots trimmed, got %q", cfg.Prefix)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		Timeout:    0,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
			Channel:    "  ",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.Slack.Username != "shepherd" {
		t.Fatalf("expected slack username default, got %q", cfg.Slack.Username)
	}

	// Disabled top-level should disable child sinks.
	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
}
