package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`

	// Claims holds JMESPath expressions evaluated against the ID token claims.
	Claims ClaimConfig `envPrefix:"CLAIM_"`
}

// ClaimConfig maps identity provider claims onto account fields. Empty
// expressions use the OIDC adapter defaults, which cover standard claims and
// AD/ADFS names.
type ClaimConfig struct {
	UserID    string `env:"UID"`
	Email     string `env:"EMAIL"`
	FirstName string `env:"FIRST_NAME"`
	LastName  string `env:"LAST_NAME"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID    string `env:"USER_ID"    envDefault:"dev-user"`
	Email     string `env:"EMAIL"      envDefault:"dev@example.com"`
	FirstName string `env:"FIRST_NAME" envDefault:"Dev"`
	LastName  string `env:"LAST_NAME"  envDefault:"User"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// SessionTTL is how long a session lives. Values above the session
	// window are clamped to it.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"240h"`

	// SuperAdminPeerPolicy is "allowed" or "denied"; see domainauth.PeerPolicy.
	SuperAdminPeerPolicy string `env:"AUTH_SUPER_ADMIN_PEER_POLICY" envDefault:"allowed"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}

// Sanitize trims values and clamps the session TTL.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL <= 0 || a.SessionTTL > domainauth.SessionWindow {
		a.SessionTTL = domainauth.SessionWindow
	}
	a.SuperAdminPeerPolicy = strings.ToLower(strings.TrimSpace(a.SuperAdminPeerPolicy))

	a.OAuth.DiscoveryURL = strings.TrimSpace(a.OAuth.DiscoveryURL)
	a.OAuth.ClientID = strings.TrimSpace(a.OAuth.ClientID)
	a.OAuth.RedirectURL = strings.TrimSpace(a.OAuth.RedirectURL)
	a.OAuth.Claims.sanitize()
}

func (c *ClaimConfig) sanitize() {
	c.UserID = strings.TrimSpace(c.UserID)
	c.Email = strings.TrimSpace(c.Email)
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
}

// PeerPolicy parses SuperAdminPeerPolicy.
func (a *AuthConfig) PeerPolicy() (domainauth.PeerPolicy, error) {
	return domainauth.ParsePeerPolicy(a.SuperAdminPeerPolicy)
}

// Validate rejects mock auth outside dev mode and incomplete OAuth settings.
func (a *AuthConfig) Validate(isDev bool) error {
	if _, err := a.PeerPolicy(); err != nil {
		return err
	}
	switch a.Mode {
	case AuthModeMock:
		if !isDev {
			return errors.New("AUTH_MODE=mock requires DEV=true")
		}
		if strings.TrimSpace(a.DevAuth.UserID) == "" {
			return errors.New("DEV_AUTH_USER_ID is required when AUTH_MODE=mock")
		}
		return nil
	case AuthModeOAuth, "":
		var missing []string
		if a.OAuth.DiscoveryURL == "" {
			missing = append(missing, "OAUTH_DISCOVERY_URL")
		}
		if a.OAuth.ClientID == "" {
			missing = append(missing, "OAUTH_CLIENT_ID")
		}
		if a.OAuth.ClientSecret == "" {
			missing = append(missing, "OAUTH_CLIENT_SECRET")
		}
		if len(missing) > 0 {
			return fmt.Errorf("oauth configuration incomplete: missing %s", strings.Join(missing, ", "))
		}
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q", a.Mode)
	}
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
