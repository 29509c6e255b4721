package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request host.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// ContactURL is linked from the access denied page.
	ContactURL string `env:"CONTACT_URL" envDefault:""`

	// AdminUIEnabled serves the HTML admin pages under /admin.
	AdminUIEnabled bool `env:"ADMIN_UI_ENABLED" envDefault:"true"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.CookieDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h.CookieDomain), "."))
	h.ContactURL = strings.TrimSpace(h.ContactURL)
}

// Validate rejects cookie domains a browser would refuse or that would leak
// the session cookie to unrelated sites.
func (h *HTTPConfig) Validate() error {
	if err := ValidateCookieDomain(h.CookieDomain); err != nil {
		return err
	}
	if h.ContactURL != "" {
		u, err := url.Parse(h.ContactURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http" && u.Scheme != "mailto") {
			return fmt.Errorf("CONTACT_URL must be an http(s) or mailto URL: %q", h.ContactURL)
		}
	}
	return nil
}

// ValidateCookieDomain accepts an empty domain (host-only cookies) or a
// hostname below a public suffix. "localhost" is allowed for local setups.
func ValidateCookieDomain(domain string) error {
	if domain == "" || domain == "localhost" {
		return nil
	}
	if net.ParseIP(domain) != nil {
		return fmt.Errorf("APP_COOKIE_DOMAIN must be a hostname, got IP %q", domain)
	}
	if strings.ContainsAny(domain, "/:@ ") {
		return fmt.Errorf("APP_COOKIE_DOMAIN is not a hostname: %q", domain)
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q is a public suffix: %w", domain, err)
	}
	return nil
}
