package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/observability/metrics"
	"github.com/shepherd-church/shepherd/internal/observability/statsd"
)

// sessionCookieName carries the opaque session id issued at login.
const sessionCookieName = "session_id"

var errAuthRequired = apperrors.Unauthenticated("authentication required")

// PrincipalResolver turns a session id into the acting principal.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, sessionID string) (*domainauth.Principal, error)
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// resolvePrincipal reads the session cookie and resolves it. A missing cookie
// is reported as unauthenticated, the same as a session that fails to verify.
func resolvePrincipal(r *http.Request, resolver PrincipalResolver) (*domainauth.Principal, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, errAuthRequired
	}
	p, err := resolver.ResolvePrincipal(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errAuthRequired
	}
	return p, nil
}

// RequireAuth returns a middleware that resolves the principal for the request.
// Unauthenticated API requests get a 401; browser requests are sent to login.
func RequireAuth(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := resolvePrincipal(r, resolver)
			if err != nil {
				if apperrors.IsUnauthenticated(err) && IsBrowserRequest(r) {
					redirectToLogin(w, r)
					return
				}
				WriteServiceError(w, r, nil, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetPrincipalInContext(r.Context(), p)))
		})
	}
}

// OptionalAuth adds the principal to the request context when one resolves.
// Requests without a valid session continue anonymously.
func OptionalAuth(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, err := resolvePrincipal(r, resolver); err == nil {
				r = r.WithContext(SetPrincipalInContext(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthzConfig holds collaborators for permission middleware.
type AuthzConfig struct {
	Evaluator *domainauth.Evaluator // defaults to domainauth.DefaultEvaluator()
	Metrics   statsd.Sink
}

func (c AuthzConfig) evaluator() *domainauth.Evaluator {
	if c.Evaluator != nil {
		return c.Evaluator
	}
	return domainauth.DefaultEvaluator()
}

// RequirePermission returns a middleware that checks the principal placed in
// the context by RequireAuth against perm. The role is always the one
// resolved server-side; nothing from the request can substitute for it.
func RequirePermission(cfg AuthzConfig, perm domainauth.Permission) func(http.Handler) http.Handler {
	ev := cfg.evaluator()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var role domainauth.Role
			if p, ok := PrincipalFromContext(r.Context()); ok {
				role = p.Role
			}
			err := ev.RequirePermission(role, perm.Resource, perm.Action)
			metrics.EmitDecision(cfg.Metrics, metrics.Decision{
				Resource: string(perm.Resource),
				Action:   string(perm.Action),
				Role:     string(role),
				Allowed:  err == nil,
			})
			if err != nil {
				WriteServiceError(w, r, nil, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// browserRequestKey is an unexported context key type for browser request detection.
type browserRequestKey struct{}

// BrowserDetection returns a middleware that detects browser requests vs API requests.
// It sets a context value that can be used by downstream handlers to determine
// whether to return HTML or JSON responses.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowserRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if isBrowser, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return isBrowser
	}
	return isBrowserRequest(r)
}

// isBrowserRequest treats /api and /auth/status as programmatic, htmx as a
// browser, and otherwise looks for text/html in Accept.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/auth/status" {
		return false
	}
	if IsHTMX(r) {
		return true
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	return strings.Contains(accept, "text/html")
}

// redirectToLogin redirects browser requests to the login page with the current URL as redirect_uri.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	redirectParam := url.QueryEscape(redirectPathForRequest(r))
	loginURL := "/auth/login?redirect_uri=" + redirectParam

	if IsHTMX(r) {
		SetHXRedirect(w, loginURL)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, loginURL, http.StatusSeeOther)
}

func redirectPathForRequest(r *http.Request) string {
	if IsHTMX(r) {
		if current := safeRedirectFromURL(r.Header.Get("Hx-Current-Url")); current != "" {
			return current
		}
	}
	return safeRedirectPath(r.URL.RequestURI())
}

func safeRedirectFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	// Reject scheme-relative or host-only references.
	if u.Host != "" && !u.IsAbs() {
		return ""
	}
	if u.IsAbs() {
		return safeRedirectPath(u.RequestURI())
	}
	return safeRedirectPath(raw)
}
