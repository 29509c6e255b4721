package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

// principalEcho writes the role found in the context, or "anonymous".
func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			_, _ = w.Write([]byte(p.Role))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func TestRequireAuth_Success(t *testing.T) {
	auth := newMockAuth(map[string]domainauth.Role{"sid": domainauth.RoleAdmin})
	req := withSession(httptest.NewRequest(http.MethodGet, "/api/accounts", nil), "sid")
	w := httptest.NewRecorder()

	RequireAuth(auth)(principalEcho()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())
}

func TestRequireAuth_Unauthenticated(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		sid          string
		htmx         bool
		wantStatus   int
		wantLocation string
		wantHX       string
	}{
		{name: "api without cookie", path: "/api/accounts", wantStatus: http.StatusUnauthorized},
		{name: "api with unknown session", path: "/api/accounts", sid: "nope", wantStatus: http.StatusUnauthorized},
		{
			name:         "browser redirected",
			path:         "/admin/view-as?x=1",
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/auth/login?redirect_uri=%2Fadmin%2Fview-as%3Fx%3D1",
		},
		{
			name:       "htmx redirected by header",
			path:       "/admin/view-as",
			htmx:       true,
			wantStatus: http.StatusOK,
			wantHX:     "/auth/login?redirect_uri=%2Fadmin%2Fview-as",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.sid != "" {
				req = withSession(req, tt.sid)
			}
			if tt.htmx {
				req.Header.Set("Hx-Request", "true")
			}
			w := httptest.NewRecorder()

			RequireAuth(newMockAuth(nil))(principalEcho()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			assert.Equal(t, tt.wantHX, w.Header().Get("Hx-Redirect"))
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"authentication_required"`)
			}
		})
	}
}

func TestRequireAuth_ResolverFailureIs500(t *testing.T) {
	auth := &mockAuthService{
		resolvePrincipalFunc: func(context.Context, string) (*domainauth.Principal, error) {
			return nil, errors.New("postgres unavailable")
		},
	}
	req := withSession(httptest.NewRequest(http.MethodGet, "/api/roles", nil), "sid")
	w := httptest.NewRecorder()

	RequireAuth(auth)(principalEcho()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "postgres")
}

func TestOptionalAuth(t *testing.T) {
	auth := newMockAuth(map[string]domainauth.Role{"sid": domainauth.RoleSecretariat})

	t.Run("with session", func(t *testing.T) {
		w := httptest.NewRecorder()
		OptionalAuth(auth)(principalEcho()).ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/auth/status", nil), "sid"))
		assert.Equal(t, "secretariat", w.Body.String())
	})
	t.Run("unknown session", func(t *testing.T) {
		w := httptest.NewRecorder()
		OptionalAuth(auth)(principalEcho()).ServeHTTP(w, withSession(httptest.NewRequest(http.MethodGet, "/auth/status", nil), "x"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
	})
	t.Run("without session", func(t *testing.T) {
		w := httptest.NewRecorder()
		OptionalAuth(auth)(principalEcho()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/status", nil))
		assert.Equal(t, "anonymous", w.Body.String())
	})
}

func TestRequirePermission(t *testing.T) {
	assign := domainauth.Permission{Resource: domainauth.ResourceRoles, Action: domainauth.ActionAssign}
	tests := []struct {
		name       string
		role       domainauth.Role // empty: no principal in context
		wantStatus int
		wantCode   string
		wantResult string
	}{
		{name: "super admin allowed", role: domainauth.RoleSuperAdmin, wantStatus: http.StatusOK, wantResult: "allow"},
		{name: "admin denied", role: domainauth.RoleAdmin, wantStatus: http.StatusForbidden, wantCode: "insufficient_permissions", wantResult: "deny"},
		{name: "user denied", role: domainauth.RoleUser, wantStatus: http.StatusForbidden, wantCode: "insufficient_permissions", wantResult: "deny"},
		{name: "unknown role unauthenticated", role: "owner", wantStatus: http.StatusUnauthorized, wantCode: "authentication_required", wantResult: "deny"},
		{name: "no principal", wantStatus: http.StatusUnauthorized, wantCode: "authentication_required", wantResult: "deny"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			req := httptest.NewRequest(http.MethodPut, "/api/accounts/u1/role", nil)
			if tt.role != "" {
				req = withPrincipal(req, tt.role)
			}
			w := httptest.NewRecorder()

			RequirePermission(AuthzConfig{Metrics: sink}, assign)(principalEcho()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Contains(t, w.Body.String(), `"`+tt.wantCode+`"`)
			}
			require.Len(t, sink.tags, 1)
			assert.Equal(t, "authz.decision", sink.counts[0])
			assert.Equal(t, tt.wantResult, sink.tags[0]["result"])
			assert.Equal(t, "roles", sink.tags[0]["resource"])
			assert.Equal(t, "assign", sink.tags[0]["action"])
		})
	}
}

func TestRequirePermission_IgnoresRequestSuppliedRole(t *testing.T) {
	perm := domainauth.Permission{Resource: domainauth.ResourceReports, Action: domainauth.ActionView}
	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/api/audit/roles?role=super_admin", nil), domainauth.RoleUser)
	req.Header.Set("X-Role", "super_admin")
	req.AddCookie(&http.Cookie{Name: viewAsCookieName, Value: "super_admin"})
	w := httptest.NewRecorder()

	RequirePermission(AuthzConfig{}, perm)(principalEcho()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestIsBrowserRequest(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		accept string
		htmx   bool
		want   bool
	}{
		{name: "api path", path: "/api/roles", accept: "text/html", want: false},
		{name: "auth status", path: "/auth/status", want: false},
		{name: "html accept", path: "/admin", accept: "text/html,application/xhtml+xml", want: true},
		{name: "json accept", path: "/admin", accept: "application/json", want: false},
		{name: "no accept", path: "/admin", want: true},
		{name: "htmx", path: "/admin/members", accept: "*/*", htmx: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.htmx {
				req.Header.Set("Hx-Request", "true")
			}
			var got bool
			BrowserDetection()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = IsBrowserRequest(r)
			})).ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecover(t *testing.T) {
	h := Recover(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()

	require.NotPanics(t, func() { h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil)) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSafeRedirectFromURL(t *testing.T) {
	assert.Equal(t, "/admin/roles?offset=50", safeRedirectFromURL("https://shepherd.example.org/admin/roles?offset=50"))
	assert.Equal(t, "/admin", safeRedirectFromURL("/admin"))
	assert.Empty(t, safeRedirectFromURL(""))
	assert.Empty(t, safeRedirectFromURL("//evil.example.com/x"))
}
