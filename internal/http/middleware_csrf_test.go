package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfHandler() http.Handler {
	return CSRFProtection(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetCSRFToken(r)))
	}))
}

func csrfCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCSRFCookieName {
			return c
		}
	}
	return nil
}

func TestCSRFProtection_IssuesTokenOnSafeRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	c := csrfCookie(rec)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.Value)
	assert.Equal(t, c.Value, rec.Body.String(), "token is exposed to handlers")
	assert.False(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestCSRFProtection_ReusesExistingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "existing"})
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	assert.Nil(t, csrfCookie(rec))
	assert.Equal(t, "existing", rec.Body.String())
}

func TestCSRFProtection_SecureBehindProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Forwarded-Proto", "http, https")
	rec := httptest.NewRecorder()
	csrfHandler().ServeHTTP(rec, req)

	c := csrfCookie(rec)
	require.NotNil(t, c)
	assert.True(t, c.Secure)
}

func TestCSRFProtection_Validation(t *testing.T) {
	const token = "tok-123"
	form := url.Values{"csrf_token": {token}}.Encode()

	tests := []struct {
		name        string
		method      string
		path        string
		cookie      bool
		header      string
		body        string
		contentType string
		wantStatus  int
		wantJSON    bool
	}{
		{name: "header token", method: http.MethodPut, path: "/api/accounts/u1/role", cookie: true, header: token, wantStatus: http.StatusOK},
		{name: "form token", method: http.MethodPost, path: "/admin/view-as", cookie: true, body: form, contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusOK},
		{name: "form token ignored for json body", method: http.MethodPost, path: "/api/permissions/check", cookie: true, body: form, contentType: "application/json", wantStatus: http.StatusForbidden, wantJSON: true},
		{name: "missing token api", method: http.MethodPut, path: "/api/accounts/u1/active", cookie: true, wantStatus: http.StatusForbidden, wantJSON: true},
		{name: "mismatched token", method: http.MethodDelete, path: "/api/x", cookie: true, header: "other", wantStatus: http.StatusForbidden, wantJSON: true},
		{name: "no cookie", method: http.MethodPost, path: "/auth/logout", header: token, wantStatus: http.StatusForbidden},
		{name: "options exempt", method: http.MethodOptions, path: "/api/x", wantStatus: http.StatusOK},
		{name: "head exempt", method: http.MethodHead, path: "/api/x", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
			}
			if tt.header != "" {
				req.Header.Set(DefaultCSRFHeaderName, tt.header)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			csrfHandler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantJSON {
				assert.Contains(t, rec.Body.String(), `"csrf_token_invalid"`)
			}
		})
	}
}

func TestGetCSRFToken_NoToken(t *testing.T) {
	assert.Empty(t, GetCSRFToken(httptest.NewRequest(http.MethodGet, "/", nil)))
}
