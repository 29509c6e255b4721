package httpx

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/service"
)

// mockAuthService is a test double for service.AuthService. Sessions resolve
// through the principals map unless resolvePrincipalFunc is set.
type mockAuthService struct {
	principals           map[string]*domainauth.Principal
	beginLoginFunc       func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc    func(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	getSessionFunc       func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	resolvePrincipalFunc func(ctx context.Context, sessionID string) (*domainauth.Principal, error)
	logoutFunc           func(ctx context.Context, sessionID string) error
}

func newMockAuth(sessions map[string]domainauth.Role) *mockAuthService {
	m := &mockAuthService{principals: make(map[string]*domainauth.Principal, len(sessions))}
	for sid, role := range sessions {
		m.principals[sid] = &domainauth.Principal{
			UserID:      "uid-" + string(role),
			Email:       string(role) + "@example.com",
			DisplayName: "Test " + string(role),
			Role:        role,
		}
	}
	return m
}

func (m *mockAuthService) BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error) {
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL: "https://idp.example.com/auth?state=test-state&nonce=test-nonce",
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (m *mockAuthService) CompleteLogin(
	ctx context.Context,
	input service.CompleteLoginInput,
) (*service.CompleteLoginResult, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, input)
	}
	return &service.CompleteLoginResult{
		Session: domainauth.Session{
			ID:        "test-session-id",
			UserID:    "test-user",
			Email:     "test@example.com",
			ExpiresAt: time.Now().Add(time.Hour),
		},
		Account: &model.Account{UID: "test-user", Email: "test@example.com", Role: domainauth.RoleUser, Active: true},
	}, nil
}

func (m *mockAuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	return &domainauth.Session{
		ID:        sessionID,
		UserID:    "test-user",
		Email:     "test@example.com",
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockAuthService) ResolvePrincipal(ctx context.Context, sessionID string) (*domainauth.Principal, error) {
	if m.resolvePrincipalFunc != nil {
		return m.resolvePrincipalFunc(ctx, sessionID)
	}
	if p, ok := m.principals[sessionID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperrors.Unauthenticated("session not found")
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, sessionID)
	}
	return nil
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

// recordingSink captures metric calls.
type recordingSink struct {
	counts []string
	tags   []map[string]string
}

func (s *recordingSink) Count(name string, _ int64, tags map[string]string) {
	s.counts = append(s.counts, name)
	s.tags = append(s.tags, tags)
}

func (s *recordingSink) Timing(string, time.Duration, map[string]string) {}
func (s *recordingSink) Gauge(string, float64, map[string]string)        {}

func withSession(r *http.Request, sid string) *http.Request {
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sid})
	return r
}

func withPrincipal(r *http.Request, role domainauth.Role) *http.Request {
	p := &domainauth.Principal{UserID: "uid-" + string(role), Email: string(role) + "@example.com", Role: role}
	return r.WithContext(SetPrincipalInContext(r.Context(), p))
}

func findCookie(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "cookie not set", "cookie %q missing", name)
	return nil
}

func newTestRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer(TemplateRendererConfig{
		Now: func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return r
}
