package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/observability/statsd"
)

// RouterServices holds everything the HTTP router wires into handlers.
type RouterServices struct {
	Auth      AuthServiceInterface
	Accounts  AccountDirectoryService
	Assigner  RoleAssigner
	Sessions  SessionRevoker
	Audit     RoleChangeLister
	Evaluator *domainauth.Evaluator // defaults to domainauth.DefaultEvaluator()
	Metrics   statsd.Sink
	// Renderer serves the admin pages. When nil, /admin routes are not registered.
	Renderer     *TemplateRenderer
	HealthChecks map[string]HealthCheck
	CookieDomain string
	ContactURL   string
	Logger       *slog.Logger
}

// NewRouter creates and configures a new HTTP router with browser middleware.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	if services.Evaluator == nil {
		services.Evaluator = domainauth.DefaultEvaluator()
	}

	// GET patterns also match HEAD.
	mux.Handle("GET /healthz", &HealthHandler{Checks: services.HealthChecks})

	gates := routeGates{
		auth:  RequireAuth(services.Auth),
		csrf:  CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain}),
		authz: AuthzConfig{Evaluator: services.Evaluator, Metrics: services.Metrics},
	}

	registerAuthRoutes(mux, &AuthHandlers{
		Svc:          services.Auth,
		Renderer:     services.Renderer,
		CookieDomain: services.CookieDomain,
		Logger:       services.Logger,
	}, gates)
	registerPermissionRoutes(mux, &PermissionHandlers{Evaluator: services.Evaluator}, gates)
	registerAccountRoutes(mux, &AccountHandlers{
		Directory: services.Accounts,
		Assigner:  services.Assigner,
		Sessions:  services.Sessions,
		Logger:    services.Logger,
	}, gates)
	registerAuditRoutes(mux, &AuditHandlers{Audit: services.Audit, Logger: services.Logger}, gates)

	if services.Renderer != nil {
		registerAdminRoutes(mux, &AdminHandlers{
			Renderer:     services.Renderer,
			Resolver:     services.Auth,
			Directory:    services.Accounts,
			Audit:        services.Audit,
			Evaluator:    services.Evaluator,
			Metrics:      services.Metrics,
			CookieDomain: services.CookieDomain,
			ContactURL:   services.ContactURL,
			Logger:       services.Logger,
		}, gates)
		mux.Handle("GET /{$}", http.RedirectHandler("/admin", http.StatusFound))
	}

	return BrowserDetection()(mux)
}

// routeGates bundles the middleware shared by route groups.
type routeGates struct {
	auth  func(http.Handler) http.Handler
	csrf  func(http.Handler) http.Handler
	authz AuthzConfig
}

// read resolves the principal and checks perm.
func (g routeGates) read(perm domainauth.Permission, h http.HandlerFunc) http.Handler {
	return g.auth(RequirePermission(g.authz, perm)(h))
}

// write is read plus CSRF validation, for state-changing routes.
func (g routeGates) write(perm domainauth.Permission, h http.HandlerFunc) http.Handler {
	return g.auth(g.csrf(RequirePermission(g.authz, perm)(h)))
}

func perm(res domainauth.Resource, act domainauth.Action) domainauth.Permission {
	return domainauth.Permission{Resource: res, Action: act}
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, g routeGates) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.Handle("GET /auth/signed-out", g.csrf(http.HandlerFunc(h.SignedOut)))
	mux.Handle("POST /auth/logout", g.csrf(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /auth/status", OptionalAuth(h.Svc)(http.HandlerFunc(h.Status)))
}

func registerPermissionRoutes(mux *http.ServeMux, h *PermissionHandlers, g routeGates) {
	mux.Handle("GET /api/roles", g.read(perm(domainauth.ResourceRoles, domainauth.ActionView), h.Roles))
	mux.Handle("GET /api/permissions/me", g.auth(http.HandlerFunc(h.Me)))
	// Check only reads, but takes a body, so it goes through CSRF like other POSTs.
	mux.Handle("POST /api/permissions/check", g.auth(g.csrf(http.HandlerFunc(h.Check))))
}

func registerAccountRoutes(mux *http.ServeMux, h *AccountHandlers, g routeGates) {
	view := perm(domainauth.ResourceRoles, domainauth.ActionView)
	assign := perm(domainauth.ResourceRoles, domainauth.ActionAssign)

	mux.Handle("GET /api/accounts", g.read(view, h.List))
	mux.Handle("GET /api/accounts/{uid}", g.read(view, h.Get))
	mux.Handle("PUT /api/accounts/{uid}/role", g.write(assign, h.AssignRole))
	mux.Handle("PUT /api/accounts/{uid}/active", g.write(assign, h.SetActive))
}

// registerAuditRoutes exposes the role change trail. It names actor and target
// emails, so it sits behind roles:view rather than reports:view.
func registerAuditRoutes(mux *http.ServeMux, h *AuditHandlers, g routeGates) {
	mux.Handle("GET /api/audit/roles", g.read(perm(domainauth.ResourceRoles, domainauth.ActionView), h.RoleChanges))
}

// registerAdminRoutes wires the HTML pages. Page handlers resolve the session
// through a guard themselves, so only CSRF wraps them (it issues the token the
// pages embed).
func registerAdminRoutes(mux *http.ServeMux, h *AdminHandlers, g routeGates) {
	mux.Handle("GET /admin", g.csrf(http.HandlerFunc(h.Home)))
	mux.Handle("GET /admin/{resource}", g.csrf(http.HandlerFunc(h.Resource)))
	mux.Handle("POST /admin/view-as", g.auth(g.csrf(http.HandlerFunc(h.SetViewAs))))
}
