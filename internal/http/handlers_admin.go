package httpx

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/http/ui/guard"
	"github.com/shepherd-church/shepherd/internal/http/ui/viewmodel"
	"github.com/shepherd-church/shepherd/internal/observability/metrics"
	"github.com/shepherd-church/shepherd/internal/observability/statsd"
	"github.com/shepherd-church/shepherd/internal/service"
)

const (
	// viewAsCookieName holds the super admin preview role. Only the admin
	// page handlers read it, and only to configure a guard.
	viewAsCookieName = "view_as"
	viewAsLifetime   = 12 * time.Hour
)

// AdminHandlers serves the guarded admin pages under /admin.
type AdminHandlers struct {
	Renderer     *TemplateRenderer
	Resolver     PrincipalResolver
	Directory    AccountDirectoryService
	Audit        RoleChangeLister
	Evaluator    *domainauth.Evaluator
	Metrics      statsd.Sink
	CookieDomain string
	ContactURL   string
	Logger       *slog.Logger
}

func (h *AdminHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AdminHandlers) evaluator() *domainauth.Evaluator {
	if h.Evaluator != nil {
		return h.Evaluator
	}
	return domainauth.DefaultEvaluator()
}

// viewAs reads the preview override, if any. Invalid values are ignored.
func viewAsFromRequest(r *http.Request) *guard.ViewAs {
	c, err := r.Cookie(viewAsCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	v, ok := guard.ParseViewAs(c.Value)
	if !ok {
		return nil
	}
	return &v
}

func (h *AdminHandlers) guardFor(r *http.Request, perm domainauth.Permission) *guard.Guard {
	opts := []guard.Option{guard.WithEvaluator(h.evaluator()), guard.WithContactURL(h.ContactURL)}
	if v := viewAsFromRequest(r); v != nil {
		opts = append(opts, guard.WithViewAs(*v))
	}
	return guard.New(perm, opts...)
}

// Home handles GET /admin: a landing page listing the areas the effective
// role can reach.
func (h *AdminHandlers) Home(w http.ResponseWriter, r *http.Request) {
	p, err := resolvePrincipal(r, h.Resolver)
	if err != nil {
		h.handleResolveError(w, r, err)
		return
	}
	effective, _ := guard.Effective(p, viewAsFromRequest(r))

	body, err := h.Renderer.RenderSection(PageHome, homeData{
		DisplayName: p.DisplayName,
		Resources:   h.reachable(effective),
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.Renderer.RenderPage(w, r, http.StatusOK, h.layout(r, p, effective, "", "Home"), body)
}

type homeData struct {
	DisplayName string
	Resources   []domainauth.Resource
}

// Resource handles GET /admin/{resource}. The guard resolves the session and
// evaluates resource:view; protected content is only built once it allows.
func (h *AdminHandlers) Resource(w http.ResponseWriter, r *http.Request) {
	res := domainauth.Resource(r.PathValue("resource"))
	if !res.Valid() {
		http.NotFound(w, r)
		return
	}

	g := h.guardFor(r, domainauth.Permission{Resource: res, Action: domainauth.ActionView})
	p, resolveErr := resolvePrincipal(r, h.Resolver)
	if resolveErr != nil && !apperrors.IsUnauthenticated(resolveErr) {
		h.handleResolveError(w, r, resolveErr)
		return
	}
	d := g.Resolve(guard.Resolution{Principal: p, Err: resolveErr})
	metrics.EmitDecision(h.Metrics, metrics.Decision{
		Resource: string(res),
		Action:   string(domainauth.ActionView),
		Role:     string(d.Role.Key),
		Allowed:  d.State == guard.Allowed,
	})
	if d.Unauthenticated {
		redirectToLogin(w, r)
		return
	}

	var content template.HTML
	if d.State == guard.Allowed {
		var err error
		content, err = h.resourceContent(r, g, res)
		if err != nil {
			WriteServiceError(w, r, h.logger(), err)
			return
		}
	}

	body, err := guard.RenderHTML(d, content)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "guard render failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if d.State == guard.Denied {
		status = http.StatusForbidden
	}
	h.Renderer.RenderPage(w, r, status, h.layout(r, p, d.Role.Key, res, ResourceLabel(res)), body)
}

func (h *AdminHandlers) resourceContent(r *http.Request, g *guard.Guard, res domainauth.Resource) (template.HTML, error) {
	switch res {
	case domainauth.ResourceRoles:
		return h.accountsContent(r, g)
	case domainauth.ResourceReports:
		// The role change trail also needs roles:view.
		if g.Can(domainauth.ResourceRoles, domainauth.ActionView) {
			return h.auditContent(r)
		}
	}
	return h.Renderer.RenderSection(PageResource, resourceData{
		Resource: res,
		Actions:  h.actionStates(g, res),
	})
}

type actionState struct {
	Action  domainauth.Action
	Allowed bool
}

type resourceData struct {
	Resource domainauth.Resource
	Actions  []actionState
}

// actionStates lists every action some role is granted on res, marking the
// ones the guard's effective role may perform.
func (h *AdminHandlers) actionStates(g *guard.Guard, res domainauth.Resource) []actionState {
	ev := h.evaluator()
	granted := make(map[domainauth.Action]bool)
	for _, info := range domainauth.Roles() {
		for _, act := range ev.Grants(info.Key)[res] {
			granted[act] = true
		}
	}
	out := make([]actionState, 0, len(granted))
	for _, act := range domainauth.Actions() {
		if act == domainauth.ActionView || !granted[act] {
			continue
		}
		out = append(out, actionState{Action: act, Allowed: g.Can(res, act)})
	}
	return out
}

type accountsData struct {
	Page       *service.AccountPage
	Roles      []domainauth.RoleInfo
	CanAssign  bool
	Pagination viewmodel.Pagination
}

func (h *AdminHandlers) accountsContent(r *http.Request, g *guard.Guard) (template.HTML, error) {
	if h.Directory == nil {
		return "", errors.New("account directory not configured")
	}
	opts, err := parseAccountListOptions(r)
	if err != nil {
		return "", err
	}
	page, err := h.Directory.List(r.Context(), opts)
	if err != nil {
		return "", err
	}
	return h.Renderer.RenderSection(PageAccounts, accountsData{
		Page:       page,
		Roles:      domainauth.Roles(),
		CanAssign:  g.Can(domainauth.ResourceRoles, domainauth.ActionAssign),
		Pagination: viewmodel.NewPagination(*r.URL, page.Limit, page.Offset, len(page.Accounts)),
	})
}

type auditData struct {
	Changes    []*model.RoleChange
	Pagination viewmodel.Pagination
}

func (h *AdminHandlers) auditContent(r *http.Request) (template.HTML, error) {
	if h.Audit == nil {
		return "", errors.New("audit trail not configured")
	}
	opts, err := parseRoleChangeListOptions(r)
	if err != nil {
		return "", err
	}
	changes, err := h.Audit.ListRoleChanges(r.Context(), opts)
	if err != nil {
		return "", err
	}
	return h.Renderer.RenderSection(PageAudit, auditData{
		Changes:    changes,
		Pagination: viewmodel.NewPagination(*r.URL, opts.Limit, opts.Offset, len(changes)),
	})
}

// SetViewAs handles POST /admin/view-as (form field "role"). Only a super
// admin may set the override; an empty role clears it.
func (h *AdminHandlers) SetViewAs(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteServiceError(w, r, h.logger(), errAuthRequired)
		return
	}
	if !p.IsSuperAdmin() {
		WriteServiceError(w, r, h.logger(), apperrors.Forbidden("only a super admin may preview other roles"))
		return
	}

	raw := r.FormValue("role")
	switch {
	case raw == "" || raw == string(p.Role):
		clearHTTPOnlyCookie(w, r, viewAsCookieName, h.CookieDomain)
	default:
		v, valid := guard.ParseViewAs(raw)
		if !valid {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: errCodeValidation,
				Err:     errors.New("role must be one of: " + roleKeys()),
				Field:   "role",
			})
			return
		}
		setHTTPOnlyCookie(w, r, cookieSpec{
			Name:   viewAsCookieName,
			Value:  string(v.Role),
			Domain: h.CookieDomain,
			MaxAge: viewAsLifetime,
		})
	}
	h.logger().InfoContext(r.Context(), "view-as changed", "uid", p.UserID, "role", raw)

	if IsHTMX(r) {
		SetHXRefresh(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	back := "/admin"
	if ref := safeRedirectFromURL(r.Header.Get("Referer")); ref != "" && ref != "/" {
		back = ref
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (h *AdminHandlers) handleResolveError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.IsUnauthenticated(err) {
		redirectToLogin(w, r)
		return
	}
	h.logger().ErrorContext(r.Context(), "resolve principal failed", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *AdminHandlers) reachable(role domainauth.Role) []domainauth.Resource {
	ev := h.evaluator()
	var out []domainauth.Resource
	for _, res := range domainauth.Resources() {
		if ev.HasAnyPermission(role, res) {
			out = append(out, res)
		}
	}
	return out
}

// layout builds the page chrome. The badge shows the account's own role; the
// navigation follows the effective role so a preview is faithful.
func (h *AdminHandlers) layout(
	r *http.Request,
	p *domainauth.Principal,
	effective domainauth.Role,
	current domainauth.Resource,
	title string,
) viewmodel.Layout {
	l := viewmodel.Layout{
		Title:       title,
		CurrentPage: string(current),
		CSRFToken:   GetCSRFToken(r),
	}
	if p == nil {
		return l
	}
	l.IsAuthenticated = true
	l.User = &viewmodel.User{DisplayName: p.DisplayName, Email: p.Email, Role: p.Role.Info()}
	for _, res := range h.reachable(effective) {
		l.Nav = append(l.Nav, viewmodel.NavItem{
			Label:  ResourceLabel(res),
			URL:    "/admin/" + string(res),
			Active: res == current,
		})
	}
	if p.IsSuperAdmin() {
		picker := &viewmodel.ViewAsPicker{Roles: domainauth.Roles()}
		if role, viewing := guard.Effective(p, viewAsFromRequest(r)); viewing {
			picker.Current = role
		}
		l.ViewAs = picker
	}
	return l
}
