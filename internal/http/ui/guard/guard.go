// Package guard gates rendering of admin views on the permission evaluator.
//
// A Guard starts in Loading and moves to Allowed or Denied exactly once, when
// the session for the view resolves. It only re-enters Loading through
// Navigate, which models mounting a new guarded view. While Loading, nothing
// protected is rendered.
//
// The "view as" override lives here and nowhere else: it is a presentation
// aid for super admins previewing what another role would see, and it never
// reaches domain/auth.Principal or any server-side authorization check.
package guard

import (
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

// State is the lifecycle position of a Guard.
type State int

const (
	Loading State = iota
	Allowed
	Denied
)

func (s State) String() string {
	switch s {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "loading"
	}
}

// Resolution is the outcome of resolving the session behind a guarded view.
type Resolution struct {
	Principal *domainauth.Principal
	Err       error
}

// ViewAs substitutes Role into the evaluation of a guarded view.
type ViewAs struct {
	Role domainauth.Role
}

// ParseViewAs validates s against the role registry.
func ParseViewAs(s string) (ViewAs, bool) {
	role, ok := domainauth.ParseRole(s)
	if !ok {
		return ViewAs{}, false
	}
	return ViewAs{Role: role}, true
}

// Decision is the renderable result of a Guard.
type Decision struct {
	State    State
	Required domainauth.Permission

	// Role is the role the permission was evaluated against; ActualRole is
	// the one stored on the account. They differ only while viewing as.
	Role       domainauth.RoleInfo
	ActualRole domainauth.RoleInfo
	ViewingAs  bool

	// Unauthenticated is set when the session did not resolve at all.
	Unauthenticated bool
	DisplayName     string

	// ContactURL backs the "contact an administrator" link on denial.
	ContactURL string
}

// Guard evaluates one required permission for one mounted view.
type Guard struct {
	required  domainauth.Permission
	evaluator *domainauth.Evaluator
	viewAs    *ViewAs
	contact   string
	decision  Decision
}

// Option configures a Guard.
type Option func(*Guard)

// WithEvaluator evaluates against ev instead of the built-in matrix.
func WithEvaluator(ev *domainauth.Evaluator) Option {
	return func(g *Guard) {
		if ev != nil {
			g.evaluator = ev
		}
	}
}

// WithViewAs requests a role override. It is applied at resolve time and only
// when the resolved principal is a super admin.
func WithViewAs(v ViewAs) Option {
	return func(g *Guard) {
		g.viewAs = &v
	}
}

// WithContactURL sets the link offered on the denial view.
func WithContactURL(u string) Option {
	return func(g *Guard) {
		if u != "" {
			g.contact = u
		}
	}
}

// New returns a Guard in the Loading state.
func New(required domainauth.Permission, opts ...Option) *Guard {
	g := &Guard{
		required:  required,
		evaluator: domainauth.DefaultEvaluator(),
		contact:   DefaultContactURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.decision = g.loading()
	return g
}

// State reports the current state.
func (g *Guard) State() State { return g.decision.State }

// Decision returns the current decision.
func (g *Guard) Decision() Decision { return g.decision }

// Resolve moves a Loading guard to Allowed or Denied. Once resolved the
// decision is terminal; later calls return it unchanged.
func (g *Guard) Resolve(res Resolution) Decision {
	if g.decision.State != Loading {
		return g.decision
	}

	d := g.loading()
	d.State = Denied
	p := res.Principal
	if res.Err != nil || p == nil || !p.Role.Valid() {
		d.Unauthenticated = true
		d.Role = domainauth.LookupRole("")
		d.ActualRole = d.Role
		g.decision = d
		return d
	}

	effective := g.effectiveRole(p)
	d.Role = effective.Info()
	d.ActualRole = p.Role.Info()
	d.ViewingAs = effective != p.Role
	d.DisplayName = p.DisplayName
	if g.evaluator.HasPermission(effective, g.required.Resource, g.required.Action) {
		d.State = Allowed
	}
	g.decision = d
	return d
}

// Can evaluates an additional permission against the same effective role as
// the guard's decision. It is false until the guard has resolved to Allowed.
func (g *Guard) Can(res domainauth.Resource, act domainauth.Action) bool {
	if g.decision.State != Allowed {
		return false
	}
	return g.evaluator.HasPermission(g.decision.Role.Key, res, act)
}

// CanAny is Can for any action on res.
func (g *Guard) CanAny(res domainauth.Resource) bool {
	if g.decision.State != Allowed {
		return false
	}
	return g.evaluator.HasAnyPermission(g.decision.Role.Key, res)
}

// Navigate returns a fresh Loading guard for a newly mounted view, keeping the
// evaluator and any view-as request.
func (g *Guard) Navigate(required domainauth.Permission) *Guard {
	ng := &Guard{
		required:  required,
		evaluator: g.evaluator,
		viewAs:    g.viewAs,
		contact:   g.contact,
	}
	ng.decision = ng.loading()
	return ng
}

func (g *Guard) loading() Decision {
	return Decision{State: Loading, Required: g.required, ContactURL: g.contact}
}

func (g *Guard) effectiveRole(p *domainauth.Principal) domainauth.Role {
	role, _ := Effective(p, g.viewAs)
	return role
}

// Effective returns the role a view should be evaluated against and whether
// an override is in force. The override applies only to a super admin and
// only for a registered role. A nil principal yields the empty role.
func Effective(p *domainauth.Principal, v *ViewAs) (domainauth.Role, bool) {
	if p == nil {
		return "", false
	}
	if v == nil || !p.IsSuperAdmin() || !v.Role.Valid() || v.Role == p.Role {
		return p.Role, false
	}
	return v.Role, true
}
