package guard

import (
	"bytes"
	"errors"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

var membersExport = domainauth.Permission{Resource: domainauth.ResourceMembers, Action: domainauth.ActionExport}

func principal(role domainauth.Role) *domainauth.Principal {
	return &domainauth.Principal{UserID: "u-" + string(role), DisplayName: "Test User", Role: role}
}

func TestGuard_StartsLoading(t *testing.T) {
	g := New(membersExport)
	assert.Equal(t, Loading, g.State())
	assert.Equal(t, membersExport, g.Decision().Required)
	assert.False(t, g.Can(domainauth.ResourceMembers, domainauth.ActionView))
	assert.False(t, g.CanAny(domainauth.ResourceMembers))
}

func TestGuard_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		res      Resolution
		want     State
		unauthed bool
	}{
		{name: "admin may export members", res: Resolution{Principal: principal(domainauth.RoleAdmin)}, want: Allowed},
		{name: "programme may not export members", res: Resolution{Principal: principal(domainauth.RoleProgramme)}, want: Denied},
		{name: "user has no grants", res: Resolution{Principal: principal(domainauth.RoleUser)}, want: Denied},
		{name: "resolution error", res: Resolution{Err: errors.New("session expired")}, want: Denied, unauthed: true},
		{name: "no principal", res: Resolution{}, want: Denied, unauthed: true},
		{name: "unknown role", res: Resolution{Principal: principal("pastor")}, want: Denied, unauthed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(membersExport).Resolve(tt.res)
			assert.Equal(t, tt.want, d.State)
			assert.Equal(t, tt.unauthed, d.Unauthenticated)
			assert.Equal(t, membersExport, d.Required)
			assert.False(t, d.ViewingAs)
		})
	}
}

func TestGuard_ResolveIsTerminal(t *testing.T) {
	g := New(membersExport)
	first := g.Resolve(Resolution{Principal: principal(domainauth.RoleProgramme)})
	require.Equal(t, Denied, first.State)

	second := g.Resolve(Resolution{Principal: principal(domainauth.RoleAdmin)})
	assert.Equal(t, Denied, second.State)
	assert.Equal(t, first, g.Decision())
}

func TestGuard_NavigateReturnsFreshLoadingGuard(t *testing.T) {
	g := New(membersExport, WithViewAs(ViewAs{Role: domainauth.RoleTreasury}))
	g.Resolve(Resolution{Principal: principal(domainauth.RoleSuperAdmin)})
	require.Equal(t, Denied, g.State())

	reports := domainauth.Permission{Resource: domainauth.ResourceReports, Action: domainauth.ActionExport}
	next := g.Navigate(reports)
	assert.Equal(t, Loading, next.State())
	assert.Equal(t, Denied, g.State(), "navigating must not touch the old guard")

	d := next.Resolve(Resolution{Principal: principal(domainauth.RoleSuperAdmin)})
	assert.Equal(t, Allowed, d.State)
	assert.True(t, d.ViewingAs, "view-as carries over to the next view")
}

func TestGuard_ViewAs(t *testing.T) {
	t.Run("super admin previews a lower role", func(t *testing.T) {
		g := New(membersExport, WithViewAs(ViewAs{Role: domainauth.RoleProgramme}))
		d := g.Resolve(Resolution{Principal: principal(domainauth.RoleSuperAdmin)})
		assert.Equal(t, Denied, d.State)
		assert.True(t, d.ViewingAs)
		assert.Equal(t, domainauth.RoleProgramme, d.Role.Key)
		assert.Equal(t, domainauth.RoleSuperAdmin, d.ActualRole.Key)
	})

	t.Run("ignored for anyone but super admin", func(t *testing.T) {
		g := New(membersExport, WithViewAs(ViewAs{Role: domainauth.RoleSuperAdmin}))
		d := g.Resolve(Resolution{Principal: principal(domainauth.RoleProgramme)})
		assert.Equal(t, Denied, d.State)
		assert.False(t, d.ViewingAs)
		assert.Equal(t, domainauth.RoleProgramme, d.Role.Key)
	})

	t.Run("ignored for an unknown role", func(t *testing.T) {
		g := New(membersExport, WithViewAs(ViewAs{Role: "pastor"}))
		d := g.Resolve(Resolution{Principal: principal(domainauth.RoleSuperAdmin)})
		assert.Equal(t, Allowed, d.State)
		assert.False(t, d.ViewingAs)
	})

	t.Run("secondary checks use the previewed role", func(t *testing.T) {
		view := domainauth.Permission{Resource: domainauth.ResourceMembers, Action: domainauth.ActionView}
		g := New(view, WithViewAs(ViewAs{Role: domainauth.RoleSecretariat}))
		g.Resolve(Resolution{Principal: principal(domainauth.RoleSuperAdmin)})
		assert.True(t, g.Can(domainauth.ResourceMembers, domainauth.ActionEdit))
		assert.False(t, g.Can(domainauth.ResourceMembers, domainauth.ActionDelete))
		assert.False(t, g.CanAny(domainauth.ResourceSettings))
	})
}

func TestParseViewAs(t *testing.T) {
	v, ok := ParseViewAs("treasury")
	require.True(t, ok)
	assert.Equal(t, domainauth.RoleTreasury, v.Role)

	_, ok = ParseViewAs("Treasury")
	assert.False(t, ok)
	_, ok = ParseViewAs("")
	assert.False(t, ok)
}

const protected = template.HTML(`<table id="protected-members"></table>`)

func TestRender_LoadingRendersNoBranchContent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, New(membersExport).Decision(), protected))

	out := buf.String()
	assert.Contains(t, out, `data-guard-state="loading"`)
	assert.NotContains(t, out, "protected-members")
	assert.NotContains(t, out, "Access denied")
	assert.NotContains(t, out, "contact-admin")
}

func TestRender_Allowed(t *testing.T) {
	d := New(membersExport).Resolve(Resolution{Principal: principal(domainauth.RoleAdmin)})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, d, protected))
	assert.Contains(t, buf.String(), "protected-members")
	assert.NotContains(t, buf.String(), "Access denied")
}

func TestRender_Denied(t *testing.T) {
	g := New(membersExport, WithContactURL("mailto:office@example.org"))
	d := g.Resolve(Resolution{Principal: principal(domainauth.RoleProgramme)})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, d, protected))

	out := buf.String()
	assert.NotContains(t, out, "protected-members")
	assert.Contains(t, out, "Access denied")
	assert.Contains(t, out, "export members")
	assert.Contains(t, out, "Programme")
	assert.Contains(t, out, "mailto:office@example.org")
}

func TestRender_DeniedUnauthenticated(t *testing.T) {
	d := New(membersExport).Resolve(Resolution{Err: errors.New("no session")})

	html, err := RenderHTML(d, protected)
	require.NoError(t, err)
	assert.Contains(t, string(html), "sign in")
	assert.NotContains(t, string(html), "protected-members")
}

func TestEffective(t *testing.T) {
	role, viewing := Effective(nil, &ViewAs{Role: domainauth.RoleAdmin})
	assert.Empty(t, role)
	assert.False(t, viewing)

	role, viewing = Effective(principal(domainauth.RoleSuperAdmin), nil)
	assert.Equal(t, domainauth.RoleSuperAdmin, role)
	assert.False(t, viewing)

	role, viewing = Effective(principal(domainauth.RoleSuperAdmin), &ViewAs{Role: domainauth.RoleSuperAdmin})
	assert.Equal(t, domainauth.RoleSuperAdmin, role)
	assert.False(t, viewing)

	role, viewing = Effective(principal(domainauth.RoleSuperAdmin), &ViewAs{Role: domainauth.RoleUser})
	assert.Equal(t, domainauth.RoleUser, role)
	assert.True(t, viewing)

	role, viewing = Effective(principal(domainauth.RoleAdmin), &ViewAs{Role: domainauth.RoleUser})
	assert.Equal(t, domainauth.RoleAdmin, role)
	assert.False(t, viewing)
}
