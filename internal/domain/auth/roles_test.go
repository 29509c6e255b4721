package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles_OrderedByLevel(t *testing.T) {
	roles := Roles()
	require.Len(t, roles, 6)

	keys := make([]Role, len(roles))
	for i, r := range roles {
		keys[i] = r.Key
	}
	// programme and treasury share level 60 and fall back to key order.
	assert.Equal(t, []Role{
		RoleSuperAdmin, RoleAdmin, RoleProgramme, RoleTreasury, RoleSecretariat, RoleUser,
	}, keys)
}

func TestLookupRole(t *testing.T) {
	tests := []struct {
		key   string
		label string
		color string
		level int
	}{
		{key: "super_admin", label: "Super Admin", color: "#7c3aed", level: 100},
		{key: "admin", label: "Admin", color: "#2563eb", level: 80},
		{key: "programme", label: "Programme", color: "#059669", level: 60},
		{key: "treasury", label: "Treasury", color: "#d97706", level: 60},
		{key: "secretariat", label: "Secretariat", color: "#0891b2", level: 40},
		{key: "user", label: "User", color: "#6b7280", level: 10},
		{key: "pastor", label: "pastor", color: "#6b7280", level: 0},
		{key: "", label: "", color: "#6b7280", level: 0},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			info := LookupRole(tt.key)
			assert.Equal(t, Role(tt.key), info.Key)
			assert.Equal(t, tt.label, info.Label)
			assert.Equal(t, tt.color, info.Color)
			assert.Equal(t, tt.level, info.Level)
			assert.Equal(t, tt.level, RoleLevel(Role(tt.key)))
		})
	}
}

func TestParseRole_ExactMatchOnly(t *testing.T) {
	r, ok := ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	for _, in := range []string{"Admin", " admin", "admin ", "ADMIN", "superadmin", "guest", ""} {
		r, ok := ParseRole(in)
		assert.False(t, ok, in)
		assert.Empty(t, r, in)
	}
}

func TestRoleInfo_Unknown(t *testing.T) {
	assert.False(t, Role("deacon").Valid())
	assert.Equal(t, "deacon", Role("deacon").Info().Label)
	assert.Less(t, RoleLevel("deacon"), RoleLevel(RoleUser))
}
