package auth

import "sort"

// Role represents an authorization tier assigned to an account.
// The string form is what we persist on the account record.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleProgramme   Role = "programme"
	RoleTreasury    Role = "treasury"
	RoleSecretariat Role = "secretariat"
	RoleUser        Role = "user"
)

// DefaultRole is assigned to every newly created account.
const DefaultRole = RoleUser

// neutralColor is used for roles we do not recognise.
const neutralColor = "#6b7280"

// RoleInfo carries the display metadata and hierarchy level of a role.
type RoleInfo struct {
	Key         Role   `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Level       int    `json:"level"`
}

var roleRegistry = map[Role]RoleInfo{
	RoleSuperAdmin: {
		Key:         RoleSuperAdmin,
		Label:       "Super Admin",
		Description: "Full access, including role assignment and system settings.",
		Color:       "#7c3aed",
		Level:       100,
	},
	RoleAdmin: {
		Key:         RoleAdmin,
		Label:       "Admin",
		Description: "Manages members, ministries, programmes and announcements.",
		Color:       "#2563eb",
		Level:       80,
	},
	RoleProgramme: {
		Key:         RoleProgramme,
		Label:       "Programme",
		Description: "Plans and publishes programmes and their announcements.",
		Color:       "#059669",
		Level:       60,
	},
	RoleTreasury: {
		Key:         RoleTreasury,
		Label:       "Treasury",
		Description: "Read access to members and programmes, exports financial reports.",
		Color:       "#d97706",
		Level:       60,
	},
	RoleSecretariat: {
		Key:         RoleSecretariat,
		Label:       "Secretariat",
		Description: "Keeps member and first-timer records up to date.",
		Color:       "#0891b2",
		Level:       40,
	},
	RoleUser: {
		Key:         RoleUser,
		Label:       "User",
		Description: "Signed-in member without administrative access.",
		Color:       neutralColor,
		Level:       10,
	},
}

// Valid reports whether r is one of the registered roles.
func (r Role) Valid() bool {
	_, ok := roleRegistry[r]
	return ok
}

// Info returns the registry metadata for r, or the fallback for unknown roles.
func (r Role) Info() RoleInfo { return LookupRole(string(r)) }

// ParseRole maps an arbitrary string onto the closed role set. Matching is
// exact: no trimming and no case folding.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// LookupRole returns metadata for key. Unknown keys never fail: the label is
// the raw key, the color is neutral gray and the level is zero.
func LookupRole(key string) RoleInfo {
	if info, ok := roleRegistry[Role(key)]; ok {
		return info
	}
	return RoleInfo{Key: Role(key), Label: key, Color: neutralColor, Level: 0}
}

// Roles returns every registered role ordered from most to least privileged.
// Roles sharing a level are ordered by key.
func Roles() []RoleInfo {
	out := make([]RoleInfo, 0, len(roleRegistry))
	for _, info := range roleRegistry {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// RoleLevel returns the hierarchy level of role, or 0 for unknown roles so
// that they always compare as the lowest.
func RoleLevel(role Role) int {
	if info, ok := roleRegistry[role]; ok {
		return info.Level
	}
	return 0
}
