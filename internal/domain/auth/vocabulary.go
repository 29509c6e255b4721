package auth

import (
	"fmt"
	"strings"
)

// Resource is a protected group of domain objects.
type Resource string

const (
	ResourceMembers       Resource = "members"
	ResourceProgrammes    Resource = "programmes"
	ResourceBands         Resource = "bands"
	ResourceDepartments   Resource = "departments"
	ResourceAnnouncements Resource = "announcements"
	ResourceFirstTimers   Resource = "firstTimers"
	ResourceRoles         Resource = "roles"
	ResourceSettings      Resource = "settings"
	ResourceReports       Resource = "reports"
)

var allResources = []Resource{
	ResourceMembers,
	ResourceProgrammes,
	ResourceBands,
	ResourceDepartments,
	ResourceAnnouncements,
	ResourceFirstTimers,
	ResourceRoles,
	ResourceSettings,
	ResourceReports,
}

// Action is an operation that can be performed on a Resource.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionExport  Action = "export"
	ActionPublish Action = "publish"
	ActionAssign  Action = "assign"
)

var allActions = []Action{
	ActionView,
	ActionCreate,
	ActionEdit,
	ActionDelete,
	ActionExport,
	ActionPublish,
	ActionAssign,
}

// Resources returns the closed set of protected resources.
func Resources() []Resource { return append([]Resource(nil), allResources...) }

// Actions returns the closed set of actions.
func Actions() []Action { return append([]Action(nil), allActions...) }

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	for _, known := range allResources {
		if r == known {
			return true
		}
	}
	return false
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, known := range allActions {
		if a == known {
			return true
		}
	}
	return false
}

// Permission is a (resource, action) pair used as an evaluation argument.
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// String renders the permission as "resource:action".
func (p Permission) String() string { return string(p.Resource) + ":" + string(p.Action) }

// ParsePermission parses "resource:action" and validates both halves.
func ParsePermission(s string) (Permission, error) {
	res, act, ok := strings.Cut(s, ":")
	if !ok {
		return Permission{}, fmt.Errorf("permission %q: expected resource:action", s)
	}
	p := Permission{Resource: Resource(res), Action: Action(act)}
	if !p.Resource.Valid() {
		return Permission{}, fmt.Errorf("permission %q: unknown resource %q", s, res)
	}
	if !p.Action.Valid() {
		return Permission{}, fmt.Errorf("permission %q: unknown action %q", s, act)
	}
	return p, nil
}
