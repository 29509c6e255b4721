package auth

import (
	"errors"
	"fmt"
)

// Matrix is the static policy table: role -> resource -> granted actions.
// A missing resource entry, or an action absent from the list, means deny.
type Matrix map[Role]map[Resource][]Action

// defaultMatrix is the curated policy. It is never handed out directly.
var defaultMatrix = Matrix{
	RoleSuperAdmin: {
		ResourceMembers:       {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExport},
		ResourceProgrammes:    {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionPublish},
		ResourceBands:         {ActionView, ActionCreate, ActionEdit, ActionDelete},
		ResourceDepartments:   {ActionView, ActionCreate, ActionEdit, ActionDelete},
		ResourceAnnouncements: {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionPublish},
		ResourceFirstTimers:   {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExport},
		ResourceRoles:         {ActionView, ActionAssign},
		ResourceSettings:      {ActionView, ActionEdit},
		ResourceReports:       {ActionView, ActionExport},
	},
	RoleAdmin: {
		ResourceMembers:       {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionExport},
		ResourceProgrammes:    {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionPublish},
		ResourceBands:         {ActionView, ActionCreate, ActionEdit, ActionDelete},
		ResourceDepartments:   {ActionView, ActionCreate, ActionEdit, ActionDelete},
		ResourceAnnouncements: {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionPublish},
		ResourceFirstTimers:   {ActionView, ActionCreate, ActionEdit, ActionExport},
		ResourceRoles:         {ActionView},
		ResourceSettings:      {ActionView},
		ResourceReports:       {ActionView, ActionExport},
	},
	RoleProgramme: {
		ResourceMembers:       {ActionView},
		ResourceProgrammes:    {ActionView, ActionCreate, ActionEdit, ActionPublish},
		ResourceBands:         {ActionView},
		ResourceDepartments:   {ActionView},
		ResourceAnnouncements: {ActionView, ActionCreate, ActionEdit},
		ResourceReports:       {ActionView},
	},
	RoleTreasury: {
		ResourceMembers:    {ActionView},
		ResourceProgrammes: {ActionView},
		ResourceReports:    {ActionView, ActionExport},
	},
	RoleSecretariat: {
		ResourceMembers:       {ActionView, ActionCreate, ActionEdit},
		ResourceBands:         {ActionView},
		ResourceDepartments:   {ActionView},
		ResourceAnnouncements: {ActionView, ActionCreate},
		ResourceFirstTimers:   {ActionView, ActionCreate, ActionEdit, ActionExport},
		ResourceReports:       {ActionView},
	},
	RoleUser: {},
}

// DefaultMatrix returns a deep copy of the built-in policy table.
func DefaultMatrix() Matrix { return defaultMatrix.Clone() }

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for role, grants := range m {
		out[role] = cloneGrants(grants)
	}
	return out
}

func cloneGrants(grants map[Resource][]Action) map[Resource][]Action {
	out := make(map[Resource][]Action, len(grants))
	for res, acts := range grants {
		out[res] = append([]Action(nil), acts...)
	}
	return out
}

// Validate checks that m covers exactly the registered roles and only names
// known resources and actions. All problems are reported together.
func (m Matrix) Validate() error {
	var errs []error
	for _, info := range Roles() {
		if _, ok := m[info.Key]; !ok {
			errs = append(errs, fmt.Errorf("matrix: missing entry for role %q", info.Key))
		}
	}
	for role, grants := range m {
		if !role.Valid() {
			errs = append(errs, fmt.Errorf("matrix: unknown role %q", role))
			continue
		}
		for res, acts := range grants {
			if !res.Valid() {
				errs = append(errs, fmt.Errorf("matrix: role %q: unknown resource %q", role, res))
				continue
			}
			for _, act := range acts {
				if !act.Valid() {
					errs = append(errs, fmt.Errorf("matrix: role %q: resource %q: unknown action %q", role, res, act))
				}
			}
		}
	}
	return errors.Join(errs...)
}
