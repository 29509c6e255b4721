package auth

import (
	"fmt"
	"slices"

	apperrors "github.com/shepherd-church/shepherd/internal/errors"
)

// PeerPolicy decides whether a super_admin may change another super_admin.
type PeerPolicy string

const (
	// PeerAllowed lets super_admins modify each other. Self-modification is
	// still rejected by the role assignment workflow.
	PeerAllowed PeerPolicy = "allowed"
	// PeerDenied makes existing super_admins immutable through the API.
	PeerDenied PeerPolicy = "denied"
)

// ParsePeerPolicy maps a config string onto a PeerPolicy.
func ParsePeerPolicy(s string) (PeerPolicy, error) {
	switch PeerPolicy(s) {
	case PeerAllowed, PeerDenied:
		return PeerPolicy(s), nil
	case "":
		return PeerAllowed, nil
	default:
		return "", fmt.Errorf("unknown super admin peer policy %q (want %q or %q)", s, PeerAllowed, PeerDenied)
	}
}

// Policy holds the evaluator knobs that are not part of the matrix.
type Policy struct {
	SuperAdminPeerModification PeerPolicy
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy { return Policy{SuperAdminPeerModification: PeerAllowed} }

// Evaluator answers permission questions against an immutable matrix.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	matrix Matrix
	policy Policy
}

// NewEvaluator validates m and returns an evaluator over a private copy of it.
func NewEvaluator(m Matrix, p Policy) (*Evaluator, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if p.SuperAdminPeerModification == "" {
		p.SuperAdminPeerModification = PeerAllowed
	}
	return &Evaluator{matrix: m.Clone(), policy: p}, nil
}

// Policy returns the evaluator's policy.
func (e *Evaluator) Policy() Policy { return e.policy }

// HasPermission reports whether role is granted act on res. Empty, unknown
// and matrix-absent roles are denied.
func (e *Evaluator) HasPermission(role Role, res Resource, act Action) bool {
	grants, ok := e.matrix[role]
	if !ok {
		return false
	}
	return slices.Contains(grants[res], act)
}

// HasAnyPermission reports whether role is granted at least one action on res.
func (e *Evaluator) HasAnyPermission(role Role, res Resource) bool {
	grants, ok := e.matrix[role]
	if !ok {
		return false
	}
	return len(grants[res]) > 0
}

// CanModifyRole reports whether a holder of modifier may change an account
// whose role is target, or grant target to someone. Only super_admin may
// modify roles at all.
func (e *Evaluator) CanModifyRole(modifier, target Role) bool {
	if modifier != RoleSuperAdmin || !target.Valid() {
		return false
	}
	if target == RoleSuperAdmin {
		return e.policy.SuperAdminPeerModification == PeerAllowed
	}
	return true
}

// RequirePermission returns nil when role holds res:act. Roles outside the
// registry are treated as unauthenticated.
func (e *Evaluator) RequirePermission(role Role, res Resource, act Action) error {
	if !role.Valid() {
		return apperrors.Unauthenticated("authentication required")
	}
	if !e.HasPermission(role, res, act) {
		return apperrors.Forbiddenf("insufficient permissions to %s %s", act, res)
	}
	return nil
}

// Grants returns a copy of the resource grants for role. Unknown roles get an
// empty map.
func (e *Evaluator) Grants(role Role) map[Resource][]Action {
	return cloneGrants(e.matrix[role])
}

var defaultEvaluator = mustEvaluator(DefaultMatrix(), DefaultPolicy())

func mustEvaluator(m Matrix, p Policy) *Evaluator {
	e, err := NewEvaluator(m, p)
	if err != nil {
		panic(err)
	}
	return e
}

// DefaultEvaluator returns the evaluator over the built-in matrix and policy.
func DefaultEvaluator() *Evaluator { return defaultEvaluator }

// HasPermission evaluates against the built-in matrix.
func HasPermission(role Role, res Resource, act Action) bool {
	return defaultEvaluator.HasPermission(role, res, act)
}

// HasAnyPermission evaluates against the built-in matrix.
func HasAnyPermission(role Role, res Resource) bool {
	return defaultEvaluator.HasAnyPermission(role, res)
}

// CanModifyRole evaluates with the default peer policy.
func CanModifyRole(modifier, target Role) bool {
	return defaultEvaluator.CanModifyRole(modifier, target)
}

// RequirePermission evaluates against the built-in matrix.
func RequirePermission(role Role, res Resource, act Action) error {
	return defaultEvaluator.RequirePermission(role, res, act)
}
