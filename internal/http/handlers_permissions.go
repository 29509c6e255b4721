package httpx

import (
	"errors"
	"net/http"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

// maxPermissionChecks bounds a single /api/permissions/check request.
const maxPermissionChecks = 64

// PermissionHandlers exposes the role registry and evaluator to clients that
// render navigation and conditional controls.
type PermissionHandlers struct {
	Evaluator *domainauth.Evaluator
}

func (h *PermissionHandlers) evaluator() *domainauth.Evaluator {
	if h.Evaluator != nil {
		return h.Evaluator
	}
	return domainauth.DefaultEvaluator()
}

type roleGrants struct {
	domainauth.RoleInfo
	Grants map[domainauth.Resource][]domainauth.Action `json:"grants"`
}

// Roles handles GET /api/roles: every registered role with its grants, most
// privileged first.
func (h *PermissionHandlers) Roles(w http.ResponseWriter, _ *http.Request) {
	ev := h.evaluator()
	infos := domainauth.Roles()
	out := make([]roleGrants, 0, len(infos))
	for _, info := range infos {
		out = append(out, roleGrants{RoleInfo: info, Grants: ev.Grants(info.Key)})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"roles": out})
}

type myPermissions struct {
	Role      domainauth.RoleInfo                         `json:"role"`
	Grants    map[domainauth.Resource][]domainauth.Action `json:"grants"`
	Resources []domainauth.Resource                       `json:"resources"`
}

// Me handles GET /api/permissions/me for the resolved principal.
func (h *PermissionHandlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteServiceError(w, r, nil, errAuthRequired)
		return
	}
	ev := h.evaluator()
	out := myPermissions{
		Role:      p.Role.Info(),
		Grants:    ev.Grants(p.Role),
		Resources: []domainauth.Resource{},
	}
	for _, res := range domainauth.Resources() {
		if ev.HasAnyPermission(p.Role, res) {
			out.Resources = append(out.Resources, res)
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

type checkRequest struct {
	Permissions []string `json:"permissions"`
}

type checkResult struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// Check handles POST /api/permissions/check with {"permissions": ["members:view", ...]}.
// Answers are for the caller's own resolved role; the body cannot name a role.
func (h *PermissionHandlers) Check(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteServiceError(w, r, nil, errAuthRequired)
		return
	}

	var req checkRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Permissions) == 0 || len(req.Permissions) > maxPermissionChecks {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: errCodeValidation,
			Err:     errors.New("permissions must list between 1 and 64 entries"),
			Field:   "permissions",
		})
		return
	}

	ev := h.evaluator()
	results := make([]checkResult, 0, len(req.Permissions))
	for _, raw := range req.Permissions {
		perm, err := domainauth.ParsePermission(raw)
		if err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: errCodeValidation, Err: err, Field: "permissions"})
			return
		}
		results = append(results, checkResult{
			Permission: perm.String(),
			Allowed:    ev.HasPermission(p.Role, perm.Resource, perm.Action),
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"role": p.Role, "results": results})
}
