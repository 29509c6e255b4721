package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/http/validation"
	"github.com/shepherd-church/shepherd/internal/service"
)

// AccountDirectoryService is the read side of account administration.
type AccountDirectoryService interface {
	List(ctx context.Context, opts model.AccountListOptions) (*service.AccountPage, error)
	Get(ctx context.Context, uid string) (*service.AccountView, error)
}

// RoleAssigner applies role and activation changes on behalf of a principal.
type RoleAssigner interface {
	AssignRole(ctx context.Context, actor domainauth.Principal, in service.AssignRoleInput) (*service.AssignmentResult, error)
	SetAccountActive(
		ctx context.Context,
		actor domainauth.Principal,
		uid string,
		active bool,
	) (*service.AssignmentResult, error)
}

// SessionRevoker ends every session held by an account.
type SessionRevoker interface {
	DeleteByUser(ctx context.Context, uid string) (int, error)
}

// AccountHandlers serves /api/accounts.
type AccountHandlers struct {
	Directory AccountDirectoryService
	Assigner  RoleAssigner
	Sessions  SessionRevoker // optional; sessions of deactivated accounts are revoked when set
	Logger    *slog.Logger
}

func (h *AccountHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// List handles GET /api/accounts?role=&active=&q=&limit=&offset=.
func (h *AccountHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseAccountListOptions(r)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	page, err := h.Directory.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// Get handles GET /api/accounts/{uid}.
func (h *AccountHandlers) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Directory.Get(r.Context(), r.PathValue("uid"))
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// AssignRole handles PUT /api/accounts/{uid}/role with body {"role": "..."}.
// The acting role comes from the resolved principal, never from the request.
func (h *AccountHandlers) AssignRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteServiceError(w, r, h.logger(), errAuthRequired)
		return
	}

	var in service.AssignRoleInput
	if isFormRequest(r) {
		in.Role = r.FormValue("role")
	} else if !DecodeJSON(w, r, &in) {
		return
	}
	in.TargetUID = r.PathValue("uid")

	res, err := h.Assigner.AssignRole(r.Context(), *actor, in)
	if err != nil {
		h.logRejection(r, "assign role", actor, err)
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// SetActive handles PUT /api/accounts/{uid}/active with body {"active": bool}.
// Deactivation also ends the account's open sessions.
func (h *AccountHandlers) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteServiceError(w, r, h.logger(), errAuthRequired)
		return
	}

	var req setActiveRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Active == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: errCodeValidation,
			Err:     errors.New("active is required"),
			Field:   "active",
		})
		return
	}

	uid := r.PathValue("uid")
	res, err := h.Assigner.SetAccountActive(r.Context(), *actor, uid, *req.Active)
	if err != nil {
		h.logRejection(r, "set account active", actor, err)
		WriteServiceError(w, r, h.logger(), err)
		return
	}

	if !*req.Active && h.Sessions != nil {
		n, err := h.Sessions.DeleteByUser(r.Context(), uid)
		if err != nil {
			h.logger().WarnContext(r.Context(), "revoke sessions of deactivated account failed", "uid", uid, "error", err)
		} else if n > 0 {
			h.logger().InfoContext(r.Context(), "revoked sessions of deactivated account", "uid", uid, "count", n)
		}
	}
	WriteJSON(w, http.StatusOK, res)
}

func (h *AccountHandlers) logRejection(r *http.Request, op string, actor *domainauth.Principal, err error) {
	code, _ := statusForError(err)
	if code >= http.StatusInternalServerError {
		return
	}
	h.logger().InfoContext(r.Context(), op+" rejected",
		"actor_uid", actor.UserID,
		"actor_role", actor.Role,
		"target_uid", r.PathValue("uid"),
		"error", err,
	)
}

const maxQueryLen = 200

// parseAccountListOptions validates the list filters. Failures are
// validation AppErrors carrying the offending field.
func parseAccountListOptions(r *http.Request) (model.AccountListOptions, error) {
	q := r.URL.Query()
	limit, offset := ParseLimitOffset(r, defaultPageLimit, maxPageLimit)
	opts := model.AccountListOptions{Limit: limit, Offset: offset}

	fv := validation.New().
		Validate("role", q.Get("role"), validation.OneOf("role", roleKeyList())).
		Validate("active", q.Get("active"), validation.Bool("active")).
		Validate("q", q.Get("q"), validation.NoControl("q"), validation.Optional("q", maxQueryLen))
	if field, msg, bad := fv.First(); bad {
		return opts, apperrors.ValidationField(field, msg)
	}

	if v := q.Get("role"); v != "" {
		role, _ := domainauth.ParseRole(v)
		opts.Role = &role
	}
	if v := q.Get("active"); v != "" {
		active, err := parseBoolParam(v)
		if err != nil {
			return opts, apperrors.ValidationField("active", err.Error())
		}
		opts.Active = &active
	}
	if v := strings.TrimSpace(q.Get("q")); v != "" {
		opts.Q = &v
	}
	return opts, nil
}

func roleKeyList() []string {
	roles := domainauth.Roles()
	keys := make([]string, 0, len(roles))
	for _, info := range roles {
		keys = append(keys, string(info.Key))
	}
	return keys
}

func roleKeys() string {
	return strings.Join(roleKeyList(), ", ")
}
