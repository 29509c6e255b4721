package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/http/validation"
)

// RoleChangeLister reads the role audit log.
type RoleChangeLister interface {
	ListRoleChanges(ctx context.Context, opts model.RoleChangeListOptions) ([]*model.RoleChange, error)
}

// AuditHandlers serves /api/audit.
type AuditHandlers struct {
	Audit  RoleChangeLister
	Logger *slog.Logger
}

// RoleChanges handles GET /api/audit/roles?target_uid=&actor_uid=&limit=&offset=.
func (h *AuditHandlers) RoleChanges(w http.ResponseWriter, r *http.Request) {
	opts, err := parseRoleChangeListOptions(r)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	changes, err := h.Audit.ListRoleChanges(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	if changes == nil {
		changes = []*model.RoleChange{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"changes": changes,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}

const maxUIDLen = 128

func parseRoleChangeListOptions(r *http.Request) (model.RoleChangeListOptions, error) {
	limit, offset := ParseLimitOffset(r, defaultPageLimit, maxPageLimit)
	opts := model.RoleChangeListOptions{Limit: limit, Offset: offset}
	q := r.URL.Query()

	fv := validation.New()
	for _, key := range []string{"target_uid", "actor_uid"} {
		fv.Validate(key, q.Get(key), validation.NoControl(key), validation.Optional(key, maxUIDLen))
	}
	if field, msg, bad := fv.First(); bad {
		return opts, apperrors.ValidationField(field, msg)
	}

	if v := strings.TrimSpace(q.Get("target_uid")); v != "" {
		opts.TargetUID = &v
	}
	if v := strings.TrimSpace(q.Get("actor_uid")); v != "" {
		opts.ActorUID = &v
	}
	return opts, nil
}
