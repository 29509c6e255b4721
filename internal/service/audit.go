package service

import (
	"context"
	"log/slog"

	"github.com/shepherd-church/shepherd/internal/core"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	"github.com/shepherd-church/shepherd/internal/observability/notify"
	"github.com/shepherd-church/shepherd/internal/ports"
)

// roleChangeNotifier is satisfied by rolenotifier.Service.
type roleChangeNotifier interface {
	Notify(ctx context.Context, payload notify.RoleChangePayload)
}

// AuditTrailOptions groups dependencies for AuditTrail.
type AuditTrailOptions struct {
	Repo     core.RoleAuditRepository // Required: read side of the trail
	Notifier roleChangeNotifier       // Optional: chat notifications
	Logger   *slog.Logger             // Optional
}

// AuditTrail is the RoleChangeSink used in production. Records arrive already
// persisted by the account repository; AuditTrail logs them and forwards them
// to chat sinks.
type AuditTrail struct {
	repo     core.RoleAuditRepository
	notifier roleChangeNotifier
	logger   *slog.Logger
}

var _ ports.RoleChangeSink = (*AuditTrail)(nil)

// NewAuditTrail constructs an AuditTrail.
func NewAuditTrail(opts AuditTrailOptions) *AuditTrail {
	if opts.Repo == nil {
		panic("service: AuditTrail requires a RoleAuditRepository")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditTrail{repo: opts.Repo, notifier: opts.Notifier, logger: logger.With("component", "audit")}
}

// RoleChanged implements ports.RoleChangeSink.
func (a *AuditTrail) RoleChanged(ctx context.Context, change model.RoleChange) {
	a.logger.InfoContext(ctx, "account changed",
		"audit_id", change.ID,
		"event", change.Event,
		"actor_uid", change.ActorUID,
		"target_uid", change.TargetUID,
		"previous_role", change.PreviousRole,
		"new_role", change.NewRole,
		"at", change.At,
	)

	if a.notifier != nil {
		a.notifier.Notify(ctx, notify.RoleChangePayload{
			Event:        string(change.Event),
			ActorUID:     change.ActorUID,
			ActorEmail:   change.ActorEmail,
			TargetUID:    change.TargetUID,
			TargetEmail:  change.TargetEmail,
			PreviousRole: string(change.PreviousRole),
			NewRole:      string(change.NewRole),
			OccurredAt:   change.At,
		})
	}
}

// ListRoleChanges returns audit records, newest first.
func (a *AuditTrail) ListRoleChanges(ctx context.Context, opts model.RoleChangeListOptions) ([]*model.RoleChange, error) {
	opts.Normalize()
	return a.repo.List(ctx, opts)
}
