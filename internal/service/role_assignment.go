package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shepherd-church/shepherd/internal/core"
	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
	apperrors "github.com/shepherd-church/shepherd/internal/errors"
	"github.com/shepherd-church/shepherd/internal/observability/metrics"
	"github.com/shepherd-church/shepherd/internal/observability/statsd"
	"github.com/shepherd-church/shepherd/internal/ports"
)

const bootstrapLockKey = "lock:bootstrap-super-admin"

// bootstrapLocker is satisfied by core.CacheRepository.
type bootstrapLocker interface {
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// RoleAssignmentConfig holds optional collaborators for RoleAssignmentService.
type RoleAssignmentConfig struct {
	Evaluator *domainauth.Evaluator // defaults to domainauth.DefaultEvaluator()
	Metrics   statsd.Sink
	Logger    *slog.Logger
	Lock      bootstrapLocker // serialises BootstrapSuperAdmin across processes
	Now       func() time.Time
}

// RoleAssignmentServiceOptions groups dependencies for RoleAssignmentService.
type RoleAssignmentServiceOptions struct {
	Accounts core.AccountRepository // Required
	Audit    ports.RoleChangeSink   // Required: told about committed changes
	Config   RoleAssignmentConfig
}

// RoleAssignmentService is the only path that mutates an account's role or
// active flag. Every entry point enforces the privilege escalation guard.
type RoleAssignmentService struct {
	accounts  core.AccountRepository
	audit     ports.RoleChangeSink
	evaluator *domainauth.Evaluator
	metrics   statsd.Sink
	logger    *slog.Logger
	lock      bootstrapLocker
	now       func() time.Time
}

// NewRoleAssignmentService constructs a RoleAssignmentService.
func NewRoleAssignmentService(opts RoleAssignmentServiceOptions) *RoleAssignmentService {
	if opts.Accounts == nil || opts.Audit == nil {
		panic("service: RoleAssignmentService requires accounts and audit sink")
	}
	cfg := opts.Config
	if cfg.Evaluator == nil {
		cfg.Evaluator = domainauth.DefaultEvaluator()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RoleAssignmentService{
		accounts:  opts.Accounts,
		audit:     opts.Audit,
		evaluator: cfg.Evaluator,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With("component", "role_assignment"),
		lock:      cfg.Lock,
		now:       cfg.Now,
	}
}

// AssignRoleInput names the target account and the requested role. Role is
// raw client input and is validated against the registry.
type AssignRoleInput struct {
	TargetUID string `json:"-"`
	Role      string `json:"role"`
}

// AssignmentResult reports the account after the call and whether anything changed.
type AssignmentResult struct {
	Account *model.Account    `json:"account"`
	Changed bool              `json:"changed"`
	Change  *model.RoleChange `json:"change,omitempty"`
}

// AssignRole changes the target's role on behalf of actor.
//
// The request is rejected when the role is not registered, when actor and
// target are the same identity, when actor lacks roles:assign, or when actor
// may not modify either the target's current role or the requested one.
// Concurrent assignments to the same account are last-write-wins.
func (s *RoleAssignmentService) AssignRole(
	ctx context.Context,
	actor domainauth.Principal,
	in AssignRoleInput,
) (res *AssignmentResult, err error) {
	defer func() { s.emit(model.RoleChangeAssigned, res, err) }()

	newRole, ok := domainauth.ParseRole(in.Role)
	if !ok {
		return nil, apperrors.PrivilegeEscalationf("unknown role %q", in.Role)
	}
	target, err := s.authorizeChange(ctx, actor, in.TargetUID, "change your own role")
	if err != nil {
		return nil, err
	}
	if !s.evaluator.CanModifyRole(actor.Role, newRole) {
		return nil, apperrors.PrivilegeEscalationf("%s may not grant the %s role", actor.Role, newRole)
	}

	if target.Role == newRole {
		return &AssignmentResult{Account: target}, nil
	}

	change := s.newChange(model.RoleChangeAssigned, actor, target)
	change.NewRole = newRole
	return s.commit(ctx, model.AccountChange{UID: target.UID, Role: &newRole, Record: &change})
}

// SetAccountActive deactivates or reactivates the target account. It is
// gated exactly like AssignRole against the target's current role.
func (s *RoleAssignmentService) SetAccountActive(
	ctx context.Context,
	actor domainauth.Principal,
	targetUID string,
	active bool,
) (res *AssignmentResult, err error) {
	event := model.RoleChangeDeactivated
	verb := "deactivate your own account"
	if active {
		event = model.RoleChangeReactivated
		verb = "reactivate your own account"
	}
	defer func() { s.emit(event, res, err) }()

	target, err := s.authorizeChange(ctx, actor, targetUID, verb)
	if err != nil {
		return nil, err
	}
	if target.Active == active {
		return &AssignmentResult{Account: target}, nil
	}

	change := s.newChange(event, actor, target)
	return s.commit(ctx, model.AccountChange{UID: target.UID, Active: &active, Record: &change})
}

// authorizeChange applies the checks shared by every account mutation and
// returns the loaded target.
func (s *RoleAssignmentService) authorizeChange(
	ctx context.Context,
	actor domainauth.Principal,
	targetUID, verb string,
) (*model.Account, error) {
	if targetUID == "" {
		return nil, apperrors.ValidationField("uid", "target account is required")
	}
	if actor.UserID == targetUID {
		return nil, apperrors.PrivilegeEscalationf("you cannot %s", verb)
	}
	if err := s.evaluator.RequirePermission(actor.Role, domainauth.ResourceRoles, domainauth.ActionAssign); err != nil {
		if apperrors.IsForbidden(err) {
			return nil, apperrors.PrivilegeEscalationf("%s may not modify account roles", actor.Role)
		}
		return nil, err
	}

	target, err := s.accounts.GetByUID(ctx, targetUID)
	if err != nil {
		return nil, err
	}
	if !s.evaluator.CanModifyRole(actor.Role, target.Role) {
		return nil, apperrors.PrivilegeEscalationf("%s may not modify a %s account", actor.Role, target.Role.Info().Label)
	}
	return target, nil
}

// BootstrapSuperAdmin promotes uid to super_admin when no active super_admin
// exists. It is only reachable from the operator CLI.
func (s *RoleAssignmentService) BootstrapSuperAdmin(ctx context.Context, uid string) (res *AssignmentResult, err error) {
	defer func() { s.emit(model.RoleChangeBootstrap, res, err) }()

	if uid == "" {
		return nil, apperrors.ValidationField("uid", "target account is required")
	}
	if s.lock != nil {
		acquired, lockErr := s.lock.SetIfNotExists(ctx, bootstrapLockKey, []byte(uid), time.Minute)
		if lockErr != nil {
			return nil, fmt.Errorf("acquire bootstrap lock: %w", lockErr)
		}
		if !acquired {
			return nil, apperrors.Conflict("another bootstrap is in progress")
		}
		defer func() {
			if _, delErr := s.lock.Delete(ctx, bootstrapLockKey); delErr != nil {
				s.logger.WarnContext(ctx, "release bootstrap lock", "error", delErr)
			}
		}()
	}

	counts, err := s.accounts.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count accounts by role: %w", err)
	}
	if counts[domainauth.RoleSuperAdmin] > 0 {
		return nil, apperrors.PrivilegeEscalation("a super admin already exists; use role assignment instead")
	}

	target, err := s.accounts.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !target.Active {
		return nil, apperrors.Validation("cannot bootstrap a deactivated account")
	}

	system := domainauth.Principal{UserID: model.BootstrapActorUID, Email: model.BootstrapActorUID}
	change := s.newChange(model.RoleChangeBootstrap, system, target)
	role := domainauth.RoleSuperAdmin
	change.NewRole = role
	return s.commit(ctx, model.AccountChange{UID: uid, Role: &role, Record: &change})
}

// commit stores the account write and its audit record in one step, then
// announces the record. A failed write announces nothing.
func (s *RoleAssignmentService) commit(ctx context.Context, change model.AccountChange) (*AssignmentResult, error) {
	updated, err := s.accounts.ApplyChange(ctx, change)
	if err != nil {
		return nil, fmt.Errorf("apply account change: %w", err)
	}
	record := *change.Record
	s.audit.RoleChanged(ctx, record)
	return &AssignmentResult{Account: updated, Changed: true, Change: &record}, nil
}

func (s *RoleAssignmentService) newChange(
	event model.RoleChangeEvent,
	actor domainauth.Principal,
	target *model.Account,
) model.RoleChange {
	return model.RoleChange{
		ID:           uuid.NewString(),
		Event:        event,
		ActorUID:     actor.UserID,
		ActorEmail:   actor.Email,
		TargetUID:    target.UID,
		TargetEmail:  target.Email,
		PreviousRole: target.Role,
		NewRole:      target.Role,
		At:           s.now().UTC(),
	}
}

func (s *RoleAssignmentService) emit(event model.RoleChangeEvent, res *AssignmentResult, err error) {
	result := metrics.ResultSuccess
	switch {
	case apperrors.IsPrivilegeEscalation(err):
		result = metrics.ResultRejected
	case err != nil:
		result = metrics.ResultError
	case res != nil && !res.Changed:
		result = metrics.ResultNoop
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	metrics.EmitAccountChange(s.metrics, metrics.AccountChange{Event: string(event), Result: result, Err: err})
}
