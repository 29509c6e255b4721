package core

import (
	"context"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
	"github.com/shepherd-church/shepherd/internal/domain/model"
)

// AccountRepository persists accounts and the role stored on each of them.
type AccountRepository interface {
	// GetByUID returns the account or an error satisfying errors.IsNotFound.
	GetByUID(ctx context.Context, uid string) (*model.Account, error)
	// EnsureAccount creates the account with role DefaultRole on first sight and
	// refreshes profile fields and last_login_at otherwise. The role of an
	// existing account is never touched.
	EnsureAccount(ctx context.Context, req model.EnsureAccountRequest) (*model.Account, error)
	// UpdateRole overwrites the stored role. Concurrent writers race; the last one wins.
	UpdateRole(ctx context.Context, uid string, role domainauth.Role) (*model.Account, error)
	SetActive(ctx context.Context, uid string, active bool) (*model.Account, error)
	// ApplyChange writes change to the account and appends change.Record to the
	// audit log in one transaction. If either write fails neither is kept.
	ApplyChange(ctx context.Context, change model.AccountChange) (*model.Account, error)
	List(ctx context.Context, opts model.AccountListOptions) ([]*model.Account, error)
	// CountByRole returns the number of active accounts per stored role.
	CountByRole(ctx context.Context) (map[domainauth.Role]int, error)
}

// RoleAuditRepository stores the durable audit trail of account changes.
type RoleAuditRepository interface {
	Record(ctx context.Context, change *model.RoleChange) error
	List(ctx context.Context, opts model.RoleChangeListOptions) ([]*model.RoleChange, error)
}
