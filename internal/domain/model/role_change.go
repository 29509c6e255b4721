//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"time"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

// RoleChangeEvent names what happened to the target account.
type RoleChangeEvent string

const (
	RoleChangeAssigned    RoleChangeEvent = "role_assigned"
	RoleChangeDeactivated RoleChangeEvent = "deactivated"
	RoleChangeReactivated RoleChangeEvent = "reactivated"
	RoleChangeBootstrap   RoleChangeEvent = "bootstrap"
)

// BootstrapActorUID identifies changes made by the operator CLI rather than a signed-in account.
const BootstrapActorUID = "system:bootstrap"

// RoleChange is the audit record emitted after a successful account change.
type RoleChange struct {
	ID           string          `json:"id"            db:"id"`
	Event        RoleChangeEvent `json:"event"         db:"event"`
	ActorUID     string          `json:"actor_uid"     db:"actor_uid"`
	ActorEmail   string          `json:"actor_email"   db:"actor_email"`
	TargetUID    string          `json:"target_uid"    db:"target_uid"`
	TargetEmail  string          `json:"target_email"  db:"target_email"`
	PreviousRole domainauth.Role `json:"previous_role" db:"previous_role"`
	NewRole      domainauth.Role `json:"new_role"      db:"new_role"`
	At           time.Time       `json:"at"            db:"at"`
}

// AccountChange is one audited write to an account. Exactly one of Role and
// Active is set; Record is stored alongside the write or not at all.
type AccountChange struct {
	UID    string
	Role   *domainauth.Role
	Active *bool
	Record *RoleChange
}

// Apply copies the requested field onto acct.
func (c AccountChange) Apply(acct *Account) {
	if c.Role != nil {
		acct.Role = *c.Role
	}
	if c.Active != nil {
		acct.Active = *c.Active
	}
}

// RoleChangeListOptions controls paging and filtering for the audit log.
type RoleChangeListOptions struct {
	Limit     int
	Offset    int
	TargetUID *string
	ActorUID  *string
}

// Normalize clamps paging values to supported bounds.
func (o *RoleChangeListOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = defaultAccountListLimit
	}
	if o.Limit > maxAccountListLimit {
		o.Limit = maxAccountListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}
