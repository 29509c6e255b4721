//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"

	domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"
)

const (
	defaultAccountListLimit = 50
	maxAccountListLimit     = 500
)

// Account is the persisted user record. Role is stored as free text so that a
// value outside the registry can be read back and rejected at resolve time.
type Account struct {
	UID         string          `json:"uid"                     db:"uid"`
	Email       string          `json:"email"                   db:"email"`
	FirstName   string          `json:"first_name"              db:"first_name"`
	LastName    string          `json:"last_name"               db:"last_name"`
	Role        domainauth.Role `json:"role"                    db:"role"`
	Active      bool            `json:"active"                  db:"active"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt   time.Time       `json:"created_at"              db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"              db:"updated_at"`
}

// DisplayName joins first and last name, falling back to the email address.
func (a *Account) DisplayName() string {
	return domainauth.Identity{FirstName: a.FirstName, LastName: a.LastName, Email: a.Email}.DisplayName()
}

// EnsureAccountRequest carries identity details observed at login.
type EnsureAccountRequest struct {
	UID       string
	Email     string
	FirstName string
	LastName  string
}

// Validate validates EnsureAccountRequest.
func (r *EnsureAccountRequest) Validate() error {
	r.UID = strings.TrimSpace(r.UID)
	r.Email = strings.TrimSpace(r.Email)
	if r.UID == "" {
		return errors.New("uid is required")
	}
	if r.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// AccountListOptions controls paging and filtering for listing accounts.
type AccountListOptions struct {
	Limit  int
	Offset int
	Role   *domainauth.Role // exact match
	Active *bool            // exact match
	Q      *string          // substring match on email or name (ILIKE)
}

// Normalize clamps paging values to supported bounds.
func (o *AccountListOptions) Normalize() {
	if o.Limit <= 0 {
		o.Limit = defaultAccountListLimit
	}
	if o.Limit > maxAccountListLimit {
		o.Limit = maxAccountListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Q != nil {
		q := strings.TrimSpace(*o.Q)
		if q == "" {
			o.Q = nil
		} else {
			o.Q = &q
		}
	}
}
