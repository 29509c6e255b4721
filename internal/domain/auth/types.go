// Package auth contains domain-level types for authentication, sessions and
// role-based authorization. It is pure and free of framework/adapter concerns.
package auth

import "time"

// SessionWindow is the longest a session may live before the user has to sign in again.
const SessionWindow = 10 * 24 * time.Hour

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID     string // stable user identifier (e.g., sub)
	FirstName  string
	LastName   string
	Email      string
	Credential string    // upstream refresh/access token kept for revocation on logout
	ExpiresAt  time.Time // absolute expiry from IdP token
}

// DisplayName joins first and last name, falling back to the email address.
func (i Identity) DisplayName() string {
	return joinName(i.FirstName, i.LastName, i.Email)
}

// Session is the server-side record we persist for an authenticated user.
// It binds a browser to an identity only; the role used for authorization is
// looked up from the account record every time the session is resolved.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Credential string    `json:"credential,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

// Principal is the resolved acting identity for a request: who is calling and
// the role currently stored on their account. Server-side authorization only
// ever consumes a Principal.
type Principal struct {
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// IsSuperAdmin reports whether the principal holds the super_admin role.
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

func joinName(first, last, fallback string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return fallback
	}
}
