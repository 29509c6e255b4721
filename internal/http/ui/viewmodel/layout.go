// Package viewmodel holds the data shapes shared by the admin templates.
package viewmodel

import domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"

// User represents the signed-in account shown in the page chrome.
type User struct {
	DisplayName string
	Email       string
	Role        domainauth.RoleInfo
}

// NavItem is one entry in the admin navigation.
type NavItem struct {
	Label  string
	URL    string
	Active bool
}

// ViewAsPicker backs the super admin "view as" selector. Current is empty
// when no override is active.
type ViewAsPicker struct {
	Current domainauth.Role
	Roles   []domainauth.RoleInfo
}

// Layout captures shared chrome metadata (titles, navigation state, auth flags).
type Layout struct {
	Title           string
	CurrentPage     string
	CSRFToken       string
	IsAuthenticated bool
	User            *User
	Nav             []NavItem
	ViewAs          *ViewAsPicker
}

// LayoutProvider exposes layout metadata for renderer utilities.
type LayoutProvider interface {
	LayoutData() *Layout
}
