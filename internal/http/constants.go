package httpx

import domainauth "github.com/shepherd-church/shepherd/internal/domain/auth"

// CurrentPage constants identify pages for templates and navigation.
const (
	PageHome      = "home"
	PageSignedOut = "signed-out"
	PageResource  = "resource" // generic guarded resource page
	PageAccounts  = "accounts" // /admin/roles
	PageAudit     = "audit"    // /admin/reports
)

// Paging bounds for list endpoints.
const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

//nolint:gochecknoglobals // static read-only lookup for templates
var contentTemplates = map[string]string{
	PageHome:      "home-content",
	PageSignedOut: "signed-out-content",
	PageResource:  "resource-content",
	PageAccounts:  "accounts-content",
	PageAudit:     "audit-content",
}

// ContentTemplateFor returns the content template for the given CurrentPage.
// Falls back to home-content for unknown pages.
func ContentTemplateFor(currentPage string) string {
	if name, ok := contentTemplates[currentPage]; ok {
		return name
	}
	return "home-content"
}

//nolint:gochecknoglobals // static read-only labels
var resourceLabels = map[domainauth.Resource]string{
	domainauth.ResourceMembers:       "Members",
	domainauth.ResourceProgrammes:    "Programmes",
	domainauth.ResourceBands:         "Bands",
	domainauth.ResourceDepartments:   "Departments",
	domainauth.ResourceAnnouncements: "Announcements",
	domainauth.ResourceFirstTimers:   "First Timers",
	domainauth.ResourceRoles:         "Roles",
	domainauth.ResourceSettings:      "Settings",
	domainauth.ResourceReports:       "Reports",
}

// ResourceLabel returns the navigation label for res.
func ResourceLabel(res domainauth.Resource) string {
	if l, ok := resourceLabels[res]; ok {
		return l
	}
	return string(res)
}
