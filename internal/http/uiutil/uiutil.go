// Package uiutil holds small formatting helpers for the admin templates.
package uiutil

import (
	"fmt"
	"time"
)

const FriendlyDateTimeLayout = "Jan 2, 2006 3:04 PM"

var relativeUnits = []struct {
	limit time.Duration
	unit  time.Duration
	name  string
}{
	{limit: time.Hour, unit: time.Minute, name: "minute"},
	{limit: 24 * time.Hour, unit: time.Hour, name: "hour"},
	{limit: 7 * 24 * time.Hour, unit: 24 * time.Hour, name: "day"},
}

// FriendlyRelativeTime describes how long before now t occurred. Anything
// under a minute, or in the future, is "just now"; anything over a week is
// shown as a date.
func FriendlyRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < time.Minute {
		return "just now"
	}
	for _, u := range relativeUnits {
		if diff >= u.limit {
			continue
		}
		n := int(diff / u.unit)
		if n == 1 {
			return fmt.Sprintf("1 %s ago", u.name)
		}
		return fmt.Sprintf("%d %ss ago", n, u.name)
	}
	return FormatFriendlyDateTime(t)
}

// FormatFriendlyDateTime returns a consistent, user-friendly local timestamp representation.
func FormatFriendlyDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(FriendlyDateTimeLayout)
}
