package feedback

import (
	"fmt"
	"time"
)

// Scope selects the length of a feedback window.
type Scope string

const (
	ScopeDay   Scope = "day"
	ScopeWeek  Scope = "week"
	ScopeMonth Scope = "month"
)

// ParseScope validates a scope name. The empty string means ScopeDay.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeDay, nil
	case ScopeDay, ScopeWeek, ScopeMonth:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q (want day, week or month)", s)
}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WindowFor derives the window around anchor. Weeks start on Monday; months on day 1.
// Unknown scopes are treated as ScopeDay.
func WindowFor(anchor time.Time, scope Scope) Window {
	y, m, d := anchor.Date()
	loc := anchor.Location()
	base := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch scope {
	case ScopeWeek:
		// time.Weekday has Sunday == 0
		back := (int(base.Weekday()) + 6) % 7
		start := base.AddDate(0, 0, -back)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}
	case ScopeMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		// time.Date normalizes month 13 into January of the next year.
		return Window{Start: start, End: time.Date(y, m+1, 1, 0, 0, 0, 0, loc)}
	default:
		return Window{Start: base, End: base.AddDate(0, 0, 1)}
	}
}
