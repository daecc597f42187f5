package scheduler

import "time"

// WindowKind distinguishes weekly windows from one-off windows.
type WindowKind string

const (
	// WindowRecurring applies every week on DayOfWeek.
	WindowRecurring WindowKind = "recurring"
	// WindowSpecific applies on a single Date.
	WindowSpecific WindowKind = "specific"
)

// Valid reports whether the kind is one of the known values.
func (k WindowKind) Valid() bool {
	switch k {
	case WindowRecurring, WindowSpecific:
		return true
	default:
		return false
	}
}

// Window is an allowlisted period during which a hall may be used.
type Window struct {
	ID        string
	Kind      WindowKind
	DayOfWeek time.Weekday
	Date      time.Time
	Interval  Interval
}

// Matches reports whether the window applies to the given calendar day.
func (w Window) Matches(date time.Time) bool {
	switch w.Kind {
	case WindowRecurring:
		return Day(date).Weekday() == w.DayOfWeek
	case WindowSpecific:
		return SameDay(w.Date, date)
	default:
		return false
	}
}

// WindowsFor returns the windows that apply to date, preserving order.
func WindowsFor(windows []Window, date time.Time) []Window {
	matched := make([]Window, 0, len(windows))
	for _, w := range windows {
		if w.Matches(date) {
			matched = append(matched, w)
		}
	}
	return matched
}

// IsWithinAvailability reports whether candidate on date is fully contained in
// one of the hall's windows. A hall without any windows is governed by
// openWhenUnset.
func IsWithinAvailability(windows []Window, date time.Time, candidate Interval, openWhenUnset bool) bool {
	if len(windows) == 0 {
		return openWhenUnset
	}
	for _, w := range windows {
		if w.Matches(date) && Contains(w.Interval, candidate) {
			return true
		}
	}
	return false
}
