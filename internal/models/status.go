package models

import "strings"

// Status is the canonical activity state of a record.
type Status int

const (
	StatusUnknown Status = iota
	StatusActive
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return ""
	}
}

// Bool reports the isActive value for known states.
func (s Status) Bool() (active, ok bool) {
	switch s {
	case StatusActive:
		return true, true
	case StatusInactive:
		return false, true
	default:
		return false, false
	}
}

// StatusFromBool maps the isActive flag onto a [Status].
func StatusFromBool(active bool) Status {
	if active {
		return StatusActive
	}
	return StatusInactive
}

// inactive markers are checked first since most of them contain an active marker.
var (
	inactiveMarkers = []string{"inactive", "qeyri", "deaktiv", "disabled"}
	activeMarkers   = []string{"active", "aktiv", "enabled"}
)

// ParseStatus normalizes a free-text status label or filter value.
//
// Labels that do not name an activity state (e.g. "pending") yield [StatusUnknown].
func ParseStatus(label string) Status {
	v := strings.ToLower(strings.TrimSpace(label))
	if v == "" {
		return StatusUnknown
	}
	for _, m := range inactiveMarkers {
		if strings.Contains(v, m) {
			return StatusInactive
		}
	}
	for _, m := range activeMarkers {
		if strings.Contains(v, m) {
			return StatusActive
		}
	}
	return StatusUnknown
}
