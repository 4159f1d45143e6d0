package models

import "fmt"

// EventKind distinguishes pushed notifications.
type EventKind int

const (
	Created EventKind = iota
	Updated
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// ParseEventKind maps configuration names onto kinds.
func ParseEventKind(s string) (EventKind, error) {
	switch s {
	case "created", "create":
		return Created, nil
	case "updated", "update":
		return Updated, nil
	default:
		return 0, fmt.Errorf("unknown event kind %q", s)
	}
}

// LiveEvent is a record notification delivered by the push channel.
type LiveEvent struct {
	Kind   EventKind
	Name   string // Application event name, e.g. new-activity
	Record Record
}
