package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"
)

// Record is an entity returned by the admin API.
//
// Only the identifier, activity state and creation time are interpreted; every other field is
// kept verbatim in Fields and addressed by name (dotted paths reach into nested objects).
type Record struct {
	ID          string
	Status      Status
	StatusLabel string // Raw status text when the payload carried one
	CreatedAt   time.Time
	Fields      map[string]any
}

var (
	idKeys      = []string{"id", "_id"}
	createdKeys = []string{"createdAt", "created_at", "timestamp"}
	timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}
)

// DecodeRecord normalizes a raw JSON object into a [Record].
//
// The identifier is read from id or _id (numbers are stringified), the activity state from
// isActive or status, and the creation time from createdAt, created_at or timestamp.
func DecodeRecord(raw map[string]any) Record {
	r := Record{Fields: raw}
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}

	for _, k := range idKeys {
		if id := stringify(raw[k]); id != "" {
			r.ID = id
			break
		}
	}

	if label, ok := raw["status"].(string); ok {
		r.StatusLabel = label
		r.Status = ParseStatus(label)
	}
	if active, ok := raw["isActive"].(bool); ok {
		r.Status = StatusFromBool(active)
	}

	for _, k := range createdKeys {
		if t, ok := parseTime(raw[k]); ok {
			r.CreatedAt = t
			break
		}
	}

	return r
}

// UnmarshalJSON decodes and normalizes a record payload.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	*r = DecodeRecord(raw)
	return nil
}

// MarshalJSON writes the raw fields with the canonical identifier and activity state applied.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	maps.Copy(out, r.Fields)
	delete(out, "_id")
	if r.ID != "" {
		out["id"] = r.ID
	}
	if active, ok := r.Status.Bool(); ok {
		out["isActive"] = active
	}
	return json.Marshal(out)
}

// Value returns the value of a field by name.
//
// The id, status, isActive and createdAt names resolve to the normalized values.
// Missing fields yield nil.
func (r Record) Value(field string) any {
	switch field {
	case "id", "_id":
		return r.ID
	case "status":
		if r.StatusLabel != "" {
			return r.StatusLabel
		}
		if r.Status == StatusUnknown {
			return nil
		}
		return r.Status.String()
	case "isActive":
		if active, ok := r.Status.Bool(); ok {
			return active
		}
		return nil
	case "createdAt":
		if r.CreatedAt.IsZero() {
			return lookup(r.Fields, field)
		}
		return r.CreatedAt
	}
	return lookup(r.Fields, field)
}

// Text renders a field for searching and display. Missing fields render as "".
func (r Record) Text(field string) string {
	return FormatValue(r.Value(field))
}

// Time resolves a field as a timestamp (RFC 3339, plain date or epoch milliseconds).
func (r Record) Time(field string) (time.Time, bool) {
	return parseTime(r.Value(field))
}

// Merge overlays the fields of a (possibly partial) update onto the record.
//
// The identifier is kept; the update's activity state replaces the old one when present.
func (r Record) Merge(update Record) Record {
	merged := make(map[string]any, len(r.Fields)+len(update.Fields))
	maps.Copy(merged, r.Fields)
	maps.Copy(merged, update.Fields)

	// A partial update naming one representation of the state invalidates the other.
	_, hasFlag := update.Fields["isActive"]
	_, hasLabel := update.Fields["status"]
	if hasFlag && !hasLabel {
		delete(merged, "status")
	}
	if hasLabel && !hasFlag {
		delete(merged, "isActive")
	}

	out := DecodeRecord(merged)
	out.ID = r.ID
	if out.CreatedAt.IsZero() {
		out.CreatedAt = r.CreatedAt
	}
	return out
}

// Clone returns a copy whose top-level field map can be modified independently.
func (r Record) Clone() Record {
	r.Fields = maps.Clone(r.Fields)
	return r
}

// FormatValue renders a field value as text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case json.Number:
		return t.String()
	case map[string]any:
		for _, k := range []string{"name", "title", "fullName", "email", "id"} {
			if s, ok := t[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprint(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}

// lookup resolves a dotted path through nested objects.
func lookup(fields map[string]any, path string) any {
	if v, ok := fields[path]; ok {
		return v
	}

	var cur any = fields
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[part]; !ok {
			return nil
		}
	}
	return cur
}
