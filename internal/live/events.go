package live

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/hsx/internal/models"
)

// Inbound event names pushed by the admin API.
const (
	EventNewActivity          = "new-activity"
	EventCustomerStatusUpdate = "customer-status-update"
	EventCustomerUpdate       = "customer-update"
)

// DefaultEvents maps the inbound event names onto record event kinds.
var DefaultEvents = map[string]models.EventKind{
	EventNewActivity:          models.Created,
	EventCustomerStatusUpdate: models.Updated,
	EventCustomerUpdate:       models.Updated,
}

// payload keys that may carry the record when it is wrapped
var wrapperKeys = []string{"record", "data", "customer", "activity"}

// payload keys that may carry the identifier of a partial update
var refKeys = []string{"customerId", "recordId", "userId"}

// DecodeEvent turns an event payload into a [models.LiveEvent].
//
// The payload is either the record itself, or an object without an id wrapping it under record,
// data, customer or activity. Partial status updates may name the record with customerId or recordId.
func DecodeEvent(name string, kind models.EventKind, data json.RawMessage) (models.LiveEvent, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.LiveEvent{}, fmt.Errorf("failed to decode %s payload: %w", name, err)
	}

	// A payload that identifies itself is the record; nested objects are its fields.
	if !identified(raw) {
		for _, k := range wrapperKeys {
			if inner, ok := raw[k].(map[string]any); ok {
				raw = inner
				break
			}
		}
	}

	if _, ok := raw["id"]; !ok {
		if _, ok := raw["_id"]; !ok {
			for _, k := range refKeys {
				if v, ok := raw[k]; ok {
					raw["id"] = v
					break
				}
			}
		}
	}

	rec := models.DecodeRecord(raw)
	if rec.ID == "" {
		return models.LiveEvent{}, fmt.Errorf("%s payload has no record id", name)
	}
	return models.LiveEvent{Kind: kind, Name: name, Record: rec}, nil
}

// identified reports whether a payload carries its own id or a reference key.
func identified(raw map[string]any) bool {
	for _, k := range append([]string{"id", "_id"}, refKeys...) {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

// SubscribeRecords subscribes to an event name and delivers decoded record events.
//
// Payloads that cannot be decoded are logged and dropped.
func (m *ConnectionManager) SubscribeRecords(name string, kind models.EventKind, h func(models.LiveEvent)) (unsubscribe func()) {
	return m.Subscribe(name, func(data json.RawMessage) {
		ev, err := DecodeEvent(name, kind, data)
		if err != nil {
			m.logger.Debug("dropping event", "event", name, "err", err)
			return
		}
		h(ev)
	})
}
