package events

import (
	"fmt"
	"time"
)

const BundleInstalledType = "BUNDLE_INSTALLED"

// BundleInstalled announces that an instance saved a new bundle under Key,
// so other instances drop their cached copy.
type BundleInstalled struct {
	Key        string
	Rows       int
	InstanceID string
	OccurredAt time.Time
}

func (e BundleInstalled) EventType() string {
	return BundleInstalledType
}

func (e BundleInstalled) Payload() map[string]interface{} {
	return map[string]interface{}{
		"key":         e.Key,
		"rows":        e.Rows,
		"instance_id": e.InstanceID,
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
	}
}

func (e BundleInstalled) Timestamp() time.Time {
	return e.OccurredAt
}

// ParseBundleInstalled reads the payload of a received event back into a BundleInstalled.
func ParseBundleInstalled(e Event) (BundleInstalled, error) {
	data := e.Payload()
	key, _ := data["key"].(string)
	if key == "" {
		return BundleInstalled{}, fmt.Errorf("event %s has no key", e.EventType())
	}
	out := BundleInstalled{Key: key, OccurredAt: e.Timestamp()}
	out.InstanceID, _ = data["instance_id"].(string)
	if rows, ok := data["rows"].(float64); ok {
		out.Rows = int(rows)
	}
	if ts, ok := data["occurred_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			out.OccurredAt = t
		}
	}
	return out, nil
}
