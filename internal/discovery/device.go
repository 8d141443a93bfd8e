package discovery

import "github.com/nerrad567/ha-discovery/internal/normalize"

// Supported components. Discovery payloads for any other component are
// counted but never registered.
const (
	ComponentSensor = "sensor"
	ComponentSwitch = "switch"
)

// IsSupportedComponent reports whether devices of component are registered.
func IsSupportedComponent(component string) bool {
	return component == ComponentSensor || component == ComponentSwitch
}

// Device is a registered device descriptor with its derived live state.
//
// CurrentStatus, CurrentValue and HomeKit are recomputed together whenever
// a referenced topic changes. Values handed out by the Service are copies;
// the Attributes map and decoded payloads inside them are shared and must
// be treated as read-only.
type Device struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Component string `json:"component"`
	NodeID    string `json:"node_id,omitempty"`
	ObjectID  string `json:"object_id"`

	normalize.Descriptor

	CurrentStatus any                `json:"current_status"`
	CurrentValue  any                `json:"current_value"`
	HomeKit       *normalize.HomeKit `json:"homekit"`
}

// topics returns the topics whose payloads feed this device's live state.
func (d *Device) topics() []string {
	var out []string
	if d.StateTopic != "" {
		out = append(out, d.StateTopic)
	}
	if d.AvailabilityTopic != "" && d.AvailabilityTopic != d.StateTopic {
		out = append(out, d.AvailabilityTopic)
	}
	return out
}
