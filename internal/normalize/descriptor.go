package normalize

import (
	"fmt"
	"strings"
)

// Dialect identifies which gateway family produced a discovery payload.
type Dialect string

// Supported dialects.
const (
	DialectHomeAssistant Dialect = "home_assistant"
	DialectZigbee2MQTT   Dialect = "zigbee2mqtt"
	DialectESPHome       Dialect = "esphome"
)

// Descriptor is a validated, canonical discovery payload.
//
// Typed fields hold the keys the registry works with. Attributes carries
// the full canonical payload (after gateway fix-ups) so nothing a
// downstream consumer might need is lost.
type Descriptor struct {
	Dialect           Dialect        `json:"dialect"`
	DeviceIDs         string         `json:"dev_ids,omitempty"`
	AvailabilityTopic string         `json:"avty_t,omitempty"`
	StateTopic        string         `json:"stat_t,omitempty"`
	ValueTemplate     string         `json:"val_tpl,omitempty"`
	DeviceClass       string         `json:"dev_cla,omitempty"`
	Name              string         `json:"name,omitempty"`
	UniqueID          string         `json:"uniq_id,omitempty"`
	Attributes        map[string]any `json:"attributes,omitempty"`
}

// HasValueTemplate reports whether the payload carried a val_tpl key.
func (d Descriptor) HasValueTemplate() bool {
	_, ok := d.Attributes[KeyValueTemplate]
	return ok
}

// Descriptor classifies a canonicalised payload into a dialect and decodes
// it. Zigbee2MQTT payloads have their identifier list reduced to the first
// element and their availability list folded into avty_t.
//
// Returns ErrUnrecognisedDialect (wrapped with the offending key) for
// payloads outside the supported shapes.
func (Normalizer) Descriptor(raw map[string]any) (Descriptor, error) {
	attrs := copyMap(raw)
	d := Descriptor{Dialect: DialectHomeAssistant, Attributes: attrs}

	strFields := []struct {
		key string
		dst *string
	}{
		{KeyStateTopic, &d.StateTopic},
		{KeyAvailabilityTopic, &d.AvailabilityTopic},
		{KeyValueTemplate, &d.ValueTemplate},
	}
	for _, f := range strFields {
		v, ok := attrs[f.key]
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString {
			return Descriptor{}, fmt.Errorf("%w: %s is %T, want string", ErrUnrecognisedDialect, f.key, v)
		}
		*f.dst = s
	}

	d.DeviceClass, _ = attrs[KeyDeviceClass].(string)
	d.Name, _ = attrs[KeyName].(string)
	d.UniqueID, _ = attrs[KeyUniqueID].(string)

	if rawDev, ok := attrs[KeyDevice]; ok {
		dev, isMap := rawDev.(map[string]any)
		if !isMap {
			return Descriptor{}, fmt.Errorf("%w: %s is %T, want object", ErrUnrecognisedDialect, KeyDevice, rawDev)
		}
		dev = copyMap(dev)
		attrs[KeyDevice] = dev

		if ids, ok := dev[KeyDeviceIdentifiers]; ok {
			id, isList, err := decodeIdentifiers(ids)
			if err != nil {
				return Descriptor{}, err
			}
			if isList {
				d.Dialect = DialectZigbee2MQTT
			}
			dev[KeyDeviceIdentifiers] = id
			d.DeviceIDs = id
		}
	}

	if rawAvty, ok := attrs[KeyAvailability]; ok {
		topic, err := decodeAvailability(rawAvty)
		if err != nil {
			return Descriptor{}, err
		}
		d.Dialect = DialectZigbee2MQTT
		d.AvailabilityTopic = topic
		attrs[KeyAvailabilityTopic] = topic
		delete(attrs, KeyAvailability)
	}

	if d.Dialect == DialectHomeAssistant && isESPHome(attrs) {
		d.Dialect = DialectESPHome
	}

	return d, nil
}

// decodeIdentifiers accepts a string or a non-empty list of strings.
func decodeIdentifiers(v any) (id string, isList bool, err error) {
	switch ids := v.(type) {
	case string:
		return ids, false, nil
	case []any:
		if len(ids) == 0 {
			return "", true, fmt.Errorf("%w: empty %s list", ErrUnrecognisedDialect, KeyDeviceIdentifiers)
		}
		for _, item := range ids {
			if _, ok := item.(string); !ok {
				return "", true, fmt.Errorf("%w: %s element is %T, want string", ErrUnrecognisedDialect, KeyDeviceIdentifiers, item)
			}
		}
		return ids[0].(string), true, nil
	default:
		return "", false, fmt.Errorf("%w: %s is %T", ErrUnrecognisedDialect, KeyDeviceIdentifiers, v)
	}
}

// decodeAvailability extracts the first topic from a list of availability
// objects. Entries may use "topic" or its abbreviation "t".
func decodeAvailability(v any) (string, error) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return "", fmt.Errorf("%w: %s must be a non-empty list", ErrUnrecognisedDialect, KeyAvailability)
	}

	var first string
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return "", fmt.Errorf("%w: %s[%d] is %T, want object", ErrUnrecognisedDialect, KeyAvailability, i, item)
		}
		topicVal, found := entry["topic"]
		if !found {
			topicVal, found = entry["t"]
		}
		topic, isString := topicVal.(string)
		if !found || !isString {
			return "", fmt.Errorf("%w: %s[%d] has no string topic", ErrUnrecognisedDialect, KeyAvailability, i)
		}
		if i == 0 {
			first = topic
		}
	}
	return first, nil
}

// isESPHome detects ESPHome markers in the device or origin blocks.
func isESPHome(attrs map[string]any) bool {
	if dev, ok := attrs[KeyDevice].(map[string]any); ok {
		if sw, ok := dev[KeyDeviceSoftware].(string); ok && strings.Contains(strings.ToLower(sw), "esphome") {
			return true
		}
	}
	if origin, ok := attrs[KeyOrigin].(map[string]any); ok {
		if name, ok := origin[KeyName].(string); ok && strings.EqualFold(name, "esphome") {
			return true
		}
	}
	return false
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
