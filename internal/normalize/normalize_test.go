package normalize

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

// mustObject decodes a JSON object literal for test input.
func mustObject(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad test JSON %q: %v", s, err)
	}
	return m
}

// =============================================================================
// IsJSON / Decode Tests
// =============================================================================

func TestIsJSON(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{`{"a":1}`, true},
		{`[1,2]`, true},
		{`21.5`, true},
		{`true`, true},
		{`"quoted"`, true},
		{`ON`, false},
		{``, false},
		{`   `, false},
		{`{"a":`, false},
	}

	n := New()
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			if got := n.IsJSON([]byte(tt.payload)); got != tt.want {
				t.Errorf("IsJSON(%q) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	n := New()

	tests := []struct {
		name    string
		payload string
		want    any
	}{
		{"raw string", "ON", "ON"},
		{"empty", "", ""},
		{"number", "21.5", 21.5},
		{"bool", "true", true},
		{"object", `{"contact":true}`, map[string]any{"contact": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Decode([]byte(tt.payload))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%q) = %#v, want %#v", tt.payload, got, tt.want)
			}
		})
	}
}

// =============================================================================
// ExpandShorthand Tests
// =============================================================================

func TestExpandShorthand(t *testing.T) {
	n := New()

	raw := mustObject(t, `{
		"state_topic": "kitchen/temp",
		"availability_topic": "kitchen/status",
		"value_template": "{{ value_json.temperature }}",
		"device_class": "temperature",
		"name": "Kitchen",
		"device": {"identifiers": ["k1"], "manufacturer": "Acme", "sw_version": "1.0"},
		"origin": {"name": "esphome", "sw_version": "2024.1"},
		"custom_key": 7
	}`)

	got := n.ExpandShorthand(raw)

	want := map[string]any{
		"stat_t":  "kitchen/temp",
		"avty_t":  "kitchen/status",
		"val_tpl": "{{ value_json.temperature }}",
		"dev_cla": "temperature",
		"name":    "Kitchen",
		"dev": map[string]any{
			"ids": []any{"k1"},
			"mf":  "Acme",
			"sw":  "1.0",
		},
		"o":          map[string]any{"name": "esphome", "sw": "2024.1"},
		"custom_key": float64(7),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExpandShorthand() =\n%#v\nwant\n%#v", got, want)
	}

	if _, mutated := raw["stat_t"]; mutated {
		t.Error("ExpandShorthand() mutated its input")
	}
}

func TestExpandShorthand_AlreadyCanonical(t *testing.T) {
	n := New()
	raw := mustObject(t, `{"stat_t":"a","avty":[{"topic":"b"}],"dev":{"ids":"x"}}`)

	got := n.ExpandShorthand(raw)
	if !reflect.DeepEqual(got, raw) {
		t.Errorf("ExpandShorthand() = %#v, want unchanged %#v", got, raw)
	}
}

func TestExpandShorthand_AbbreviatedWins(t *testing.T) {
	n := New()
	raw := mustObject(t, `{"stat_t":"short","state_topic":"long"}`)

	got := n.ExpandShorthand(raw)
	if got["stat_t"] != "short" {
		t.Errorf("stat_t = %v, want short", got["stat_t"])
	}
	if _, ok := got["state_topic"]; ok {
		t.Error("long key state_topic survived canonicalisation")
	}
}

// =============================================================================
// Descriptor Tests
// =============================================================================

func TestDescriptor_Dialects(t *testing.T) {
	n := New()

	tests := []struct {
		name        string
		payload     string
		wantDialect Dialect
		wantIDs     string
		wantAvty    string
	}{
		{
			name:        "home assistant",
			payload:     `{"stat_t":"garden/state","avty_t":"garden/avail","dev":{"ids":"garden-1"}}`,
			wantDialect: DialectHomeAssistant,
			wantIDs:     "garden-1",
			wantAvty:    "garden/avail",
		},
		{
			name:        "zigbee2mqtt ids list",
			payload:     `{"stat_t":"z2m/door","dev":{"ids":["a","b"]}}`,
			wantDialect: DialectZigbee2MQTT,
			wantIDs:     "a",
		},
		{
			name:        "zigbee2mqtt availability list",
			payload:     `{"stat_t":"z2m/door","avty":[{"topic":"t/avail"},{"topic":"t/other"}]}`,
			wantDialect: DialectZigbee2MQTT,
			wantAvty:    "t/avail",
		},
		{
			name:        "availability list with abbreviated topic",
			payload:     `{"avty":[{"t":"t/avail"}]}`,
			wantDialect: DialectZigbee2MQTT,
			wantAvty:    "t/avail",
		},
		{
			name:        "esphome by software version",
			payload:     `{"stat_t":"bathroom-fan/status","dev":{"ids":"e1","sw":"esphome v2024.2.0"}}`,
			wantDialect: DialectESPHome,
			wantIDs:     "e1",
		},
		{
			name:        "esphome by origin",
			payload:     `{"stat_t":"x","o":{"name":"ESPHome"}}`,
			wantDialect: DialectESPHome,
		},
		{
			name:        "bare payload",
			payload:     `{}`,
			wantDialect: DialectHomeAssistant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := n.Descriptor(mustObject(t, tt.payload))
			if err != nil {
				t.Fatalf("Descriptor() error = %v", err)
			}
			if d.Dialect != tt.wantDialect {
				t.Errorf("Dialect = %q, want %q", d.Dialect, tt.wantDialect)
			}
			if d.DeviceIDs != tt.wantIDs {
				t.Errorf("DeviceIDs = %q, want %q", d.DeviceIDs, tt.wantIDs)
			}
			if d.AvailabilityTopic != tt.wantAvty {
				t.Errorf("AvailabilityTopic = %q, want %q", d.AvailabilityTopic, tt.wantAvty)
			}
		})
	}
}

func TestDescriptor_Zigbee2MQTTFixups(t *testing.T) {
	n := New()
	raw := mustObject(t, `{"dev":{"ids":["a","b"]},"avty":[{"topic":"t/avail"}]}`)

	d, err := n.Descriptor(raw)
	if err != nil {
		t.Fatalf("Descriptor() error = %v", err)
	}

	if _, ok := d.Attributes["avty"]; ok {
		t.Error("avty survived the availability fix-up")
	}
	if d.Attributes["avty_t"] != "t/avail" {
		t.Errorf("Attributes[avty_t] = %v, want t/avail", d.Attributes["avty_t"])
	}
	dev, ok := d.Attributes["dev"].(map[string]any)
	if !ok || dev["ids"] != "a" {
		t.Errorf("Attributes[dev] = %#v, want ids a", d.Attributes["dev"])
	}

	// Input untouched.
	if _, ok := raw["avty"]; !ok {
		t.Error("Descriptor() removed avty from its input")
	}
	if ids, ok := raw["dev"].(map[string]any)["ids"].([]any); !ok || len(ids) != 2 {
		t.Error("Descriptor() mutated input dev.ids")
	}
}

func TestDescriptor_TypedFields(t *testing.T) {
	n := New()
	d, err := n.Descriptor(mustObject(t, `{
		"stat_t":"a/state","val_tpl":"{{ value_json.x }}","dev_cla":"humidity",
		"name":"Bath","uniq_id":"bath-h"
	}`))
	if err != nil {
		t.Fatalf("Descriptor() error = %v", err)
	}

	if d.StateTopic != "a/state" || d.ValueTemplate != "{{ value_json.x }}" {
		t.Errorf("topic fields = %q/%q", d.StateTopic, d.ValueTemplate)
	}
	if d.DeviceClass != "humidity" || d.Name != "Bath" || d.UniqueID != "bath-h" {
		t.Errorf("descriptive fields = %q/%q/%q", d.DeviceClass, d.Name, d.UniqueID)
	}
	if !d.HasValueTemplate() {
		t.Error("HasValueTemplate() = false")
	}
}

func TestDescriptor_Rejects(t *testing.T) {
	n := New()

	tests := []struct {
		name    string
		payload string
	}{
		{"numeric state topic", `{"stat_t":12}`},
		{"object availability topic", `{"avty_t":{"topic":"x"}}`},
		{"non-string template", `{"val_tpl":["x"]}`},
		{"dev not object", `{"dev":"x"}`},
		{"ids number", `{"dev":{"ids":5}}`},
		{"ids empty list", `{"dev":{"ids":[]}}`},
		{"ids mixed list", `{"dev":{"ids":["a",1]}}`},
		{"avty not list", `{"avty":{"topic":"x"}}`},
		{"avty empty", `{"avty":[]}`},
		{"avty entry not object", `{"avty":["x"]}`},
		{"avty entry without topic", `{"avty":[{"payload_available":"on"}]}`},
		{"avty later entry bad", `{"avty":[{"topic":"a"},{"topic":3}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Descriptor(mustObject(t, tt.payload))
			if !errors.Is(err, ErrUnrecognisedDialect) {
				t.Errorf("Descriptor(%s) error = %v, want ErrUnrecognisedDialect", tt.payload, err)
			}
		})
	}
}

// =============================================================================
// Output Tests
// =============================================================================

func TestOutput(t *testing.T) {
	n := New()

	tests := []struct {
		name      string
		component string
		attrs     string
		status    any
		value     any
		want      *HomeKit
	}{
		{
			name:      "switch default payload on",
			component: "switch",
			value:     "ON",
			want:      &HomeKit{Service: ServiceSwitch, Characteristics: map[string]any{"On": true}},
		},
		{
			name:      "switch off",
			component: "switch",
			value:     "OFF",
			want:      &HomeKit{Service: ServiceSwitch, Characteristics: map[string]any{"On": false}},
		},
		{
			name:      "switch custom payload",
			component: "switch",
			attrs:     `{"pl_on":"1"}`,
			value:     float64(1),
			want:      &HomeKit{Service: ServiceSwitch, Characteristics: map[string]any{"On": true}},
		},
		{
			name:      "switch bool value with status",
			component: "switch",
			status:    "online",
			value:     true,
			want: &HomeKit{Service: ServiceSwitch, Characteristics: map[string]any{
				"On": true, CharacteristicStatusActive: true,
			}},
		},
		{
			name:      "temperature from string",
			component: "sensor",
			attrs:     `{"dev_cla":"temperature"}`,
			value:     "21.5",
			want: &HomeKit{Service: ServiceTemperatureSensor, Characteristics: map[string]any{
				"CurrentTemperature": 21.5,
			}},
		},
		{
			name:      "humidity offline",
			component: "sensor",
			attrs:     `{"dev_cla":"humidity","pl_avail":"up"}`,
			status:    "down",
			value:     float64(40),
			want: &HomeKit{Service: ServiceHumiditySensor, Characteristics: map[string]any{
				"CurrentRelativeHumidity": float64(40), CharacteristicStatusActive: false,
			}},
		},
		{
			name:      "zigbee2mqtt bridge state object",
			component: "sensor",
			attrs:     `{"dev_cla":"battery"}`,
			status:    map[string]any{"state": "online"},
			value:     float64(99),
			want: &HomeKit{Service: ServiceBattery, Characteristics: map[string]any{
				"BatteryLevel": float64(99), CharacteristicStatusActive: true,
			}},
		},
		{name: "unknown sensor class", component: "sensor", attrs: `{"dev_cla":"voltage"}`, value: 3.3},
		{name: "unparseable sensor value", component: "sensor", attrs: `{"dev_cla":"temperature"}`, value: "warm"},
		{name: "unresolved switch", component: "switch"},
		{name: "unsupported component", component: "light", value: "ON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := "{}"
			if tt.attrs != "" {
				attrs = tt.attrs
			}
			d, err := n.Descriptor(mustObject(t, attrs))
			if err != nil {
				t.Fatalf("Descriptor() error = %v", err)
			}

			got := n.Output(tt.component, d, tt.status, tt.value)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Output() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
