package normalize

import (
	"fmt"
	"strconv"
	"strings"
)

// HomeKit service names.
const (
	ServiceSwitch              = "Switch"
	ServiceTemperatureSensor   = "TemperatureSensor"
	ServiceHumiditySensor      = "HumiditySensor"
	ServiceLightSensor         = "LightSensor"
	ServiceBattery             = "Battery"
	ServiceCarbonDioxideSensor = "CarbonDioxideSensor"
	ServiceAirPressureSensor   = "AirPressureSensor"
)

// CharacteristicStatusActive is set when the availability payload is known.
const CharacteristicStatusActive = "StatusActive"

const (
	defaultPayloadOn        = "ON"
	defaultPayloadAvailable = "online"
)

// HomeKit is the bridge-ready representation of a resolved device.
type HomeKit struct {
	Service         string         `json:"service"`
	Characteristics map[string]any `json:"characteristics"`
}

// sensorServices maps a sensor device class to its service and the
// characteristic carrying the value.
var sensorServices = map[string]struct {
	service        string
	characteristic string
}{
	"temperature":    {ServiceTemperatureSensor, "CurrentTemperature"},
	"humidity":       {ServiceHumiditySensor, "CurrentRelativeHumidity"},
	"illuminance":    {ServiceLightSensor, "CurrentAmbientLightLevel"},
	"battery":        {ServiceBattery, "BatteryLevel"},
	"carbon_dioxide": {ServiceCarbonDioxideSensor, "CarbonDioxideLevel"},
	"pressure":       {ServiceAirPressureSensor, "AirPressure"},
}

// Output converts a resolved device into its HomeKit representation.
// Returns nil for unsupported components, unknown sensor classes and
// values that cannot be interpreted.
func (Normalizer) Output(component string, d Descriptor, status, value any) *HomeKit {
	var hk *HomeKit

	switch component {
	case "switch":
		on, ok := switchState(value, d.Attributes[KeyPayloadOn])
		if !ok {
			return nil
		}
		hk = &HomeKit{Service: ServiceSwitch, Characteristics: map[string]any{"On": on}}
	case "sensor":
		svc, known := sensorServices[d.DeviceClass]
		if !known {
			return nil
		}
		f, ok := toFloat(value)
		if !ok {
			return nil
		}
		hk = &HomeKit{Service: svc.service, Characteristics: map[string]any{svc.characteristic: f}}
	default:
		return nil
	}

	if status != nil {
		hk.Characteristics[CharacteristicStatusActive] = isAvailable(status, d.Attributes[KeyPayloadAvailable])
	}
	return hk
}

// switchState compares value against pl_on (default "ON").
func switchState(value, payloadOn any) (on, ok bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	}

	want := defaultPayloadOn
	if payloadOn != nil {
		want = fmt.Sprint(payloadOn)
	}
	return fmt.Sprint(value) == want, true
}

// isAvailable compares an availability payload against pl_avail
// (default "online"). Zigbee2MQTT bridges publish {"state":"online"}.
func isAvailable(status, payloadAvailable any) bool {
	if m, ok := status.(map[string]any); ok {
		status = m["state"]
	}
	want := defaultPayloadAvailable
	if payloadAvailable != nil {
		want = fmt.Sprint(payloadAvailable)
	}
	return fmt.Sprint(status) == want
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
