package normalize

// Canonical keys used by the registry.
const (
	KeyAvailabilityTopic  = "avty_t"
	KeyAvailability       = "avty"
	KeyStateTopic         = "stat_t"
	KeyValueTemplate      = "val_tpl"
	KeyDevice             = "dev"
	KeyDeviceIdentifiers  = "ids"
	KeyDeviceSoftware     = "sw"
	KeyDeviceClass        = "dev_cla"
	KeyOrigin             = "o"
	KeyName               = "name"
	KeyUniqueID           = "uniq_id"
	KeyPayloadOn          = "pl_on"
	KeyPayloadOff         = "pl_off"
	KeyPayloadAvailable   = "pl_avail"
	KeyPayloadUnavailable = "pl_not_avail"
	KeyUnitOfMeasurement  = "unit_of_meas"
)

// abbreviations maps long-form discovery keys to their abbreviated form.
// Subset of the Home Assistant MQTT abbreviation table covering the keys
// sensors, switches and their availability blocks publish.
var abbreviations = map[string]string{
	"action_topic":                 "act_t",
	"action_template":              "act_tpl",
	"availability":                 KeyAvailability,
	"availability_mode":            "avty_mode",
	"availability_template":        "avty_tpl",
	"availability_topic":           KeyAvailabilityTopic,
	"command_template":             "cmd_tpl",
	"command_topic":                "cmd_t",
	"device":                       KeyDevice,
	"device_class":                 KeyDeviceClass,
	"enabled_by_default":           "en",
	"encoding":                     "e",
	"entity_category":              "ent_cat",
	"entity_picture":               "ent_pic",
	"expire_after":                 "exp_aft",
	"force_update":                 "frc_upd",
	"icon":                         "ic",
	"json_attributes_template":     "json_attr_tpl",
	"json_attributes_topic":        "json_attr_t",
	"last_reset_value_template":    "lrst_val_tpl",
	"object_id":                    "obj_id",
	"optimistic":                   "opt",
	"origin":                       KeyOrigin,
	"payload_available":            KeyPayloadAvailable,
	"payload_not_available":        KeyPayloadUnavailable,
	"payload_off":                  KeyPayloadOff,
	"payload_on":                   KeyPayloadOn,
	"qos":                          "qos",
	"retain":                       "ret",
	"state_class":                  "stat_cla",
	"state_off":                    "stat_off",
	"state_on":                     "stat_on",
	"state_topic":                  KeyStateTopic,
	"state_value_template":         "stat_val_tpl",
	"suggested_display_precision":  "sug_dsp_prc",
	"unique_id":                    KeyUniqueID,
	"unit_of_measurement":          KeyUnitOfMeasurement,
	"value_template":               KeyValueTemplate,
	"options":                      "ops",
	"platform":                     "p",
	"json_attributes":              "json_attr",
	"payload_available_template":   "pl_avail_tpl",
	"payload_unavailable_template": "pl_not_avail_tpl",
}

// deviceAbbreviations applies inside the "dev" block.
var deviceAbbreviations = map[string]string{
	"configuration_url": "cu",
	"connections":       "cns",
	"hw_version":        "hw",
	"identifiers":       KeyDeviceIdentifiers,
	"manufacturer":      "mf",
	"model":             "mdl",
	"model_id":          "mdl_id",
	"serial_number":     "sn",
	"suggested_area":    "sa",
	"sw_version":        KeyDeviceSoftware,
	"via_device":        "via_dev",
}

// originAbbreviations applies inside the "o" block.
var originAbbreviations = map[string]string{
	"sw_version":  KeyDeviceSoftware,
	"support_url": "url",
}

// ExpandShorthand returns a copy of raw with every key in canonical
// (abbreviated) form. Keys already canonical, and unknown keys, pass
// through unchanged. When both forms are present the abbreviated one wins.
// Nested "dev" and "o" objects are canonicalised with their own tables.
func (Normalizer) ExpandShorthand(raw map[string]any) map[string]any {
	out := canonicalise(raw, abbreviations)

	if dev, ok := out[KeyDevice].(map[string]any); ok {
		out[KeyDevice] = canonicalise(dev, deviceAbbreviations)
	}
	if origin, ok := out[KeyOrigin].(map[string]any); ok {
		out[KeyOrigin] = canonicalise(origin, originAbbreviations)
	}
	return out
}

func canonicalise(raw map[string]any, table map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		short, isLong := table[k]
		if !isLong {
			out[k] = v
			continue
		}
		if _, exists := raw[short]; exists && short != k {
			continue
		}
		out[short] = v
	}
	return out
}
