package normalize

import (
	"bytes"
	"encoding/json"
)

// Normalizer implements payload detection, canonicalisation, dialect
// decoding and HomeKit output for Home Assistant style discovery.
type Normalizer struct{}

// New creates a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// IsJSON reports whether payload is a complete JSON value.
// Empty and whitespace-only payloads are not JSON.
func (Normalizer) IsJSON(payload []byte) bool {
	if len(bytes.TrimSpace(payload)) == 0 {
		return false
	}
	return json.Valid(payload)
}

// Decode returns the JSON-decoded payload when it is JSON, otherwise the
// payload as a string. Objects decode to map[string]any and numbers to
// float64.
func (n Normalizer) Decode(payload []byte) any {
	if !n.IsJSON(payload) {
		return string(payload)
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return string(payload)
	}
	return v
}
