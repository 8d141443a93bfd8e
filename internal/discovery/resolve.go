package discovery

import (
	"fmt"
	"regexp"
	"strings"
)

// valueTemplatePattern matches "{{ value_json.<field-path> }}".
var valueTemplatePattern = regexp.MustCompile(`(?i)^\{\{\s*value_json\.([\w.\-]+)\s*\}\}$`)

// ParseValueTemplate extracts the field path from a value template.
//
//	ParseValueTemplate("{{ value_json.contact }}")  // "contact", nil
//	ParseValueTemplate("{{ value | float }}")      // "", ErrInvalidTemplate
func ParseValueTemplate(tpl string) (string, error) {
	m := valueTemplatePattern.FindStringSubmatch(tpl)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTemplate, tpl)
	}
	return m[1], nil
}

// lookupField returns obj[path], falling back to a dotted traversal of
// nested objects ("a.b" reads obj["a"]["b"]). Missing fields yield nil.
func lookupField(obj map[string]any, path string) any {
	if v, ok := obj[path]; ok {
		return v
	}
	if !strings.Contains(path, ".") {
		return nil
	}

	var cur any = obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[key]; !ok {
			return nil
		}
	}
	return cur
}

// resolveStatus returns the cached availability payload, or nil.
// Caller must hold s.mu.
func (s *Service) resolveStatus(d *Device) any {
	if d.AvailabilityTopic == "" {
		return nil
	}
	return s.values[d.AvailabilityTopic]
}

// resolveValue returns the device's current value from the cached state
// payload. With a value template the named field of the JSON object is
// returned; without one the payload is returned verbatim.
// Caller must hold s.mu.
func (s *Service) resolveValue(d *Device) (any, error) {
	if !IsSupportedComponent(d.Component) {
		return nil, nil
	}

	// The template is checked even without a state topic so a bad
	// val_tpl is always reported.
	var path string
	if d.HasValueTemplate() {
		p, err := ParseValueTemplate(d.ValueTemplate)
		if err != nil {
			return nil, err
		}
		path = p
	}
	if d.StateTopic == "" {
		return nil, nil
	}

	payload, ok := s.values[d.StateTopic]
	if !d.HasValueTemplate() {
		return payload, nil
	}
	if !ok {
		return nil, nil
	}
	obj, isObject := payload.(map[string]any)
	if !isObject {
		return nil, nil
	}
	return lookupField(obj, path), nil
}

// refresh recomputes the derived state of d from the payload cache.
// A malformed value template resolves to nil and is logged; it never
// affects other devices. Caller must hold s.mu.
func (s *Service) refresh(d *Device) {
	d.CurrentStatus = s.resolveStatus(d)

	value, err := s.resolveValue(d)
	if err != nil {
		s.logger.Warn("cannot resolve device value",
			"device", d.ID,
			"template", d.ValueTemplate,
			"error", err,
		)
	}
	d.CurrentValue = value
	d.HomeKit = s.norm.Output(d.Component, d.Descriptor, d.CurrentStatus, d.CurrentValue)
}
