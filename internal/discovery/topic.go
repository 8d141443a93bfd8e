package discovery

import (
	"fmt"
	"strings"
)

// configSuffix is the last segment of every discovery topic.
const configSuffix = "config"

// Segments is a decomposed discovery topic.
type Segments struct {
	Prefix    string
	Component string
	NodeID    string // empty for 4-segment topics
	ObjectID  string
	Last      string
}

// ID returns the device identity "component/[node_id/]object_id".
func (s Segments) ID() string {
	if s.NodeID == "" {
		return s.Component + "/" + s.ObjectID
	}
	return s.Component + "/" + s.NodeID + "/" + s.ObjectID
}

// ParseTopic splits a discovery topic into its segments.
//
//	homeassistant/binary_sensor/garden/config               4 segments
//	homeassistant/sensor/0x00158d000392b2df/contact/config  5 segments
//
// Any other segment count returns ErrInvalidTopic.
func ParseTopic(topic string) (Segments, error) {
	parts := strings.Split(topic, "/")

	switch len(parts) {
	case 4:
		return Segments{
			Prefix:    parts[0],
			Component: parts[1],
			ObjectID:  parts[2],
			Last:      parts[3],
		}, nil
	case 5:
		return Segments{
			Prefix:    parts[0],
			Component: parts[1],
			NodeID:    parts[2],
			ObjectID:  parts[3],
			Last:      parts[4],
		}, nil
	default:
		return Segments{}, fmt.Errorf("%w: %q has %d segments, want 4 or 5", ErrInvalidTopic, topic, len(parts))
	}
}

// IsDiscoveryTopic reports whether topic is a discovery config topic under root.
func IsDiscoveryTopic(root, topic string) bool {
	seg, err := ParseTopic(topic)
	if err != nil {
		return false
	}
	return seg.Prefix == root && seg.Last == configSuffix
}

// ComponentOf returns the component segment of topic, or "" if the topic
// is malformed.
func ComponentOf(topic string) string {
	seg, err := ParseTopic(topic)
	if err != nil {
		return ""
	}
	return seg.Component
}

// NormalizeRoot strips trailing "/", "+" and "#" from a configured prefix,
// so "homeassistant/#" becomes "homeassistant".
func NormalizeRoot(prefix string) string {
	return strings.TrimRight(prefix, "/+#")
}
