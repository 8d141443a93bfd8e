package discovery

import "errors"

// Domain errors for device discovery.
var (
	// ErrInvalidTopic is returned when a topic does not split into 4 or 5 segments.
	ErrInvalidTopic = errors.New("discovery: invalid topic")

	// ErrInvalidTemplate is returned when a value template is not of the
	// form "{{ value_json.<field> }}".
	ErrInvalidTemplate = errors.New("discovery: invalid value template")

	// ErrScanTimeout is returned when a scan hits its hard timeout before
	// the discovery stream went quiet. Devices collected so far are still
	// delivered alongside it.
	ErrScanTimeout = errors.New("discovery: scan timed out")

	// ErrClosed is returned by operations on a closed Service.
	ErrClosed = errors.New("discovery: service closed")

	// ErrDeviceNotFound is returned when a device ID is not in the registry.
	ErrDeviceNotFound = errors.New("discovery: device not found")
)
