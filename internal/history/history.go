package history

import (
	"context"
	"time"

	"github.com/nerrad567/ha-discovery/internal/discovery"
)

// Entry is one recorded device change.
type Entry struct {
	// ID is the auto-incremented primary key.
	ID int64 `json:"id"`

	// DeviceID is the discovery identity, e.g. "sensor/kitchen/temperature".
	DeviceID string `json:"device_id"`

	// Component is "sensor" or "switch".
	Component string `json:"component"`

	// Status is the availability payload at the time of the change (may be nil).
	Status any `json:"status"`

	// Value is the resolved device value at the time of the change (may be nil).
	Value any `json:"value"`

	// CreatedAt is when the change was recorded (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves device change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record stores the current status and value of d.
	Record(ctx context.Context, d discovery.Device) error

	// List returns the newest entries for deviceID, newest first.
	// limit <= 0 uses the default (50); values above 200 are clamped.
	List(ctx context.Context, deviceID string, limit int) ([]Entry, error)

	// Prune deletes entries older than olderThan and returns how many went.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}
