package recorder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/ha-discovery/internal/discovery"
	"github.com/nerrad567/ha-discovery/internal/normalize"
)

// ChannelDeviceChanged is the WebSocket channel carrying device updates.
const ChannelDeviceChanged = "device.changed"

// defaultWriteTimeout bounds one history insert.
const defaultWriteTimeout = 2 * time.Second

// HistoryWriter persists a device change.
type HistoryWriter interface {
	Record(ctx context.Context, d discovery.Device) error
}

// ValueWriter records numeric device values as time series.
type ValueWriter interface {
	WriteDeviceValue(deviceID, component, deviceClass string, value float64)
}

// Broadcaster pushes a payload to subscribers of a channel.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Source emits device changes.
type Source interface {
	OnDeviceChanged(fn func(discovery.Device)) (cancel func())
}

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the sinks. Nil sinks are skipped.
type Deps struct {
	History      HistoryWriter
	Values       ValueWriter
	Hub          Broadcaster
	Logger       Logger
	WriteTimeout time.Duration
}

// Recorder writes every device change to the configured sinks.
type Recorder struct {
	history HistoryWriter
	values  ValueWriter
	hub     Broadcaster
	logger  Logger
	timeout time.Duration
}

// New creates a Recorder.
func New(deps Deps) *Recorder {
	r := &Recorder{
		history: deps.History,
		values:  deps.Values,
		hub:     deps.Hub,
		logger:  deps.Logger,
		timeout: deps.WriteTimeout,
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	if r.timeout <= 0 {
		r.timeout = defaultWriteTimeout
	}
	return r
}

// Attach registers the Recorder with src. The returned function detaches it.
func (r *Recorder) Attach(src Source) (detach func()) {
	return src.OnDeviceChanged(r.Handle)
}

// Handle records one device change.
func (r *Recorder) Handle(d discovery.Device) {
	if r.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.history.Record(ctx, d); err != nil {
			r.logger.Warn("recording device history failed", "device", d.ID, "error", err)
		}
		cancel()
	}

	if r.values != nil {
		if v, ok := NumericValue(d); ok {
			r.values.WriteDeviceValue(d.ID, d.Component, d.DeviceClass, v)
		} else if d.CurrentValue != nil {
			r.logger.Debug("skipping non-numeric device value", "device", d.ID, "value", fmt.Sprint(d.CurrentValue))
		}
	}

	if r.hub != nil {
		r.hub.Broadcast(ChannelDeviceChanged, d)
	}
}

// NumericValue converts a device's current value into a float for time
// series storage. Switches use their HomeKit On state; booleans map to
// 1 and 0; numeric strings are parsed.
func NumericValue(d discovery.Device) (float64, bool) {
	if d.HomeKit != nil && d.HomeKit.Service == normalize.ServiceSwitch {
		if on, ok := d.HomeKit.Characteristics["On"].(bool); ok {
			return boolToFloat(on), true
		}
	}

	switch v := d.CurrentValue.(type) {
	case float64:
		return v, true
	case bool:
		return boolToFloat(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
