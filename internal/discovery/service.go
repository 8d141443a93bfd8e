package discovery

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/ha-discovery/internal/normalize"
)

// Default scan timing.
const (
	DefaultPrefix       = "homeassistant"
	DefaultPollInterval = 500 * time.Millisecond
	DefaultScanTimeout  = 5 * time.Second
)

// liveTopic receives every message on the broker once the first scan after
// a connect has finished.
const liveTopic = "#"

// MessageHandler receives one bus message.
type MessageHandler func(topic string, payload []byte)

// Bus is the message bus the Service subscribes through.
//
// Subscribing the same topic twice replaces the earlier handler. Several
// subscriptions may match one message; each matching handler is called.
type Bus interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Normalizer decodes bus payloads and discovery descriptors and renders
// the HomeKit representation of a device.
type Normalizer interface {
	IsJSON(payload []byte) bool
	Decode(payload []byte) any
	ExpandShorthand(raw map[string]any) map[string]any
	Descriptor(raw map[string]any) (normalize.Descriptor, error)
	Output(component string, d normalize.Descriptor, status, value any) *normalize.HomeKit
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Service. Zero values take the defaults.
type Options struct {
	// Prefix is the discovery root. Trailing "/", "+" and "#" are stripped.
	Prefix string

	// PollInterval is the quiescence window: a scan completes at the first
	// tick with no new discovery messages since the previous tick.
	PollInterval time.Duration

	// ScanTimeout bounds a scan that never goes quiet.
	ScanTimeout time.Duration

	// QoS for the discovery and live subscriptions.
	QoS byte

	// BirthMessage publishes "online" to "<prefix>/status" when a scan
	// starts, prompting integrations to re-announce their devices.
	BirthMessage bool
}

type listener struct {
	id uint64
	fn func(Device)
}

// Service owns the device registry, the latest-payload cache and the scan
// state for one discovery root.
type Service struct {
	bus    Bus
	norm   Normalizer
	opts   Options
	root   string
	logger Logger

	// busMu orders subscription changes so a finishing scan's unsubscribe
	// cannot land after a newer scan's subscribe. Acquired before mu.
	busMu sync.Mutex

	mu        sync.Mutex
	devices   []Device
	byID      map[string]int
	index     topicIndex
	values    map[string]any
	scan      *scan
	last      scanRecord
	live      bool
	listeners []listener
	nextID    uint64
	closed    bool
}

// NewService creates a Service. A nil normalizer uses normalize.New().
func NewService(bus Bus, norm Normalizer, opts Options) *Service {
	if norm == nil {
		norm = normalize.New()
	}
	if opts.Prefix = NormalizeRoot(opts.Prefix); opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = DefaultScanTimeout
	}

	return &Service{
		bus:    bus,
		norm:   norm,
		opts:   opts,
		root:   opts.Prefix,
		logger: noopLogger{},
		byID:   make(map[string]int),
		index:  make(topicIndex),
		values: make(map[string]any),
	}
}

// SetLogger sets the logger. Call before the Service starts receiving messages.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Root returns the normalised discovery root.
func (s *Service) Root() string {
	return s.root
}

// IsDiscoveryTopic reports whether topic is a discovery config topic under
// this Service's root.
func (s *Service) IsDiscoveryTopic(topic string) bool {
	return IsDiscoveryTopic(s.root, topic)
}

// wildcard returns the discovery subscription filter "<root>/#".
func (s *Service) wildcard() string {
	return s.root + "/#"
}

// Lookup returns a copy of the registered device with the given ID.
func (s *Service) Lookup(id string) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return s.devices[idx], nil
}

// snapshot copies the registry. Caller must hold s.mu.
func (s *Service) snapshot() []Device {
	out := make([]Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// resetRegistry empties the registry and topic index. Caller must hold s.mu.
func (s *Service) resetRegistry() {
	s.devices = nil
	s.byID = make(map[string]int)
	s.index = make(topicIndex)
}

// Close releases the Service: stops an in-flight scan, delivers ErrClosed
// to callbacks waiting on it, unsubscribes the discovery and live filters
// and drops all listeners. Safe to call more than once.
func (s *Service) Close() error {
	s.busMu.Lock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.busMu.Unlock()
		return nil
	}
	s.closed = true
	sc := s.scan
	s.scan = nil
	if sc != nil {
		sc.cancel()
	}
	live := s.live
	s.live = false
	s.listeners = nil
	s.mu.Unlock()

	var errs []error
	if sc != nil {
		if err := s.bus.Unsubscribe(s.wildcard()); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing %s: %w", s.wildcard(), err))
		}
	}
	if live {
		if err := s.bus.Unsubscribe(liveTopic); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribing %s: %w", liveTopic, err))
		}
	}
	s.busMu.Unlock()

	if sc != nil {
		deliver(sc.callbacks, nil, ErrClosed)
	}

	s.logger.Info("discovery service closed")
	return errors.Join(errs...)
}
