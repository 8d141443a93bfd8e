package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScanStatus is whether a scan is in flight.
type ScanStatus string

// Scan statuses.
const (
	ScanIdle     ScanStatus = "idle"
	ScanScanning ScanStatus = "scanning"
)

// ScanResult is how a finished scan ended.
type ScanResult string

// Scan results.
const (
	ScanComplete ScanResult = "complete"
	ScanTimedOut ScanResult = "timed_out"
	ScanFailed   ScanResult = "failed"
)

// ScanState reports the current and most recent scan.
type ScanState struct {
	Status    ScanStatus `json:"status"`
	ScanID    string     `json:"scan_id,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Messages  int        `json:"messages"`
	Devices   int        `json:"devices"`

	LastScanID     string     `json:"last_scan_id,omitempty"`
	LastResult     ScanResult `json:"last_result,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
	LastDuration   string     `json:"last_duration,omitempty"`
	LastMessages   int        `json:"last_messages"`
}

// scanRecord is the outcome of the last finished scan.
type scanRecord struct {
	id         string
	result     ScanResult
	finishedAt time.Time
	duration   time.Duration
	messages   int
}

// scan is one in-flight discovery scan. Fields other than stop are
// guarded by Service.mu.
type scan struct {
	id        string
	startedAt time.Time
	messages  int
	seen      int // messages at the previous poll tick
	callbacks []func([]Device, error)
	stop      chan struct{}
}

func (sc *scan) cancel() {
	close(sc.stop)
}

// GetDevices delivers the registry to callback.
//
// With refresh false and a non-empty registry the callback runs
// synchronously with the cached devices. Otherwise a scan runs and the
// callback fires when it completes, with ErrScanTimeout (plus the devices
// collected so far) if the stream never went quiet.
//
// A refresh while a scan is in flight supersedes it: the old scan stops
// and its callbacks are carried over to the new one. A non-refresh call
// with an empty registry joins the in-flight scan.
func (s *Service) GetDevices(refresh bool, callback func([]Device, error)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		callback(nil, ErrClosed)
		return
	}
	if !refresh && len(s.devices) > 0 {
		devices := s.snapshot()
		s.mu.Unlock()
		s.logger.Info("cache devices", "count", len(devices))
		callback(devices, nil)
		return
	}
	if !refresh && s.scan != nil {
		s.scan.callbacks = append(s.scan.callbacks, callback)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.startScan(callback)
}

// Devices is the blocking form of GetDevices.
func (s *Service) Devices(ctx context.Context, refresh bool) ([]Device, error) {
	type result struct {
		devices []Device
		err     error
	}
	ch := make(chan result, 1)

	s.GetDevices(refresh, func(devices []Device, err error) {
		ch <- result{devices, err}
	})

	select {
	case r := <-ch:
		return r.devices, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ScanState reports the in-flight scan, if any, and the last finished one.
func (s *Service) ScanState() ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := ScanState{
		Status:       ScanIdle,
		Devices:      len(s.devices),
		LastScanID:   s.last.id,
		LastResult:   s.last.result,
		LastMessages: s.last.messages,
	}
	if !s.last.finishedAt.IsZero() {
		finished := s.last.finishedAt
		st.LastFinishedAt = &finished
		st.LastDuration = s.last.duration.String()
	}
	if sc := s.scan; sc != nil {
		started := sc.startedAt
		st.Status = ScanScanning
		st.ScanID = sc.id
		st.StartedAt = &started
		st.Messages = sc.messages
	}
	return st
}

// startScan clears the registry, subscribes the discovery wildcard and
// starts the quiescence and timeout timers.
func (s *Service) startScan(callback func([]Device, error)) {
	s.busMu.Lock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.busMu.Unlock()
		callback(nil, ErrClosed)
		return
	}
	sc := &scan{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		callbacks: []func([]Device, error){callback},
		stop:      make(chan struct{}),
	}
	if old := s.scan; old != nil {
		old.cancel()
		sc.callbacks = append(old.callbacks, callback)
		s.logger.Info("scan superseded", "scan_id", old.id, "by", sc.id)
	}
	s.scan = sc
	s.resetRegistry()
	s.mu.Unlock()

	wildcard := s.wildcard()
	s.logger.Info("fetch devices", "scan_id", sc.id, "topic", wildcard)

	err := s.bus.Subscribe(wildcard, s.opts.QoS, func(topic string, payload []byte) {
		s.handleScanMessage(sc, topic, payload)
	})
	if err != nil {
		s.mu.Lock()
		owned := s.scan == sc
		if owned {
			s.scan = nil
			s.last = scanRecord{id: sc.id, result: ScanFailed, finishedAt: time.Now(), duration: time.Since(sc.startedAt)}
		}
		s.mu.Unlock()
		s.busMu.Unlock()

		if owned {
			sc.cancel()
			s.logger.Error("discovery subscribe failed", "topic", wildcard, "error", err)
			deliver(sc.callbacks, nil, fmt.Errorf("subscribing %s: %w", wildcard, err))
		}
		return
	}

	if s.opts.BirthMessage {
		if err := s.bus.Publish(s.root+"/status", []byte("online"), s.opts.QoS, false); err != nil {
			s.logger.Warn("publishing birth message failed", "error", err)
		}
	}

	go s.runScan(sc)
	s.busMu.Unlock()
}

// runScan drives sc until quiescence, timeout or cancellation.
func (s *Service) runScan(sc *scan) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	timeout := time.NewTimer(s.opts.ScanTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-sc.stop:
			return
		case <-ticker.C:
			if s.quiet(sc) {
				s.finishScan(sc, nil)
				return
			}
		case <-timeout.C:
			s.finishScan(sc, ErrScanTimeout)
			return
		}
	}
}

// quiet reports whether no discovery message arrived since the previous
// tick. At least one message is required, so an empty stream runs into
// the timeout.
func (s *Service) quiet(sc *scan) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := sc.messages > 0 && sc.messages == sc.seen
	sc.seen = sc.messages
	return done
}

// finishScan unsubscribes the discovery wildcard and delivers the registry
// to every callback waiting on sc. No-op if sc was superseded or closed.
func (s *Service) finishScan(sc *scan, scanErr error) {
	s.busMu.Lock()

	s.mu.Lock()
	if s.scan != sc {
		s.mu.Unlock()
		s.busMu.Unlock()
		return
	}
	s.scan = nil
	result := ScanComplete
	if scanErr != nil {
		result = ScanTimedOut
	}
	s.last = scanRecord{
		id:         sc.id,
		result:     result,
		finishedAt: time.Now(),
		duration:   time.Since(sc.startedAt),
		messages:   sc.messages,
	}
	messages := sc.messages
	devices := s.snapshot()
	s.mu.Unlock()

	wildcard := s.wildcard()
	if err := s.bus.Unsubscribe(wildcard); err != nil {
		s.logger.Warn("discovery unsubscribe failed", "topic", wildcard, "error", err)
	}
	s.busMu.Unlock()

	if errors.Is(scanErr, ErrScanTimeout) {
		s.logger.Error(fmt.Sprintf("getDevices timeout, unsubscribe %q", wildcard),
			"scan_id", sc.id,
			"messages", messages,
			"devices", len(devices),
		)
	} else {
		s.logger.Info("devices fetched",
			"scan_id", sc.id,
			"messages", messages,
			"devices", len(devices),
			"duration", time.Since(sc.startedAt),
		)
	}

	deliver(sc.callbacks, devices, scanErr)
}

// deliver invokes each callback with its own copy of devices.
func deliver(callbacks []func([]Device, error), devices []Device, err error) {
	for _, cb := range callbacks {
		var out []Device
		if devices != nil {
			out = make([]Device, len(devices))
			copy(out, devices)
		}
		cb(out, err)
	}
}
