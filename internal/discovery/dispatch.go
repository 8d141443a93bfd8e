package discovery

import (
	"errors"
	"sort"
)

// OnDeviceChanged registers fn to receive a copy of every device whose
// state is recomputed by a live update. The returned function removes it.
//
// Listeners run on the goroutine delivering the bus message, in
// registration order, after the Service's lock is released.
func (s *Service) OnDeviceChanged(fn func(Device)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// HandleConnect runs a refresh scan and, once it finishes, subscribes to
// every topic for live updates. Wire it to the bus's connect and reconnect
// events.
func (s *Service) HandleConnect() {
	s.GetDevices(true, func(_ []Device, err error) {
		switch {
		case errors.Is(err, ErrClosed):
			return
		case err != nil && !errors.Is(err, ErrScanTimeout):
			s.logger.Warn("discovery scan after connect failed", "error", err)
		}
		s.subscribeLive()
	})
}

// subscribeLive subscribes liveTopic with the live handler.
func (s *Service) subscribeLive() {
	s.busMu.Lock()
	defer s.busMu.Unlock()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	if err := s.bus.Subscribe(liveTopic, s.opts.QoS, s.handleLive); err != nil {
		s.logger.Error("live subscribe failed", "topic", liveTopic, "error", err)
		return
	}

	s.mu.Lock()
	s.live = true
	s.mu.Unlock()
	s.logger.Info("subscribed to live updates", "topic", liveTopic)
}

// handleLive is the handler for liveTopic. Discovery topics are left to
// the scan handler.
func (s *Service) handleLive(topic string, payload []byte) {
	if s.IsDiscoveryTopic(topic) {
		return
	}
	s.dispatch(topic, payload)
}

// dispatch caches payload for topic, recomputes every device that reads
// the topic and notifies listeners once per affected device.
func (s *Service) dispatch(topic string, payload []byte) {
	value := s.norm.Decode(payload)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.values[topic] = value

	ids := s.index.lookup(topic)
	positions := make([]int, 0, len(ids))
	for _, id := range ids {
		if idx, ok := s.byID[id]; ok {
			positions = append(positions, idx)
		}
	}
	sort.Ints(positions)

	changed := make([]Device, 0, len(positions))
	for _, idx := range positions {
		d := &s.devices[idx]
		s.refresh(d)
		changed = append(changed, *d)
	}

	var listeners []listener
	if len(changed) > 0 {
		listeners = append(listeners, s.listeners...)
	}
	s.mu.Unlock()

	for _, d := range changed {
		for _, l := range listeners {
			l.fn(d)
		}
	}
}
