package discovery

// buildDevice turns a discovery message into an unregistered Device.
// The boolean result is false when the message must be dropped:
// malformed topics, non-object payloads, unrecognised dialects and
// unsupported components.
func (s *Service) buildDevice(topic string, payload []byte) (Device, bool) {
	seg, err := ParseTopic(topic)
	if err != nil {
		return Device{}, false
	}

	raw, ok := s.norm.Decode(payload).(map[string]any)
	if !ok {
		s.logger.Debug("dropping non-object discovery payload", "topic", topic)
		return Device{}, false
	}

	desc, err := s.norm.Descriptor(s.norm.ExpandShorthand(raw))
	if err != nil {
		s.logger.Debug("dropping discovery payload", "topic", topic, "error", err)
		return Device{}, false
	}

	if !IsSupportedComponent(seg.Component) {
		return Device{}, false
	}

	return Device{
		ID:         seg.ID(),
		Topic:      topic,
		Component:  seg.Component,
		NodeID:     seg.NodeID,
		ObjectID:   seg.ObjectID,
		Descriptor: desc,
	}, true
}

// register adds d to the registry, replacing an earlier entry with the
// same ID in place, and indexes its topics. Derived state is computed
// from the current payload cache. Caller must hold s.mu.
func (s *Service) register(d Device) {
	s.refresh(&d)

	if idx, exists := s.byID[d.ID]; exists {
		old := &s.devices[idx]
		s.index.remove(old.ID, old.topics()...)
		s.devices[idx] = d
	} else {
		s.byID[d.ID] = len(s.devices)
		s.devices = append(s.devices, d)
	}
	s.index.add(d.ID, d.topics()...)
}

// handleScanMessage is the discovery subscription handler for scan sc.
// Discovery messages are counted and registered; other messages under the
// root are dispatched while the live subscription is not yet in place.
func (s *Service) handleScanMessage(sc *scan, topic string, payload []byte) {
	if !s.IsDiscoveryTopic(topic) {
		s.mu.Lock()
		live := s.live || s.closed
		s.mu.Unlock()
		if !live {
			s.dispatch(topic, payload)
		}
		return
	}

	d, ok := s.buildDevice(topic, payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scan != sc {
		return // superseded or finished
	}
	sc.messages++
	if ok {
		s.register(d)
	}
}
