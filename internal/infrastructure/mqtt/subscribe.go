package mqtt

import (
	"fmt"
	"sort"
	"sync"
)

type subscription struct {
	filter  string
	qos     byte
	handler MessageHandler
}

// subscriptionSet is the set of filters restored after a reconnect, keyed
// by the exact filter string.
type subscriptionSet struct {
	mu   sync.RWMutex
	byID map[string]subscription
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{byID: make(map[string]subscription)}
}

func (s *subscriptionSet) put(sub subscription) {
	s.mu.Lock()
	s.byID[sub.filter] = sub
	s.mu.Unlock()
}

func (s *subscriptionSet) drop(filter string) {
	s.mu.Lock()
	delete(s.byID, filter)
	s.mu.Unlock()
}

func (s *subscriptionSet) has(filter string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[filter]
	return ok
}

func (s *subscriptionSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// all returns the subscriptions ordered by filter.
func (s *subscriptionSet) all() []subscription {
	s.mu.RLock()
	out := make([]subscription, 0, len(s.byID))
	for _, sub := range s.byID {
		out = append(out, sub)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].filter < out[j].filter })
	return out
}

// Subscribe registers handler for filter, which may use the + and #
// wildcards. Subscribing to the same filter again replaces the handler.
//
//	err := client.Subscribe("homeassistant/#", 0,
//	    func(topic string, payload []byte) error {
//	        return registry.Add(topic, payload)
//	    })
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := checkTopic(filter, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrSubscribeFailed, filter)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Tracked before the broker round trip so a reconnect in between
	// restores it.
	c.subs.put(subscription{filter: filter, qos: qos, handler: handler})

	err := await(c.client.Subscribe(filter, qos, c.wrapHandler(handler)), defaultPublishTimeout, ErrSubscribeFailed)
	if err != nil {
		c.subs.drop(filter)
		return err
	}
	return nil
}

// Unsubscribe removes filter. The filter is dropped from the restore set
// even when the client is disconnected. Messages already queued may still
// reach the old handler.
func (c *Client) Unsubscribe(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	c.subs.drop(filter)

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Unsubscribe(filter), defaultPublishTimeout, ErrUnsubscribeFailed)
}

// SubscriptionCount returns the number of tracked filters.
func (c *Client) SubscriptionCount() int {
	return c.subs.len()
}

// HasSubscription reports whether filter is tracked.
func (c *Client) HasSubscription(filter string) bool {
	return c.subs.has(filter)
}
