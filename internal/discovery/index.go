package discovery

import "slices"

// topicIndex maps a state or availability topic to the IDs of the devices
// reading it. IDs per topic are unique and kept in registration order.
type topicIndex map[string][]string

func (ix topicIndex) add(id string, topics ...string) {
	for _, t := range topics {
		if !slices.Contains(ix[t], id) {
			ix[t] = append(ix[t], id)
		}
	}
}

func (ix topicIndex) remove(id string, topics ...string) {
	for _, t := range topics {
		ids := slices.DeleteFunc(ix[t], func(v string) bool { return v == id })
		if len(ids) == 0 {
			delete(ix, t)
			continue
		}
		ix[t] = ids
	}
}

func (ix topicIndex) lookup(topic string) []string {
	return ix[topic]
}
