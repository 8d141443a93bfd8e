package mqtt

import "fmt"

// TopicPrefixService is the root for topics this service publishes itself.
const TopicPrefixService = "ha-discovery"

// Topics builds the topics the client publishes on its own behalf.
// Discovery and live-update filters belong to the discovery package.
type Topics struct{}

// ServiceStatus returns the retained availability topic for this service,
// carrying "online" while connected and "offline" as the Last Will.
//
// Example: ha-discovery/ha-discovery-01/status
func (Topics) ServiceStatus(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixService, clientID)
}
