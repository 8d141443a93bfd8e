// Package normalize turns raw Home Assistant MQTT discovery payloads into
// canonical device descriptors.
//
// It covers four steps the discovery service delegates:
//   - JSON detection and decoding of bus payloads
//   - Shorthand canonicalisation: long-form keys ("state_topic") become the
//     abbreviated keys ("stat_t") used throughout the registry
//   - Dialect decoding: Home Assistant, Zigbee2MQTT and ESPHome payloads are
//     validated and folded into one Descriptor; anything else is rejected
//     with ErrUnrecognisedDialect
//   - HomeKit output: a resolved device becomes a service name plus
//     characteristics for a downstream bridge
//
// The Normalizer is stateless and safe for concurrent use.
package normalize
