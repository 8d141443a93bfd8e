// Package mqtt provides MQTT client connectivity for the discovery service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Publishing (Home Assistant birth message, service status)
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The discovery service is a passive listener on a Home Assistant style
// broker. Devices and gateways (zigbee2mqtt, ESPHome, Tasmota) publish
// retained discovery payloads under the discovery root and state payloads
// on topics named inside those payloads.
//
//	Gateways → MQTT Broker → ha-discovery → REST / WebSocket / InfluxDB
//
// # Handler Semantics
//
// Handlers receive the concrete topic and raw payload. Panics inside a
// handler are recovered and logged; returned errors are logged at warn.
// Delivery is unordered across subscriptions (SetOrderMatters(false)), so a
// handler may subscribe or unsubscribe without stalling the router.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("#", 0,
//	    func(topic string, payload []byte) error {
//	        log.Printf("%s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
