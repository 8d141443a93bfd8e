// Package discovery builds and maintains a registry of smart-home devices
// announced over MQTT using the Home Assistant discovery convention.
//
// Discovery topics have one of two shapes:
//
//	<prefix>/<component>/<object_id>/config
//	<prefix>/<component>/<node_id>/<object_id>/config
//
// A Service runs discovery scans: it subscribes to "<prefix>/#", collects
// retained discovery payloads, and declares the scan complete once a poll
// interval passes without new discovery messages (quiescence), or fails it
// after a hard timeout. Only "sensor" and "switch" components are
// registered.
//
// Between scans the Service keeps every device's availability status,
// current value and HomeKit representation up to date from the latest
// payload seen on its state and availability topics, and notifies
// listeners registered with OnDeviceChanged.
//
// # Usage
//
//	svc := discovery.NewService(bus, normalize.New(), discovery.Options{
//	    Prefix:       "homeassistant",
//	    PollInterval: 500 * time.Millisecond,
//	    ScanTimeout:  5 * time.Second,
//	})
//	svc.SetLogger(log)
//	cancel := svc.OnDeviceChanged(func(d discovery.Device) { ... })
//	defer cancel()
//
//	mqttClient.SetOnConnect(func() { svc.HandleConnect() })
//	devices, err := svc.Devices(ctx, false)
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Bus calls and listener
// callbacks are never made while the Service's internal lock is held.
package discovery
