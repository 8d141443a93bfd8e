// Package influxdb records resolved device values as time series.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring. Every
// value the discovery service dispatches becomes one point in the
// "device_values" measurement, tagged by device ID, component and device
// class.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // optional sink, carry on without it
//	}
//	defer client.Close()
//
//	client.WriteDeviceValue("sensor/kitchen/temperature", "sensor", "temperature", 21.5)
//
// # Error Handling
//
// Writes never return errors; batch failures are delivered to the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
