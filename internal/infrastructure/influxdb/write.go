package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// MeasurementDeviceValues holds one point per resolved device value.
//
//	device_values,component=sensor,device_class=temperature,device_id=sensor/kitchen/temperature value=21.5
const MeasurementDeviceValues = "device_values"

// WriteDeviceValue queues value for deviceID at the current time. The
// device_class tag is omitted when empty.
func (c *Client) WriteDeviceValue(deviceID, component, deviceClass string, value float64) {
	c.WriteDeviceValueAt(deviceID, component, deviceClass, value, time.Now())
}

// WriteDeviceValueAt is WriteDeviceValue with an explicit timestamp.
func (c *Client) WriteDeviceValueAt(deviceID, component, deviceClass string, value float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	p := influxdb2.NewPointWithMeasurement(MeasurementDeviceValues).
		AddTag("device_id", deviceID).
		AddTag("component", component).
		AddField("value", value).
		SetTime(ts)
	if deviceClass != "" {
		p.AddTag("device_class", deviceClass)
	}

	c.writeAPI.WritePoint(p)
	c.points.Add(1)
}
