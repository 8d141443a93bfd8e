package main

import (
	"github.com/nerrad567/ha-discovery/internal/discovery"
	"github.com/nerrad567/ha-discovery/internal/infrastructure/mqtt"
)

// mqttBus adapts the infrastructure MQTT client to discovery.Bus. The
// handler signatures differ: the client's handlers return an error, the
// discovery handlers do not.
type mqttBus struct {
	client *mqtt.Client
}

func (b *mqttBus) Subscribe(topic string, qos byte, handler discovery.MessageHandler) error {
	return b.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

func (b *mqttBus) Unsubscribe(topic string) error {
	return b.client.Unsubscribe(topic)
}

func (b *mqttBus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return b.client.Publish(topic, payload, qos, retained)
}
