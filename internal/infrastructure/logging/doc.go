// Package logging provides structured logging for the discovery service.
//
// It wraps log/slog so every package logs with the same handler, level
// filtering and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("fetch devices", "prefix", "homeassistant")
//	logger.Error("getDevices timeout", "topic", "homeassistant/#")
//
// Never log broker passwords, InfluxDB tokens or JWT secrets.
package logging
