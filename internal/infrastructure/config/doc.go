// Package config handles loading and validating the discovery service configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (HADISCOVERY_*)
//   - Validation of required fields
//   - Default value handling
//
// Durations (discovery.poll_interval, discovery.scan_timeout, history.retention)
// are written as Go duration strings, e.g. "500ms" or "168h".
//
// Security Considerations:
//   - Broker passwords, InfluxDB tokens and the JWT secret should be set via
//     environment variables rather than committed to the config file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Discovery.DiscoveryRoot())
package config
