// Package api provides the HTTP REST API and WebSocket server for the
// discovery service.
//
// It exposes the discovered device registry, scan control and state, the
// per-device change history, and a WebSocket feed of device changes.
// /health and /metrics (Prometheus) are served outside /api/v1.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// When security.jwt.secret is set, every /api/v1 route requires an HS256
// bearer token with a subject. WebSocket clients, which cannot set headers
// from a browser, may pass the token as the "token" query parameter.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
