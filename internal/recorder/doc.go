// Package recorder fans device change notifications out to the sinks that
// keep a record of them: the SQLite change history, the InfluxDB time
// series and WebSocket clients.
//
// Each sink is optional. A failing sink is logged and never blocks the
// others or the discovery dispatcher.
package recorder
