// Package history keeps an audit trail of discovered device changes in SQLite.
//
// Every live update the discovery service dispatches can be recorded as an
// Entry holding the device's availability status and resolved value at that
// moment. The trail survives restarts and outages of the time-series store;
// it is not used to rebuild the registry, which always comes from a fresh
// discovery scan.
//
// Entries live in the device_history table created by the embedded
// migrations. Timestamps are UTC with millisecond precision.
package history
