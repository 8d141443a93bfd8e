package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/ha-discovery/internal/discovery"
)

// devicesResponse is returned by the device list and scan endpoints.
// Partial is set when the scan timed out before the namespace went quiet.
type devicesResponse struct {
	Devices []discovery.Device   `json:"devices"`
	Count   int                  `json:"count"`
	Partial bool                 `json:"partial,omitempty"`
	Scan    *discovery.ScanState `json:"scan,omitempty"`
}

// handleListDevices returns the registry, scanning first when it is empty
// or refresh=true.
//
// Query parameters:
//   - refresh: force a new scan
//   - component: filter by component ("sensor" or "switch")
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "refresh must be a boolean")
			return
		}
		refresh = b
	}

	component := r.URL.Query().Get("component")
	if component != "" && !discovery.IsSupportedComponent(component) {
		writeBadRequest(w, "unsupported component: "+component)
		return
	}

	devices, partial, ok := s.loadDevices(r.Context(), w, refresh)
	if !ok {
		return
	}

	if component != "" {
		filtered := make([]discovery.Device, 0, len(devices))
		for _, d := range devices {
			if d.Component == component {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, devicesResponse{
		Devices: devices,
		Count:   len(devices),
		Partial: partial,
	})
}

// handleGetDevice returns a single device by its registry ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(chi.URLParam(r, "*"), "/")
	if id == "" {
		writeBadRequest(w, "device id is required")
		return
	}

	d, err := s.discovery.Lookup(id)
	if errors.Is(err, discovery.ErrDeviceNotFound) {
		writeNotFound(w, "device not found: "+id)
		return
	}
	if err != nil {
		writeInternalError(w, "looking up device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleScan runs a refresh scan and returns its result with the scan state.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	devices, partial, ok := s.loadDevices(r.Context(), w, true)
	if !ok {
		return
	}

	state := s.discovery.ScanState()
	writeJSON(w, http.StatusOK, devicesResponse{
		Devices: devices,
		Count:   len(devices),
		Partial: partial,
		Scan:    &state,
	})
}

// handleScanState returns the current and last scan.
func (s *Server) handleScanState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.discovery.ScanState())
}

// loadDevices runs Devices and writes the error response itself when the
// call fails. A timed-out scan is a partial success.
func (s *Server) loadDevices(ctx context.Context, w http.ResponseWriter, refresh bool) ([]discovery.Device, bool, bool) {
	devices, err := s.discovery.Devices(ctx, refresh)
	switch {
	case err == nil:
		return nonNil(devices), false, true
	case errors.Is(err, discovery.ErrScanTimeout):
		s.logger.Warn("returning partial device list", "devices", len(devices))
		return nonNil(devices), true, true
	case errors.Is(err, discovery.ErrClosed):
		writeUnavailable(w, "discovery service is shutting down")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeUnavailable(w, "scan cancelled")
	default:
		s.logger.Error("device scan failed", "error", err)
		writeInternalError(w, "device scan failed")
	}
	return nil, false, false
}

func nonNil(devices []discovery.Device) []discovery.Device {
	if devices == nil {
		return []discovery.Device{}
	}
	return devices
}
