package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ha-discovery/internal/infrastructure/config"
	"github.com/nerrad567/ha-discovery/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line-protocol bodies sent to /api/v2/write.
type fakeInflux struct {
	mu      sync.Mutex
	lines   []string
	healthy bool
	writeOK bool
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		f.mu.Lock()
		healthy := f.healthy
		f.mu.Unlock()
		if healthy {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test server
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.writeOK {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"invalid","message":"rejected"}`)) //nolint:errcheck // test server
			return
		}
		for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
			if line != "" {
				f.lines = append(f.lines, line)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeInflux) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func newFakeInflux(t *testing.T) (*fakeInflux, config.InfluxDBConfig) {
	t.Helper()
	fake := &fakeInflux{healthy: true, writeOK: true}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return fake, config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "devices",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// waitForLines polls until at least n lines have been received.
func waitForLines(t *testing.T, fake *fakeInflux, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if lines := fake.recorded(); len(lines) >= n {
			return lines
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, got %v", n, fake.recorded())
	return nil
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	_, cfg := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	_, cfg := newFakeInflux(t)
	cfg.Enabled = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	fake, cfg := newFakeInflux(t)
	fake.healthy = false

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, cfg := newFakeInflux(t)
	cfg.URL = "http://127.0.0.1:1" // nothing listens here

	_, err := influxdb.Connect(context.Background(), cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	_, cfg := newFakeInflux(t)
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck_AfterClose(t *testing.T) {
	_, cfg := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_ServerGoesDown(t *testing.T) {
	fake, cfg := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	fake.mu.Lock()
	fake.healthy = false
	fake.mu.Unlock()

	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() expected error for unhealthy server")
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteDeviceValue(t *testing.T) {
	fake, cfg := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.WriteDeviceValue("sensor/kitchen/temperature", "sensor", "temperature", 21.5)
	client.WriteDeviceValue("switch/hall/lamp", "switch", "", 1)
	client.Flush()

	lines := waitForLines(t, fake, 2)
	if st := client.Stats(); st.Points != 2 || st.Failed != 0 {
		t.Errorf("Stats() = %+v, want 2 points, 0 failed", st)
	}

	tests := []struct {
		name    string
		line    string
		want    []string
		notWant string
	}{
		{
			name: "sensor with class",
			line: lines[0],
			want: []string{
				"device_values,",
				"component=sensor",
				"device_class=temperature",
				"device_id=sensor/kitchen/temperature",
				" value=21.5 ",
			},
		},
		{
			name:    "switch without class",
			line:    lines[1],
			want:    []string{"component=switch", "device_id=switch/hall/lamp", " value=1 "},
			notWant: "device_class",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range tt.want {
				if !strings.Contains(tt.line, s) {
					t.Errorf("line %q missing %q", tt.line, s)
				}
			}
			if tt.notWant != "" && strings.Contains(tt.line, tt.notWant) {
				t.Errorf("line %q unexpectedly contains %q", tt.line, tt.notWant)
			}
		})
	}
}

func TestWriteDeviceValueAt_Timestamp(t *testing.T) {
	fake, cfg := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ts := time.Unix(1700000000, 0)
	client.WriteDeviceValueAt("sensor/a", "sensor", "", 3, ts)
	client.Flush()

	lines := waitForLines(t, fake, 1)
	if !strings.HasSuffix(lines[0], " 1700000000000000000") {
		t.Errorf("line %q does not end with nanosecond timestamp", lines[0])
	}
}

func TestWriteDeviceValue_AfterCloseIsNoop(t *testing.T) {
	fake, cfg := newFakeInflux(t)

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	client.WriteDeviceValue("sensor/a", "sensor", "", 1)
	client.Flush()

	time.Sleep(50 * time.Millisecond)
	if lines := fake.recorded(); len(lines) != 0 {
		t.Errorf("writes after Close reached server: %v", lines)
	}
}

func TestSetOnError(t *testing.T) {
	fake, cfg := newFakeInflux(t)
	fake.writeOK = false

	client, err := influxdb.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	errCh := make(chan error, 4)
	client.SetOnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	client.WriteDeviceValue("sensor/a", "sensor", "", 1)
	client.Flush()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("onError called with nil error")
		}
		if st := client.Stats(); st.Failed == 0 {
			t.Errorf("Stats().Failed = 0 after rejected batch")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("onError not called for rejected write")
	}
}
