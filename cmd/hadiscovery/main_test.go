package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/ha-discovery/internal/api"
	"github.com/nerrad567/ha-discovery/internal/history"
	"github.com/nerrad567/ha-discovery/internal/infrastructure/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HADISCOVERY_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want a config loading error", err)
	}
}

// TestRun_MissingDatabasePath verifies validation rejects history without a database.
func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("HADISCOVERY_CONFIG", writeConfig(t, `
database:
  path: ""
history:
  enabled: true
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
logging:
  level: error
  format: text
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_BrokerUnreachable verifies run fails cleanly when MQTT is down.
func TestRun_BrokerUnreachable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	t.Setenv("HADISCOVERY_CONFIG", writeConfig(t, `
database:
  path: "`+dbPath+`"
mqtt:
  broker:
    host: "127.0.0.1"
    port: 1
    client_id: "test-client"
logging:
  level: error
  format: text
`))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without a broker")
	}
	if !strings.Contains(err.Error(), "MQTT") {
		t.Errorf("run() error = %v, want an MQTT error", err)
	}
	if _, statErr := os.Stat(dbPath); statErr != nil {
		t.Errorf("database not created before MQTT connect: %v", statErr)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("HADISCOVERY_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("HADISCOVERY_CONFIG", "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q, want override", got)
	}
}

func TestOpenDatabase_Migrates(t *testing.T) {
	db, err := openDatabase(context.Background(), config.DatabaseConfig{
		Path:    filepath.Join(t.TempDir(), "nested", "test.db"),
		WALMode: true,
	})
	if err != nil {
		t.Fatalf("openDatabase() error = %v", err)
	}
	defer db.Close()

	pending, err := db.PendingMigrations(context.Background())
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending migrations = %v, want none", pending)
	}
}

type stubCheck struct{ err error }

func (s stubCheck) HealthCheck(context.Context) error { return s.err }

func TestHealthCheck(t *testing.T) {
	ok := map[string]api.HealthChecker{"mqtt": stubCheck{}, "database": stubCheck{}}
	if err := healthCheck(context.Background(), ok); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}

	down := errors.New("down")
	failing := map[string]api.HealthChecker{"mqtt": stubCheck{err: down}, "database": stubCheck{}}
	err := healthCheck(context.Background(), failing)
	if !errors.Is(err, down) || !strings.Contains(err.Error(), "mqtt") {
		t.Errorf("healthCheck() error = %v, want mqtt: down", err)
	}
}

func TestNilSinksStayNil(t *testing.T) {
	var repo *history.SQLiteRepository
	if historyReader(repo) != nil || historyWriter(repo) != nil || historyPruner(repo) != nil {
		t.Error("nil repository produced a non-nil interface")
	}
	if valueWriter(nil) != nil {
		t.Error("nil InfluxDB client produced a non-nil interface")
	}
}
