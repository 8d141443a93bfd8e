// ha-discovery watches a Home Assistant MQTT discovery namespace, keeps a
// live registry of the sensors and switches announced there, and serves
// it over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/ha-discovery/migrations"

	"github.com/nerrad567/ha-discovery/internal/api"
	"github.com/nerrad567/ha-discovery/internal/discovery"
	"github.com/nerrad567/ha-discovery/internal/history"
	"github.com/nerrad567/ha-discovery/internal/infrastructure/config"
	"github.com/nerrad567/ha-discovery/internal/infrastructure/database"
	"github.com/nerrad567/ha-discovery/internal/infrastructure/influxdb"
	"github.com/nerrad567/ha-discovery/internal/infrastructure/logging"
	"github.com/nerrad567/ha-discovery/internal/infrastructure/mqtt"
	"github.com/nerrad567/ha-discovery/internal/recorder"
	"github.com/nerrad567/ha-discovery/internal/scheduler"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled. Deferred
// closes run in reverse start order.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting ha-discovery",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"discovery_prefix", cfg.Discovery.DiscoveryRoot(),
	)

	health := map[string]api.HealthChecker{}

	// History (optional)
	var historyRepo *history.SQLiteRepository
	if cfg.History.Enabled {
		db, dbErr := openDatabase(ctx, cfg.Database)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database ready", "path", db.Path())

		historyRepo = history.NewSQLiteRepository(db.DB)
		health["database"] = db
	} else {
		log.Info("device history disabled")
	}

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	health["mqtt"] = mqttClient
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// InfluxDB (optional)
	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
			st := influxClient.Stats()
			log.Info("InfluxDB connection closed", "points", st.Points, "failed_batches", st.Failed)
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", influxClient.Bucket())
	}

	// Discovery
	svc := discovery.NewService(&mqttBus{client: mqttClient}, nil, discovery.Options{
		Prefix:       cfg.Discovery.DiscoveryRoot(),
		PollInterval: cfg.Discovery.PollInterval,
		ScanTimeout:  cfg.Discovery.ScanTimeout,
		QoS:          byte(cfg.Discovery.QoS),
		BirthMessage: cfg.Discovery.BirthMessage,
	})
	svc.SetLogger(log.Component("discovery"))
	defer func() {
		log.Info("closing discovery service")
		if closeErr := svc.Close(); closeErr != nil {
			log.Error("error closing discovery service", "error", closeErr)
		}
	}()

	// API + recorder
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Discovery: svc,
		History:   historyReader(historyRepo),
		Health:    health,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	rec := recorder.New(recorder.Deps{
		History: historyWriter(historyRepo),
		Values:  valueWriter(influxClient),
		Hub:     hub,
		Logger:  log.Component("recorder"),
	})
	detach := rec.Attach(svc)
	defer detach()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Rescan and go live on every (re)connect. The initial connect has
	// already happened, so run it once by hand.
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		svc.HandleConnect()
	})
	svc.HandleConnect()

	sched, err := scheduler.New(scheduler.Deps{
		Discovery:      svc,
		RescanSchedule: cfg.Discovery.RescanSchedule,
		History:        historyPruner(historyRepo),
		PruneSchedule:  cfg.History.PruneSchedule,
		Retention:      cfg.History.Retention,
		Logger:         log.Component("scheduler"),
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	if err := healthCheck(ctx, health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return sched.Run(egCtx)
	})
	eg.Go(func() error {
		<-egCtx.Done()
		log.Info("shutdown signal received, cleaning up")
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	log.Info("ha-discovery stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("HADISCOVERY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// healthCheck checks every registered component once at startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	var errs []error
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// The helpers below keep a nil concrete pointer from becoming a non-nil
// interface value.

func historyReader(r *history.SQLiteRepository) api.HistoryReader {
	if r == nil {
		return nil
	}
	return r
}

func historyWriter(r *history.SQLiteRepository) recorder.HistoryWriter {
	if r == nil {
		return nil
	}
	return r
}

func historyPruner(r *history.SQLiteRepository) scheduler.Pruner {
	if r == nil {
		return nil
	}
	return r
}

func valueWriter(c *influxdb.Client) recorder.ValueWriter {
	if c == nil {
		return nil
	}
	return c
}
