// Gray Logic Capture - Fleet Diagnostics Platform
//
// This is the main entry point for the Gray Logic Capture service.
// Gray Logic Capture ingests diagnostic archives uploaded from deployed
// lighting-control installations and turns them into queryable fleet
// history:
//   - Strict, bounded archive unpacking (zip bombs fail the capture)
//   - Per-device snapshots with field-level diffs against the previous capture
//   - REST API for projects, captures, device views, and fleet statistics
//   - Optional MQTT capture events and InfluxDB fleet metrics
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/nerrad567/gray-logic-capture/migrations"

	"github.com/nerrad567/gray-logic-capture/internal/api"
	"github.com/nerrad567/gray-logic-capture/internal/capture"
	"github.com/nerrad567/gray-logic-capture/internal/diff"
	"github.com/nerrad567/gray-logic-capture/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-capture/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-capture/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-capture/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-capture/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-capture/internal/ingest"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Capture",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise capture store and ingestion engine
	store := capture.NewSQLiteStore(db.DB)
	engine := ingest.NewEngine(store, ingest.Limits{
		MaxArchiveBytes: cfg.Ingest.MaxArchiveBytes,
		MaxEntryBytes:   cfg.Ingest.MaxEntryBytes,
		MaxEntries:      cfg.Ingest.MaxEntries,
	}, cfg.Ingest.Workers, log)
	log.Info("ingestion engine initialised",
		"workers", cfg.Ingest.Workers,
		"max_archive_bytes", cfg.Ingest.MaxArchiveBytes,
	)

	// Initialise device view service
	views := diff.NewService(store)
	views.SetLogger(log)
	views.SetHistoryTail(cfg.Ingest.HistoryTail)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		// Set up MQTT logging callbacks
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		// Announce committed captures on the bus
		engine.SetNotifier(&captureAnnouncer{client: mqttClient, log: log})
	} else {
		log.Info("MQTT notifier disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		// Record fleet metrics for committed captures
		engine.SetMetrics(&fleetMetrics{client: influxClient})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the HTTP API server
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		Ingest:  cfg.Ingest,
		Logger:  log,
		Store:   store,
		Engine:  engine,
		Views:   views,
		DB:      db,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Gray Logic Capture stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYCAPTURE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYCAPTURE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if enabled)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// captureAnnouncer publishes a capture-ingested event after each commit.
// The engine calls notifiers inline, so the publish (which waits on broker
// acknowledgement) runs in its own goroutine.
type captureAnnouncer struct {
	client *mqtt.Client
	log    *logging.Logger
}

// CaptureIngested implements ingest.Notifier.
func (a *captureAnnouncer) CaptureIngested(result capture.IngestionResult) {
	go func() {
		payload, err := json.Marshal(result)
		if err != nil {
			a.log.Error("encoding capture event", "capture_id", result.CaptureID, "error", err)
			return
		}
		topic := mqtt.Topics{}.CaptureIngested(result.ProjectID)
		if err := a.client.PublishEvent(topic, payload); err != nil {
			a.log.Warn("publishing capture event",
				"topic", topic,
				"capture_id", result.CaptureID,
				"error", err,
			)
		}
	}()
}

// fleetMetrics records per-capture fleet metrics to InfluxDB after each
// commit. Writes are batched by the InfluxDB client and never block.
type fleetMetrics struct {
	client *influxdb.Client
}

// RecordCapture implements ingest.MetricsRecorder.
//
// One capture_summary point is written per capture, plus one device_health
// and one device_signal point per device that reported the relevant field.
// All points carry the capture timestamp, not the ingestion time, so
// backfilled archives land on the correct point in fleet history.
func (m *fleetMetrics) RecordCapture(c *capture.Capture, snapshots []capture.DeviceSnapshot) {
	crashes := 0
	for i := range snapshots {
		crashes += len(snapshots[i].Crashes)
	}
	m.client.WriteCaptureSummary(c.ProjectID, c.ID, len(snapshots), crashes, c.Timestamp)

	for i := range snapshots {
		s := &snapshots[i]
		if s.Health != nil && s.Health.OverallHealthRate != nil && s.Health.OverallHealthRate.Numeric != nil {
			m.client.WriteDeviceHealth(c.ProjectID, s.DeviceID, *s.Health.OverallHealthRate.Numeric, c.Timestamp)
		}
		if s.Network != nil && s.Network.RSSI != nil {
			if rssi, err := strconv.ParseFloat(*s.Network.RSSI, 64); err == nil {
				m.client.WriteDeviceSignal(c.ProjectID, s.DeviceID, rssi, c.Timestamp)
			}
		}
	}
}
