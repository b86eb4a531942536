package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/kassalapp-todo/internal/api"
	"github.com/nerrad567/kassalapp-todo/internal/bridge"
	"github.com/nerrad567/kassalapp-todo/internal/coordinator"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/config"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/influxdb"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/logging"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/mqtt"
	"github.com/nerrad567/kassalapp-todo/internal/telemetry"
	"github.com/nerrad567/kassalapp-todo/internal/todo"
)

// setupTimeout bounds token validation and list discovery at startup.
const setupTimeout = 60 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the to-do service until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}
}

// runServe wires every component and blocks until ctx is cancelled.
// Optional components (MQTT, InfluxDB, HTTP API) are skipped when disabled.
// Deferred closes run in reverse start order.
func runServe(ctx context.Context, a *app) error {
	log := logging.Default()
	log.Info("starting kassalapp-todo", "version", version, "commit", commit, "build_date", date)

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", a.resolveConfigPath(), "level", cfg.Logging.Level)

	checks := map[string]api.HealthChecker{}

	opened, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if saveErr := opened.store.Save(context.Background(), false); saveErr != nil {
			log.Error("final ordering save failed", "error", saveErr)
		}
		if closeErr := opened.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if opened.db != nil {
		checks["database"] = opened.db
	}

	client := newAPIClient(cfg)
	setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()
	if err := client.Validate(setupCtx); err != nil {
		return fmt.Errorf("validating kassalapp token: %w", err)
	}

	recorder := telemetry.NewRecorder()

	influxClient, err := connectInflux(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer influxClient.Close()
		recorder.SetPointWriter(influxClient)
		checks["influxdb"] = influxClient
	}

	platform := todo.NewPlatform(todo.PlatformConfig{
		EntryID:  cfg.Kassalapp.EntryID,
		API:      client,
		Store:    opened.store,
		Interval: cfg.Polling.Interval,
		OnRefresh: func(entityID string, r coordinator.RefreshResult) {
			recorder.ObserveRefresh(entityID, r)
		},
		Logger: log.Component("todo"),
	})
	platform.AddListener(recorder.ObserveEvent)
	if err := platform.Setup(setupCtx); err != nil {
		return fmt.Errorf("setting up to-do entities: %w", err)
	}
	log.Info("to-do entities ready", "entities", platform.EntityIDs())

	platform.Start(ctx)
	defer platform.Stop()

	mqttClient, err := startMQTT(cfg, platform, opened, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer mqttClient.Close()
		checks["mqtt"] = mqttClient
	}

	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log.Component("api"),
			Platform: platform,
			Store:    opened.store,
			Metrics:  recorder.Handler(),
			Checks:   checks,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer server.Close()
	}

	log.Info("kassalapp-todo running")
	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

func connectInflux(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	return client, nil
}

// startMQTT connects and starts the bridge. State is republished after
// every reconnect because the session is clean.
func startMQTT(cfg *config.Config, platform *todo.Platform, opened *openedStore, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))

	b := bridge.New(bridge.Options{
		Platform:  platform,
		Store:     opened.store,
		Publisher: client,
		Logger:    log.Component("bridge"),
	})
	if err := b.Start(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}
	client.SetOnConnect(b.PublishAll)

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}
