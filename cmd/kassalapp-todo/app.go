package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/nerrad567/kassalapp-todo/migrations"

	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/config"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/database"
	"github.com/nerrad567/kassalapp-todo/internal/infrastructure/logging"
	"github.com/nerrad567/kassalapp-todo/internal/kassalapp"
	"github.com/nerrad567/kassalapp-todo/internal/ordering"
)

// defaultConfigPath is used when neither --config nor KASSALAPP_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

// app carries what every subcommand needs.
type app struct {
	configPath string
	jsonOutput bool
}

// resolveConfigPath picks the config file: flag, then KASSALAPP_CONFIG, then
// the default.
func (a *app) resolveConfigPath() string {
	if a.configPath != "" {
		return a.configPath
	}
	if path := os.Getenv("KASSALAPP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func (a *app) loadConfig() (*config.Config, error) {
	path := a.resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// newAPIClient builds the Kassalapp client from config.
func newAPIClient(cfg *config.Config) *kassalapp.Client {
	return kassalapp.New(kassalapp.Options{
		Token:             cfg.Kassalapp.Token,
		BaseURL:           cfg.Kassalapp.BaseURL,
		Timeout:           cfg.GetRequestTimeout(),
		RequestsPerMinute: cfg.Kassalapp.RequestsPerMinute,
	})
}

// openedStore is a loaded ordering store plus whatever must be closed with it.
type openedStore struct {
	store *ordering.Store
	db    *database.DB
}

func (o *openedStore) Close() error {
	if o.db == nil {
		return nil
	}
	return o.db.Close()
}

// openStore opens the configured backend and loads the record. The sqlite
// backend runs pending migrations first.
func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (*openedStore, error) {
	out := &openedStore{}

	var backend ordering.Backend
	switch cfg.Storage.Backend {
	case config.StorageBackendSQLite:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		out.db = db
		backend = ordering.NewSQLiteBackend(db, cfg.Storage.Key)
		log.Info("ordering store on sqlite", "path", db.Path(), "key", cfg.Storage.Key)
	default:
		backend = ordering.NewFileBackend(cfg.Storage.Path)
		log.Info("ordering store on file", "path", cfg.Storage.Path)
	}

	out.store = ordering.NewStore(backend)
	out.store.SetLogger(log.Component("ordering"))
	if err := out.store.Load(ctx); err != nil {
		out.Close()
		return nil, fmt.Errorf("loading ordering store: %w", err)
	}
	return out, nil
}

// openDatabase opens and returns the database for the db subcommands.
func openDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
