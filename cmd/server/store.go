package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/todo/internal/config"
	boltInfra "github.com/fastygo/todo/internal/infrastructure/bolt"
	"github.com/fastygo/todo/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/todo/internal/infrastructure/postgres"
	sqliteInfra "github.com/fastygo/todo/internal/infrastructure/sqlite"
	"github.com/fastygo/todo/internal/services/lifecycle"
	"github.com/fastygo/todo/repository"
	boltRepo "github.com/fastygo/todo/repository/bolt"
	"github.com/fastygo/todo/repository/memory"
	"github.com/fastygo/todo/repository/postgres"
	sqliteRepo "github.com/fastygo/todo/repository/sqlite"
)

// openStore connects the driver selected by STORE_DRIVER, registers its close
// hook with the manager and its "store" probe with the monitor.
func openStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, mon *monitor.Monitor, logger *zap.Logger) (repository.TodoRepository, error) {
	repo, err := dialStore(ctx, cfg, manager, mon, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Driver != config.DriverPostgres {
		mon.Register("store", repo.Ping)
	}
	return repo, nil
}

func dialStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, mon *monitor.Monitor, logger *zap.Logger) (repository.TodoRepository, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := pgInfra.RunMigrations(cfg, logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		manager.Register("postgres", func(context.Context) error {
			pool.Close()
			return nil
		})
		mon.Register("store", pgInfra.HealthCheck(pool))
		return postgres.NewTodoRepository(pool), nil

	case config.DriverSQLite:
		dir := ""
		if cfg.Migrations.Enabled {
			dir = cfg.Migrations.Path
		}
		db, err := sqliteInfra.Open(ctx, cfg.SQLite.Path, dir, logger)
		if err != nil {
			return nil, err
		}
		manager.Register("sqlite", func(context.Context) error {
			return db.Close()
		})
		return sqliteRepo.NewTodoRepository(db), nil

	case config.DriverBolt:
		db, err := boltInfra.Open(cfg.Bolt.Path, cfg.Bolt.Bucket)
		if err != nil {
			return nil, err
		}
		manager.Register("boltdb", func(context.Context) error {
			return db.Close()
		})
		return boltRepo.NewTodoRepository(db, cfg.Bolt.Bucket), nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, todos are lost on restart")
		return memory.NewTodoRepository(), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
