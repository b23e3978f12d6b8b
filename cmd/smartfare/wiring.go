package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/smartfare/internal/config"
	"github.com/pkordes/smartfare/internal/events"
	"github.com/pkordes/smartfare/internal/fixtures"
	"github.com/pkordes/smartfare/internal/repo"
	"github.com/pkordes/smartfare/internal/repo/memstore"
	"github.com/pkordes/smartfare/internal/service"
	"github.com/pkordes/smartfare/migrations"
)

type redisClient = redis.UniversalClient

// store is the set of repositories the services run on.
type store struct {
	vehicles repo.VehicleRepo
	accounts repo.AccountRepo
	journeys repo.JourneyRepo
	tx       repo.Transactor
	close    func()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger, migrate bool) (store, error) {
	if cfg.Store == config.StoreMemory {
		return openMemory(cfg, logger)
	}

	if migrate {
		if err := migrateUp(ctx, cfg.DatabaseURL, logger); err != nil {
			return store{}, err
		}
	}

	// pgxpool.New does not open connections immediately; Ping does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return store{}, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return store{}, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	return store{
		vehicles: repo.NewVehicleRepo(pool),
		accounts: repo.NewAccountRepo(pool),
		journeys: repo.NewJourneyRepo(pool),
		tx:       repo.NewTransactor(pool),
		close:    pool.Close,
	}, nil
}

func openMemory(cfg config.Config, logger *slog.Logger) (store, error) {
	mem := memstore.New()
	if cfg.SeedFile != "" {
		set, err := fixtures.LoadFile(cfg.SeedFile)
		if err != nil {
			return store{}, err
		}
		if err := set.Apply(mem); err != nil {
			return store{}, err
		}
		logger.Info("memory store seeded", "file", cfg.SeedFile,
			"vehicles", len(set.Vehicles), "accounts", len(set.Accounts))
	}
	return store{
		vehicles: mem,
		accounts: mem.Accounts(),
		journeys: mem.Journeys(),
		tx:       mem,
		close:    func() {},
	}, nil
}

// openEvents builds the configured event sink. The memory sink also starts
// the in-process audit consumer. A nil publisher means events are dropped.
func openEvents(ctx context.Context, cfg config.Config, rdb redisClient, logger *slog.Logger) (service.EventPublisher, func(), error) {
	wlog := events.NewLogger(logger)

	var sink message.Publisher
	switch cfg.EventSink {
	case config.SinkNone:
		return nil, func() {}, nil
	case config.SinkMemory:
		ch := events.NewChannel(wlog)
		if err := events.Consume(ctx, ch, logger, events.LogHandler(logger)); err != nil {
			ch.Close()
			return nil, nil, err
		}
		sink = ch
	case config.SinkRedis:
		pub, err := events.NewRedisStream(rdb, wlog)
		if err != nil {
			return nil, nil, err
		}
		sink = pub
	case config.SinkKafka:
		pub, err := events.NewKafka(cfg.KafkaBrokers, wlog)
		if err != nil {
			return nil, nil, err
		}
		sink = pub
	default:
		return nil, nil, fmt.Errorf("unknown event sink %q", cfg.EventSink)
	}

	pub := events.NewPublisher(sink, logger)
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Error("close event sink", "error", err)
		}
	}, nil
}

// openSQLDB opens a database/sql handle for goose.
func openSQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func migrateUp(ctx context.Context, dsn string, logger *slog.Logger) error {
	db, err := openSQLDB(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := migrations.NewProvider(db)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("migration applied", "version", res.Source.Version, "path", res.Source.Path, "duration", res.Duration.String())
	}
	return nil
}
