package main

import (
	"context"
	"fmt"
	"time"

	"tablebook/internal/availability"
	"tablebook/internal/blocks"
	"tablebook/internal/config"
	"tablebook/internal/db"
	"tablebook/internal/events"
	"tablebook/internal/ledger"
	"tablebook/internal/lock"
	"tablebook/internal/metrics"
	"tablebook/internal/schedule"
	"tablebook/internal/slots"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app holds the wired services shared by every command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	db     *db.DB
	rdb    *redis.Client
	bus    *events.Bus
	ledger *ledger.Ledger
	engine *availability.Engine
	finder *slots.Finder
	hours  *schedule.Index
	layout string
}

func newApp(flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel, flags.verbose)

	database, err := db.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: database, bus: events.NewBus(), layout: cfg.Layout.Path}
	if flags.layoutPath != "" {
		a.layout = flags.layoutPath
	}
	if a.layout == "" {
		a.layout = config.DefaultLayoutPath
	}

	var locker lock.Locker = lock.NewLocal(cfg.LockTimeout())
	if cfg.Redis.Address != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		locker = lock.NewRedis(a.rdb, lock.RedisOptions{TTL: cfg.LockTTL(), Timeout: cfg.LockTimeout()}, &a.logger)
	}

	var recorder metrics.Recorder
	a.hours = schedule.NewIndex(database)
	a.ledger = ledger.New(database, locker, &a.logger,
		ledger.WithPublisher(a.bus),
		ledger.WithObserver(recorder),
	)
	a.engine = availability.NewEngine(database, a.hours, blocks.NewIndex(database), a.ledger, &a.logger)
	a.engine.SetObserver(recorder)
	a.ledger.SetValidator(a.engine)
	a.finder = slots.NewFinder(a.hours, a.engine)

	a.subscribeEvents()
	return a, nil
}

// subscribeEvents logs reservation lifecycle events.
func (a *app) subscribeEvents() {
	log := a.logger.With().Str("component", "events").Logger()
	a.bus.OnError(func(e events.Event, err error) {
		log.Error().Err(err).Str("type", e.Type).Msg("event handler failed")
	})
	handler := func(e events.Event) error {
		p, err := e.Reservation()
		if err != nil {
			return fmt.Errorf("decode %s: %w", e.Type, err)
		}
		log.Info().
			Str("type", e.Type).
			Int64("reservation_id", p.ReservationID).
			Int64("table_id", p.TableID).
			Str("status", p.Status).
			Str("previous", p.Previous).
			Msg("reservation event")
		return nil
	}
	a.bus.Subscribe(events.ReservationCreated, handler)
	a.bus.Subscribe(events.ReservationStatusChanged, handler)
}

// syncLayout loads the layout file and applies it.
func (a *app) syncLayout(ctx context.Context) (db.SyncStats, error) {
	layout, err := config.LoadLayout(a.layout)
	if err != nil {
		return db.SyncStats{}, err
	}
	return a.applyLayout(ctx, layout)
}

// applyLayout writes layout and the configured staff to the database.
func (a *app) applyLayout(ctx context.Context, layout *config.Layout) (db.SyncStats, error) {
	stats, err := a.db.SyncLayout(ctx, layout)
	if err != nil {
		return stats, err
	}
	if err := a.db.SyncStaff(ctx, a.cfg.Staff); err != nil {
		return stats, err
	}
	a.logger.Info().
		Str("layout", layout.String()).
		Int("tables", stats.Tables).
		Int("deactivated", stats.Deactivated).
		Int("windows", stats.Windows).
		Int("blocks", stats.Blocks).
		Time("synced_at", time.Now()).
		Msg("layout applied")
	return stats, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	_ = a.db.Close()
}
