package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/dosing-console/internal/config"
	"github.com/Spok95/dosing-console/internal/domain/associations"
	"github.com/Spok95/dosing-console/internal/domain/formulas"
	"github.com/Spok95/dosing-console/internal/domain/materials"
	"github.com/Spok95/dosing-console/internal/domain/production"
	"github.com/Spok95/dosing-console/internal/domain/stock"
	"github.com/Spok95/dosing-console/internal/dosing"
	"github.com/Spok95/dosing-console/internal/infra/db"
	httpx "github.com/Spok95/dosing-console/internal/infra/http"
	"github.com/Spok95/dosing-console/internal/infra/kv"
	"github.com/Spok95/dosing-console/internal/infra/logger"
	"github.com/Spok95/dosing-console/internal/infra/notify"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	path := os.Getenv("APP_CONFIG")
	if path == "" {
		path = "config/example.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	side, err := kv.Open(cfg.Badger.Path)
	if err != nil {
		log.Error("side-store open failed", "err", err)
		return
	}
	defer func() { _ = side.Close() }()

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return
		}
		notifier = tg
		log.Info("telegram alerts enabled", "chat_id", cfg.Telegram.AdminChatID)
	}

	formulasRepo := formulas.NewRepo(pool)
	materialsRepo := materials.NewRepo(pool)
	assocRepo := associations.NewRepo(pool)
	productionRepo := production.NewRepo(pool)
	stockRepo := stock.NewRepo(pool)

	ledger := dosing.NewLedger(materialsRepo, stockRepo, log, notifier, cfg.Dosing.OpTimeout)
	ordering := dosing.NewOrderingStore(side, log)
	reconciler := dosing.NewReconciler(assocRepo, materialsRepo, log, cfg.Dosing.OpTimeout)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, httpx.Deps{
		Log:          log,
		Formulas:     formulasRepo,
		Materials:    materialsRepo,
		Associations: assocRepo,
		Production:   productionRepo,
		Stock:        stockRepo,
		Ledger:       ledger,
		Ordering:     ordering,
		Reconciler:   reconciler,
		Notifier:     notifier,
	})
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
