package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/weightlog/internal/config"
	"github.com/vbonduro/weightlog/internal/db"
	"github.com/vbonduro/weightlog/internal/domain"
	"github.com/vbonduro/weightlog/internal/logging"
	"github.com/vbonduro/weightlog/internal/notice"
	"github.com/vbonduro/weightlog/internal/photostore/local"
	"github.com/vbonduro/weightlog/internal/service"
	"github.com/vbonduro/weightlog/internal/store"
	"github.com/vbonduro/weightlog/internal/web"
	"github.com/vbonduro/weightlog/internal/web/templates"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("weightlog exited", "error", err)
		cleanup()
		os.Exit(1)
	}
}

// run wires the application together and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	photoStg, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		return fmt.Errorf("failed to initialize photo store: %w", err)
	}

	entryService, err := newEntryService(ctx, cfg, database, photoStg, logger)
	if err != nil {
		return err
	}

	banner := notice.NewBanner(cfg.BannerTimeout)
	server := web.NewServer(entryService, banner, templates.FS, logger,
		web.WithDisplayUnit(cfg.DisplayUnit),
	)
	return server.ListenAndServe(ctx, cfg.ListenAddr)
}

// newEntryService builds the entry store on the configured backend and
// restores it. Corrupt stored data is logged and the app starts empty.
func newEntryService(
	ctx context.Context,
	cfg *config.Config,
	database *sql.DB,
	photoStg *local.LocalPhotoStore,
	logger *slog.Logger,
) (*service.EntryService, error) {
	var svc *service.EntryService
	switch cfg.StoreBackend {
	case config.BackendTable:
		logger.Info("using table entry store")
		svc = service.NewEntryService(store.NewEntryTableStore(database), photoStg, cfg.Location, cfg.JPEGQuality, logger)
	default:
		logger.Info("using blob entry store", "key", store.EntriesKey)
		svc = service.NewEntryService(store.NewEntryBlobStore(store.NewKVStore(database)), photoStg, cfg.Location, cfg.JPEGQuality, logger)
	}

	if err := svc.Load(ctx); err != nil {
		if !errors.Is(err, domain.ErrCorruptData) {
			return nil, err
		}
		logger.Warn("stored entries are unreadable, starting with an empty log", "error", err)
	}
	return svc, nil
}
