package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/libshelf/borrowd/internal/accounts"
	h "github.com/libshelf/borrowd/internal/api/http"
	"github.com/libshelf/borrowd/internal/bookdb"
	"github.com/libshelf/borrowd/internal/bookregistry"
	"github.com/libshelf/borrowd/internal/borrow"
	"github.com/libshelf/borrowd/internal/borrow/subtasks"
	cfgpkg "github.com/libshelf/borrowd/internal/config"
	"github.com/libshelf/borrowd/internal/content"
	"github.com/libshelf/borrowd/internal/opds"
	svc "github.com/libshelf/borrowd/internal/service"
)

func main() {

	cfg, err := cfgpkg.Load()
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			slog.Error("configuration file not found", "error", err)
		} else {
			slog.Error("failed to load configuration", "error", err)
		}
		os.Exit(1)
	}

	cfgpkg.SetupLogger(cfg)
	slog.Info("configuration loaded successfully")

	store, err := bookdb.NewStore(cfg.DatabasePath, filepath.Join(cfg.DownloadDir, "books"), slog.Default())
	if err != nil {
		slog.Error("failed to open book database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	provider, err := accounts.NewFileProvider(cfg.AccountsFile, slog.Default())
	if err != nil {
		slog.Error("failed to load accounts", "error", err)
		os.Exit(1)
	}

	registry := bookregistry.New(slog.Default())

	services := borrow.Services{
		Accounts:        provider,
		Database:        store,
		Statuses:        registry,
		HTTP:            &http.Client{Timeout: cfg.ClientTimeout},
		Parser:          opds.JSONEntryParser{},
		ContentResolver: content.NewDirResolver(content.SchemeContent, cfg.ContentDir),
		BundledResolver: content.NewDirResolver(content.SchemeBundled, cfg.BundledDir),

		Registry: subtasks.DefaultRegistry(),
		Capabilities: borrow.Capabilities{
			FinalTypes: []string{opds.TypeEPUB, opds.TypePDF, opds.TypeAudiobookManifest},
			// DRM connectors are vendor binaries injected by the host
			// application; the standalone daemon runs without them.
			AdobeSupported:   false,
			AxisNowSupported: false,
		},

		ACSMTimeout:      cfg.ACSMTimeout,
		ProgressInterval: cfg.ProgressInterval,
		Logger:           slog.Default(),
	}

	borrowService := svc.NewBorrowService(services, slog.Default())

	if err := borrowService.ReconcileStatuses(context.Background(), store); err != nil {
		slog.Error("failed to reconcile book statuses", "error", err)
	}

	router := h.NewRouter(borrowService, registry, slog.Default())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  cfg.HTTPTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	} else {
		slog.Info("server stopped gracefully")
	}

	if err := borrowService.Shutdown(shutdownCtx); err != nil {
		slog.Error("borrow service shutdown failed", "error", err)
	}
}
