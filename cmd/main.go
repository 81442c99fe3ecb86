package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tinoosan/radiofetch/internal/config"
	"github.com/tinoosan/radiofetch/internal/controller"
	"github.com/tinoosan/radiofetch/internal/media"
	"github.com/tinoosan/radiofetch/internal/metrics"
	"github.com/tinoosan/radiofetch/internal/processor"
	"github.com/tinoosan/radiofetch/internal/radioman"
	"github.com/tinoosan/radiofetch/internal/repo"
	"github.com/tinoosan/radiofetch/internal/router"
	"github.com/tinoosan/radiofetch/internal/search/rutracker"
	"github.com/tinoosan/radiofetch/internal/suggest"
	"github.com/tinoosan/radiofetch/internal/torrent/transmission"
)

func main() {
	cfg := config.FromEnv()

	var logOut io.Writer = os.Stdout
	if cfg.LogFile != "" {
		logOut = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))
	slog.SetDefault(logger)

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var states repo.StateRepo
	switch cfg.Repo {
	case "postgres":
		pg, err := repo.NewPostgresStateRepoFromEnv()
		if err != nil {
			logger.Error("connect postgres", "err", err)
			os.Exit(1)
		}
		defer func() { _ = pg.Close() }()
		go pruneStatuses(ctx, logger, pg, cfg.Processor.StatusRetention)
		states = pg
	default:
		states = repo.NewInMemoryStateRepo()
	}

	tracker, err := rutracker.Login(ctx, cfg.RutrackerUsername, cfg.RutrackerPassword)
	if err != nil {
		logger.Error("rutracker login", "err", err)
		os.Exit(1)
	}

	torrents := transmission.New(cfg.TransmissionURL, cfg.TransmissionUsername,
		cfg.TransmissionPassword, cfg.DownloadRoot)
	radio := radioman.NewClient(cfg.RadioManagerURL, cfg.RadioManagerToken)

	var sugg suggest.Service
	if cfg.OpenAIAPIKey != "" {
		sugg = suggest.NewOpenAIService(cfg.OpenAIAPIKey)
	}

	proc := processor.New(logger, states, tracker, torrents, media.NewID3Service(), radio, cfg.Processor)
	ctrl := controller.New(logger, proc, states)
	if err := ctrl.Run(ctx); err != nil {
		logger.Error("rehydrate requests", "err", err)
		os.Exit(1)
	}

	r := router.New(logger, ctrl, sugg,
		router.Probe{Name: "rutracker", Check: tracker.CheckConnection},
		router.Probe{Name: "transmission", Check: torrents.CheckConnection},
		router.Probe{Name: "radio-manager", Check: radio.CheckConnection},
	)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting radiofetch API", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("received terminate, graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
	ctrl.Stop()
}

// pruneStatuses drops expired terminal statuses that outlived the process
// that scheduled their cleanup.
func pruneStatuses(ctx context.Context, logger *slog.Logger, pg *repo.PostgresStateRepo, retention time.Duration) {
	ticker := time.NewTicker(retention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pg.PruneStatuses(ctx, retention); err != nil {
				logger.Error("prune statuses", "err", err)
			}
		}
	}
}
