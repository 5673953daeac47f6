package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/claude/spinecare/internal/config"
	"github.com/claude/spinecare/internal/content"
	"github.com/claude/spinecare/internal/mcp"
	"github.com/claude/spinecare/internal/metrics"
	"github.com/claude/spinecare/internal/server"
	"github.com/claude/spinecare/internal/session"
	"github.com/claude/spinecare/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	level := new(slog.LevelVar)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("SpineCare starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.Logging.SlogLevel())

	// Run migrations
	if err := storage.RunMigrations(cfg.Database.MigrateURL()); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "driver", cfg.Database.Driver)

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Seed content (idempotent, keeps completion flags)
	if cfg.Content.SeedOnStart {
		catalog, err := content.Load(cfg.Content.SeedFile)
		if err != nil {
			log.Error("failed to load seed catalog", "error", err)
			os.Exit(1)
		}
		if _, err := content.NewImporter(db, log, false).Import(ctx, catalog); err != nil {
			log.Error("seeding failed", "error", err)
			os.Exit(1)
		}
	}

	// Metrics
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var promRecorder *metrics.PrometheusRecorder
	if cfg.Metrics.Enabled {
		promRecorder = metrics.NewPrometheusRecorder(nil)
		recorder = promRecorder
	}

	// Timer sessions
	sessions := session.NewRegistry(db, db, session.Options{
		TickInterval:  cfg.Timer.TickInterval,
		EffectTimeout: cfg.Timer.EffectTimeout,
		Logger:        log,
		Recorder:      recorder,
	})

	// Create server
	srv := server.New(db, sessions, cfg.Auth.APIKey, log)
	srv.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcp.New(db, Version, log)))
	if promRecorder != nil {
		srv.Handle("/metrics", promRecorder.Handler())
	}

	// Start server on tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
			Logf:     func(format string, args ...any) { log.Debug(fmt.Sprintf(format, args...)) },
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	// Closing sessions first ends open event streams so Shutdown can drain.
	sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
