/*
Package main is the entry point for the TeamSync server.

It loads configuration, initializes logging, wires the workspace store, the identity resolver and
the optional persistence sinks (Postgres activity journal, S3 snapshot archive) into the hub, and
serves HTTP until SIGINT or SIGTERM. On shutdown the final snapshot is archived when S3 is
configured.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teamsync/internal/app/archive"
	"teamsync/internal/app/identity"
	"teamsync/internal/app/journal"
	"teamsync/internal/app/realtime"
	"teamsync/internal/app/workspace"
	"teamsync/internal/configs"
	"teamsync/internal/handler"
	"teamsync/internal/pkg/auth/jwt"
	"teamsync/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("seed_workspace", cfg.SeedWorkspace).
		Bool("journal_enabled", cfg.JournalEnabled()).
		Bool("archive_enabled", cfg.ArchiveEnabled()).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := workspace.Snapshot{}
	if cfg.SeedWorkspace {
		seed = workspace.DefaultSeed()
	}
	store := workspace.NewStore(seed)

	var activity journal.Journal = journal.Discard{}
	if cfg.JournalEnabled() {
		pool, err := journal.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize activity journal database")
		}
		defer pool.Close()

		activity = journal.NewRecorder(journal.NewPostgresSink(pool))
	}

	var archiver archive.Archiver
	if cfg.ArchiveEnabled() {
		archiver, err = archive.NewArchiver(ctx, archive.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize snapshot archive")
		}
	}

	issuer := jwt.NewIssuer(cfg.JWTSecret, jwt.IdentityExpiration)

	hub := realtime.NewHub(realtime.HubConfig{
		Store:    store,
		Resolver: identity.NewResolver(store),
		Tokens:   issuer,
		Journal:  activity,
	})
	go hub.Run()

	router, stopRouter := handler.Router(&handler.AppDeps{
		Hub:      hub,
		Config:   cfg,
		Issuer:   issuer,
		Archiver: archiver,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("TeamSync Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	stopRouter()
	hub.Shutdown()

	if archiver != nil {
		key, err := archiver.Archive(shutdownCtx, store.Snapshot(), time.Now())
		if err != nil {
			logx.Error(err, "Failed to archive final workspace snapshot")
		} else {
			logx.Info("Final workspace snapshot archived", "key", key)
		}
	}

	activity.Close()

	logx.Info("Server gracefully stopped.")
}
