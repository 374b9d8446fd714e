package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackdown/internal/app"
	"trackdown/internal/auth"
	"trackdown/internal/config"
	"trackdown/internal/ports/spotify"
	"trackdown/internal/ports/sqlite"
	"trackdown/internal/ports/web"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Error("counter store error", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	catalog := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret, log)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	registry := app.NewRegistry(
		app.NewGenerator(catalog, nil),
		store,
		app.Timing{
			ReadyTimeout:       cfg.ReadyTimeout,
			PostRoundWait:      cfg.PostRoundWait,
			RematchDelay:       cfg.RematchDelay,
			MaxSessionLifetime: cfg.MaxSessionLifetime,
			EmptySessionGrace:  cfg.EmptySessionGrace,
		},
		log,
	)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: web.NewServer(registry, catalog, tokens, log).Router(),
	}

	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
