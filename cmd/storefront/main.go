package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-client/internal/backend/local"
	"github.com/vasiliy-maslov/storefront-client/internal/backend/remote"
	"github.com/vasiliy-maslov/storefront-client/internal/config"
	"github.com/vasiliy-maslov/storefront-client/internal/handler"
	"github.com/vasiliy-maslov/storefront-client/internal/store"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storefront").Logger()

	log.Info().Msg("Storefront starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Debug().Str("backend", cfg.Store.Backend).Str("port", cfg.App.Port).Msg("Configuration loaded")

	backend, err := newBackend(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise persistence backend")
	}

	st := store.New(backend)
	st.Hydrate(context.Background())

	h := handler.NewStorefrontHandler(st)

	router := chi.NewRouter()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

func newBackend(cfg *config.Config) (store.Backend, error) {
	if cfg.Store.Backend == config.BackendRemote {
		return remote.New(cfg.Store.APIBaseURL, cfg.Store.CSRFCookieName)
	}
	return local.New(cfg.Store.SnapshotPath)
}
