package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sari-tools/sales-atlas/pkg/handlers/dashboard"
	salesatlasmiddleware "github.com/sari-tools/sales-atlas/pkg/server/middleware"
	"github.com/sari-tools/sales-atlas/pkg/services/filterstate"
	"github.com/sari-tools/sales-atlas/pkg/services/pipeline"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
}

type Dependencies struct {
	Filters  *filterstate.Store
	Pipeline *pipeline.Pipeline
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	dashboardHandler := dashboard.NewHandler(config.Dependencies.Filters, config.Dependencies.Pipeline)

	router := chi.NewRouter()

	router.Use(salesatlasmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/filters", dashboardHandler.GetFilters)
		r.Put("/filters", dashboardHandler.UpdateFilters)
		r.Delete("/filters", dashboardHandler.ResetFilters)
		r.Get("/kpis", dashboardHandler.GetKPIs)
		r.Get("/audit", dashboardHandler.GetAudit)
	})

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

// Router exposes the configured mux for tests.
func (w *WebAPI) Router() http.Handler {
	return w.router
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
