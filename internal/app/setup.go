// Package app contains the application setup for the gumhook service.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mbocharov/gumhook/internal/config"
	"github.com/mbocharov/gumhook/internal/registry"
	"github.com/mbocharov/gumhook/internal/service"
	"github.com/mbocharov/gumhook/internal/store"
	"github.com/mbocharov/gumhook/internal/transport/rest"
	"github.com/mbocharov/gumhook/pkg/messaging"
	"github.com/mbocharov/gumhook/pkg/server"
)

type Dependencies struct {
	SubscriberService service.SubscriberService
	Logger            *slog.Logger
}

// SetupDependencies wires the store, registry, interpreter and service.
// dbPool selects the Postgres store when non-nil, the flat-file store
// otherwise. publisher may be nil when event publishing is disabled.
func SetupDependencies(cfg *config.Config, dbPool *pgxpool.Pool, publisher messaging.Publisher, logger *slog.Logger) (*Dependencies, error) {
	products := make(map[string]registry.Product, len(cfg.Products))
	for key, p := range cfg.Products {
		products[key] = registry.Product{Name: p.Name, ID: p.ID}
	}
	reg := registry.New(products)

	var subscriberStore store.SubscriberStore
	if dbPool != nil {
		subscriberStore = store.NewPgStore(dbPool)
	} else {
		fileStore, err := store.NewFileStore(cfg.Storage.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to set up file store: %w", err)
		}
		subscriberStore = fileStore
	}

	interpreter := service.NewInterpreter(cfg.Gumroad.SellerID, cfg.Gumroad.DefaultProduct)
	svc := service.NewService(subscriberStore, reg, interpreter, publisher, logger)

	return &Dependencies{
		SubscriberService: svc,
		Logger:            logger,
	}, nil
}

// SetupHttpHandler initializes the HTTP routes for the gumhook service.
// Used by handler tests to build the full middleware and routing chain.
func SetupHttpHandler(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps, cfg)
	return mux
}

// wireRoutes sets up the HTTP routes for the gumhook service.
func wireRoutes(mux *chi.Mux, deps *Dependencies, cfg *config.Config) {
	subscriberHandler := rest.NewHandler(deps.SubscriberService, cfg.Admin.Token, deps.Logger)
	subscriberHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the gumhook service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps, cfg)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
