// Package app wires configuration, storage and services into one graph
// shared by the binaries under cmd/.
package app

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/unclebandit/channel-ledger/internal/config"
	"github.com/unclebandit/channel-ledger/internal/db"
	"github.com/unclebandit/channel-ledger/internal/facade"
	"github.com/unclebandit/channel-ledger/internal/repository"
	"github.com/unclebandit/channel-ledger/internal/service"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	// DB is nil when running on the in-memory store.
	DB    *sql.DB
	Store *repository.Store

	Products     *service.ProductService
	Listings     *service.ListingService
	Funnel       *service.FunnelService
	Campaigns    *service.CampaignService
	Aggregations *service.AggregationService
	Events       *service.EventApplier
	Facade       *facade.Facade
}

// New opens the store named by cfg.Database.Driver and builds every
// service on top of it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on exit")
		a.Store = repository.NewMemoryStore().Store()
	default:
		conn, err := db.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		a.DB = conn
		a.Store = repository.NewPostgresStore(conn, cfg.Database.QueryTimeout)
	}

	a.Products = service.NewProductService(a.Store, logger)
	a.Listings = service.NewListingService(a.Store, logger)
	a.Funnel = service.NewFunnelService(a.Store, logger, cfg.Ledger.FunnelWindow)
	a.Campaigns = service.NewCampaignService(a.Store, logger)

	a.Aggregations = service.NewAggregationService(a.Store, logger)
	a.Aggregations.FeedConcurrency = cfg.Ledger.FeedConcurrency
	a.Aggregations.DefaultReportLimit = cfg.Ledger.DefaultReportLimit
	a.Aggregations.MaxReportLimit = cfg.Ledger.MaxReportLimit

	a.Events = service.NewEventApplier(a.Listings, a.Funnel, a.Campaigns, logger)

	a.Facade = facade.New(a.Aggregations, a.Funnel, logger, a.probes()...)
	a.Facade.FunnelWindow = cfg.Ledger.FunnelWindow
	return a, nil
}

func (a *App) probes() []facade.Prober {
	var probes []facade.Prober
	if a.DB != nil {
		probes = append(probes, facade.DatabaseProbe{DB: a.DB})
	}
	if a.Config.Queue.URL != "" {
		probes = append(probes, facade.QueueProbe{URL: a.Config.Queue.URL})
	}
	if a.Config.Database.Driver == "postgres" {
		probes = append(probes, facade.ConfigProbe{Missing: a.Config.MissingSettings})
	}
	return probes
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
