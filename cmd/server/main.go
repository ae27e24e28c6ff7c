// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/channel-ledger/internal/app"
	"github.com/unclebandit/channel-ledger/internal/config"
	"github.com/unclebandit/channel-ledger/internal/controller"
	"github.com/unclebandit/channel-ledger/internal/handler"
	"github.com/unclebandit/channel-ledger/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	router := controller.NewRouter(controller.Controllers{
		Read:      &controller.ReadController{Facade: a.Facade},
		Products:  &controller.ProductController{Products: a.Products, Campaigns: a.Campaigns},
		Listings:  &controller.ListingController{Listings: a.Listings},
		Leads:     &controller.LeadController{Funnel: a.Funnel},
		Campaigns: &controller.CampaignController{Campaigns: a.Campaigns},
		Health:    handler.Health(a.Facade),
	},
		middleware.RequestID,
		middleware.RealIP,
		handler.RequestLogger(logger),
		middleware.Recoverer,
		handler.RateLimit(handler.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst), logger),
	)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("🚀 Server running", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
