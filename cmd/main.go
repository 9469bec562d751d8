package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	api "github.com/mkarev/tokenvault/internal/api/http"
	"github.com/mkarev/tokenvault/internal/config"
	"github.com/mkarev/tokenvault/internal/geo"
	"github.com/mkarev/tokenvault/internal/logger"
	"github.com/mkarev/tokenvault/internal/repository/postgres"
	"github.com/mkarev/tokenvault/internal/service"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	stores := postgres.NewStores(db)
	txManager := postgres.NewTxManager(db.DB)

	// Without a provider only loopback addresses resolve; public IPs stay
	// unknown and logins are never marked suspicious on location alone.
	var remote geo.Resolver
	if cfg.Geo.BaseURL != "" {
		remote = geo.NewHTTPResolver(cfg.Geo.BaseURL, cfg.Geo.Timeout)
	}
	resolver := geo.NewLocal(remote)

	tokenService := service.NewTokenService(stores, txManager, resolver, cfg.Tokens.AccessTTL, cfg.Tokens.RefreshTTL, logger)
	authService := service.NewAuth(stores, tokenService, logger)
	deviceService := service.NewDevices(stores, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTP.Port),
		Handler: api.NewRouter(authService, tokenService, deviceService, stores.Users, logger),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
