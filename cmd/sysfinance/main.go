package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"sysfinance/internal/auth"
	"sysfinance/internal/cache"
	"sysfinance/internal/cli"
	apphttp "sysfinance/internal/http"
	applog "sysfinance/internal/log"
	"sysfinance/internal/services"
	"sysfinance/internal/sheets"
	gsheet "sysfinance/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	bootCtx := context.Background()
	db := cli.OpenStore(bootCtx, logger, cfg)
	defer func() {
		if db.Cleanup != nil {
			if err := db.Cleanup(); err != nil {
				logger.Error("Failed to close ledger backend", applog.FieldError, err)
			}
		}
	}()

	// Events are optional; the API keeps working without a broker.
	var publisher services.EventPublisher
	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	var exporter sheets.RowExporter
	if cfg.SheetsExportEnabled() {
		client, err := gsheet.New(bootCtx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetBase:       cfg.GoogleExportSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	summaries := cache.NewSummaryCache(cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(cfg.SummaryCacheTTL)

	mode := services.RecurringBalanceMode(cfg.RecurringBalanceMode)
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	generator := services.NewRecurringGenerator(db.Store, mode, summaries, publisher)

	ready := func(ctx context.Context) error { return nil }
	if p, ok := db.Store.(interface{ Ping(context.Context) error }); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(apphttp.Services{
		Auth:         services.NewAuthService(db.Store, tokens, generator),
		Tokens:       tokens,
		Transactions: services.NewTransactionService(db.Store, summaries, publisher),
		Catalog:      services.NewCatalogService(db.Store, mode, summaries),
		Aggregator:   services.NewAggregator(db.Store, summaries, exporter),
	}, apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		EvolutionMonths:    cfg.EvolutionMonths,
		Logger:             logger,
		Ready:              ready,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting sysfinance API",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"recurring_mode", mode,
			"sheets_export", exporter != nil,
			"events", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cacheManager.Stop()
		st := summaries.Stats()
		logger.Info("Summary cache stopped",
			"hits", st.Hits,
			"misses", st.Misses,
			"evictions", st.Evictions,
			"entries", summaries.Size())
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	<-done
	logger.Info("Server stopped gracefully")
}
