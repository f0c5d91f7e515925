package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"signal-machine/analysis"
	"signal-machine/config"
	"signal-machine/indicators"
	"signal-machine/internal/api"
	"signal-machine/internal/app"
	"signal-machine/observability"
	"signal-machine/repository"
	"signal-machine/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	observability.InitLogger(cfg.IsProduction())
	observability.InitMetrics()

	ctx := context.Background()

	// Initialize database
	if !cfg.HasDatabase() {
		observability.Fatal("DATABASE_URL is required")
	}
	repo, err := repository.NewRepository(ctx, cfg.Database.URL)
	if err != nil {
		observability.Fatal("failed to connect to database", "error", err)
	}
	observability.Info("connected to database")

	// Market data: live tier when credentials are present, demo fallback
	// otherwise
	var live services.MarketDataSource
	if cfg.HasAlpaca() {
		live = services.NewAlpacaSource(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.RequestsPerSecond)
		observability.Info("live market data enabled")
	} else {
		observability.Warn("Alpaca credentials not set, all analyses will use fallback data")
	}
	source := services.NewCompositeSource(live, services.NewFallbackSource())

	// Analysis pipeline and job orchestrator
	engine := indicators.NewEngine(cfg.Analysis.MinBars)
	pipeline := analysis.NewPipeline(source, engine, analysis.PipelineConfig{
		LookbackDays:      cfg.Analysis.LookbackDays,
		RiskFraction:      cfg.Analysis.RiskFraction,
		InstrumentTimeout: time.Duration(cfg.Analysis.InstrumentTimeoutSeconds) * time.Second,
	})
	orchestrator := analysis.NewOrchestrator(repo, pipeline, cfg.Analysis.MaxConcurrentJobs)

	application := app.New(cfg, repo, orchestrator)

	// Create HTTP server
	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		observability.Info("starting server", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("server stopped")
}
