package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/hydro-index-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hydro-index-service/internal/adapter/kafka"
	"github.com/couchcryptid/hydro-index-service/internal/config"
	"github.com/couchcryptid/hydro-index-service/internal/domain"
	"github.com/couchcryptid/hydro-index-service/internal/observability"
	"github.com/couchcryptid/hydro-index-service/internal/pipeline"
	"github.com/couchcryptid/hydro-index-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	defaults, err := tableDefaults(cfg)
	if err != nil {
		logger.Error("failed to build table defaults", "error", err)
		os.Exit(1)
	}

	st := store.New()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(logger)

	p := pipeline.New(reader, transformer, st, writer, defaults, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, st, defaults, p, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start index pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// tableDefaults translates the env-driven config into the TableOptions every
// recomputation starts from. Group and Years stay empty; the pipeline and the
// HTTP layer fill them per request.
func tableDefaults(cfg *config.Config) (domain.TableOptions, error) {
	rule, err := domain.NewWetDryRule(cfg.WetThreshold, domain.Op(cfg.WetComparison))
	if err != nil {
		return domain.TableOptions{}, err
	}
	kind, err := domain.ParseBlockKind(cfg.BlockKind)
	if err != nil {
		return domain.TableOptions{}, err
	}
	opts := domain.TableOptions{Rule: rule, Kind: kind}
	if cfg.BaselineStartYear != nil && cfg.BaselineEndYear != nil {
		opts.Baseline = &domain.BaselineRange{
			StartYear: *cfg.BaselineStartYear,
			EndYear:   *cfg.BaselineEndYear,
		}
	}
	return opts, nil
}
