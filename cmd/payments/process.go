package main

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/payments/internal/csvfeed"
	"github.com/MarkoPoloResearchLab/payments/internal/httpapi"
	"github.com/MarkoPoloResearchLab/payments/internal/processor"
	"github.com/MarkoPoloResearchLab/payments/internal/report"
	"github.com/MarkoPoloResearchLab/payments/pkg/ledger"
)

func newApplier(cfg *runtimeConfig) *ledger.Applier {
	if cfg.RetainDisputes {
		return ledger.NewApplier(ledger.WithRetainedDisputes())
	}
	return ledger.NewApplier()
}

// runProcess drains one feed to completion and writes the final snapshot.
// The pipeline is always closed before the snapshot is read, so every
// submitted transaction has been applied or rejected by then. A parse
// error aborts the remaining feed and suppresses the report; already
// applied transactions stay applied.
func runProcess(cfg *runtimeConfig, input io.Reader, output io.Writer, logger *zap.Logger) error {
	store := ledger.NewAccountStore()
	proc := processor.New(store, newApplier(cfg),
		processor.WithQueueDepth(cfg.QueueDepth),
		processor.WithLogger(logger),
	)

	readErr := csvfeed.Read(input, proc.Submit)
	if closeErr := proc.Close(); closeErr != nil {
		return closeErr
	}
	if readErr != nil {
		return readErr
	}
	return report.Write(output, store.Snapshot())
}

// runServe keeps the pipeline open behind the HTTP façade until the
// context is cancelled, then drains it.
func runServe(ctx context.Context, cfg *runtimeConfig, logger *zap.Logger) error {
	store := ledger.NewAccountStore()
	proc := processor.New(store, newApplier(cfg),
		processor.WithQueueDepth(cfg.QueueDepth),
		processor.WithLogger(logger),
	)

	server, err := httpapi.New(httpapi.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger, proc, store)
	if err != nil {
		return err
	}

	serveErr := server.Run(ctx)
	if closeErr := proc.Close(); closeErr != nil && serveErr == nil {
		serveErr = closeErr
	}
	logger.Info("pipeline drained", zap.Int("accounts", store.Len()))
	return serveErr
}
