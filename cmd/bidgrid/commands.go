package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poiesic/bidgrid"
	"github.com/poiesic/bidgrid/assistant"
	"github.com/poiesic/bidgrid/core"
	"github.com/poiesic/bidgrid/ingestion"
	"github.com/urfave/cli/v2"
)

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := bidgrid.NewDatabase(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	if cfg.Ingestion.PollSchedule != "" {
		poller, err := ingestion.NewPoller(pipeline, cfg.Ingestion.PollSchedule)
		if err != nil {
			return fmt.Errorf("invalid poll schedule: %w", err)
		}
		poller.Start()
		defer poller.Stop()
	}

	server, err := db.NewServer(pipeline)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", httpServer.Addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := bidgrid.NewDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	if !c.IsSet("rfp") {
		batch, err := pipeline.IngestAll(ctx)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		fmt.Printf("RFPs checked: %d\n", batch.RFPs)
		fmt.Printf("Proposals created: %d\n", batch.Processed)
		fmt.Printf("RFPs failed: %d\n", batch.Failed)
		return nil
	}

	rfp, err := lookupRFP(ctx, db, c.String("owner"), c.String("rfp"))
	if err != nil {
		return err
	}
	result, err := pipeline.IngestRFP(ctx, rfp.CreatedBy, rfp.Id)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Printf("RFP: %s\n", rfp.Title)
	fmt.Printf("Matching emails: %d\n", result.Total)
	fmt.Printf("Proposals created: %d\n", result.Processed)
	for _, p := range result.Proposals {
		fmt.Printf("  %s <%s>\n", p.VendorName, p.VendorEmail)
	}
	return nil
}

func recommendCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	db, err := bidgrid.NewDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rfp, err := lookupRFP(ctx, db, c.String("owner"), c.String("rfp"))
	if err != nil {
		return err
	}
	proposals, err := db.Repositories().Proposals.ListProposals(ctx, rfp.Id)
	if err != nil {
		return fmt.Errorf("failed to list proposals: %w", err)
	}
	if len(proposals) == 0 {
		fmt.Fprintln(os.Stderr, "No proposals to analyze")
		return nil
	}

	key := assistant.RecommendationKey(rfp, proposals)
	rec, hit, err := db.Cache().Get(ctx, key)
	if err != nil {
		slog.Warn("recommendation cache read failed", "err", err)
	}
	if !hit {
		rec, err = db.Recommender().Recommend(ctx, proposals, assistant.ContextFor(rfp))
		if err != nil {
			return fmt.Errorf("recommendation failed: %w", err)
		}
		if err := db.Cache().Set(ctx, key, rec); err != nil {
			slog.Warn("recommendation cache write failed", "err", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"quickComparison": assistant.QuickComparison(proposals),
		"recommendation":  rec,
	})
}

// lookupRFP loads an RFP, checking ownership when owner is not empty.
func lookupRFP(ctx context.Context, db *bidgrid.Database, owner, raw string) (*core.RFP, error) {
	id, err := core.ParseID(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid RFP ID %q: %w", raw, err)
	}
	var rfp *core.RFP
	if owner == "" {
		rfp, err = db.Repositories().RFPs.GetRFP(ctx, id)
	} else {
		ownerID, perr := core.ParseID(owner)
		if perr != nil {
			return nil, fmt.Errorf("invalid owner ID %q: %w", owner, perr)
		}
		rfp, err = db.Repositories().RFPs.GetOwnedRFP(ctx, ownerID, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load RFP: %w", err)
	}
	return rfp, nil
}
