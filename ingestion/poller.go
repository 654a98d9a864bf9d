package ingestion

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Poller runs Pipeline.IngestAll on a cron schedule.
// A run still in progress when the next one is due causes that one to be skipped.
type Poller struct {
	pipeline *Pipeline
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewPoller creates a Poller for a standard five-field cron schedule
// or a descriptor such as "@every 5m".
func NewPoller(pipeline *Pipeline, schedule string) (*Poller, error) {
	logger := slog.Default().With("component", "poller")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))

	p := &Poller{
		pipeline: pipeline,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		logger:   logger,
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	if _, err := p.cron.AddFunc(schedule, p.poll); err != nil {
		return nil, err
	}
	return p, nil
}

// Start begins polling in the background.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.cron.Start()
	p.logger.Info("poller started")
}

// Stop cancels a run in progress and waits for it to finish.
// A stopped Poller cannot be restarted.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	p.cancel()
	<-p.cron.Stop().Done()
	p.logger.Info("poller stopped")
}

func (p *Poller) poll() {
	batch, err := p.pipeline.IngestAll(p.ctx)
	if err != nil {
		p.logger.Error("poll failed", "err", err)
		return
	}
	p.logger.Info("poll finished", "rfps", batch.RFPs, "processed", batch.Processed, "failed", batch.Failed)
}
