package files

import (
	"context"
	"log/slog"
	"time"

	"taxledger/internal/config"
	"taxledger/internal/infrastructure"
)

// Sweeper periodically removes exports older than the configured
// retention age
type Sweeper struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	metrics   *infrastructure.PipelineMetrics
	stopCh    chan struct{}
}

// NewSweeper creates a retention sweeper over the given store
func NewSweeper(store *Store, cfg config.ExportsConfig, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Sweeper {
	return &Sweeper{
		store:     store,
		retention: cfg.RetentionAge,
		interval:  cfg.SweepInterval,
		logger:    logger.With(slog.String("component", "export_sweeper")),
		metrics:   metrics,
		stopCh:    make(chan struct{}),
	}
}

// Start begins periodic sweeping. It blocks until Stop is called or the
// context is cancelled, so run it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the sweeper
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) sweep(ctx context.Context) {
	// Zero retention keeps exports until removed by hand
	if s.retention <= 0 {
		return
	}

	removed, err := s.store.Sweep(s.retention)
	if err != nil {
		s.logger.ErrorContext(ctx, "export sweep failed",
			slog.String("error", err.Error()))
		return
	}

	infrastructure.RecordExportSweep(ctx, s.metrics, int64(removed))

	if removed > 0 {
		s.logger.InfoContext(ctx, "export sweep complete",
			slog.Int("files_removed", removed),
			slog.Duration("retention_age", s.retention))
	}
}
