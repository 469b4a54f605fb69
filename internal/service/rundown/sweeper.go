package rundown

import (
	"context"
	"log/slog"
	"time"

	rundownRepo "rundown/internal/domain/repositories/rundown"
	"rundown/internal/tuning"
)

// Sweeper runs the two background janitors: expired presence rows and
// operation-log entries past the retention horizon. Both are safe to run
// concurrently with live traffic.
type Sweeper struct {
	presence rundownRepo.PresenceRepository
	ops      rundownRepo.OperationRepository
	cfg      *tuning.Tuning
	logger   *slog.Logger
}

// NewSweeper creates a sweeper.
func NewSweeper(
	presence rundownRepo.PresenceRepository,
	ops rundownRepo.OperationRepository,
	cfg *tuning.Tuning,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{presence: presence, ops: ops, cfg: cfg, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping on the configured cadences.
func (s *Sweeper) Run(ctx context.Context) {
	presenceTicker := time.NewTicker(s.cfg.Presence.SweepInterval())
	defer presenceTicker.Stop()

	opsTicker := time.NewTicker(s.cfg.Operations.SweepInterval())
	defer opsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-presenceTicker.C:
			s.sweepPresence(ctx)
		case <-opsTicker.C:
			s.sweepOperations(ctx)
		}
	}
}

func (s *Sweeper) sweepPresence(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Presence.LivenessWindow())
	deleted, err := s.presence.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.logger.Warn("presence sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Debug("presence sweep", "deleted", deleted)
	}
}

func (s *Sweeper) sweepOperations(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Operations.RetentionHorizon())
	deleted, err := s.ops.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Warn("operation retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("operation retention sweep", "deleted", deleted)
	}
}
