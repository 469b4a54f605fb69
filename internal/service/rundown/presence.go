package rundown

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	"rundown/internal/domain/repositories"
	rundownRepo "rundown/internal/domain/repositories/rundown"
	rundownSvc "rundown/internal/domain/services/rundown"
	"rundown/internal/tuning"
)

// presenceService implements the PresenceService interface. Presence is
// session state, not content: nothing here bumps the rundown version or
// stamps updated_at.
type presenceService struct {
	presence  rundownRepo.PresenceRepository
	docs      rundownRepo.DocumentRepository
	txManager repositories.TransactionManager
	notifier  rundownSvc.Notifier
	cfg       tuning.PresenceTuning
	logger    *slog.Logger
}

// NewPresenceService creates a new presence service
func NewPresenceService(
	presence rundownRepo.PresenceRepository,
	docs rundownRepo.DocumentRepository,
	txManager repositories.TransactionManager,
	notifier rundownSvc.Notifier,
	cfg tuning.PresenceTuning,
	logger *slog.Logger,
) rundownSvc.PresenceService {
	return &presenceService{
		presence:  presence,
		docs:      docs,
		txManager: txManager,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// Heartbeat refreshes the actor's liveness and broadcasts presence.
func (s *presenceService) Heartbeat(ctx context.Context, req *rundownSvc.HeartbeatRequest) error {
	if _, err := s.docs.GetByID(ctx, req.RundownID); err != nil {
		return err
	}

	p := &models.Presence{
		RundownID:     req.RundownID,
		Actor:         req.Actor,
		ActiveCell:    req.ActiveCell,
		LastHeartbeat: time.Now(),
	}
	if err := s.presence.Upsert(ctx, p); err != nil {
		return err
	}

	s.notifier.Publish(models.Event{
		Type:      models.EventPresence,
		RundownID: req.RundownID,
		Payload:   p,
	})

	return nil
}

// ActivePresence lists presences inside the liveness window.
func (s *presenceService) ActivePresence(ctx context.Context, rundownID string) ([]models.Presence, error) {
	if _, err := s.docs.GetByID(ctx, rundownID); err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-s.cfg.LivenessWindow())
	return s.presence.ListActive(ctx, rundownID, cutoff)
}

// ClaimControl reassigns the advisory playback controller. Last claim
// wins; the demoted client keeps editing content unimpeded.
func (s *presenceService) ClaimControl(ctx context.Context, rundownID, actor string) (bool, error) {
	if _, err := s.docs.GetByID(ctx, rundownID); err != nil {
		return false, err
	}

	now := time.Now()
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.presence.ClaimControl(txCtx, rundownID, actor, now)
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("playback control claimed",
		"rundown_id", rundownID,
		"actor", actor,
	)

	s.notifier.Publish(models.Event{
		Type:      models.EventPresence,
		RundownID: rundownID,
		Payload: &models.Presence{
			RundownID:     rundownID,
			Actor:         actor,
			Controller:    true,
			LastHeartbeat: now,
		},
	})

	return true, nil
}

// PublishPlayback broadcasts the playback cursor. Fire-and-forget: the
// cursor is never persisted, a late joiner waits for the next tick.
func (s *presenceService) PublishPlayback(ctx context.Context, req *rundownSvc.PlaybackRequest) error {
	cutoff := time.Now().Add(-s.cfg.LivenessWindow())
	controller, err := s.presence.Controller(ctx, req.RundownID, cutoff)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if controller.Actor != req.Actor {
		return domain.ErrForbidden
	}

	s.notifier.Publish(models.Event{
		Type:      models.EventPlayback,
		RundownID: req.RundownID,
		OriginTag: req.OriginTag,
		Payload: models.PlaybackCursor{
			Controller: req.Actor,
			RowID:      req.RowID,
			ElapsedMs:  req.ElapsedMs,
			Running:    req.Running,
		},
	})

	return nil
}
