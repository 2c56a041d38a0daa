package pipeline

import (
	"context"
	"time"

	"tubedigest/internal/logging"
)

// recoverStuck sweeps videos stranded in processing by a dead or wedged
// worker. Three escalating tiers decide when a claim is considered lost,
// first match wins:
//
//  1. the heartbeat is dead (missing, unreadable, or older than the
//     no-heartbeat threshold) and the claim is older than that threshold
//  2. the claim is older than the stuck timeout, regardless of heartbeat
//     state: a live worker never holds one claim that long
//  3. failsafe: the claim is older than the failsafe threshold
//
// A reset never counts as an attempt. Videos already at the retry ceiling
// are retired instead of re-queued.
func (p *Pipeline) recoverStuck(ctx context.Context) (int, error) {
	stuck, err := p.store.ListProcessing(ctx)
	if err != nil {
		return 0, err
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	tierNoHeartbeat := time.Duration(p.cfg.Workflow.StuckNoHeartbeatMinutes) * time.Minute
	tierStale := time.Duration(p.cfg.Workflow.StuckTimeoutMinutes) * time.Minute
	tierFailsafe := time.Duration(p.cfg.Workflow.StuckFailsafeMinutes) * time.Minute

	// A crashed worker leaves its last heartbeat file behind, so existence
	// alone proves nothing; staleness is what marks the worker dead.
	beaconDead := true
	if p.beacon != nil {
		beaconDead = !p.beacon.Alive(tierNoHeartbeat)
	}

	recovered := 0
	for _, item := range stuck {
		claimAge := p.now().Sub(item.ProcessedAt)
		logger := p.logger.With(
			logging.String(logging.FieldVideoID, item.VideoID),
			logging.Duration("claim_age", claimAge))

		reason := ""
		switch {
		case beaconDead && claimAge >= tierNoHeartbeat:
			reason = "worker heartbeat dead"
		case claimAge >= tierStale:
			reason = "processing exceeded stuck timeout"
		case claimAge >= tierFailsafe:
			reason = "processing exceeded failsafe timeout"
		}
		if reason == "" {
			continue
		}

		if item.RetryCount >= p.cfg.Workflow.RetryCeiling {
			if err := p.store.MarkPermanent(ctx, item.VideoID, reason+"; retry limit reached"); err != nil {
				logger.Warn("stuck video retirement failed", logging.Error(err))
				continue
			}
			logger.Info("stuck video retired", logging.String("reason", reason))
		} else {
			if err := p.store.ResetToPending(ctx, item.VideoID, reason); err != nil {
				logger.Warn("stuck video reset failed", logging.Error(err))
				continue
			}
			logger.Info("stuck video reset", logging.String("reason", reason))
		}
		recovered++
	}
	return recovered, nil
}
