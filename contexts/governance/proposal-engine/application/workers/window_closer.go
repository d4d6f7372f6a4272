package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/application/commands"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/ports"
)

// SystemActorID identifies the window closer in logs and events.
const SystemActorID = "system:window-closer"

// WindowCloser sweeps Open proposals whose voting window has ended and closes
// them through the regular close transition.
type WindowCloser struct {
	Proposals ports.ProposalRepository
	Closer    commands.ProposalUseCase
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (j WindowCloser) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	due, err := j.Proposals.ListOpenProposalsPastWindow(ctx, now, limit)
	if err != nil {
		logger.Error("window close sweep failed",
			"event", "proposal_window_close_sweep_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	actor := entities.Actor{
		UserID:       SystemActorID,
		Capabilities: []entities.Capability{entities.CapabilityManageProposal},
	}
	closed := 0
	for _, proposal := range due {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		_, err := j.Closer.Close(ctx, commands.TransitionCommand{Actor: actor, ProposalID: proposal.ProposalID})
		switch {
		case err == nil:
			closed++
		case errors.Is(err, domainerrors.ErrConflict), errors.Is(err, domainerrors.ErrInvalidState):
			// Someone else moved it first.
			logger.Debug("window close skipped",
				"event", "proposal_window_close_skipped",
				"module", application.ModuleName,
				"layer", "worker",
				"proposal_id", proposal.ProposalID,
				"error", err.Error(),
			)
		default:
			logger.Error("window close failed",
				"event", "proposal_window_close_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"proposal_id", proposal.ProposalID,
				"error", err.Error(),
			)
			return closed, err
		}
	}
	if closed > 0 {
		logger.Info("window close sweep completed",
			"event", "proposal_window_close_completed",
			"module", application.ModuleName,
			"layer", "worker",
			"closed_count", closed,
		)
	}
	return closed, nil
}
