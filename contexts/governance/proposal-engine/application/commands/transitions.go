package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/domain/services"
	"fangov/contexts/governance/proposal-engine/ports"
)

// Open moves a Draft proposal with a valid window and at least two options to
// Open and snapshots the organization's eligible voting power.
func (uc ProposalUseCase) Open(ctx context.Context, cmd TransitionCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposal, err := uc.loadForManager(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return entities.Proposal{}, err
	}
	options, err := uc.Store.ListOptions(ctx, proposal.ProposalID)
	if err != nil {
		return entities.Proposal{}, err
	}
	if err := services.CheckOpenPreconditions(proposal, len(options)); err != nil {
		return entities.Proposal{}, err
	}

	now := uc.Clock.Now().UTC()
	eligible, err := uc.Ledger.TotalEligibleVotingPower(ctx, proposal.OrganizationID, now)
	if err != nil {
		return entities.Proposal{}, err
	}
	next := proposal.Advance(entities.ProposalStatusOpen, now)
	if !proposal.EligibleVotingPower.Valid {
		next.EligibleVotingPower = decimal.NewNullDecimal(eligible)
	}
	if err := uc.commitTransition(ctx, proposal, next, ports.EventProposalOpened, proposalEventData(next)); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal opened",
		"event", "proposal_opened",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", next.ProposalID,
		"option_count", len(options),
		"eligible_voting_power", next.EligibleVotingPower.Decimal.String(),
	)
	return next, nil
}

// Close stops vote admission. Votes racing with close either commit before
// the status flips or fail with ErrProposalNotOpen.
func (uc ProposalUseCase) Close(ctx context.Context, cmd TransitionCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposal, err := uc.loadForManager(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return entities.Proposal{}, err
	}
	if err := services.RequireStatus(proposal, entities.ProposalStatusOpen); err != nil {
		return entities.Proposal{}, err
	}

	next := proposal.Advance(entities.ProposalStatusClosed, uc.Clock.Now().UTC())
	if err := uc.commitTransition(ctx, proposal, next, ports.EventProposalClosed, proposalEventData(next)); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal closed",
		"event", "proposal_closed",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", next.ProposalID,
		"user_id", strings.TrimSpace(cmd.Actor.UserID),
	)
	return next, nil
}

// Finalize freezes the result of a Closed proposal. Repeated calls return the
// stored snapshot without recomputing it.
func (uc ProposalUseCase) Finalize(ctx context.Context, cmd TransitionCommand) (entities.ResultSnapshot, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposal, err := uc.loadForManager(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return entities.ResultSnapshot{}, err
	}
	if proposal.Status == entities.ProposalStatusFinalized {
		return uc.Results.Frozen(ctx, proposal.ProposalID)
	}
	if err := services.RequireStatus(proposal, entities.ProposalStatusClosed); err != nil {
		return entities.ResultSnapshot{}, err
	}

	snapshot, err := uc.Results.Compute(ctx, proposal)
	if err != nil {
		return entities.ResultSnapshot{}, err
	}
	now := uc.Clock.Now().UTC()
	snapshot.Frozen = true
	snapshot.ComputedAt = now
	next := proposal.Advance(entities.ProposalStatusFinalized, now)

	data := snapshotEventData(snapshot)
	data["proposal_id"] = next.ProposalID
	data["organization_id"] = next.OrganizationID
	data["finalized_at"] = now
	events, err := buildEvent(ctx, uc.IDGen, ports.EventProposalFinalized, next.ProposalID, now, data)
	if err != nil {
		return entities.ResultSnapshot{}, err
	}
	if err := uc.Store.FinalizeProposal(ctx, next, proposal.Version, snapshot, events); err != nil {
		if !errors.Is(err, domainerrors.ErrConflict) {
			return entities.ResultSnapshot{}, err
		}
		current, readErr := uc.Store.GetProposal(ctx, proposal.ProposalID)
		if readErr == nil && current.Status == entities.ProposalStatusFinalized {
			return uc.Results.Frozen(ctx, proposal.ProposalID)
		}
		return entities.ResultSnapshot{}, err
	}
	application.ResolveMetrics(uc.Metrics).ObserveTransition(proposal.Status, next.Status)
	uc.Results.Remember(ctx, snapshot)

	logger.Info("proposal finalized",
		"event", "proposal_finalized",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", next.ProposalID,
		"total_votes_cast", snapshot.TotalVotesCast,
		"total_voting_power_cast", snapshot.TotalVotingPowerCast.String(),
		"quorum_met", snapshot.QuorumMet,
		"results_hash", snapshot.ResultsHash,
	)
	return snapshot, nil
}

func (uc ProposalUseCase) commitTransition(
	ctx context.Context,
	current entities.Proposal,
	next entities.Proposal,
	eventType string,
	data map[string]any,
) error {
	events, err := buildEvent(ctx, uc.IDGen, eventType, next.ProposalID, next.UpdatedAt, data)
	if err != nil {
		return err
	}
	if err := uc.Store.UpdateProposal(ctx, next, current.Version, events); err != nil {
		return err
	}
	application.ResolveMetrics(uc.Metrics).ObserveTransition(current.Status, next.Status)
	return nil
}

func (uc ProposalUseCase) loadForManager(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
) (entities.Proposal, error) {
	if !actor.Identified() || !actor.Can(entities.CapabilityManageProposal) {
		return entities.Proposal{}, domainerrors.ErrMissingCapability
	}
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return entities.Proposal{}, domainerrors.ErrInvalidProposalInput
	}
	return uc.Store.GetProposal(ctx, proposalID)
}
