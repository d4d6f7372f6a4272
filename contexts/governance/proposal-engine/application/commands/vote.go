package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/domain/services"
	"fangov/contexts/governance/proposal-engine/ports"
)

const (
	voteOutcomeAccepted  = "accepted"
	voteOutcomeDuplicate = "duplicate"
	voteOutcomeRejected  = "rejected"
)

type CastVoteCommand struct {
	Actor      entities.Actor
	ProposalID string
	OptionID   string
}

// VoteUseCase admits at most one vote per member per proposal. Voting power
// is read from the ledger at cast time and stored with the vote.
type VoteUseCase struct {
	Store   ports.ProposalStore
	Ledger  ports.ShareLedger
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Metrics ports.Metrics
	Logger  *slog.Logger

	EnforceVotingWindow  bool
	RejectZeroPowerVotes bool
}

func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	metrics := application.ResolveMetrics(uc.Metrics)

	vote, err := uc.admit(ctx, cmd)
	if err != nil {
		outcome := voteOutcomeRejected
		if errors.Is(err, domainerrors.ErrDuplicateVote) {
			outcome = voteOutcomeDuplicate
		}
		metrics.ObserveVote(outcome)
		logger.Debug("vote rejected",
			"event", "proposal_vote_rejected",
			"module", application.ModuleName,
			"layer", "application",
			"proposal_id", strings.TrimSpace(cmd.ProposalID),
			"user_id", strings.TrimSpace(cmd.Actor.UserID),
			"error", err.Error(),
		)
		return entities.Vote{}, err
	}
	metrics.ObserveVote(voteOutcomeAccepted)

	logger.Info("vote cast",
		"event", "proposal_vote_cast",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", vote.ProposalID,
		"option_id", vote.OptionID,
		"user_id", vote.UserID,
		"voting_power", vote.VotingPower.String(),
	)
	return vote, nil
}

func (uc VoteUseCase) admit(ctx context.Context, cmd CastVoteCommand) (entities.Vote, error) {
	if !cmd.Actor.Identified() || !cmd.Actor.Can(entities.CapabilityCastVote) {
		return entities.Vote{}, domainerrors.ErrMissingCapability
	}
	proposalID := strings.TrimSpace(cmd.ProposalID)
	optionID := strings.TrimSpace(cmd.OptionID)
	userID := strings.TrimSpace(cmd.Actor.UserID)
	if proposalID == "" || optionID == "" {
		return entities.Vote{}, domainerrors.ErrInvalidVoteInput
	}

	proposal, err := uc.Store.GetProposal(ctx, proposalID)
	if err != nil {
		return entities.Vote{}, err
	}
	if err := services.RequireStatus(proposal, entities.ProposalStatusOpen); err != nil {
		return entities.Vote{}, err
	}
	now := uc.Clock.Now().UTC()
	if uc.EnforceVotingWindow && !proposal.WithinWindow(now) {
		return entities.Vote{}, domainerrors.ErrOutsideVotingWindow
	}
	if _, err := uc.Store.GetOption(ctx, proposalID, optionID); err != nil {
		return entities.Vote{}, err
	}

	power, err := uc.Ledger.VotingPowerOf(ctx, userID, proposal.OrganizationID, now)
	if err != nil {
		return entities.Vote{}, err
	}
	if power.Sign() < 0 || (uc.RejectZeroPowerVotes && power.IsZero()) {
		return entities.Vote{}, domainerrors.ErrZeroVotingPower
	}

	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Vote{}, err
	}
	vote := entities.Vote{
		VoteID:         voteID,
		ProposalID:     proposalID,
		OrganizationID: proposal.OrganizationID,
		UserID:         userID,
		OptionID:       optionID,
		VotingPower:    power,
		CastAt:         now,
	}
	events, err := buildEvent(ctx, uc.IDGen, ports.EventVoteCast, proposalID, now, map[string]any{
		"vote_id":         vote.VoteID,
		"proposal_id":     vote.ProposalID,
		"organization_id": vote.OrganizationID,
		"user_id":         vote.UserID,
		"option_id":       vote.OptionID,
		"voting_power":    vote.VotingPower.String(),
		"cast_at":         vote.CastAt,
	})
	if err != nil {
		return entities.Vote{}, err
	}
	if err := uc.Store.InsertVote(ctx, vote, events); err != nil {
		return entities.Vote{}, err
	}
	return vote, nil
}
