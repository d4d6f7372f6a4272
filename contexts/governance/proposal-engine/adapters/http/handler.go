package httpadapter

import (
	"context"
	"log/slog"

	"fangov/contexts/governance/proposal-engine/application/commands"
	"fangov/contexts/governance/proposal-engine/application/queries"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/ports"
	httptransport "fangov/contexts/governance/proposal-engine/transport/http"
)

// Handler adapts transport DTOs to the use cases. It knows nothing about the
// HTTP framework; routing lives in routes.go.
type Handler struct {
	Proposals commands.ProposalUseCase
	Votes     commands.VoteUseCase
	Queries   queries.ProposalQueries
	GetVote   queries.GetVoteQuery
	Tally     queries.ComputeTallyQuery
	Logger    *slog.Logger
}

func (h Handler) CreateProposalHandler(
	ctx context.Context,
	actor entities.Actor,
	req httptransport.CreateProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.Create(ctx, commands.CreateProposalCommand{
		Actor:                actor,
		OrganizationID:       req.OrganizationID,
		Title:                req.Title,
		Description:          req.Description,
		ContentHash:          req.ContentHash,
		StartAt:              req.StartAt,
		EndAt:                req.EndAt,
		QuorumRequirementBps: req.QuorumRequirementBps,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) UpdateDraftHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	req httptransport.UpdateDraftRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.UpdateDraft(ctx, commands.UpdateDraftCommand{
		Actor:                actor,
		ProposalID:           proposalID,
		Title:                req.Title,
		Description:          req.Description,
		ContentHash:          req.ContentHash,
		QuorumRequirementBps: req.QuorumRequirementBps,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) ScheduleHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	req httptransport.ScheduleRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.Schedule(ctx, commands.ScheduleCommand{
		Actor:      actor,
		ProposalID: proposalID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) AddOptionHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	req httptransport.AddOptionRequest,
) (httptransport.OptionResponse, error) {
	option, err := h.Proposals.AddOption(ctx, commands.AddOptionCommand{
		Actor:       actor,
		ProposalID:  proposalID,
		Text:        req.Text,
		Description: req.Description,
	})
	if err != nil {
		return httptransport.OptionResponse{}, err
	}
	return mapOption(option), nil
}

func (h Handler) DeleteOptionHandler(ctx context.Context, actor entities.Actor, proposalID string, optionID string) error {
	return h.Proposals.DeleteOption(ctx, commands.DeleteOptionCommand{
		Actor:      actor,
		ProposalID: proposalID,
		OptionID:   optionID,
	})
}

func (h Handler) OpenHandler(ctx context.Context, actor entities.Actor, proposalID string) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.Open(ctx, commands.TransitionCommand{Actor: actor, ProposalID: proposalID})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) CloseHandler(ctx context.Context, actor entities.Actor, proposalID string) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.Close(ctx, commands.TransitionCommand{Actor: actor, ProposalID: proposalID})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) FinalizeHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
) (httptransport.ResultSnapshotResponse, error) {
	snapshot, err := h.Proposals.Finalize(ctx, commands.TransitionCommand{Actor: actor, ProposalID: proposalID})
	if err != nil {
		return httptransport.ResultSnapshotResponse{}, err
	}
	return mapSnapshot(snapshot), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	actor entities.Actor,
	proposalID string,
	req httptransport.CastVoteRequest,
) (httptransport.VoteResponse, error) {
	vote, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		Actor:      actor,
		ProposalID: proposalID,
		OptionID:   req.OptionID,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(vote), nil
}

func (h Handler) GetVoteHandler(ctx context.Context, proposalID string, userID string) (httptransport.VoteResponse, error) {
	vote, found, err := h.GetVote.Execute(ctx, proposalID, userID)
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	if !found {
		return httptransport.VoteResponse{}, domainerrors.ErrVoteNotFound
	}
	return mapVote(vote), nil
}

func (h Handler) ResultsHandler(ctx context.Context, proposalID string) (httptransport.ResultSnapshotResponse, error) {
	snapshot, err := h.Tally.Execute(ctx, proposalID)
	if err != nil {
		return httptransport.ResultSnapshotResponse{}, err
	}
	return mapSnapshot(snapshot), nil
}

func (h Handler) GetProposalHandler(ctx context.Context, proposalID string) (httptransport.ProposalResponse, error) {
	proposal, err := h.Queries.GetProposal(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

func (h Handler) ListOptionsHandler(ctx context.Context, proposalID string) (httptransport.ListOptionsResponse, error) {
	options, err := h.Queries.ListOptions(ctx, proposalID)
	if err != nil {
		return httptransport.ListOptionsResponse{}, err
	}
	items := make([]httptransport.OptionResponse, 0, len(options))
	for _, option := range options {
		items = append(items, mapOption(option))
	}
	return httptransport.ListOptionsResponse{Items: items}, nil
}

func (h Handler) ListProposalsHandler(
	ctx context.Context,
	organizationID string,
	status string,
	limit int,
) (httptransport.ListProposalsResponse, error) {
	proposals, err := h.Queries.ListProposals(ctx, ports.ProposalFilter{
		OrganizationID: organizationID,
		Status:         entities.ProposalStatus(status),
		Limit:          limit,
	})
	if err != nil {
		return httptransport.ListProposalsResponse{}, err
	}
	items := make([]httptransport.ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		items = append(items, mapProposal(proposal))
	}
	return httptransport.ListProposalsResponse{Items: items}, nil
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalResponse {
	resp := httptransport.ProposalResponse{
		ProposalID:           proposal.ProposalID,
		OrganizationID:       proposal.OrganizationID,
		Title:                proposal.Title,
		Description:          proposal.Description,
		ContentHash:          proposal.ContentHash,
		Status:               string(proposal.Status),
		StartAt:              proposal.StartAt,
		EndAt:                proposal.EndAt,
		QuorumRequirementBps: proposal.QuorumRequirementBps,
		CreatedByUserID:      proposal.CreatedByUserID,
		Version:              proposal.Version,
		CreatedAt:            proposal.CreatedAt,
		UpdatedAt:            proposal.UpdatedAt,
		OpenedAt:             proposal.OpenedAt,
		ClosedAt:             proposal.ClosedAt,
		FinalizedAt:          proposal.FinalizedAt,
	}
	if proposal.EligibleVotingPower.Valid {
		power := proposal.EligibleVotingPower.Decimal.String()
		resp.EligibleVotingPower = &power
	}
	return resp
}

func mapOption(option entities.ProposalOption) httptransport.OptionResponse {
	return httptransport.OptionResponse{
		OptionID:    option.OptionID,
		ProposalID:  option.ProposalID,
		Text:        option.Text,
		Description: option.Description,
		Position:    option.Position,
		CreatedAt:   option.CreatedAt,
	}
}

func mapVote(vote entities.Vote) httptransport.VoteResponse {
	return httptransport.VoteResponse{
		VoteID:      vote.VoteID,
		ProposalID:  vote.ProposalID,
		UserID:      vote.UserID,
		OptionID:    vote.OptionID,
		VotingPower: vote.VotingPower.String(),
		CastAt:      vote.CastAt,
	}
}

func mapSnapshot(snapshot entities.ResultSnapshot) httptransport.ResultSnapshotResponse {
	tally := make([]httptransport.TallyItem, 0, len(snapshot.Tally))
	for _, item := range snapshot.Tally {
		tally = append(tally, httptransport.TallyItem{
			OptionID:    item.OptionID,
			Text:        item.Text,
			VotingPower: item.VotingPower.String(),
			VoteCount:   item.VoteCount,
		})
	}
	return httptransport.ResultSnapshotResponse{
		ProposalID:           snapshot.ProposalID,
		Tally:                tally,
		WinningOptionID:      snapshot.WinningOptionID,
		Tied:                 snapshot.Tied,
		TotalVotesCast:       snapshot.TotalVotesCast,
		TotalVotingPowerCast: snapshot.TotalVotingPowerCast.String(),
		EligibleVotingPower:  snapshot.EligibleVotingPower.String(),
		QuorumThreshold:      snapshot.QuorumThreshold.String(),
		QuorumMet:            snapshot.QuorumMet,
		ResultsHash:          snapshot.ResultsHash,
		Frozen:               snapshot.Frozen,
		ComputedAt:           snapshot.ComputedAt,
	}
}
