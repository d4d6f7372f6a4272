package queries

import (
	"context"
	"strings"

	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/ports"
)

const defaultListLimit = 50

type ProposalQueries struct {
	Store ports.ProposalStore
}

func (q ProposalQueries) GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error) {
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return entities.Proposal{}, domainerrors.ErrInvalidProposalInput
	}
	return q.Store.GetProposal(ctx, proposalID)
}

func (q ProposalQueries) ListOptions(ctx context.Context, proposalID string) ([]entities.ProposalOption, error) {
	proposal, err := q.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	return q.Store.ListOptions(ctx, proposal.ProposalID)
}

func (q ProposalQueries) ListProposals(ctx context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	filter.OrganizationID = strings.TrimSpace(filter.OrganizationID)
	if filter.OrganizationID == "" {
		return nil, domainerrors.ErrInvalidProposalInput
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domainerrors.ErrInvalidProposalInput
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = defaultListLimit
	}
	return q.Store.ListProposals(ctx, filter)
}

// GetVoteQuery reports the caller's vote, if any. found is false when the
// member has not voted on an existing proposal.
type GetVoteQuery struct {
	Store ports.ProposalStore
}

func (q GetVoteQuery) Execute(ctx context.Context, proposalID string, userID string) (entities.Vote, bool, error) {
	proposalID = strings.TrimSpace(proposalID)
	userID = strings.TrimSpace(userID)
	if proposalID == "" || userID == "" {
		return entities.Vote{}, false, domainerrors.ErrInvalidVoteInput
	}
	if _, err := q.Store.GetProposal(ctx, proposalID); err != nil {
		return entities.Vote{}, false, err
	}
	return q.Store.GetVote(ctx, proposalID, userID)
}

// ComputeTallyQuery returns live results while the proposal is Open or Closed
// and the frozen snapshot once it is Finalized.
type ComputeTallyQuery struct {
	Store   ports.ProposalStore
	Results application.ResultsCalculator
}

func (q ComputeTallyQuery) Execute(ctx context.Context, proposalID string) (entities.ResultSnapshot, error) {
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return entities.ResultSnapshot{}, domainerrors.ErrInvalidProposalInput
	}
	proposal, err := q.Store.GetProposal(ctx, proposalID)
	if err != nil {
		return entities.ResultSnapshot{}, err
	}
	switch proposal.Status {
	case entities.ProposalStatusDraft:
		return entities.ResultSnapshot{}, domainerrors.ErrNoResultsYet
	case entities.ProposalStatusFinalized:
		return q.Results.Frozen(ctx, proposal.ProposalID)
	default:
		return q.Results.Compute(ctx, proposal)
	}
}
