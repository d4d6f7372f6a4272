package services

import (
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
)

var allowedTransitions = map[entities.ProposalStatus]entities.ProposalStatus{
	entities.ProposalStatusDraft:  entities.ProposalStatusOpen,
	entities.ProposalStatusOpen:   entities.ProposalStatusClosed,
	entities.ProposalStatusClosed: entities.ProposalStatusFinalized,
}

// CanTransition reports whether from -> to is the single legal forward step.
func CanTransition(from entities.ProposalStatus, to entities.ProposalStatus) bool {
	next, ok := allowedTransitions[from]
	return ok && next == to
}

// CheckOpenPreconditions reports the first unmet condition for Draft -> Open.
func CheckOpenPreconditions(proposal entities.Proposal, optionCount int) error {
	if !proposal.IsDraft() {
		return domainerrors.ErrAlreadyOpened
	}
	if !proposal.HasWindow() {
		return domainerrors.ErrVotingWindowMissing
	}
	if !proposal.WindowValid() {
		return domainerrors.ErrVotingWindowInvalid
	}
	if optionCount < entities.MinOpenOptions {
		return domainerrors.ErrTooFewOptions
	}
	return nil
}

// RequireStatus maps a status mismatch onto the invalid-state error callers
// expect for the given required status.
func RequireStatus(proposal entities.Proposal, required entities.ProposalStatus) error {
	if proposal.Status == required {
		return nil
	}
	switch required {
	case entities.ProposalStatusDraft:
		return domainerrors.ErrProposalNotDraft
	case entities.ProposalStatusOpen:
		return domainerrors.ErrProposalNotOpen
	case entities.ProposalStatusClosed:
		return domainerrors.ErrProposalNotClosed
	default:
		return domainerrors.ErrIllegalTransition
	}
}
