package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/domain/services"
	"fangov/contexts/governance/proposal-engine/ports"
)

type CreateProposalCommand struct {
	Actor                entities.Actor
	OrganizationID       string
	Title                string
	Description          string
	ContentHash          string
	StartAt              *time.Time
	EndAt                *time.Time
	QuorumRequirementBps *int
}

// UpdateDraftCommand fields left nil keep their current value.
type UpdateDraftCommand struct {
	Actor                entities.Actor
	ProposalID           string
	Title                *string
	Description          *string
	ContentHash          *string
	QuorumRequirementBps *int
}

type ScheduleCommand struct {
	Actor      entities.Actor
	ProposalID string
	StartAt    time.Time
	EndAt      time.Time
}

type AddOptionCommand struct {
	Actor       entities.Actor
	ProposalID  string
	Text        string
	Description string
}

type DeleteOptionCommand struct {
	Actor      entities.Actor
	ProposalID string
	OptionID   string
}

type TransitionCommand struct {
	Actor      entities.Actor
	ProposalID string
}

// ProposalUseCase is the proposal state machine. Every mutation is a single
// compare-and-swap on the proposal version; the loser of a race receives
// ErrConflict and nothing it attempted is persisted.
type ProposalUseCase struct {
	Store     ports.ProposalStore
	Ledger    ports.ShareLedger
	Results   application.ResultsCalculator
	Sanitizer ports.TextSanitizer
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.Metrics
	Logger    *slog.Logger
}

func (uc ProposalUseCase) Create(ctx context.Context, cmd CreateProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	if !cmd.Actor.Identified() || !cmd.Actor.Can(entities.CapabilityCreateProposal) {
		return entities.Proposal{}, domainerrors.ErrMissingCapability
	}
	organizationID := strings.TrimSpace(cmd.OrganizationID)
	if organizationID == "" {
		return entities.Proposal{}, domainerrors.ErrInvalidProposalInput
	}
	title, err := services.NormalizeTitle(uc.sanitize(cmd.Title))
	if err != nil {
		return entities.Proposal{}, err
	}
	contentHash, err := services.NormalizeContentHash(cmd.ContentHash)
	if err != nil {
		return entities.Proposal{}, err
	}
	if err := services.ValidateQuorumBps(cmd.QuorumRequirementBps); err != nil {
		return entities.Proposal{}, err
	}
	if cmd.StartAt != nil && cmd.EndAt != nil {
		if err := services.ValidateWindow(*cmd.StartAt, *cmd.EndAt); err != nil {
			return entities.Proposal{}, err
		}
	}

	proposalID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Proposal{}, err
	}
	now := uc.Clock.Now().UTC()
	proposal := entities.Proposal{
		ProposalID:           proposalID,
		OrganizationID:       organizationID,
		Title:                title,
		Description:          uc.sanitize(strings.TrimSpace(cmd.Description)),
		ContentHash:          contentHash,
		Status:               entities.ProposalStatusDraft,
		StartAt:              utcPointer(cmd.StartAt),
		EndAt:                utcPointer(cmd.EndAt),
		QuorumRequirementBps: cmd.QuorumRequirementBps,
		CreatedByUserID:      strings.TrimSpace(cmd.Actor.UserID),
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	events, err := buildEvent(ctx, uc.IDGen, ports.EventProposalCreated, proposalID, now, proposalEventData(proposal))
	if err != nil {
		return entities.Proposal{}, err
	}
	if err := uc.Store.CreateProposal(ctx, proposal, events); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal created",
		"event", "proposal_created",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"organization_id", proposal.OrganizationID,
		"user_id", proposal.CreatedByUserID,
	)
	return proposal, nil
}

func (uc ProposalUseCase) UpdateDraft(ctx context.Context, cmd UpdateDraftCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposal, err := uc.loadDraftForManager(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return entities.Proposal{}, err
	}

	next := proposal
	if cmd.Title != nil {
		title, err := services.NormalizeTitle(uc.sanitize(*cmd.Title))
		if err != nil {
			return entities.Proposal{}, err
		}
		next.Title = title
	}
	if cmd.Description != nil {
		next.Description = uc.sanitize(strings.TrimSpace(*cmd.Description))
	}
	if cmd.ContentHash != nil {
		contentHash, err := services.NormalizeContentHash(*cmd.ContentHash)
		if err != nil {
			return entities.Proposal{}, err
		}
		next.ContentHash = contentHash
	}
	if cmd.QuorumRequirementBps != nil {
		if err := services.ValidateQuorumBps(cmd.QuorumRequirementBps); err != nil {
			return entities.Proposal{}, err
		}
		bps := *cmd.QuorumRequirementBps
		next.QuorumRequirementBps = &bps
	}
	next.Version = proposal.Version + 1
	next.UpdatedAt = uc.Clock.Now().UTC()

	if err := uc.Store.UpdateProposal(ctx, next, proposal.Version, nil); err != nil {
		return entities.Proposal{}, err
	}
	logger.Info("proposal draft updated",
		"event", "proposal_draft_updated",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", next.ProposalID,
		"version", next.Version,
	)
	return next, nil
}

func (uc ProposalUseCase) Schedule(ctx context.Context, cmd ScheduleCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.ValidateWindow(cmd.StartAt, cmd.EndAt); err != nil {
		return entities.Proposal{}, err
	}
	proposal, err := uc.loadDraftForManager(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return entities.Proposal{}, err
	}

	startAt := cmd.StartAt.UTC()
	endAt := cmd.EndAt.UTC()
	next := proposal
	next.StartAt = &startAt
	next.EndAt = &endAt
	next.Version = proposal.Version + 1
	next.UpdatedAt = uc.Clock.Now().UTC()
	if err := uc.Store.UpdateProposal(ctx, next, proposal.Version, nil); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal voting window scheduled",
		"event", "proposal_window_scheduled",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", next.ProposalID,
		"start_at", startAt,
		"end_at", endAt,
	)
	return next, nil
}

func (uc ProposalUseCase) loadDraftForManager(
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
	proposal, err := uc.Store.GetProposal(ctx, proposalID)
	if err != nil {
		return entities.Proposal{}, err
	}
	if err := services.RequireStatus(proposal, entities.ProposalStatusDraft); err != nil {
		return entities.Proposal{}, err
	}
	return proposal, nil
}

func (uc ProposalUseCase) sanitize(value string) string {
	if uc.Sanitizer == nil {
		return value
	}
	return uc.Sanitizer.Sanitize(value)
}

func utcPointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
