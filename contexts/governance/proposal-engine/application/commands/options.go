package commands

import (
	"context"
	"strings"

	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
)

// AddOption appends an option while the proposal is Draft. Duplicate text is
// allowed; the store assigns the creation position.
func (uc ProposalUseCase) AddOption(ctx context.Context, cmd AddOptionCommand) (entities.ProposalOption, error) {
	logger := application.ResolveLogger(uc.Logger)
	text := strings.TrimSpace(uc.sanitize(cmd.Text))
	if text == "" {
		return entities.ProposalOption{}, domainerrors.ErrInvalidOptionInput
	}
	proposal, err := uc.loadDraftForManager(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return entities.ProposalOption{}, err
	}

	optionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.ProposalOption{}, err
	}
	now := uc.Clock.Now().UTC()
	next := proposal
	next.Version = proposal.Version + 1
	next.UpdatedAt = now

	option, err := uc.Store.AddOption(ctx, next, proposal.Version, entities.ProposalOption{
		OptionID:    optionID,
		ProposalID:  proposal.ProposalID,
		Text:        text,
		Description: uc.sanitize(strings.TrimSpace(cmd.Description)),
		CreatedAt:   now,
	})
	if err != nil {
		return entities.ProposalOption{}, err
	}

	logger.Info("proposal option added",
		"event", "proposal_option_added",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"option_id", option.OptionID,
		"position", option.Position,
	)
	return option, nil
}

func (uc ProposalUseCase) DeleteOption(ctx context.Context, cmd DeleteOptionCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	optionID := strings.TrimSpace(cmd.OptionID)
	if optionID == "" {
		return domainerrors.ErrInvalidOptionInput
	}
	proposal, err := uc.loadDraftForManager(ctx, cmd.Actor, cmd.ProposalID)
	if err != nil {
		return err
	}
	if _, err := uc.Store.GetOption(ctx, proposal.ProposalID, optionID); err != nil {
		return err
	}

	next := proposal
	next.Version = proposal.Version + 1
	next.UpdatedAt = uc.Clock.Now().UTC()
	if err := uc.Store.DeleteOption(ctx, next, proposal.Version, optionID); err != nil {
		return err
	}

	logger.Info("proposal option deleted",
		"event", "proposal_option_deleted",
		"module", application.ModuleName,
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"option_id", optionID,
	)
	return nil
}
