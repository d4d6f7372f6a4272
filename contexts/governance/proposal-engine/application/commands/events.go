package commands

import (
	"context"
	"encoding/json"
	"time"

	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	"fangov/contexts/governance/proposal-engine/ports"
)

func newProposalEnvelope(
	eventID string,
	eventType string,
	proposalID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// All proposal-engine events are partitioned by proposal so consumers see
	// opened, votes, closed and finalized in commit order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    application.ServiceName,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "proposal_id",
		PartitionKey:     proposalID,
		Data:             payload,
	}, nil
}

func buildEvent(
	ctx context.Context,
	idGen ports.IDGenerator,
	eventType string,
	proposalID string,
	occurredAt time.Time,
	data map[string]any,
) ([]ports.EventEnvelope, error) {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return nil, err
	}
	envelope, err := newProposalEnvelope(eventID, eventType, proposalID, occurredAt, data)
	if err != nil {
		return nil, err
	}
	return []ports.EventEnvelope{envelope}, nil
}

func proposalEventData(proposal entities.Proposal) map[string]any {
	data := map[string]any{
		"proposal_id":     proposal.ProposalID,
		"organization_id": proposal.OrganizationID,
		"status":          string(proposal.Status),
		"version":         proposal.Version,
		"content_hash":    proposal.ContentHash,
	}
	if proposal.StartAt != nil {
		data["start_at"] = proposal.StartAt.UTC()
	}
	if proposal.EndAt != nil {
		data["end_at"] = proposal.EndAt.UTC()
	}
	if proposal.EligibleVotingPower.Valid {
		data["eligible_voting_power"] = proposal.EligibleVotingPower.Decimal.String()
	}
	return data
}

func snapshotEventData(snapshot entities.ResultSnapshot) map[string]any {
	tally := make([]map[string]any, 0, len(snapshot.Tally))
	for _, item := range snapshot.Tally {
		tally = append(tally, map[string]any{
			"option_id":    item.OptionID,
			"text":         item.Text,
			"voting_power": item.VotingPower.String(),
			"vote_count":   item.VoteCount,
		})
	}
	data := map[string]any{
		"tally":                   tally,
		"tied":                    snapshot.Tied,
		"total_votes_cast":        snapshot.TotalVotesCast,
		"total_voting_power_cast": snapshot.TotalVotingPowerCast.String(),
		"eligible_voting_power":   snapshot.EligibleVotingPower.String(),
		"quorum_threshold":        snapshot.QuorumThreshold.String(),
		"quorum_met":              snapshot.QuorumMet,
		"results_hash":            snapshot.ResultsHash,
	}
	if snapshot.WinningOptionID != nil {
		data["winning_option_id"] = *snapshot.WinningOptionID
	}
	return data
}
