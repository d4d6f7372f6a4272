package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/domain/services"
	"fangov/contexts/governance/proposal-engine/ports"
)

// ResultsCalculator is shared by finalize and the tally query. Live results
// are rebuilt from stored votes on every call; frozen results are read back
// through the optional cache and never recomputed.
type ResultsCalculator struct {
	Store   ports.ProposalStore
	Quorum  ports.QuorumPolicy
	Cache   ports.SnapshotCache
	Metrics ports.Metrics
	Clock   ports.Clock
	Logger  *slog.Logger
}

// Threshold resolves the quorum fraction for a proposal. A per-proposal
// requirement wins over the organization policy.
func (c ResultsCalculator) Threshold(ctx context.Context, proposal entities.Proposal) (decimal.Decimal, error) {
	if fraction, ok := proposal.QuorumFraction(); ok {
		return fraction, nil
	}
	if c.Quorum == nil {
		return decimal.Zero, nil
	}
	return c.Quorum.QuorumThreshold(ctx, proposal.OrganizationID)
}

// Compute tallies the proposal's current vote rows.
func (c ResultsCalculator) Compute(ctx context.Context, proposal entities.Proposal) (entities.ResultSnapshot, error) {
	started := time.Now()
	options, err := c.Store.ListOptions(ctx, proposal.ProposalID)
	if err != nil {
		return entities.ResultSnapshot{}, err
	}
	votes, err := c.Store.ListVotes(ctx, proposal.ProposalID)
	if err != nil {
		return entities.ResultSnapshot{}, err
	}
	threshold, err := c.Threshold(ctx, proposal)
	if err != nil {
		return entities.ResultSnapshot{}, err
	}

	snapshot := services.ComputeTally(services.TallyInput{
		ProposalID:          proposal.ProposalID,
		Options:             options,
		Votes:               votes,
		EligibleVotingPower: proposal.EligibleVotingPower.Decimal,
		QuorumThreshold:     threshold,
		ComputedAt:          c.now(),
	})
	ResolveMetrics(c.Metrics).ObserveTally(false, time.Since(started))
	return snapshot, nil
}

// Frozen returns the snapshot stored at finalize time.
func (c ResultsCalculator) Frozen(ctx context.Context, proposalID string) (entities.ResultSnapshot, error) {
	logger := ResolveLogger(c.Logger)
	started := time.Now()
	if c.Cache != nil {
		cached, ok, err := c.Cache.GetSnapshot(ctx, proposalID)
		if err != nil {
			logger.Warn("frozen snapshot cache read failed",
				"event", "proposal_snapshot_cache_read_failed",
				"module", ModuleName,
				"layer", "application",
				"proposal_id", proposalID,
				"error", err.Error(),
			)
		}
		if ok {
			ResolveMetrics(c.Metrics).ObserveTally(true, time.Since(started))
			return cached, nil
		}
	}

	snapshot, err := c.Store.GetResultSnapshot(ctx, proposalID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return entities.ResultSnapshot{}, domainerrors.ErrResultNotFound
		}
		return entities.ResultSnapshot{}, err
	}
	snapshot.Frozen = true
	c.Remember(ctx, snapshot)
	ResolveMetrics(c.Metrics).ObserveTally(true, time.Since(started))
	return snapshot, nil
}

// Remember stores a frozen snapshot in the cache. Cache failures are logged
// and otherwise ignored; the store remains the source of truth.
func (c ResultsCalculator) Remember(ctx context.Context, snapshot entities.ResultSnapshot) {
	if c.Cache == nil || !snapshot.Frozen {
		return
	}
	if err := c.Cache.PutSnapshot(ctx, snapshot); err != nil {
		ResolveLogger(c.Logger).Warn("frozen snapshot cache write failed",
			"event", "proposal_snapshot_cache_write_failed",
			"module", ModuleName,
			"layer", "application",
			"proposal_id", snapshot.ProposalID,
			"error", err.Error(),
		)
	}
}

func (c ResultsCalculator) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock.Now().UTC()
}
