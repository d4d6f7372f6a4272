package commands_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"fangov/contexts/governance/proposal-engine/adapters/memory"
	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/application/commands"
	"fangov/contexts/governance/proposal-engine/application/queries"
	"fangov/contexts/governance/proposal-engine/domain/entities"
)

var (
	baseTime    = time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC)
	contentHash = strings.Repeat("ab", 32)
	manager     = entities.Actor{
		UserID: "manager-1",
		Capabilities: []entities.Capability{
			entities.CapabilityCreateProposal,
			entities.CapabilityManageProposal,
		},
	}
)

func voter(userID string) entities.Actor {
	return entities.Actor{UserID: userID, Capabilities: []entities.Capability{entities.CapabilityCastVote}}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type fixture struct {
	store     *memory.Store
	clock     *testClock
	proposals commands.ProposalUseCase
	votes     commands.VoteUseCase
	tally     queries.ComputeTallyQuery
	getVote   queries.GetVoteQuery
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: baseTime}
	results := application.ResultsCalculator{Store: store, Quorum: store, Clock: clock}
	return &fixture{
		store: store,
		clock: clock,
		proposals: commands.ProposalUseCase{
			Store:   store,
			Ledger:  store,
			Results: results,
			Clock:   clock,
			IDGen:   store,
		},
		votes: commands.VoteUseCase{
			Store:               store,
			Ledger:              store,
			Clock:               clock,
			IDGen:               store,
			EnforceVotingWindow: true,
		},
		tally:   queries.ComputeTallyQuery{Store: store, Results: results},
		getVote: queries.GetVoteQuery{Store: store},
	}
}

func (f *fixture) issue(organizationID string, userID string, amount int64) {
	f.store.IssueShares(organizationID, userID, decimal.NewFromInt(amount), baseTime.Add(-24*time.Hour))
}

// draftWithOptions creates a scheduled draft proposal in org with the given
// option texts and returns it together with the created options.
func (f *fixture) draftWithOptions(t *testing.T, organizationID string, texts ...string) (entities.Proposal, []entities.ProposalOption) {
	t.Helper()
	ctx := context.Background()
	proposal, err := f.proposals.Create(ctx, commands.CreateProposalCommand{
		Actor:          manager,
		OrganizationID: organizationID,
		Title:          "Adopt the new budget",
		Description:    "Quarterly budget vote",
		ContentHash:    contentHash,
	})
	require.NoError(t, err)

	proposal, err = f.proposals.Schedule(ctx, commands.ScheduleCommand{
		Actor:      manager,
		ProposalID: proposal.ProposalID,
		StartAt:    baseTime.Add(-time.Hour),
		EndAt:      baseTime.Add(time.Hour),
	})
	require.NoError(t, err)

	options := make([]entities.ProposalOption, 0, len(texts))
	for _, text := range texts {
		option, err := f.proposals.AddOption(ctx, commands.AddOptionCommand{
			Actor:      manager,
			ProposalID: proposal.ProposalID,
			Text:       text,
		})
		require.NoError(t, err)
		options = append(options, option)
	}
	return proposal, options
}

func (f *fixture) openWithOptions(t *testing.T, organizationID string, texts ...string) (entities.Proposal, []entities.ProposalOption) {
	t.Helper()
	proposal, options := f.draftWithOptions(t, organizationID, texts...)
	opened, err := f.proposals.Open(context.Background(), commands.TransitionCommand{
		Actor:      manager,
		ProposalID: proposal.ProposalID,
	})
	require.NoError(t, err)
	return opened, options
}

func (f *fixture) cast(t *testing.T, userID string, proposalID string, optionID string) entities.Vote {
	t.Helper()
	vote, err := f.votes.CastVote(context.Background(), commands.CastVoteCommand{
		Actor:      voter(userID),
		ProposalID: proposalID,
		OptionID:   optionID,
	})
	require.NoError(t, err)
	return vote
}
