package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fangov/contexts/governance/proposal-engine/application/commands"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
)

func TestConcurrentCastVoteAdmitsExactlyOne(t *testing.T) {
	f := newFixture(t)
	f.issue("org-1", "user-1", 4)
	proposal, options := f.openWithOptions(t, "org-1", "A", "B")

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.votes.CastVote(context.Background(), commands.CastVoteCommand{
				Actor:      voter("user-1"),
				ProposalID: proposal.ProposalID,
				OptionID:   options[i%2].OptionID,
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes, duplicates := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domainerrors.ErrDuplicateVote):
			duplicates++
		default:
			t.Fatalf("unexpected cast error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, duplicates)

	votes, err := f.store.ListVotes(context.Background(), proposal.ProposalID)
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}

func TestResubmittedVoteIsRejected(t *testing.T) {
	f := newFixture(t)
	f.issue("org-1", "user-1", 4)
	proposal, options := f.openWithOptions(t, "org-1", "A", "B")
	first := f.cast(t, "user-1", proposal.ProposalID, options[0].OptionID)

	_, err := f.votes.CastVote(context.Background(), commands.CastVoteCommand{
		Actor: voter("user-1"), ProposalID: proposal.ProposalID, OptionID: options[1].OptionID,
	})
	require.ErrorIs(t, err, domainerrors.ErrDuplicateVote)
	assert.EqualError(t, err, "you have already voted")

	stored, found, err := f.getVote.Execute(context.Background(), proposal.ProposalID, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first.VoteID, stored.VoteID)
	assert.Equal(t, options[0].OptionID, stored.OptionID)

	_, found, err = f.getVote.Execute(context.Background(), proposal.ProposalID, "user-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCastVoteRequiresOpenProposal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.issue("org-1", "user-1", 4)

	draft, draftOptions := f.draftWithOptions(t, "org-1", "A", "B")
	_, err := f.votes.CastVote(ctx, commands.CastVoteCommand{
		Actor: voter("user-1"), ProposalID: draft.ProposalID, OptionID: draftOptions[0].OptionID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidState)

	proposal, options := f.openWithOptions(t, "org-1", "A", "B")
	_, err = f.proposals.Close(ctx, commands.TransitionCommand{Actor: manager, ProposalID: proposal.ProposalID})
	require.NoError(t, err)
	_, err = f.votes.CastVote(ctx, commands.CastVoteCommand{
		Actor: voter("user-1"), ProposalID: proposal.ProposalID, OptionID: options[0].OptionID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrProposalNotOpen)
}

func TestCastVoteEnforcesWindow(t *testing.T) {
	f := newFixture(t)
	f.issue("org-1", "user-1", 4)
	proposal, options := f.openWithOptions(t, "org-1", "A", "B")

	f.clock.Set(baseTime.Add(2 * time.Hour))
	_, err := f.votes.CastVote(context.Background(), commands.CastVoteCommand{
		Actor: voter("user-1"), ProposalID: proposal.ProposalID, OptionID: options[0].OptionID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidState)

	f.votes.EnforceVotingWindow = false
	_, err = f.votes.CastVote(context.Background(), commands.CastVoteCommand{
		Actor: voter("user-1"), ProposalID: proposal.ProposalID, OptionID: options[0].OptionID,
	})
	assert.NoError(t, err)
}

func TestCastVoteRejectsForeignOption(t *testing.T) {
	f := newFixture(t)
	f.issue("org-1", "user-1", 4)
	proposal, _ := f.openWithOptions(t, "org-1", "A", "B")
	_, otherOptions := f.openWithOptions(t, "org-1", "X", "Y")

	_, err := f.votes.CastVote(context.Background(), commands.CastVoteCommand{
		Actor: voter("user-1"), ProposalID: proposal.ProposalID, OptionID: otherOptions[0].OptionID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCastVoteRequiresCapability(t *testing.T) {
	f := newFixture(t)
	f.issue("org-1", "manager-1", 4)
	proposal, options := f.openWithOptions(t, "org-1", "A", "B")

	_, err := f.votes.CastVote(context.Background(), commands.CastVoteCommand{
		Actor: manager, ProposalID: proposal.ProposalID, OptionID: options[0].OptionID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestZeroPowerVotesAreAdmittedByDefault(t *testing.T) {
	f := newFixture(t)
	f.issue("org-1", "holder", 10)
	proposal, options := f.openWithOptions(t, "org-1", "A", "B")

	vote := f.cast(t, "no-shares", proposal.ProposalID, options[0].OptionID)
	assert.True(t, vote.VotingPower.IsZero())

	f.votes.RejectZeroPowerVotes = true
	_, err := f.votes.CastVote(context.Background(), commands.CastVoteCommand{
		Actor: voter("also-no-shares"), ProposalID: proposal.ProposalID, OptionID: options[0].OptionID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestVotingPowerIsCapturedAtCastTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.issue("org-1", "user-a", 15)
	f.issue("org-1", "user-b", 5)
	proposal, options := f.openWithOptions(t, "org-1", "A", "B")
	f.cast(t, "user-a", proposal.ProposalID, options[0].OptionID)
	f.cast(t, "user-b", proposal.ProposalID, options[1].OptionID)

	f.store.IssueShares("org-1", "user-b", decimal.NewFromInt(50), baseTime)

	snapshot, err := f.tally.Execute(ctx, proposal.ProposalID)
	require.NoError(t, err)
	require.NotNil(t, snapshot.WinningOptionID)
	assert.Equal(t, options[0].OptionID, *snapshot.WinningOptionID)
	assert.Equal(t, 2, snapshot.TotalVotesCast)
	assert.True(t, snapshot.TotalVotingPowerCast.Equal(decimal.NewFromInt(20)))
	assert.False(t, snapshot.Frozen)
}

func TestLiveTallyReportsTie(t *testing.T) {
	f := newFixture(t)
	f.issue("org-1", "user-a", 10)
	f.issue("org-1", "user-b", 10)
	proposal, options := f.openWithOptions(t, "org-1", "A", "B")
	f.cast(t, "user-a", proposal.ProposalID, options[0].OptionID)
	f.cast(t, "user-b", proposal.ProposalID, options[1].OptionID)

	snapshot, err := f.tally.Execute(context.Background(), proposal.ProposalID)
	require.NoError(t, err)
	assert.Nil(t, snapshot.WinningOptionID)
	assert.True(t, snapshot.Tied)
	assert.True(t, snapshot.QuorumMet)
}

func TestTallyOnDraftIsInvalidState(t *testing.T) {
	f := newFixture(t)
	draft, _ := f.draftWithOptions(t, "org-1", "A", "B")

	_, err := f.tally.Execute(context.Background(), draft.ProposalID)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidState)
}

func TestProposalQuorumOverridesOrganizationPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.issue("org-1", "user-a", 30)
	f.issue("org-1", "user-b", 70)
	f.store.SetQuorumBps("org-1", 2000)

	proposal, options := f.openWithOptions(t, "org-1", "A", "B")
	f.cast(t, "user-a", proposal.ProposalID, options[0].OptionID)
	snapshot, err := f.tally.Execute(ctx, proposal.ProposalID)
	require.NoError(t, err)
	assert.True(t, snapshot.QuorumThreshold.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, snapshot.QuorumMet)

	bps := 5000
	strict, err := f.proposals.Create(ctx, commands.CreateProposalCommand{
		Actor: manager, OrganizationID: "org-1", Title: "Strict", ContentHash: contentHash,
		StartAt: ptrTime(baseTime.Add(-time.Hour)), EndAt: ptrTime(baseTime.Add(time.Hour)),
		QuorumRequirementBps: &bps,
	})
	require.NoError(t, err)
	var strictOptions []string
	for _, text := range []string{"A", "B"} {
		option, err := f.proposals.AddOption(ctx, commands.AddOptionCommand{Actor: manager, ProposalID: strict.ProposalID, Text: text})
		require.NoError(t, err)
		strictOptions = append(strictOptions, option.OptionID)
	}
	_, err = f.proposals.Open(ctx, commands.TransitionCommand{Actor: manager, ProposalID: strict.ProposalID})
	require.NoError(t, err)
	f.cast(t, "user-a", strict.ProposalID, strictOptions[0])

	snapshot, err = f.tally.Execute(ctx, strict.ProposalID)
	require.NoError(t, err)
	assert.True(t, snapshot.QuorumThreshold.Equal(decimal.RequireFromString("0.5")))
	assert.False(t, snapshot.QuorumMet)
}

func ptrTime(value time.Time) *time.Time {
	return &value
}
