package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	proposalengine "fangov/contexts/governance/proposal-engine"
	metricsadapter "fangov/contexts/governance/proposal-engine/adapters/metrics"
	"fangov/contexts/governance/proposal-engine/application/commands"
	"fangov/contexts/governance/proposal-engine/application/workers"
	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/ports"
	"fangov/internal/platform/config"
	"fangov/internal/platform/messaging"
)

var manager = entities.Actor{
	UserID: "manager-1",
	Capabilities: []entities.Capability{
		entities.CapabilityCreateProposal,
		entities.CapabilityManageProposal,
	},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildAPIRequiresJWTSecret(t *testing.T) {
	_, err := BuildAPI(context.Background(), config.Default(), discardLogger())
	assert.Error(t, err)
}

func TestBuildAPIFallsBackToInMemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.JWTSecret = "secret"

	app, err := BuildAPI(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, app.server)
	assert.NoError(t, app.Close())
}

func TestBuildWorkerRequiresPostgres(t *testing.T) {
	_, err := BuildWorker(context.Background(), config.Default(), discardLogger())
	assert.Error(t, err)
}

func TestPollRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var cycles atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- poll(ctx, time.Millisecond, func(context.Context) {
			if cycles.Add(1) == 3 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poll did not stop after cancel")
	}
	assert.GreaterOrEqual(t, cycles.Load(), int32(3))
}

func TestCloseAllRunsInReverseAndJoinsErrors(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	err := closeAll([]func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return boom },
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{2, 1}, order)
}

func TestNormalizeAddr(t *testing.T) {
	assert.Equal(t, ":8080", normalizeAddr(""))
	assert.Equal(t, ":9000", normalizeAddr("9000"))
	assert.Equal(t, ":9000", normalizeAddr(":9000"))
}

func openProposal(t *testing.T, module proposalengine.Module) entities.Proposal {
	t.Helper()
	ctx := context.Background()
	startAt := time.Now().UTC().Add(-time.Hour)
	endAt := startAt.Add(2 * time.Hour)
	proposal, err := module.Proposals.Create(ctx, commands.CreateProposalCommand{
		Actor:          manager,
		OrganizationID: "org-1",
		Title:          "Renew the lease",
		ContentHash:    strings.Repeat("ab", 32),
		StartAt:        &startAt,
		EndAt:          &endAt,
	})
	require.NoError(t, err)
	for _, text := range []string{"Yes", "No"} {
		_, err := module.Proposals.AddOption(ctx, commands.AddOptionCommand{Actor: manager, ProposalID: proposal.ProposalID, Text: text})
		require.NoError(t, err)
	}
	opened, err := module.Proposals.Open(ctx, commands.TransitionCommand{Actor: manager, ProposalID: proposal.ProposalID})
	require.NoError(t, err)
	return opened
}

func TestRelayKeepsRowsPendingWhenBusHasNoSubscribers(t *testing.T) {
	module := proposalengine.NewInMemoryModule(discardLogger())
	openProposal(t, module)

	relay := workers.OutboxRelay{Outbox: module.Store, Publisher: messaging.NewBus(0, discardLogger()), Clock: module.Store}
	published, err := relay.RunOnce(context.Background())
	require.ErrorIs(t, err, messaging.ErrNoSubscribers)
	assert.Equal(t, 0, published)

	pending, err := module.Store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestRelayDeliversToAuditedBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	module := proposalengine.NewInMemoryModule(discardLogger())
	proposal := openProposal(t, module)

	bus, err := newAuditedBus(ctx, discardLogger())
	require.NoError(t, err)
	received := make(chan ports.EventEnvelope, 4)
	require.NoError(t, bus.Subscribe(ctx, ports.EventProposalOpened, "test", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	}))

	relay := workers.OutboxRelay{Outbox: module.Store, Publisher: bus, Clock: module.Store}
	published, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, published)
	assert.Equal(t, 2, module.Store.PublishedCount())

	select {
	case event := <-received:
		assert.Equal(t, proposal.ProposalID, event.PartitionKey)
	case <-time.After(time.Second):
		t.Fatal("opened event was not delivered")
	}
}

func TestBuildMemoryModuleAppliesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultQuorumBps = 2500
	cfg.RejectZeroPowerVotes = true
	cfg.EnforceVotingWindow = false

	recorder, err := metricsadapter.NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)
	module := buildMemoryModule(cfg, recorder, discardLogger())

	assert.True(t, module.Votes.RejectZeroPowerVotes)
	assert.False(t, module.Votes.EnforceVotingWindow)
	assert.Same(t, recorder, module.Votes.Metrics)
	assert.Same(t, recorder, module.Handler.Proposals.Metrics)

	threshold, err := module.Store.QuorumThreshold(context.Background(), "org-1")
	require.NoError(t, err)
	assert.True(t, threshold.Equal(decimal.RequireFromString("0.25")), threshold.String())

	proposal := openProposal(t, module)
	options, err := module.Store.ListOptions(context.Background(), proposal.ProposalID)
	require.NoError(t, err)
	_, err = module.Votes.CastVote(context.Background(), commands.CastVoteCommand{
		Actor:      entities.Actor{UserID: "no-shares", Capabilities: []entities.Capability{entities.CapabilityCastVote}},
		ProposalID: proposal.ProposalID,
		OptionID:   options[0].OptionID,
	})
	assert.ErrorIs(t, err, domainerrors.ErrZeroVotingPower)
}
