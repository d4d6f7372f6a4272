package proposalengine

import (
	"log/slog"

	httpadapter "fangov/contexts/governance/proposal-engine/adapters/http"
	"fangov/contexts/governance/proposal-engine/adapters/memory"
	textadapter "fangov/contexts/governance/proposal-engine/adapters/text"
	application "fangov/contexts/governance/proposal-engine/application"
	"fangov/contexts/governance/proposal-engine/application/commands"
	"fangov/contexts/governance/proposal-engine/application/queries"
	"fangov/contexts/governance/proposal-engine/application/workers"
	"fangov/contexts/governance/proposal-engine/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Proposals commands.ProposalUseCase
	Votes     commands.VoteUseCase
	Store     *memory.Store
}

type Dependencies struct {
	Store     ports.ProposalStore
	Ledger    ports.ShareLedger
	Quorum    ports.QuorumPolicy
	Cache     ports.SnapshotCache
	Sanitizer ports.TextSanitizer
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.Metrics
	Logger    *slog.Logger

	EnforceVotingWindow  bool
	RejectZeroPowerVotes bool
}

func NewModule(deps Dependencies) Module {
	logger := application.ResolveLogger(deps.Logger)
	metrics := application.ResolveMetrics(deps.Metrics)
	results := application.ResultsCalculator{
		Store:   deps.Store,
		Quorum:  deps.Quorum,
		Cache:   deps.Cache,
		Metrics: metrics,
		Clock:   deps.Clock,
		Logger:  logger,
	}
	proposals := commands.ProposalUseCase{
		Store:     deps.Store,
		Ledger:    deps.Ledger,
		Results:   results,
		Sanitizer: deps.Sanitizer,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Metrics:   metrics,
		Logger:    logger,
	}
	votes := commands.VoteUseCase{
		Store:                deps.Store,
		Ledger:               deps.Ledger,
		Clock:                deps.Clock,
		IDGen:                deps.IDGen,
		Metrics:              metrics,
		Logger:               logger,
		EnforceVotingWindow:  deps.EnforceVotingWindow,
		RejectZeroPowerVotes: deps.RejectZeroPowerVotes,
	}
	return Module{
		Handler: httpadapter.Handler{
			Proposals: proposals,
			Votes:     votes,
			Queries:   queries.ProposalQueries{Store: deps.Store},
			GetVote:   queries.GetVoteQuery{Store: deps.Store},
			Tally:     queries.ComputeTallyQuery{Store: deps.Store, Results: results},
			Logger:    logger,
		},
		Proposals: proposals,
		Votes:     votes,
	}
}

// WindowCloser returns the worker that closes proposals whose voting window
// has elapsed, driven by this module's state machine.
func (m Module) WindowCloser(repo ports.ProposalRepository, clock ports.Clock, batchSize int, logger *slog.Logger) workers.WindowCloser {
	return workers.WindowCloser{
		Proposals: repo,
		Closer:    m.Proposals,
		Clock:     clock,
		BatchSize: batchSize,
		Logger:    logger,
	}
}

// NewMemoryModule wires deps against store, which also acts as share ledger,
// quorum policy, clock and id source. Any of those set in deps are replaced.
func NewMemoryModule(store *memory.Store, deps Dependencies) Module {
	deps.Store = store
	deps.Ledger = store
	deps.Quorum = store
	deps.Clock = store
	deps.IDGen = store
	if deps.Sanitizer == nil {
		deps.Sanitizer = textadapter.NewStrictSanitizer()
	}
	module := NewModule(deps)
	module.Store = store
	return module
}

// NewInMemoryModule is NewMemoryModule over a fresh store with voting windows
// enforced and zero-power votes admitted.
func NewInMemoryModule(logger *slog.Logger) Module {
	return NewMemoryModule(memory.NewStore(), Dependencies{
		Logger:              logger,
		EnforceVotingWindow: true,
	})
}
