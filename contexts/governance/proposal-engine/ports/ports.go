package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	contractsv1 "fangov/contracts/events/v1"
	"fangov/contexts/governance/proposal-engine/domain/entities"
)

const (
	EventProposalCreated   = "proposal.created"
	EventProposalOpened    = "proposal.opened"
	EventProposalClosed    = "proposal.closed"
	EventProposalFinalized = "proposal.finalized"
	EventVoteCast          = "vote.cast"
)

type ProposalFilter struct {
	OrganizationID string
	Status         entities.ProposalStatus
	Limit          int
}

// ProposalRepository writes are compare-and-swap on Proposal.Version. A write
// whose expectedVersion no longer matches fails with ErrConflict and leaves
// no trace, including its events.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, proposal entities.Proposal, events []EventEnvelope) error
	GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error)
	ListProposals(ctx context.Context, filter ProposalFilter) ([]entities.Proposal, error)
	UpdateProposal(ctx context.Context, proposal entities.Proposal, expectedVersion int64, events []EventEnvelope) error
	ListOpenProposalsPastWindow(ctx context.Context, now time.Time, limit int) ([]entities.Proposal, error)
}

// OptionRepository mutations also advance the owning proposal to the given
// state, so an option can only change while the proposal is unchanged since
// it was read as Draft.
type OptionRepository interface {
	AddOption(
		ctx context.Context,
		proposal entities.Proposal,
		expectedVersion int64,
		option entities.ProposalOption,
	) (entities.ProposalOption, error)
	DeleteOption(ctx context.Context, proposal entities.Proposal, expectedVersion int64, optionID string) error
	GetOption(ctx context.Context, proposalID string, optionID string) (entities.ProposalOption, error)
	ListOptions(ctx context.Context, proposalID string) ([]entities.ProposalOption, error)
}

// VoteRepository.InsertVote is atomic with both the Open status check and the
// (proposal, user) uniqueness constraint.
type VoteRepository interface {
	InsertVote(ctx context.Context, vote entities.Vote, events []EventEnvelope) error
	GetVote(ctx context.Context, proposalID string, userID string) (entities.Vote, bool, error)
	ListVotes(ctx context.Context, proposalID string) ([]entities.Vote, error)
}

type ResultRepository interface {
	FinalizeProposal(
		ctx context.Context,
		proposal entities.Proposal,
		expectedVersion int64,
		snapshot entities.ResultSnapshot,
		events []EventEnvelope,
	) error
	GetResultSnapshot(ctx context.Context, proposalID string) (entities.ResultSnapshot, error)
}

type ProposalStore interface {
	ProposalRepository
	OptionRepository
	VoteRepository
	ResultRepository
}

// ShareLedger is read-only. Power is derived from shares held at asOf.
type ShareLedger interface {
	VotingPowerOf(ctx context.Context, userID string, organizationID string, asOf time.Time) (decimal.Decimal, error)
	TotalEligibleVotingPower(ctx context.Context, organizationID string, asOf time.Time) (decimal.Decimal, error)
}

// QuorumPolicy supplies the organization-level quorum fraction used when a
// proposal carries no requirement of its own.
type QuorumPolicy interface {
	QuorumThreshold(ctx context.Context, organizationID string) (decimal.Decimal, error)
}

// SnapshotCache holds frozen snapshots only.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, proposalID string) (entities.ResultSnapshot, bool, error)
	PutSnapshot(ctx context.Context, snapshot entities.ResultSnapshot) error
}

type Metrics interface {
	ObserveTransition(from entities.ProposalStatus, to entities.ProposalStatus)
	ObserveVote(outcome string)
	ObserveTally(frozen bool, duration time.Duration)
}

type TextSanitizer interface {
	Sanitize(input string) string
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventHandler = func(ctx context.Context, event EventEnvelope) error

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler EventHandler) error
}
