package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/ports"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type voteKey struct {
	proposalID string
	userID     string
}

type shareGrant struct {
	amount   decimal.Decimal
	issuedAt time.Time
}

// Store is the in-memory proposal store. One mutex serializes every write,
// which gives the same atomicity the Postgres adapter gets from transactions.
type Store struct {
	mu sync.RWMutex

	proposals map[string]entities.Proposal
	options   map[string][]entities.ProposalOption
	votes     map[voteKey]entities.Vote
	results   map[string]entities.ResultSnapshot
	outbox    []outboxRecord

	shares        map[string]map[string][]shareGrant
	quorumBps     map[string]int
	defaultQuorum decimal.Decimal

	nowFn func() time.Time
}

func NewStore() *Store {
	return &Store{
		proposals:     make(map[string]entities.Proposal),
		options:       make(map[string][]entities.ProposalOption),
		votes:         make(map[voteKey]entities.Vote),
		results:       make(map[string]entities.ResultSnapshot),
		shares:        make(map[string]map[string][]shareGrant),
		quorumBps:     make(map[string]int),
		defaultQuorum: decimal.RequireFromString("0.5"),
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source returned by Now.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = now
}

func (s *Store) CreateProposal(_ context.Context, proposal entities.Proposal, events []ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.proposals[proposal.ProposalID]; exists {
		return domainerrors.ErrVersionConflict
	}
	if err := s.appendOutboxLocked(events); err != nil {
		return err
	}
	s.proposals[proposal.ProposalID] = proposal
	return nil
}

func (s *Store) GetProposal(_ context.Context, proposalID string) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[strings.TrimSpace(proposalID)]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (s *Store) ListProposals(_ context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Status != "" && proposal.Status != filter.Status {
			continue
		}
		items = append(items, proposal)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ProposalID > items[j].ProposalID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) UpdateProposal(
	_ context.Context,
	proposal entities.Proposal,
	expectedVersion int64,
	events []ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(proposal.ProposalID, expectedVersion); err != nil {
		return err
	}
	if err := s.appendOutboxLocked(events); err != nil {
		return err
	}
	s.proposals[proposal.ProposalID] = proposal
	return nil
}

func (s *Store) ListOpenProposalsPastWindow(_ context.Context, now time.Time, limit int) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.Status == entities.ProposalStatusOpen && proposal.WindowElapsed(now) {
			items = append(items, proposal)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].EndAt.Before(*items[j].EndAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) AddOption(
	_ context.Context,
	proposal entities.Proposal,
	expectedVersion int64,
	option entities.ProposalOption,
) (entities.ProposalOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(proposal.ProposalID, expectedVersion); err != nil {
		return entities.ProposalOption{}, err
	}
	existing := s.options[proposal.ProposalID]
	option.Position = 0
	for _, item := range existing {
		if item.Position >= option.Position {
			option.Position = item.Position + 1
		}
	}
	s.options[proposal.ProposalID] = append(existing, option)
	s.proposals[proposal.ProposalID] = proposal
	return option, nil
}

func (s *Store) DeleteOption(
	_ context.Context,
	proposal entities.Proposal,
	expectedVersion int64,
	optionID string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(proposal.ProposalID, expectedVersion); err != nil {
		return err
	}
	existing := s.options[proposal.ProposalID]
	kept := make([]entities.ProposalOption, 0, len(existing))
	found := false
	for _, item := range existing {
		if item.OptionID == optionID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return domainerrors.ErrOptionNotFound
	}
	s.options[proposal.ProposalID] = kept
	s.proposals[proposal.ProposalID] = proposal
	return nil
}

func (s *Store) GetOption(_ context.Context, proposalID string, optionID string) (entities.ProposalOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.options[strings.TrimSpace(proposalID)] {
		if item.OptionID == strings.TrimSpace(optionID) {
			return item, nil
		}
	}
	return entities.ProposalOption{}, domainerrors.ErrOptionNotFound
}

func (s *Store) ListOptions(_ context.Context, proposalID string) ([]entities.ProposalOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := append([]entities.ProposalOption(nil), s.options[strings.TrimSpace(proposalID)]...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})
	return items, nil
}

func (s *Store) InsertVote(_ context.Context, vote entities.Vote, events []ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	proposal, ok := s.proposals[vote.ProposalID]
	if !ok {
		return domainerrors.ErrProposalNotFound
	}
	if proposal.Status != entities.ProposalStatusOpen {
		return domainerrors.ErrProposalNotOpen
	}
	return s.insertVoteLocked(vote, events)
}

// SeedVote stores a vote without the Open status check. Tests use it to model
// rows that reached storage by some other path.
func (s *Store) SeedVote(vote entities.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertVoteLocked(vote, nil)
}

func (s *Store) insertVoteLocked(vote entities.Vote, events []ports.EventEnvelope) error {
	key := voteKey{proposalID: vote.ProposalID, userID: vote.UserID}
	if _, exists := s.votes[key]; exists {
		return domainerrors.ErrDuplicateVote
	}
	if err := s.appendOutboxLocked(events); err != nil {
		return err
	}
	s.votes[key] = vote
	return nil
}

func (s *Store) GetVote(_ context.Context, proposalID string, userID string) (entities.Vote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[voteKey{proposalID: strings.TrimSpace(proposalID), userID: strings.TrimSpace(userID)}]
	return vote, ok, nil
}

func (s *Store) ListVotes(_ context.Context, proposalID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0)
	for key, vote := range s.votes {
		if key.proposalID == strings.TrimSpace(proposalID) {
			items = append(items, vote)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].VoteID < items[j].VoteID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) FinalizeProposal(
	_ context.Context,
	proposal entities.Proposal,
	expectedVersion int64,
	snapshot entities.ResultSnapshot,
	events []ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkVersionLocked(proposal.ProposalID, expectedVersion); err != nil {
		return err
	}
	if err := s.appendOutboxLocked(events); err != nil {
		return err
	}
	snapshot.Frozen = true
	snapshot.Tally = append([]entities.OptionTally(nil), snapshot.Tally...)
	s.results[proposal.ProposalID] = snapshot
	s.proposals[proposal.ProposalID] = proposal
	return nil
}

func (s *Store) GetResultSnapshot(_ context.Context, proposalID string) (entities.ResultSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.results[strings.TrimSpace(proposalID)]
	if !ok {
		return entities.ResultSnapshot{}, domainerrors.ErrResultNotFound
	}
	snapshot.Tally = append([]entities.OptionTally(nil), snapshot.Tally...)
	return snapshot, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, limit)
	for _, record := range s.outbox {
		if record.published {
			continue
		}
		items = append(items, record.message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == strings.TrimSpace(outboxID) {
			s.outbox[i].published = true
			return nil
		}
	}
	return domainerrors.ErrConflict
}

// PublishedCount reports how many outbox rows have been relayed.
func (s *Store) PublishedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, record := range s.outbox {
		if record.published {
			count++
		}
	}
	return count
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) checkVersionLocked(proposalID string, expectedVersion int64) error {
	current, ok := s.proposals[proposalID]
	if !ok {
		return domainerrors.ErrProposalNotFound
	}
	if current.Version != expectedVersion {
		return domainerrors.ErrVersionConflict
	}
	return nil
}

func (s *Store) appendOutboxLocked(events []ports.EventEnvelope) error {
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		s.outbox = append(s.outbox, outboxRecord{message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt.UTC(),
		}})
	}
	return nil
}

var _ ports.ProposalStore = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
