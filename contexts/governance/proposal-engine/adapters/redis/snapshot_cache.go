package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	"fangov/contexts/governance/proposal-engine/ports"
)

const snapshotKeyPrefix = "proposal-engine:snapshot:"

type cachedTally struct {
	OptionID    string          `json:"option_id"`
	Text        string          `json:"text"`
	VotingPower decimal.Decimal `json:"voting_power"`
	VoteCount   int             `json:"vote_count"`
}

type cachedSnapshot struct {
	ProposalID           string          `json:"proposal_id"`
	Tally                []cachedTally   `json:"tally"`
	WinningOptionID      *string         `json:"winning_option_id"`
	Tied                 bool            `json:"tied"`
	TotalVotesCast       int             `json:"total_votes_cast"`
	TotalVotingPowerCast decimal.Decimal `json:"total_voting_power_cast"`
	EligibleVotingPower  decimal.Decimal `json:"eligible_voting_power"`
	QuorumThreshold      decimal.Decimal `json:"quorum_threshold"`
	QuorumMet            bool            `json:"quorum_met"`
	ResultsHash          string          `json:"results_hash"`
	ComputedAt           time.Time       `json:"computed_at"`
}

// SnapshotCache keeps frozen results close to readers. Frozen snapshots never
// change, so entries only expire to bound memory.
type SnapshotCache struct {
	client Client
	ttl    time.Duration
}

func NewSnapshotCache(client Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func (c *SnapshotCache) GetSnapshot(ctx context.Context, proposalID string) (entities.ResultSnapshot, bool, error) {
	raw, err := c.client.Get(ctx, snapshotKeyPrefix+proposalID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.ResultSnapshot{}, false, nil
		}
		return entities.ResultSnapshot{}, false, err
	}
	var cached cachedSnapshot
	if err := json.Unmarshal(raw, &cached); err != nil {
		return entities.ResultSnapshot{}, false, err
	}
	snapshot := entities.ResultSnapshot{
		ProposalID:           cached.ProposalID,
		Tally:                make([]entities.OptionTally, 0, len(cached.Tally)),
		WinningOptionID:      cached.WinningOptionID,
		Tied:                 cached.Tied,
		TotalVotesCast:       cached.TotalVotesCast,
		TotalVotingPowerCast: cached.TotalVotingPowerCast,
		EligibleVotingPower:  cached.EligibleVotingPower,
		QuorumThreshold:      cached.QuorumThreshold,
		QuorumMet:            cached.QuorumMet,
		ResultsHash:          cached.ResultsHash,
		Frozen:               true,
		ComputedAt:           cached.ComputedAt.UTC(),
	}
	for _, item := range cached.Tally {
		snapshot.Tally = append(snapshot.Tally, entities.OptionTally(item))
	}
	return snapshot, true, nil
}

func (c *SnapshotCache) PutSnapshot(ctx context.Context, snapshot entities.ResultSnapshot) error {
	cached := cachedSnapshot{
		ProposalID:           snapshot.ProposalID,
		Tally:                make([]cachedTally, 0, len(snapshot.Tally)),
		WinningOptionID:      snapshot.WinningOptionID,
		Tied:                 snapshot.Tied,
		TotalVotesCast:       snapshot.TotalVotesCast,
		TotalVotingPowerCast: snapshot.TotalVotingPowerCast,
		EligibleVotingPower:  snapshot.EligibleVotingPower,
		QuorumThreshold:      snapshot.QuorumThreshold,
		QuorumMet:            snapshot.QuorumMet,
		ResultsHash:          snapshot.ResultsHash,
		ComputedAt:           snapshot.ComputedAt.UTC(),
	}
	for _, item := range snapshot.Tally {
		cached.Tally = append(cached.Tally, cachedTally(item))
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKeyPrefix+snapshot.ProposalID, payload, c.ttl).Err()
}

var _ ports.SnapshotCache = (*SnapshotCache)(nil)
