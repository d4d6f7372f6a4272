package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fangov/contexts/governance/proposal-engine/domain/entities"
)

// TallyInput is everything ComputeTally needs. Options must be in creation
// order; votes may arrive in any order.
type TallyInput struct {
	ProposalID          string
	Options             []entities.ProposalOption
	Votes               []entities.Vote
	EligibleVotingPower decimal.Decimal
	QuorumThreshold     decimal.Decimal
	ComputedAt          time.Time
}

// ComputeTally sums each vote's stored power per option, picks the option
// with the strictly greatest power and evaluates quorum. A tie for the
// maximum yields no winner. Votes that reference an option outside the list
// are ignored.
func ComputeTally(input TallyInput) entities.ResultSnapshot {
	options := append([]entities.ProposalOption(nil), input.Options...)
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Position < options[j].Position
	})

	index := make(map[string]int, len(options))
	tally := make([]entities.OptionTally, 0, len(options))
	for _, option := range options {
		index[option.OptionID] = len(tally)
		tally = append(tally, entities.OptionTally{
			OptionID:    option.OptionID,
			Text:        option.Text,
			VotingPower: decimal.Zero,
		})
	}

	totalPower := decimal.Zero
	totalVotes := 0
	for _, vote := range input.Votes {
		position, ok := index[vote.OptionID]
		if !ok {
			continue
		}
		tally[position].VotingPower = tally[position].VotingPower.Add(vote.VotingPower)
		tally[position].VoteCount++
		totalPower = totalPower.Add(vote.VotingPower)
		totalVotes++
	}

	winner, tied := pickWinner(tally)
	snapshot := entities.ResultSnapshot{
		ProposalID:           input.ProposalID,
		Tally:                tally,
		WinningOptionID:      winner,
		Tied:                 tied,
		TotalVotesCast:       totalVotes,
		TotalVotingPowerCast: totalPower,
		EligibleVotingPower:  input.EligibleVotingPower,
		QuorumThreshold:      input.QuorumThreshold,
		QuorumMet:            QuorumMet(totalPower, input.EligibleVotingPower, input.QuorumThreshold),
		ComputedAt:           input.ComputedAt.UTC(),
	}
	snapshot.ResultsHash = ResultsHash(snapshot)
	return snapshot
}

func pickWinner(tally []entities.OptionTally) (*string, bool) {
	if len(tally) == 0 {
		return nil, false
	}
	best := 0
	tied := false
	for i := 1; i < len(tally); i++ {
		switch tally[i].VotingPower.Cmp(tally[best].VotingPower) {
		case 1:
			best = i
			tied = false
		case 0:
			tied = true
		}
	}
	if tied {
		return nil, true
	}
	winner := tally[best].OptionID
	return &winner, false
}

// QuorumMet is trivially true when nothing is eligible.
func QuorumMet(cast decimal.Decimal, eligible decimal.Decimal, threshold decimal.Decimal) bool {
	if eligible.Sign() <= 0 {
		return true
	}
	return cast.GreaterThanOrEqual(eligible.Mul(threshold))
}

type canonicalTally struct {
	OptionID    string `json:"option_id"`
	VotingPower string `json:"voting_power"`
	VoteCount   int    `json:"vote_count"`
}

type canonicalResult struct {
	ProposalID           string           `json:"proposal_id"`
	Tally                []canonicalTally `json:"tally"`
	WinningOptionID      *string          `json:"winning_option_id"`
	TotalVotesCast       int              `json:"total_votes_cast"`
	TotalVotingPowerCast string           `json:"total_voting_power_cast"`
	EligibleVotingPower  string           `json:"eligible_voting_power"`
	QuorumThreshold      string           `json:"quorum_threshold"`
	QuorumMet            bool             `json:"quorum_met"`
}

// ResultsHash is the hex SHA-256 of the canonical JSON form of the outcome.
// Timestamps are excluded so the same votes always hash the same.
func ResultsHash(snapshot entities.ResultSnapshot) string {
	payload := canonicalResult{
		ProposalID:           snapshot.ProposalID,
		Tally:                make([]canonicalTally, 0, len(snapshot.Tally)),
		WinningOptionID:      snapshot.WinningOptionID,
		TotalVotesCast:       snapshot.TotalVotesCast,
		TotalVotingPowerCast: snapshot.TotalVotingPowerCast.String(),
		EligibleVotingPower:  snapshot.EligibleVotingPower.String(),
		QuorumThreshold:      snapshot.QuorumThreshold.String(),
		QuorumMet:            snapshot.QuorumMet,
	}
	for _, item := range snapshot.Tally {
		payload.Tally = append(payload.Tally, canonicalTally{
			OptionID:    item.OptionID,
			VotingPower: item.VotingPower.String(),
			VoteCount:   item.VoteCount,
		})
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
