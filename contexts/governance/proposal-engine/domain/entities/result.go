package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type OptionTally struct {
	OptionID    string
	Text        string
	VotingPower decimal.Decimal
	VoteCount   int
}

// ResultSnapshot is derived from vote rows. It is recomputed on every read
// until the proposal is finalized; after that the stored copy is returned
// with Frozen set.
type ResultSnapshot struct {
	ProposalID           string
	Tally                []OptionTally
	WinningOptionID      *string
	Tied                 bool
	TotalVotesCast       int
	TotalVotingPowerCast decimal.Decimal
	EligibleVotingPower  decimal.Decimal
	QuorumThreshold      decimal.Decimal
	QuorumMet            bool
	ResultsHash          string
	Frozen               bool
	ComputedAt           time.Time
}

func (s ResultSnapshot) HasWinner() bool {
	return s.WinningOptionID != nil
}

// PowerFor returns the summed power of an option in the tally.
func (s ResultSnapshot) PowerFor(optionID string) (decimal.Decimal, bool) {
	for _, item := range s.Tally {
		if item.OptionID == optionID {
			return item.VotingPower, true
		}
	}
	return decimal.Zero, false
}
