package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vote is write-once. VotingPower is captured from the share ledger at cast
// time and never recomputed.
type Vote struct {
	VoteID         string
	ProposalID     string
	OrganizationID string
	UserID         string
	OptionID       string
	VotingPower    decimal.Decimal
	CastAt         time.Time
}
