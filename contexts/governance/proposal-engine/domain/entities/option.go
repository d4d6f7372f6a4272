package entities

import "time"

// ProposalOption is owned by exactly one proposal. Position preserves creation
// order, which is also the order options appear in a tally.
type ProposalOption struct {
	OptionID    string
	ProposalID  string
	Text        string
	Description string
	Position    int
	CreatedAt   time.Time
}
