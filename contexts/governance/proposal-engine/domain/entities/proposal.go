package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalStatusDraft     ProposalStatus = "draft"
	ProposalStatusOpen      ProposalStatus = "open"
	ProposalStatusClosed    ProposalStatus = "closed"
	ProposalStatusFinalized ProposalStatus = "finalized"
)

const (
	MaxTitleLength = 200
	MaxQuorumBps   = 10000
	MinOpenOptions = 2
)

// Proposal is the aggregate root of the governance core. Version increases on
// every Draft edit and status transition and is the compare-and-swap token
// for all writes against the store.
type Proposal struct {
	ProposalID           string
	OrganizationID       string
	Title                string
	Description          string
	ContentHash          string
	Status               ProposalStatus
	StartAt              *time.Time
	EndAt                *time.Time
	EligibleVotingPower  decimal.NullDecimal
	QuorumRequirementBps *int
	CreatedByUserID      string
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	OpenedAt             *time.Time
	ClosedAt             *time.Time
	FinalizedAt          *time.Time
}

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusDraft, ProposalStatusOpen, ProposalStatusClosed, ProposalStatusFinalized:
		return true
	default:
		return false
	}
}

func (p Proposal) IsDraft() bool {
	return p.Status == ProposalStatusDraft
}

func (p Proposal) HasWindow() bool {
	return p.StartAt != nil && p.EndAt != nil
}

// WindowValid reports whether both window bounds are set and ordered.
func (p Proposal) WindowValid() bool {
	return p.HasWindow() && p.StartAt.Before(*p.EndAt)
}

// WithinWindow reports whether now falls inside [StartAt, EndAt]. A proposal
// without a window is never inside it.
func (p Proposal) WithinWindow(now time.Time) bool {
	if !p.HasWindow() {
		return false
	}
	return !now.Before(*p.StartAt) && !now.After(*p.EndAt)
}

// WindowElapsed reports whether EndAt is set and strictly before now.
func (p Proposal) WindowElapsed(now time.Time) bool {
	return p.EndAt != nil && now.After(*p.EndAt)
}

// QuorumFraction converts the per-proposal basis-point requirement into a
// fraction. ok is false when the proposal defers to the organization policy.
func (p Proposal) QuorumFraction() (decimal.Decimal, bool) {
	if p.QuorumRequirementBps == nil {
		return decimal.Zero, false
	}
	return BpsToFraction(*p.QuorumRequirementBps), true
}

func BpsToFraction(bps int) decimal.Decimal {
	return decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(MaxQuorumBps))
}

// Advance returns a copy of p moved to status with the version bumped.
func (p Proposal) Advance(status ProposalStatus, now time.Time) Proposal {
	next := p
	next.Status = status
	next.Version = p.Version + 1
	next.UpdatedAt = now
	at := now
	switch status {
	case ProposalStatusOpen:
		next.OpenedAt = &at
	case ProposalStatusClosed:
		next.ClosedAt = &at
	case ProposalStatusFinalized:
		next.FinalizedAt = &at
	}
	return next
}
