package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateProposalRequest struct {
	OrganizationID       string     `json:"organization_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	ContentHash          string     `json:"content_hash"`
	StartAt              *time.Time `json:"start_at,omitempty"`
	EndAt                *time.Time `json:"end_at,omitempty"`
	QuorumRequirementBps *int       `json:"quorum_requirement_bps,omitempty"`
}

// UpdateDraftRequest fields left out of the body keep their current value.
type UpdateDraftRequest struct {
	Title                *string `json:"title,omitempty"`
	Description          *string `json:"description,omitempty"`
	ContentHash          *string `json:"content_hash,omitempty"`
	QuorumRequirementBps *int    `json:"quorum_requirement_bps,omitempty"`
}

type ScheduleRequest struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

type AddOptionRequest struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
}

type CastVoteRequest struct {
	OptionID string `json:"option_id"`
}

type ProposalResponse struct {
	ProposalID           string     `json:"proposal_id"`
	OrganizationID       string     `json:"organization_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	ContentHash          string     `json:"content_hash"`
	Status               string     `json:"status"`
	StartAt              *time.Time `json:"start_at,omitempty"`
	EndAt                *time.Time `json:"end_at,omitempty"`
	EligibleVotingPower  *string    `json:"eligible_voting_power,omitempty"`
	QuorumRequirementBps *int       `json:"quorum_requirement_bps,omitempty"`
	CreatedByUserID      string     `json:"created_by_user_id"`
	Version              int64      `json:"version"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	OpenedAt             *time.Time `json:"opened_at,omitempty"`
	ClosedAt             *time.Time `json:"closed_at,omitempty"`
	FinalizedAt          *time.Time `json:"finalized_at,omitempty"`
}

type ListProposalsResponse struct {
	Items []ProposalResponse `json:"items"`
}

type OptionResponse struct {
	OptionID    string    `json:"option_id"`
	ProposalID  string    `json:"proposal_id"`
	Text        string    `json:"text"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListOptionsResponse struct {
	Items []OptionResponse `json:"items"`
}

// Voting power values are decimal strings.
type VoteResponse struct {
	VoteID      string    `json:"vote_id"`
	ProposalID  string    `json:"proposal_id"`
	UserID      string    `json:"user_id"`
	OptionID    string    `json:"option_id"`
	VotingPower string    `json:"voting_power"`
	CastAt      time.Time `json:"cast_at"`
}

type TallyItem struct {
	OptionID    string `json:"option_id"`
	Text        string `json:"text"`
	VotingPower string `json:"voting_power"`
	VoteCount   int    `json:"vote_count"`
}

type ResultSnapshotResponse struct {
	ProposalID           string      `json:"proposal_id"`
	Tally                []TallyItem `json:"tally"`
	WinningOptionID      *string     `json:"winning_option_id"`
	Tied                 bool        `json:"tied"`
	TotalVotesCast       int         `json:"total_votes_cast"`
	TotalVotingPowerCast string      `json:"total_voting_power_cast"`
	EligibleVotingPower  string      `json:"eligible_voting_power"`
	QuorumThreshold      string      `json:"quorum_threshold"`
	QuorumMet            bool        `json:"quorum_met"`
	ResultsHash          string      `json:"results_hash"`
	Frozen               bool        `json:"frozen"`
	ComputedAt           time.Time   `json:"computed_at"`
}
