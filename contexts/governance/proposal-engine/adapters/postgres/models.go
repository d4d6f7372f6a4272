package postgresadapter

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"fangov/contexts/governance/proposal-engine/domain/entities"
)

type proposalModel struct {
	ProposalID           string              `gorm:"column:proposal_id;primaryKey"`
	OrganizationID       string              `gorm:"column:organization_id;index:idx_governance_proposals_org_status"`
	Title                string              `gorm:"column:title;size:200"`
	Description          string              `gorm:"column:description"`
	ContentHash          string              `gorm:"column:content_hash;size:64"`
	Status               string              `gorm:"column:status;index:idx_governance_proposals_org_status"`
	StartAt              *time.Time          `gorm:"column:start_at"`
	EndAt                *time.Time          `gorm:"column:end_at;index"`
	EligibleVotingPower  decimal.NullDecimal `gorm:"column:eligible_voting_power;type:numeric"`
	QuorumRequirementBps *int                `gorm:"column:quorum_requirement_bps"`
	CreatedByUserID      string              `gorm:"column:created_by_user_id"`
	Version              int64               `gorm:"column:version"`
	CreatedAt            time.Time           `gorm:"column:created_at"`
	UpdatedAt            time.Time           `gorm:"column:updated_at"`
	OpenedAt             *time.Time          `gorm:"column:opened_at"`
	ClosedAt             *time.Time          `gorm:"column:closed_at"`
	FinalizedAt          *time.Time          `gorm:"column:finalized_at"`
}

func (proposalModel) TableName() string {
	return "governance_proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	return proposalModel{
		ProposalID:           proposal.ProposalID,
		OrganizationID:       proposal.OrganizationID,
		Title:                proposal.Title,
		Description:          proposal.Description,
		ContentHash:          proposal.ContentHash,
		Status:               string(proposal.Status),
		StartAt:              normalizeOptionalTime(proposal.StartAt),
		EndAt:                normalizeOptionalTime(proposal.EndAt),
		EligibleVotingPower:  proposal.EligibleVotingPower,
		QuorumRequirementBps: proposal.QuorumRequirementBps,
		CreatedByUserID:      proposal.CreatedByUserID,
		Version:              proposal.Version,
		CreatedAt:            proposal.CreatedAt.UTC(),
		UpdatedAt:            proposal.UpdatedAt.UTC(),
		OpenedAt:             normalizeOptionalTime(proposal.OpenedAt),
		ClosedAt:             normalizeOptionalTime(proposal.ClosedAt),
		FinalizedAt:          normalizeOptionalTime(proposal.FinalizedAt),
	}
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ProposalID:           m.ProposalID,
		OrganizationID:       m.OrganizationID,
		Title:                m.Title,
		Description:          m.Description,
		ContentHash:          m.ContentHash,
		Status:               entities.ProposalStatus(m.Status),
		StartAt:              normalizeOptionalTime(m.StartAt),
		EndAt:                normalizeOptionalTime(m.EndAt),
		EligibleVotingPower:  m.EligibleVotingPower,
		QuorumRequirementBps: m.QuorumRequirementBps,
		CreatedByUserID:      m.CreatedByUserID,
		Version:              m.Version,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
		OpenedAt:             normalizeOptionalTime(m.OpenedAt),
		ClosedAt:             normalizeOptionalTime(m.ClosedAt),
		FinalizedAt:          normalizeOptionalTime(m.FinalizedAt),
	}
}

// proposalUpdates lists every mutable column. Identity and creation columns
// are never rewritten.
func proposalUpdates(m proposalModel) map[string]any {
	return map[string]any{
		"title":                  m.Title,
		"description":            m.Description,
		"content_hash":           m.ContentHash,
		"status":                 m.Status,
		"start_at":               m.StartAt,
		"end_at":                 m.EndAt,
		"eligible_voting_power":  m.EligibleVotingPower,
		"quorum_requirement_bps": m.QuorumRequirementBps,
		"version":                m.Version,
		"updated_at":             m.UpdatedAt,
		"opened_at":              m.OpenedAt,
		"closed_at":              m.ClosedAt,
		"finalized_at":           m.FinalizedAt,
	}
}

type optionModel struct {
	OptionID    string    `gorm:"column:option_id;primaryKey"`
	ProposalID  string    `gorm:"column:proposal_id;uniqueIndex:idx_governance_options_proposal_position"`
	Text        string    `gorm:"column:text"`
	Description string    `gorm:"column:description"`
	Position    int       `gorm:"column:position;uniqueIndex:idx_governance_options_proposal_position"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (optionModel) TableName() string {
	return "governance_proposal_options"
}

func (m optionModel) toEntity() entities.ProposalOption {
	return entities.ProposalOption{
		OptionID:    m.OptionID,
		ProposalID:  m.ProposalID,
		Text:        m.Text,
		Description: m.Description,
		Position:    m.Position,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type voteModel struct {
	VoteID         string          `gorm:"column:vote_id;primaryKey"`
	ProposalID     string          `gorm:"column:proposal_id;uniqueIndex:idx_governance_votes_proposal_user"`
	UserID         string          `gorm:"column:user_id;uniqueIndex:idx_governance_votes_proposal_user"`
	OrganizationID string          `gorm:"column:organization_id"`
	OptionID       string          `gorm:"column:option_id;index"`
	VotingPower    decimal.Decimal `gorm:"column:voting_power;type:numeric"`
	CastAt         time.Time       `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "governance_votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	return voteModel{
		VoteID:         vote.VoteID,
		ProposalID:     vote.ProposalID,
		UserID:         vote.UserID,
		OrganizationID: vote.OrganizationID,
		OptionID:       vote.OptionID,
		VotingPower:    vote.VotingPower,
		CastAt:         vote.CastAt.UTC(),
	}
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:         m.VoteID,
		ProposalID:     m.ProposalID,
		OrganizationID: m.OrganizationID,
		UserID:         m.UserID,
		OptionID:       m.OptionID,
		VotingPower:    m.VotingPower,
		CastAt:         m.CastAt.UTC(),
	}
}

type tallyRow struct {
	OptionID    string          `json:"option_id"`
	Text        string          `json:"text"`
	VotingPower decimal.Decimal `json:"voting_power"`
	VoteCount   int             `json:"vote_count"`
}

type resultModel struct {
	ProposalID           string          `gorm:"column:proposal_id;primaryKey"`
	Tally                []byte          `gorm:"column:tally;type:jsonb"`
	WinningOptionID      *string         `gorm:"column:winning_option_id"`
	Tied                 bool            `gorm:"column:tied"`
	TotalVotesCast       int             `gorm:"column:total_votes_cast"`
	TotalVotingPowerCast decimal.Decimal `gorm:"column:total_voting_power_cast;type:numeric"`
	EligibleVotingPower  decimal.Decimal `gorm:"column:eligible_voting_power;type:numeric"`
	QuorumThreshold      decimal.Decimal `gorm:"column:quorum_threshold;type:numeric"`
	QuorumMet            bool            `gorm:"column:quorum_met"`
	ResultsHash          string          `gorm:"column:results_hash;size:64"`
	ComputedAt           time.Time       `gorm:"column:computed_at"`
}

func (resultModel) TableName() string {
	return "governance_result_snapshots"
}

func resultModelFromEntity(snapshot entities.ResultSnapshot) (resultModel, error) {
	rows := make([]tallyRow, 0, len(snapshot.Tally))
	for _, item := range snapshot.Tally {
		rows = append(rows, tallyRow{
			OptionID:    item.OptionID,
			Text:        item.Text,
			VotingPower: item.VotingPower,
			VoteCount:   item.VoteCount,
		})
	}
	tally, err := json.Marshal(rows)
	if err != nil {
		return resultModel{}, err
	}
	return resultModel{
		ProposalID:           snapshot.ProposalID,
		Tally:                tally,
		WinningOptionID:      snapshot.WinningOptionID,
		Tied:                 snapshot.Tied,
		TotalVotesCast:       snapshot.TotalVotesCast,
		TotalVotingPowerCast: snapshot.TotalVotingPowerCast,
		EligibleVotingPower:  snapshot.EligibleVotingPower,
		QuorumThreshold:      snapshot.QuorumThreshold,
		QuorumMet:            snapshot.QuorumMet,
		ResultsHash:          snapshot.ResultsHash,
		ComputedAt:           snapshot.ComputedAt.UTC(),
	}, nil
}

func (m resultModel) toEntity() (entities.ResultSnapshot, error) {
	var rows []tallyRow
	if len(m.Tally) > 0 {
		if err := json.Unmarshal(m.Tally, &rows); err != nil {
			return entities.ResultSnapshot{}, err
		}
	}
	tally := make([]entities.OptionTally, 0, len(rows))
	for _, row := range rows {
		tally = append(tally, entities.OptionTally{
			OptionID:    row.OptionID,
			Text:        row.Text,
			VotingPower: row.VotingPower,
			VoteCount:   row.VoteCount,
		})
	}
	return entities.ResultSnapshot{
		ProposalID:           m.ProposalID,
		Tally:                tally,
		WinningOptionID:      m.WinningOptionID,
		Tied:                 m.Tied,
		TotalVotesCast:       m.TotalVotesCast,
		TotalVotingPowerCast: m.TotalVotingPowerCast,
		EligibleVotingPower:  m.EligibleVotingPower,
		QuorumThreshold:      m.QuorumThreshold,
		QuorumMet:            m.QuorumMet,
		ResultsHash:          m.ResultsHash,
		Frozen:               true,
		ComputedAt:           m.ComputedAt.UTC(),
	}, nil
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

type shareGrantModel struct {
	GrantID        string          `gorm:"column:grant_id;primaryKey"`
	OrganizationID string          `gorm:"column:organization_id;index:idx_governance_share_grants_org_user"`
	UserID         string          `gorm:"column:user_id;index:idx_governance_share_grants_org_user"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric"`
	IssuedAt       time.Time       `gorm:"column:issued_at"`
}

func (shareGrantModel) TableName() string {
	return "governance_share_grants"
}

type quorumSettingModel struct {
	OrganizationID string `gorm:"column:organization_id;primaryKey"`
	QuorumBps      int    `gorm:"column:quorum_bps"`
}

func (quorumSettingModel) TableName() string {
	return "governance_quorum_settings"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
