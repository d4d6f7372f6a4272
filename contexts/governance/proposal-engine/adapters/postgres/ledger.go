package postgresadapter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	"fangov/contexts/governance/proposal-engine/ports"
)

// VotingPowerOf sums the member's grants issued at or before asOf. A net
// negative balance counts as zero.
func (r *Repository) VotingPowerOf(
	ctx context.Context,
	userID string,
	organizationID string,
	asOf time.Time,
) (decimal.Decimal, error) {
	var row struct {
		Balance decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&shareGrantModel{}).
		Select("COALESCE(SUM(amount), 0) AS balance").
		Where("organization_id = ? AND user_id = ? AND issued_at <= ?",
			strings.TrimSpace(organizationID),
			strings.TrimSpace(userID),
			asOf.UTC(),
		).
		Scan(&row).Error; err != nil {
		return decimal.Zero, r.logError("proposal_ledger_voting_power_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	if row.Balance.Sign() < 0 {
		return decimal.Zero, nil
	}
	return row.Balance, nil
}

func (r *Repository) TotalEligibleVotingPower(ctx context.Context, organizationID string, asOf time.Time) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(balance), 0) AS total
		FROM (
			SELECT user_id, SUM(amount) AS balance
			FROM governance_share_grants
			WHERE organization_id = ? AND issued_at <= ?
			GROUP BY user_id
		) balances
		WHERE balance > 0`,
		strings.TrimSpace(organizationID),
		asOf.UTC(),
	).Scan(&row).Error; err != nil {
		return decimal.Zero, r.logError("proposal_ledger_total_power_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
		)
	}
	return row.Total, nil
}

// IssueShares records a grant. The ledger is owned by the share service in
// production; this write path exists for seeding and local runs.
func (r *Repository) IssueShares(
	ctx context.Context,
	organizationID string,
	userID string,
	amount decimal.Decimal,
	issuedAt time.Time,
) error {
	row := shareGrantModel{
		GrantID:        uuid.NewString(),
		OrganizationID: strings.TrimSpace(organizationID),
		UserID:         strings.TrimSpace(userID),
		Amount:         amount,
		IssuedAt:       issuedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("proposal_ledger_issue_shares_failed", err,
			"organization_id", row.OrganizationID,
			"user_id", row.UserID,
		)
	}
	return nil
}

// QuorumPolicy reads per-organization quorum settings and falls back to a
// configured default fraction.
type QuorumPolicy struct {
	db       *gorm.DB
	fallback decimal.Decimal
	repo     *Repository
}

func NewQuorumPolicy(repo *Repository, defaultBps int) QuorumPolicy {
	return QuorumPolicy{
		db:       repo.db,
		fallback: entities.BpsToFraction(defaultBps),
		repo:     repo,
	}
}

func (p QuorumPolicy) QuorumThreshold(ctx context.Context, organizationID string) (decimal.Decimal, error) {
	var row quorumSettingModel
	err := p.db.WithContext(ctx).
		Where("organization_id = ?", strings.TrimSpace(organizationID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p.fallback, nil
		}
		return decimal.Zero, p.repo.logError("proposal_quorum_policy_read_failed", err,
			"organization_id", strings.TrimSpace(organizationID),
		)
	}
	return entities.BpsToFraction(row.QuorumBps), nil
}

func (p QuorumPolicy) SetQuorumBps(ctx context.Context, organizationID string, bps int) error {
	row := quorumSettingModel{OrganizationID: strings.TrimSpace(organizationID), QuorumBps: bps}
	if err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quorum_bps"}),
	}).Create(&row).Error; err != nil {
		return p.repo.logError("proposal_quorum_policy_write_failed", err, "organization_id", row.OrganizationID)
	}
	return nil
}

var _ ports.ShareLedger = (*Repository)(nil)
var _ ports.QuorumPolicy = QuorumPolicy{}
