package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fangov/contexts/governance/proposal-engine/domain/entities"
	domainerrors "fangov/contexts/governance/proposal-engine/domain/errors"
	"fangov/contexts/governance/proposal-engine/ports"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates every table owned by the proposal engine.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&proposalModel{},
		&optionModel{},
		&voteModel{},
		&resultModel{},
		&outboxModel{},
		&shareGrantModel{},
		&quorumSettingModel{},
	); err != nil {
		return r.logError("proposal_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) CreateProposal(ctx context.Context, proposal entities.Proposal, events []ports.EventEnvelope) error {
	row := proposalModelFromEntity(proposal)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrVersionConflict
			}
			return err
		}
		return appendOutbox(tx, events)
	})
	if err != nil && !errors.Is(err, domainerrors.ErrConflict) {
		return r.logError("proposal_repo_create_proposal_failed", err, "proposal_id", proposal.ProposalID)
	}
	return err
}

func (r *Repository) GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("proposal_repo_get_proposal_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListProposals(ctx context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ?", strings.TrimSpace(filter.OrganizationID))
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []proposalModel
	if err := query.Order("created_at DESC, proposal_id DESC").Find(&rows).Error; err != nil {
		return nil, r.logError("proposal_repo_list_proposals_failed", err,
			"organization_id", filter.OrganizationID,
		)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpdateProposal(
	ctx context.Context,
	proposal entities.Proposal,
	expectedVersion int64,
	events []ports.EventEnvelope,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := compareAndSwap(tx, proposal, expectedVersion); err != nil {
			return err
		}
		return appendOutbox(tx, events)
	})
	return r.classify("proposal_repo_update_proposal_failed", err, "proposal_id", proposal.ProposalID)
}

func (r *Repository) ListOpenProposalsPastWindow(ctx context.Context, now time.Time, limit int) ([]entities.Proposal, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_at IS NOT NULL AND end_at < ?", string(entities.ProposalStatusOpen), now.UTC()).
		Order("end_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("proposal_repo_list_past_window_failed", err, "limit", limit)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AddOption(
	ctx context.Context,
	proposal entities.Proposal,
	expectedVersion int64,
	option entities.ProposalOption,
) (entities.ProposalOption, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The CAS holds the proposal row lock, so positions are assigned serially.
		if err := compareAndSwap(tx, proposal, expectedVersion); err != nil {
			return err
		}
		var next struct {
			Position int
		}
		if err := tx.Model(&optionModel{}).
			Select("COALESCE(MAX(position) + 1, 0) AS position").
			Where("proposal_id = ?", proposal.ProposalID).
			Scan(&next).Error; err != nil {
			return err
		}
		option.Position = next.Position
		row := optionModel{
			OptionID:    option.OptionID,
			ProposalID:  proposal.ProposalID,
			Text:        option.Text,
			Description: option.Description,
			Position:    option.Position,
			CreatedAt:   option.CreatedAt.UTC(),
		}
		return tx.Create(&row).Error
	})
	if err := r.classify("proposal_repo_add_option_failed", err, "proposal_id", proposal.ProposalID); err != nil {
		return entities.ProposalOption{}, err
	}
	return option, nil
}

func (r *Repository) DeleteOption(
	ctx context.Context,
	proposal entities.Proposal,
	expectedVersion int64,
	optionID string,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := compareAndSwap(tx, proposal, expectedVersion); err != nil {
			return err
		}
		result := tx.Where("proposal_id = ? AND option_id = ?", proposal.ProposalID, strings.TrimSpace(optionID)).
			Delete(&optionModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrOptionNotFound
		}
		return nil
	})
	return r.classify("proposal_repo_delete_option_failed", err,
		"proposal_id", proposal.ProposalID,
		"option_id", optionID,
	)
}

func (r *Repository) GetOption(ctx context.Context, proposalID string, optionID string) (entities.ProposalOption, error) {
	var row optionModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ? AND option_id = ?", strings.TrimSpace(proposalID), strings.TrimSpace(optionID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ProposalOption{}, domainerrors.ErrOptionNotFound
		}
		return entities.ProposalOption{}, r.logError("proposal_repo_get_option_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
			"option_id", strings.TrimSpace(optionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListOptions(ctx context.Context, proposalID string) ([]entities.ProposalOption, error) {
	var rows []optionModel
	if err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("proposal_repo_list_options_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	items := make([]entities.ProposalOption, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// InsertVote takes a share lock on the proposal row so a concurrent close,
// which needs the row exclusively, waits for in-flight votes to commit.
func (r *Repository) InsertVote(ctx context.Context, vote entities.Vote, events []ports.EventEnvelope) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var proposal proposalModel
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("proposal_id", "status").
			Where("proposal_id = ?", vote.ProposalID).
			First(&proposal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrProposalNotFound
			}
			return err
		}
		if proposal.Status != string(entities.ProposalStatusOpen) {
			return domainerrors.ErrProposalNotOpen
		}
		row := voteModelFromEntity(vote)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrDuplicateVote
			}
			return err
		}
		return appendOutbox(tx, events)
	})
	return r.classify("proposal_repo_insert_vote_failed", err,
		"proposal_id", vote.ProposalID,
		"user_id", vote.UserID,
	)
}

func (r *Repository) GetVote(ctx context.Context, proposalID string, userID string) (entities.Vote, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ? AND user_id = ?", strings.TrimSpace(proposalID), strings.TrimSpace(userID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, false, nil
		}
		return entities.Vote{}, false, r.logError("proposal_repo_get_vote_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
			"user_id", strings.TrimSpace(userID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListVotes(ctx context.Context, proposalID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		Order("cast_at ASC, vote_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("proposal_repo_list_votes_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) FinalizeProposal(
	ctx context.Context,
	proposal entities.Proposal,
	expectedVersion int64,
	snapshot entities.ResultSnapshot,
	events []ports.EventEnvelope,
) error {
	row, err := resultModelFromEntity(snapshot)
	if err != nil {
		return r.logError("proposal_repo_finalize_marshal_failed", err, "proposal_id", proposal.ProposalID)
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := compareAndSwap(tx, proposal, expectedVersion); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrVersionConflict
			}
			return err
		}
		return appendOutbox(tx, events)
	})
	return r.classify("proposal_repo_finalize_failed", err, "proposal_id", proposal.ProposalID)
}

func (r *Repository) GetResultSnapshot(ctx context.Context, proposalID string) (entities.ResultSnapshot, error) {
	var row resultModel
	err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.ResultSnapshot{}, domainerrors.ErrResultNotFound
		}
		return entities.ResultSnapshot{}, r.logError("proposal_repo_get_result_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	snapshot, err := row.toEntity()
	if err != nil {
		return entities.ResultSnapshot{}, r.logError("proposal_repo_decode_result_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
		)
	}
	return snapshot, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC, outbox_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("proposal_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("proposal_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

// compareAndSwap writes proposal only if the stored version still equals
// expectedVersion.
func compareAndSwap(tx *gorm.DB, proposal entities.Proposal, expectedVersion int64) error {
	row := proposalModelFromEntity(proposal)
	result := tx.Model(&proposalModel{}).
		Where("proposal_id = ? AND version = ?", row.ProposalID, expectedVersion).
		Updates(proposalUpdates(row))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := tx.Model(&proposalModel{}).Where("proposal_id = ?", row.ProposalID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domainerrors.ErrProposalNotFound
	}
	return domainerrors.ErrVersionConflict
}

func appendOutbox(tx *gorm.DB, events []ports.EventEnvelope) error {
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		row := outboxModel{
			OutboxID:     strings.TrimSpace(envelope.EventID),
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			Status:       outboxStatusPending,
			CreatedAt:    envelope.OccurredAt.UTC(),
		}
		if row.OutboxID == "" {
			row.OutboxID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now().UTC()
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// classify passes domain errors through and logs everything else.
func (r *Repository) classify(event string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	if domainerrors.Kind(err) != nil {
		return err
	}
	return r.logError(event, err, attrs...)
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/proposal-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("proposal repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ProposalStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
