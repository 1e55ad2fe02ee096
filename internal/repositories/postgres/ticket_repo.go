package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type TicketRepo interface {
	Insert(ctx context.Context, t *models.Ticket) error
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	Update(ctx context.Context, t *models.Ticket) error
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Ticket, int64, error)
	ActiveBySession(ctx context.Context, sessionID string) (*models.Ticket, error)

	// AppendPending and ClearPending mutate only the accumulator columns.
	// Row-level array_append keeps concurrent appends from clobbering each
	// other even without the service-level ticket lock.
	AppendPending(ctx context.Context, ticketID, messageID string) error
	ClearPending(ctx context.Context, ticketID string, repliedAt time.Time) error
}

type ticketRepo struct {
	db *gorm.DB
}

func NewTicketRepo(db *gorm.DB) TicketRepo {
	return &ticketRepo{db: db}
}

func (r *ticketRepo) Insert(ctx context.Context, t *models.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ticketRepo) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	var row models.Ticket
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *ticketRepo) Update(ctx context.Context, t *models.Ticket) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *ticketRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Ticket{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *ticketRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Ticket, int64, error) {
	if limit <= 0 {
		limit = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Ticket
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *ticketRepo) ActiveBySession(ctx context.Context, sessionID string) (*models.Ticket, error) {
	var row models.Ticket
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND is_closed = false", sessionID).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *ticketRepo) AppendPending(ctx context.Context, ticketID, messageID string) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE tickets
		 SET pending_message_ids = array_append(COALESCE(pending_message_ids, '{}'), ?),
		     updated_at = ?
		 WHERE id = ?`,
		messageID, time.Now().UTC(), ticketID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *ticketRepo) ClearPending(ctx context.Context, ticketID string, repliedAt time.Time) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE tickets
		 SET pending_message_ids = '{}',
		     last_operator_reply_at = ?,
		     updated_at = ?
		 WHERE id = ?`,
		repliedAt, time.Now().UTC(), ticketID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
