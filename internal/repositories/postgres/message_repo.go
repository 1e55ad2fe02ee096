package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type MessageRepo interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
	GetByID(ctx context.Context, id string) (*models.ChatMessage, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.ChatMessage, error)
	ListByTicket(ctx context.Context, ticketID string) ([]models.ChatMessage, error)
	HasOperatorMessage(ctx context.Context, ticketID string) (bool, error)
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
}

type messageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepo{db: db}
}

func (r *messageRepo) Insert(ctx context.Context, m *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *messageRepo) GetByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	var row models.ChatMessage
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *messageRepo) GetByIDs(ctx context.Context, ids []string) ([]models.ChatMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *messageRepo) ListByTicket(ctx context.Context, ticketID string) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *messageRepo) HasOperatorMessage(ctx context.Context, ticketID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("ticket_id = ? AND sender_role = ?", ticketID, models.SenderOperator).
		Count(&count).Error
	return count > 0, err
}

func (r *messageRepo) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("ticket_id = ?", ticketID).
		Count(&count).Error
	return count, err
}
