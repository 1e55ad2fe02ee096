package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type TenantRepo interface {
	Insert(ctx context.Context, t *models.Tenant) error
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]models.Tenant, error)
}

type tenantRepo struct {
	db *gorm.DB
}

func NewTenantRepo(db *gorm.DB) TenantRepo {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Insert(ctx context.Context, t *models.Tenant) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	var row models.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *tenantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	var row models.Tenant
	err := r.db.WithContext(ctx).Where("api_key = ?", apiKey).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]models.Tenant, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Tenant
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}
