package postgres

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type KnowledgeRepo interface {
	Insert(ctx context.Context, e *models.KnowledgeEntry) error
	Update(ctx context.Context, e *models.KnowledgeEntry) error
	GetByID(ctx context.Context, id string) (*models.KnowledgeEntry, error)
	Delete(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.KnowledgeEntry, int64, error)
	Search(ctx context.Context, tenantID, keyword string, limit, offset int) ([]models.KnowledgeEntry, error)

	// NearestByVector ranks the tenant's entries by cosine distance to the
	// query vector, ascending, and returns the top k.
	NearestByVector(ctx context.Context, tenantID string, vec pgvector.Vector, k int) ([]models.KnowledgeEntry, error)
}

type knowledgeRepo struct {
	db *gorm.DB
}

func NewKnowledgeRepo(db *gorm.DB) KnowledgeRepo {
	return &knowledgeRepo{db: db}
}

func (r *knowledgeRepo) Insert(ctx context.Context, e *models.KnowledgeEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *knowledgeRepo) Update(ctx context.Context, e *models.KnowledgeEntry) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *knowledgeRepo) GetByID(ctx context.Context, id string) (*models.KnowledgeEntry, error) {
	var row models.KnowledgeEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *knowledgeRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.KnowledgeEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *knowledgeRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.KnowledgeEntry, int64, error) {
	if limit <= 0 {
		limit = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.KnowledgeEntry{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.KnowledgeEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *knowledgeRepo) Search(ctx context.Context, tenantID, keyword string, limit, offset int) ([]models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + keyword + "%"
	var rows []models.KnowledgeEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND (title ILIKE ? OR content ILIKE ?)", tenantID, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

func (r *knowledgeRepo) NearestByVector(ctx context.Context, tenantID string, vec pgvector.Vector, k int) ([]models.KnowledgeEntry, error) {
	if k <= 0 {
		k = 3
	}
	var rows []models.KnowledgeEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{vec}},
		}).
		Limit(k).
		Find(&rows).Error
	return rows, err
}
