package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	pgrepo "github.com/nikzan/Multimodal-Support-System/internal/repositories/postgres"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type KnowledgeEntryInput struct {
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
	SourceType string `json:"source_type"`
	SourceURL  string `json:"source_url"`
}

// KnowledgeService manages the tenant knowledge base. Writes embed before
// persisting, so retrieval never sees an entry whose vector is stale.
type KnowledgeService interface {
	Create(ctx context.Context, tenantID string, in KnowledgeEntryInput) (*models.KnowledgeEntry, error)
	Update(ctx context.Context, tenantID, id string, in KnowledgeEntryInput) (*models.KnowledgeEntry, error)
	Get(ctx context.Context, tenantID, id string) (*models.KnowledgeEntry, error)
	Delete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, tenantID string, limit, offset int) ([]models.KnowledgeEntry, int64, error)
	Search(ctx context.Context, tenantID, keyword string, limit, offset int) ([]models.KnowledgeEntry, error)
}

type knowledgeService struct {
	repo      pgrepo.KnowledgeRepo
	suggester Suggester
	log       *logrus.Logger
}

func NewKnowledgeService(repo pgrepo.KnowledgeRepo, suggester Suggester, log *logrus.Logger) KnowledgeService {
	return &knowledgeService{repo: repo, suggester: suggester, log: log}
}

// embeddingText is what gets vectorized for an entry. Title and content are
// embedded together so short titles still anchor retrieval.
func embeddingText(title, content string) string {
	return title + "\n\n" + content
}

func (s *knowledgeService) Create(ctx context.Context, tenantID string, in KnowledgeEntryInput) (*models.KnowledgeEntry, error) {
	const op = "KnowledgeService.Create"

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title and content are required", nil)
	}

	vec, err := s.suggester.EmbedText(ctx, embeddingText(title, content))
	if err != nil {
		// No silent degradation on the write path: an entry without a
		// vector would be invisible to retrieval.
		return nil, utils.E(utils.CodeUnavailable, op, "failed to embed knowledge entry", err)
	}

	now := time.Now().UTC()
	entry := &models.KnowledgeEntry{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Title:      title,
		Content:    content,
		Embedding:  vec,
		SourceType: in.SourceType,
		SourceURL:  in.SourceURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store knowledge entry", err)
	}

	s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "entry_id": entry.ID}).Info("knowledge: entry created")
	return entry, nil
}

func (s *knowledgeService) Update(ctx context.Context, tenantID, id string, in KnowledgeEntryInput) (*models.KnowledgeEntry, error) {
	const op = "KnowledgeService.Update"

	entry, err := s.getOwned(ctx, op, tenantID, id)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "title and content are required", nil)
	}

	// Re-embed unconditionally. Diffing title/content to skip the call is
	// not worth a path where text and vector disagree.
	vec, err := s.suggester.EmbedText(ctx, embeddingText(title, content))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to embed knowledge entry", err)
	}

	entry.Title = title
	entry.Content = content
	entry.Embedding = vec
	entry.SourceType = in.SourceType
	entry.SourceURL = in.SourceURL
	entry.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update knowledge entry", err)
	}
	return entry, nil
}

func (s *knowledgeService) Get(ctx context.Context, tenantID, id string) (*models.KnowledgeEntry, error) {
	return s.getOwned(ctx, "KnowledgeService.Get", tenantID, id)
}

func (s *knowledgeService) Delete(ctx context.Context, tenantID, id string) error {
	const op = "KnowledgeService.Delete"

	if _, err := s.getOwned(ctx, op, tenantID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "knowledge entry not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete knowledge entry", err)
	}
	return nil
}

func (s *knowledgeService) List(ctx context.Context, tenantID string, limit, offset int) ([]models.KnowledgeEntry, int64, error) {
	const op = "KnowledgeService.List"

	rows, total, err := s.repo.ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "failed to list knowledge entries", err)
	}
	return rows, total, nil
}

func (s *knowledgeService) Search(ctx context.Context, tenantID, keyword string, limit, offset int) ([]models.KnowledgeEntry, error) {
	const op = "KnowledgeService.Search"

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "search keyword is required", nil)
	}
	rows, err := s.repo.Search(ctx, tenantID, keyword, limit, offset)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "knowledge search failed", err)
	}
	return rows, nil
}

// getOwned loads an entry and enforces tenant ownership. A foreign entry is
// reported as not found, never as forbidden, to avoid leaking its existence.
func (s *knowledgeService) getOwned(ctx context.Context, op, tenantID, id string) (*models.KnowledgeEntry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "knowledge entry not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load knowledge entry", err)
	}
	if entry.TenantID != tenantID {
		return nil, utils.E(utils.CodeNotFound, op, "knowledge entry not found", nil)
	}
	return entry, nil
}
