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

type CreateTenantInput struct {
	Name       string `json:"name" binding:"required"`
	WebsiteURL string `json:"website_url"`
}

type TenantService interface {
	Create(ctx context.Context, in CreateTenantInput) (*models.Tenant, error)
	Get(ctx context.Context, id string) (*models.Tenant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]models.Tenant, error)
}

type tenantService struct {
	repo pgrepo.TenantRepo
	log  *logrus.Logger
}

func NewTenantService(repo pgrepo.TenantRepo, log *logrus.Logger) TenantService {
	return &tenantService{repo: repo, log: log}
}

func (s *tenantService) Create(ctx context.Context, in CreateTenantInput) (*models.Tenant, error) {
	const op = "TenantService.Create"

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name is required", nil)
	}

	now := time.Now().UTC()
	t := &models.Tenant{
		ID:         uuid.NewString(),
		Name:       name,
		APIKey:     uuid.NewString(),
		WebsiteURL: strings.TrimSpace(in.WebsiteURL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store tenant", err)
	}

	s.log.WithFields(logrus.Fields{"tenant_id": t.ID, "name": t.Name}).Info("tenant: created")
	return t, nil
}

func (s *tenantService) Get(ctx context.Context, id string) (*models.Tenant, error) {
	const op = "TenantService.Get"

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "tenant not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load tenant", err)
	}
	return t, nil
}

func (s *tenantService) GetByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	const op = "TenantService.GetByAPIKey"

	t, err := s.repo.GetByAPIKey(ctx, strings.TrimSpace(apiKey))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "unknown api key", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load tenant", err)
	}
	return t, nil
}

func (s *tenantService) List(ctx context.Context, limit, offset int) ([]models.Tenant, error) {
	const op = "TenantService.List"

	rows, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list tenants", err)
	}
	return rows, nil
}
