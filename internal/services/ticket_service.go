package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/notify"
	pgrepo "github.com/nikzan/Multimodal-Support-System/internal/repositories/postgres"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type CreateTicketInput struct {
	APIKey        string `json:"api_key" binding:"required"`
	SessionID     string `json:"session_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	Text          string `json:"text"`
	AudioBase64   string `json:"audio_base64"`
	ImageBase64   string `json:"image_base64"`
	Language      string `json:"language"`
}

// TicketService orchestrates the intake pipeline: normalize media, enrich,
// suggest an answer, persist, and seed the conversation.
type TicketService interface {
	Create(ctx context.Context, in CreateTicketInput) (*models.Ticket, error)
	Get(ctx context.Context, id string) (*models.Ticket, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Ticket, int64, error)
	ActiveBySession(ctx context.Context, sessionID string) (*models.Ticket, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Ticket, error)
	Close(ctx context.Context, id string) (*models.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type ticketService struct {
	tickets    pgrepo.TicketRepo
	messages   pgrepo.MessageRepo
	tenants    pgrepo.TenantRepo
	normalizer MediaNormalizer
	enricher   Enricher
	suggester  Suggester
	bucket     BucketService
	chat       ChatService
	publisher  notify.Publisher
	log        *logrus.Logger
}

type TicketDeps struct {
	Tickets    pgrepo.TicketRepo
	Messages   pgrepo.MessageRepo
	Tenants    pgrepo.TenantRepo
	Normalizer MediaNormalizer
	Enricher   Enricher
	Suggester  Suggester
	Bucket     BucketService
	Chat       ChatService
	Publisher  notify.Publisher
}

func NewTicketService(d TicketDeps, log *logrus.Logger) TicketService {
	return &ticketService{
		tickets:    d.Tickets,
		messages:   d.Messages,
		tenants:    d.Tenants,
		normalizer: d.Normalizer,
		enricher:   d.Enricher,
		suggester:  d.Suggester,
		bucket:     d.Bucket,
		chat:       d.Chat,
		publisher:  d.Publisher,
		log:        log,
	}
}

func (s *ticketService) Create(ctx context.Context, in CreateTicketInput) (*models.Ticket, error) {
	const op = "TicketService.Create"

	tenant, err := s.tenants.GetByAPIKey(ctx, strings.TrimSpace(in.APIKey))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "unknown api key", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to resolve tenant", err)
	}

	if strings.TrimSpace(in.Text) == "" && in.AudioBase64 == "" && in.ImageBase64 == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "ticket has no content", nil)
	}

	content := s.normalizer.Normalize(ctx, NormalizeInput{
		Text:        in.Text,
		AudioBase64: in.AudioBase64,
		ImageBase64: in.ImageBase64,
		Language:    in.Language,
	})

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := time.Now().UTC()
	t := &models.Ticket{
		ID:            uuid.NewString(),
		TenantID:      tenant.ID,
		Status:        models.StatusOpen,
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		OriginalText:  strings.TrimSpace(in.Text),
		AudioPath:     content.AudioPath,
		ImagePath:     content.ImagePath,
		Transcript:    content.Transcript,
		SessionID:     sessionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// AI enrichment only runs over canonical text. An image-only ticket has
	// nothing to summarize or classify; its caption stays an annotation.
	if content.CanonicalText != "" {
		enrichment := s.enricher.Enrich(ctx, content.CanonicalText)
		t.AISummary = enrichment.Summary
		t.Sentiment = enrichment.Sentiment
		t.SentimentScore = enrichment.SentimentScore
		t.Priority = enrichment.Priority
		t.SuggestedAnswer = s.suggester.SuggestAnswer(ctx, tenant.ID, content.CanonicalText, true)
	}

	if err := s.tickets.Insert(ctx, t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store ticket", err)
	}

	// Seed the conversation with the intake content as the first client
	// turn, then register it with the accumulator.
	first := &models.ChatMessage{
		ID:         uuid.NewString(),
		TicketID:   t.ID,
		SenderRole: models.SenderClient,
		SenderName: t.CustomerName,
		Body:       content.CanonicalText,
		AudioPath:  content.AudioPath,
		ImagePath:  content.ImagePath,
		CreatedAt:  now,
	}
	ann := models.MessageAnnotations{Transcript: content.Transcript, ImageCaption: content.ImageCaption}
	if !ann.Empty() {
		first.Annotations = datatypes.NewJSONType(ann)
	}
	// Unlike the AI branches, persistence is never best-effort: a ticket
	// without its first message has a broken history and an accumulator
	// that can never be regenerated.
	if err := s.messages.Insert(ctx, first); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store first message", err)
	}
	if err := s.bucket.Append(ctx, t.ID, first.ID); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, notify.TicketCreatedTopic(tenant.ID), t)

	s.log.WithFields(logrus.Fields{
		"ticket_id": t.ID,
		"tenant_id": tenant.ID,
		"priority":  t.Priority,
		"sentiment": t.Sentiment,
	}).Info("ticket: created")
	return t, nil
}

func (s *ticketService) Get(ctx context.Context, id string) (*models.Ticket, error) {
	const op = "TicketService.Get"

	t, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "ticket not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load ticket", err)
	}
	return t, nil
}

func (s *ticketService) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]models.Ticket, int64, error) {
	const op = "TicketService.ListByTenant"

	rows, total, err := s.tickets.ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, 0, utils.E(utils.CodeInternal, op, "failed to list tickets", err)
	}
	return rows, total, nil
}

func (s *ticketService) ActiveBySession(ctx context.Context, sessionID string) (*models.Ticket, error) {
	const op = "TicketService.ActiveBySession"

	t, err := s.tickets.ActiveBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "no active ticket for session", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load ticket", err)
	}
	return t, nil
}

func (s *ticketService) UpdateStatus(ctx context.Context, id, status string) (*models.Ticket, error) {
	const op = "TicketService.UpdateStatus"

	next := models.TicketStatus(strings.ToUpper(strings.TrimSpace(status)))
	switch next {
	case models.StatusNew, models.StatusOpen, models.StatusClosed:
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "status must be NEW, OPEN or CLOSED", nil)
	}

	if next == models.StatusClosed {
		return s.Close(ctx, id)
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsClosed {
		return nil, utils.E(utils.CodeConflict, op, "ticket is closed", nil)
	}

	t.Status = next
	t.UpdatedAt = time.Now().UTC()
	if err := s.tickets.Update(ctx, t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update ticket", err)
	}
	return t, nil
}

// Close is idempotent. The farewell goes through the normal message path
// before the ticket is marked closed, so it is the last visible turn.
func (s *ticketService) Close(ctx context.Context, id string) (*models.Ticket, error) {
	const op = "TicketService.Close"

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsClosed {
		return t, nil
	}

	if _, err := s.chat.SendMessage(ctx, id, SendMessageInput{
		SenderRole: string(models.SenderOperator),
		SenderName: FarewellSender,
		Text:       FarewellText,
	}); err != nil {
		s.log.WithError(err).WithField("ticket_id", id).Warn("ticket: farewell message failed")
	}

	// The farewell cleared the accumulator; reload before mutating.
	t, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t.IsClosed = true
	t.Status = models.StatusClosed
	t.ClosedAt = &now
	t.UpdatedAt = now
	if err := s.tickets.Update(ctx, t); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to close ticket", err)
	}

	s.publisher.Publish(ctx, notify.TicketClosedTopic(id), t)
	s.log.WithField("ticket_id", id).Info("ticket: closed")
	return t, nil
}

func (s *ticketService) Delete(ctx context.Context, id string) error {
	const op = "TicketService.Delete"

	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !t.IsClosed {
		if _, err := s.Close(ctx, id); err != nil {
			return err
		}
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "ticket not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete ticket", err)
	}
	return nil
}
