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

type SendMessageInput struct {
	SenderRole  string `json:"sender_role" binding:"required"`
	SenderName  string `json:"sender_name"`
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64"`
	ImageBase64 string `json:"image_base64"`
	Language    string `json:"language"`
}

// ChatService appends conversation turns to a ticket and drives the
// accumulator: client messages join it, operator messages drain it.
type ChatService interface {
	SendMessage(ctx context.Context, ticketID string, in SendMessageInput) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, ticketID string) ([]models.ChatMessage, error)
}

type chatService struct {
	tickets    pgrepo.TicketRepo
	messages   pgrepo.MessageRepo
	normalizer MediaNormalizer
	bucket     BucketService
	publisher  notify.Publisher
	log        *logrus.Logger
}

func NewChatService(tickets pgrepo.TicketRepo, messages pgrepo.MessageRepo, normalizer MediaNormalizer, bucket BucketService, publisher notify.Publisher, log *logrus.Logger) ChatService {
	return &chatService{
		tickets:    tickets,
		messages:   messages,
		normalizer: normalizer,
		bucket:     bucket,
		publisher:  publisher,
		log:        log,
	}
}

func (s *chatService) SendMessage(ctx context.Context, ticketID string, in SendMessageInput) (*models.ChatMessage, error) {
	const op = "ChatService.SendMessage"

	role := models.SenderRole(strings.ToUpper(strings.TrimSpace(in.SenderRole)))
	if role != models.SenderClient && role != models.SenderOperator {
		return nil, utils.E(utils.CodeInvalidArgument, op, "sender_role must be CLIENT or OPERATOR", nil)
	}

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "ticket not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load ticket", err)
	}
	if t.IsClosed {
		return nil, utils.E(utils.CodeConflict, op, "ticket is closed", nil)
	}

	msg := &models.ChatMessage{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		SenderRole: role,
		SenderName: strings.TrimSpace(in.SenderName),
		Body:       strings.TrimSpace(in.Text),
		CreatedAt:  time.Now().UTC(),
	}

	// Only client messages carry media; operator turns are plain text.
	if role == models.SenderClient && (in.AudioBase64 != "" || in.ImageBase64 != "") {
		content := s.normalizer.Normalize(ctx, NormalizeInput{
			Text:        in.Text,
			AudioBase64: in.AudioBase64,
			ImageBase64: in.ImageBase64,
			Language:    in.Language,
		})
		msg.Body = content.CanonicalText
		msg.AudioPath = content.AudioPath
		msg.ImagePath = content.ImagePath

		ann := models.MessageAnnotations{
			Transcript:   content.Transcript,
			ImageCaption: content.ImageCaption,
		}
		if !ann.Empty() {
			msg.Annotations = datatypes.NewJSONType(ann)
		}
	}

	if msg.Body == "" && msg.AudioPath == "" && msg.ImagePath == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message has no content", nil)
	}

	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to store message", err)
	}

	switch role {
	case models.SenderClient:
		if err := s.bucket.Append(ctx, ticketID, msg.ID); err != nil {
			// The message itself is durable; a failed append only delays
			// the next suggestion refresh.
			s.log.WithError(err).WithField("ticket_id", ticketID).Error("chat: accumulator append failed")
		}
	case models.SenderOperator:
		if err := s.bucket.Clear(ctx, ticketID); err != nil {
			s.log.WithError(err).WithField("ticket_id", ticketID).Error("chat: accumulator clear failed")
		}
	}

	s.publisher.Publish(ctx, notify.MessageCreatedTopic(ticketID), msg)
	return msg, nil
}

func (s *chatService) ListMessages(ctx context.Context, ticketID string) ([]models.ChatMessage, error) {
	const op = "ChatService.ListMessages"

	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "ticket not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load ticket", err)
	}

	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list messages", err)
	}
	return msgs, nil
}
