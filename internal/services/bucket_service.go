package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nikzan/Multimodal-Support-System/internal/cache"
	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/notify"
	mongorepo "github.com/nikzan/Multimodal-Support-System/internal/repositories/mongo"
	pgrepo "github.com/nikzan/Multimodal-Support-System/internal/repositories/postgres"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

// RefreshQueue hands a ticket id to the background regeneration workers.
type RefreshQueue interface {
	Enqueue(ctx context.Context, ticketID string) error
}

// Suggestion is the result of regenerating a ticket's suggested answer from
// its accumulated messages.
type Suggestion struct {
	Answer          string    `json:"answer"`
	MessagesCount   int       `json:"messages_count"`
	MessageIDs      []string  `json:"message_ids,omitempty"`
	IsFirstResponse bool      `json:"is_first_response"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// BucketService owns the per-ticket accumulator of pending client messages.
// Append and Clear serialize per ticket; different tickets proceed in
// parallel. Regenerate never mutates the accumulator.
type BucketService interface {
	Append(ctx context.Context, ticketID, messageID string) error
	Clear(ctx context.Context, ticketID string) error
	Regenerate(ctx context.Context, ticketID string) (*Suggestion, error)
	History(ctx context.Context, ticketID string, limit int64) ([]models.SuggestionRecord, error)
}

type bucketService struct {
	tickets   pgrepo.TicketRepo
	messages  pgrepo.MessageRepo
	suggester Suggester
	publisher notify.Publisher

	// optional collaborators; all best-effort
	cache   cache.Cache
	suglog  mongorepo.SuggestionLogRepo
	refresh RefreshQueue
	logTTL  time.Duration

	locks ticketLocks
	log   *logrus.Logger
}

type BucketDeps struct {
	Tickets   pgrepo.TicketRepo
	Messages  pgrepo.MessageRepo
	Suggester Suggester
	Publisher notify.Publisher

	Cache   cache.Cache
	SugLog  mongorepo.SuggestionLogRepo
	Refresh RefreshQueue
	LogTTL  time.Duration
}

func NewBucketService(d BucketDeps, log *logrus.Logger) BucketService {
	if d.LogTTL <= 0 {
		d.LogTTL = 24 * time.Hour
	}
	return &bucketService{
		tickets:   d.Tickets,
		messages:  d.Messages,
		suggester: d.Suggester,
		publisher: d.Publisher,
		cache:     d.Cache,
		suglog:    d.SugLog,
		refresh:   d.Refresh,
		logTTL:    d.LogTTL,
		log:       log,
	}
}

func (s *bucketService) Append(ctx context.Context, ticketID, messageID string) error {
	const op = "BucketService.Append"

	if ticketID == "" || messageID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "ticket_id and message_id are required", nil)
	}

	unlock := s.locks.lock(ticketID)
	defer unlock()

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "ticket not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to load ticket", err)
	}
	if t.IsClosed {
		return utils.E(utils.CodeConflict, op, "ticket is closed", nil)
	}

	if err := s.tickets.AppendPending(ctx, ticketID, messageID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to append to accumulator", err)
	}

	// The append is durable before anyone hears about it, so a subscriber
	// reacting to the notification always sees a consistent snapshot.
	s.publisher.Publish(ctx, notify.RefreshNeededTopic(ticketID), map[string]any{
		"ticket_id":  ticketID,
		"message_id": messageID,
	})

	if s.refresh != nil {
		if err := s.refresh.Enqueue(ctx, ticketID); err != nil {
			s.log.WithError(err).WithField("ticket_id", ticketID).Warn("bucket: refresh enqueue failed")
		}
	}
	return nil
}

func (s *bucketService) Clear(ctx context.Context, ticketID string) error {
	const op = "BucketService.Clear"

	if ticketID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "ticket_id is required", nil)
	}

	unlock := s.locks.lock(ticketID)
	defer unlock()

	if err := s.tickets.ClearPending(ctx, ticketID, time.Now().UTC()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "ticket not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to clear accumulator", err)
	}
	return nil
}

func (s *bucketService) Regenerate(ctx context.Context, ticketID string) (*Suggestion, error) {
	const op = "BucketService.Regenerate"

	if ticketID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "ticket_id is required", nil)
	}

	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "ticket not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load ticket", err)
	}

	ids := []string(t.PendingMessageIDs)
	if len(ids) == 0 {
		return &Suggestion{Answer: NothingNew, GeneratedAt: time.Now().UTC()}, nil
	}

	msgs, err := s.messages.GetByIDs(ctx, ids)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load accumulated messages", err)
	}

	// First-response is a ticket-lifetime check, not since-last-clear: a
	// greeting is only appropriate if no operator has ever spoken.
	hasOperator, err := s.messages.HasOperatorMessage(ctx, ticketID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to inspect ticket history", err)
	}

	start := time.Now()
	answer := s.suggester.SuggestAnswer(ctx, t.TenantID, buildConversationContext(ids, msgs), !hasOperator)

	sugg := &Suggestion{
		Answer:          answer,
		MessagesCount:   len(msgs),
		MessageIDs:      ids,
		IsFirstResponse: !hasOperator,
		GeneratedAt:     time.Now().UTC(),
	}

	s.record(ctx, ticketID, sugg, time.Since(start).Milliseconds())
	return sugg, nil
}

// History returns past generated suggestions for a ticket, newest first. The
// log lives in a TTL collection, so older entries age out on their own.
func (s *bucketService) History(ctx context.Context, ticketID string, limit int64) ([]models.SuggestionRecord, error) {
	const op = "BucketService.History"

	if s.suglog == nil {
		return nil, nil
	}
	recs, err := s.suglog.ListByTicket(ctx, ticketID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load suggestion history", err)
	}
	return recs, nil
}

// record caches the suggestion and appends it to the mongo audit trail; both
// are best-effort.
func (s *bucketService) record(ctx context.Context, ticketID string, sugg *Suggestion, procMS int64) {
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, "ticket:"+ticketID+":suggestion", sugg, s.logTTL); err != nil {
			s.log.WithError(err).WithField("ticket_id", ticketID).Warn("bucket: suggestion cache write failed")
		}
	}
	if s.suglog != nil {
		now := time.Now().UTC()
		rec := &models.SuggestionRecord{
			TicketID:         ticketID,
			Answer:           sugg.Answer,
			MessagesCount:    sugg.MessagesCount,
			MessageIDs:       sugg.MessageIDs,
			IsFirstResponse:  sugg.IsFirstResponse,
			ProcessingTimeMS: procMS,
			CreatedAt:        now,
			ExpiresAt:        now.Add(s.logTTL),
		}
		if err := s.suglog.Insert(ctx, rec); err != nil {
			s.log.WithError(err).WithField("ticket_id", ticketID).Warn("bucket: suggestion log write failed")
		}
	}
}

// buildConversationContext renders accumulated messages in bucket order,
// with side-channel annotations prefixed distinctly so the model can tell
// them apart from typed text.
func buildConversationContext(ids []string, msgs []models.ChatMessage) string {
	byID := make(map[string]models.ChatMessage, len(msgs))
	for _, m := range msgs {
		byID[m.ID] = m
	}

	var sb strings.Builder
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			continue
		}
		sb.WriteString("Клиент: ")
		sb.WriteString(m.Body)
		sb.WriteString("\n")

		ann := m.Annotations.Data()
		if ann.Transcript != "" {
			sb.WriteString("(Транскрипция аудио: ")
			sb.WriteString(ann.Transcript)
			sb.WriteString(")\n")
		}
		if ann.ImageCaption != "" {
			sb.WriteString("(Описание изображения: ")
			sb.WriteString(ann.ImageCaption)
			sb.WriteString(")\n")
		}
	}
	return sb.String()
}

// ticketLocks serializes accumulator mutation per ticket while letting
// different tickets proceed fully in parallel.
type ticketLocks struct {
	mu sync.Map // ticket id -> *sync.Mutex
}

func (l *ticketLocks) lock(ticketID string) (unlock func()) {
	v, _ := l.mu.LoadOrStore(ticketID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
