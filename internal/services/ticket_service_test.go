package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/notify"
	"github.com/nikzan/Multimodal-Support-System/internal/testutil"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

type pipelineFixture struct {
	tenants   *testutil.MockTenantRepo
	tickets   *testutil.MockTicketRepo
	messages  *testutil.MockMessageRepo
	knowledge *testutil.MockKnowledgeRepo
	llm       *testutil.MockLLM
	stt       *testutil.MockSTT
	store     *testutil.MockObjectStore
	publisher *testutil.MockPublisher

	bucket BucketService
	chat   ChatService
	svc    TicketService
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		tenants:   testutil.NewMockTenantRepo(),
		tickets:   testutil.NewMockTicketRepo(),
		messages:  testutil.NewMockMessageRepo(),
		knowledge: testutil.NewMockKnowledgeRepo(),
		llm:       &testutil.MockLLM{GenerateOut: "neutral"},
		stt:       &testutil.MockSTT{},
		store:     &testutil.MockObjectStore{},
		publisher: &testutil.MockPublisher{},
	}

	_ = f.tenants.Insert(context.Background(), &models.Tenant{
		ID:     "tenant-1",
		Name:   "Acme",
		APIKey: "key-1",
	})

	log := testLogger()
	timeouts := DefaultAITimeouts()
	normalizer := NewMediaNormalizer(f.stt, f.llm, f.store, timeouts, log)
	enricher := NewEnricher(f.llm, timeouts, log)
	suggester := NewSuggester(&testutil.MockEmbedder{}, f.llm, f.knowledge, DefaultTopK, timeouts, log)

	f.bucket = NewBucketService(BucketDeps{
		Tickets:   f.tickets,
		Messages:  f.messages,
		Suggester: suggester,
		Publisher: f.publisher,
	}, log)
	f.chat = NewChatService(f.tickets, f.messages, normalizer, f.bucket, f.publisher, log)
	f.svc = NewTicketService(TicketDeps{
		Tickets:    f.tickets,
		Messages:   f.messages,
		Tenants:    f.tenants,
		Normalizer: normalizer,
		Enricher:   enricher,
		Suggester:  suggester,
		Bucket:     f.bucket,
		Chat:       f.chat,
		Publisher:  f.publisher,
	}, log)
	return f
}

func TestCreateTicket_TextOnly(t *testing.T) {
	f := newPipelineFixture(t)
	f.knowledge.NearestEntries = []models.KnowledgeEntry{{Title: "FAQ", Content: "Ответ."}}

	tk, err := f.svc.Create(context.Background(), CreateTicketInput{
		APIKey: "key-1",
		Text:   "срочно, не работает оплата",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if tk.TenantID != "tenant-1" {
		t.Errorf("tenant = %q", tk.TenantID)
	}
	if tk.Status != models.StatusOpen {
		t.Errorf("status = %v, want OPEN", tk.Status)
	}
	if tk.Priority != models.PriorityCritical {
		t.Errorf("priority = %v, want CRITICAL (urgency keyword)", tk.Priority)
	}
	if tk.SuggestedAnswer == "" {
		t.Error("suggested answer missing")
	}
	if tk.SessionID == "" {
		t.Error("session id not generated")
	}

	// The intake content becomes the first client message and enters the
	// accumulator.
	if got := f.tickets.Pending(tk.ID); len(got) != 1 {
		t.Errorf("pending = %v, want one seeded message", got)
	}
	msgs, _ := f.messages.ListByTicket(context.Background(), tk.ID)
	if len(msgs) != 1 || msgs[0].SenderRole != models.SenderClient {
		t.Errorf("messages = %+v, want one CLIENT message", msgs)
	}

	found := false
	for _, topic := range f.publisher.Published() {
		if topic == notify.TicketCreatedTopic("tenant-1") {
			found = true
		}
	}
	if !found {
		t.Error("ticket-created event not published")
	}
}

func TestCreateTicket_UnknownAPIKey(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.svc.Create(context.Background(), CreateTicketInput{
		APIKey: "bogus",
		Text:   "привет",
	})
	if !utils.IsCode(err, utils.CodeUnauthorized) {
		t.Errorf("error = %v, want UNAUTHORIZED", err)
	}
}

func TestCreateTicket_NoContent(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.svc.Create(context.Background(), CreateTicketInput{APIKey: "key-1"})
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestCreateTicket_FirstMessagePersistFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.messages.InsertErr = errors.New("db down")

	_, err := f.svc.Create(context.Background(), CreateTicketInput{
		APIKey: "key-1",
		Text:   "вопрос",
	})
	if !utils.IsCode(err, utils.CodeInternal) {
		t.Fatalf("error = %v, want INTERNAL when first message cannot be stored", err)
	}

	// Nothing half-committed is visible through the message repo.
	for _, msg := range f.messages.Messages {
		t.Errorf("unexpected stored message: %+v", msg)
	}
}

func TestCreateTicket_AccumulatorSeedFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.tickets.AppendErr = errors.New("db down")

	_, err := f.svc.Create(context.Background(), CreateTicketInput{
		APIKey: "key-1",
		Text:   "вопрос",
	})
	if !utils.IsCode(err, utils.CodeInternal) {
		t.Fatalf("error = %v, want INTERNAL when accumulator seed cannot be written", err)
	}
}

func TestCreateTicket_ImageOnlySkipsEnrichment(t *testing.T) {
	f := newPipelineFixture(t)
	f.llm.CaptionOut = "скриншот ошибки"

	tk, err := f.svc.Create(context.Background(), CreateTicketInput{
		APIKey:      "key-1",
		ImageBase64: b64([]byte{0x89, 0x50, 0x4e, 0x47}),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Caption is an annotation, not canonical text, so no summary,
	// sentiment or suggested answer is produced.
	if tk.AISummary != "" || tk.Sentiment != "" || tk.SuggestedAnswer != "" {
		t.Errorf("AI fields should be empty for image-only ticket: %+v", tk)
	}
	if f.llm.Generations() != 0 {
		t.Errorf("generate calls = %d, want 0", f.llm.Generations())
	}
	if tk.ImagePath == "" {
		t.Error("image not stored")
	}
}

func TestOperatorReplyClearsAccumulator(t *testing.T) {
	f := newPipelineFixture(t)

	tk, err := f.svc.Create(context.Background(), CreateTicketInput{
		APIKey: "key-1",
		Text:   "вопрос",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.chat.SendMessage(context.Background(), tk.ID, SendMessageInput{
		SenderRole: "CLIENT",
		Text:       "ещё вопрос",
	}); err != nil {
		t.Fatalf("client message: %v", err)
	}
	if got := f.tickets.Pending(tk.ID); len(got) != 2 {
		t.Fatalf("pending = %v, want 2 entries", got)
	}

	if _, err := f.chat.SendMessage(context.Background(), tk.ID, SendMessageInput{
		SenderRole: "OPERATOR",
		SenderName: "Анна",
		Text:       "Здравствуйте! Сейчас помогу.",
	}); err != nil {
		t.Fatalf("operator message: %v", err)
	}

	if got := f.tickets.Pending(tk.ID); len(got) != 0 {
		t.Errorf("pending = %v, want empty after operator reply", got)
	}
	fresh, _ := f.tickets.GetByID(context.Background(), tk.ID)
	if fresh.LastOperatorReplyAt == nil {
		t.Error("LastOperatorReplyAt not set")
	}
}

func TestCloseTicket_FarewellAndIdempotency(t *testing.T) {
	f := newPipelineFixture(t)

	tk, err := f.svc.Create(context.Background(), CreateTicketInput{
		APIKey: "key-1",
		Text:   "вопрос",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	closed, err := f.svc.Close(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.IsClosed || closed.Status != models.StatusClosed || closed.ClosedAt == nil {
		t.Errorf("close state wrong: %+v", closed)
	}

	msgs, _ := f.messages.ListByTicket(context.Background(), tk.ID)
	var farewell *models.ChatMessage
	for i := range msgs {
		if msgs[i].SenderName == FarewellSender {
			farewell = &msgs[i]
		}
	}
	if farewell == nil {
		t.Fatal("farewell message not found")
	}
	if farewell.SenderRole != models.SenderOperator || farewell.Body != FarewellText {
		t.Errorf("farewell = %+v", farewell)
	}

	// Second close is a no-op, no duplicate farewell.
	if _, err := f.svc.Close(context.Background(), tk.ID); err != nil {
		t.Fatalf("second close: %v", err)
	}
	msgs, _ = f.messages.ListByTicket(context.Background(), tk.ID)
	count := 0
	for _, m := range msgs {
		if m.Body == FarewellText {
			count++
		}
	}
	if count != 1 {
		t.Errorf("farewell count = %d, want 1", count)
	}
}

func TestClosedTicketRejectsMessages(t *testing.T) {
	f := newPipelineFixture(t)

	tk, _ := f.svc.Create(context.Background(), CreateTicketInput{APIKey: "key-1", Text: "вопрос"})
	if _, err := f.svc.Close(context.Background(), tk.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := f.chat.SendMessage(context.Background(), tk.ID, SendMessageInput{
		SenderRole: "CLIENT",
		Text:       "алло?",
	})
	if !utils.IsCode(err, utils.CodeConflict) {
		t.Errorf("error = %v, want CONFLICT", err)
	}
}

func TestDeleteTicket_ClosesFirst(t *testing.T) {
	f := newPipelineFixture(t)

	tk, _ := f.svc.Create(context.Background(), CreateTicketInput{APIKey: "key-1", Text: "вопрос"})
	if err := f.svc.Delete(context.Background(), tk.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), tk.ID); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("get after delete = %v, want NOT_FOUND", err)
	}
}

func TestUpdateStatus_Validation(t *testing.T) {
	f := newPipelineFixture(t)
	tk, _ := f.svc.Create(context.Background(), CreateTicketInput{APIKey: "key-1", Text: "вопрос"})

	if _, err := f.svc.UpdateStatus(context.Background(), tk.ID, "ARCHIVED"); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("error = %v, want INVALID_ARGUMENT", err)
	}

	updated, err := f.svc.UpdateStatus(context.Background(), tk.ID, "new")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != models.StatusNew {
		t.Errorf("status = %v, want NEW", updated.Status)
	}
}

func TestActiveBySession(t *testing.T) {
	f := newPipelineFixture(t)

	tk, _ := f.svc.Create(context.Background(), CreateTicketInput{
		APIKey:    "key-1",
		SessionID: "sess-1",
		Text:      "вопрос",
	})

	got, err := f.svc.ActiveBySession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("active by session: %v", err)
	}
	if got.ID != tk.ID {
		t.Errorf("ticket = %q, want %q", got.ID, tk.ID)
	}

	if _, err := f.svc.Close(context.Background(), tk.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f.svc.ActiveBySession(context.Background(), "sess-1"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND for closed ticket", err)
	}
}
