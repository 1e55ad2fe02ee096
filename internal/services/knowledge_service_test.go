package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/testutil"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

func newKnowledgeFixture(t *testing.T, embedder *testutil.MockEmbedder) (KnowledgeService, *testutil.MockKnowledgeRepo) {
	t.Helper()
	repo := testutil.NewMockKnowledgeRepo()
	suggester := NewSuggester(embedder, &testutil.MockLLM{}, repo, DefaultTopK, DefaultAITimeouts(), testLogger())
	return NewKnowledgeService(repo, suggester, testLogger()), repo
}

func TestKnowledgeCreate_EmbedsBeforeWrite(t *testing.T) {
	embedder := &testutil.MockEmbedder{}
	svc, repo := newKnowledgeFixture(t, embedder)

	entry, err := svc.Create(context.Background(), "tenant-1", KnowledgeEntryInput{
		Title:   "Оплата",
		Content: "Оплатить можно картой.",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if embedder.Calls != 1 {
		t.Errorf("embed calls = %d, want 1", embedder.Calls)
	}
	stored, _ := repo.GetByID(context.Background(), entry.ID)
	if len(stored.Embedding.Slice()) != models.EmbeddingDims {
		t.Errorf("embedding dims = %d, want %d", len(stored.Embedding.Slice()), models.EmbeddingDims)
	}
}

func TestKnowledgeCreate_EmbedFailureAborts(t *testing.T) {
	embedder := &testutil.MockEmbedder{Err: errors.New("quota")}
	svc, repo := newKnowledgeFixture(t, embedder)

	_, err := svc.Create(context.Background(), "tenant-1", KnowledgeEntryInput{
		Title:   "Оплата",
		Content: "Текст",
	})
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Errorf("error = %v, want UNAVAILABLE", err)
	}
	if len(repo.Entries) != 0 {
		t.Error("entry stored despite embed failure")
	}
}

func TestKnowledgeUpdate_ReEmbeds(t *testing.T) {
	embedder := &testutil.MockEmbedder{}
	svc, _ := newKnowledgeFixture(t, embedder)

	entry, err := svc.Create(context.Background(), "tenant-1", KnowledgeEntryInput{
		Title:   "Оплата",
		Content: "Старый текст",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(context.Background(), "tenant-1", entry.ID, KnowledgeEntryInput{
		Title:   "Оплата",
		Content: "Новый текст",
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if embedder.Calls != 2 {
		t.Errorf("embed calls = %d, want 2 (create + update)", embedder.Calls)
	}
}

func TestKnowledgeTenantIsolation(t *testing.T) {
	svc, _ := newKnowledgeFixture(t, &testutil.MockEmbedder{})

	entry, err := svc.Create(context.Background(), "tenant-1", KnowledgeEntryInput{
		Title:   "Секрет",
		Content: "Внутренние данные",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Another tenant sees not-found, never forbidden.
	if _, err := svc.Get(context.Background(), "tenant-2", entry.ID); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("cross-tenant get = %v, want NOT_FOUND", err)
	}
	if err := svc.Delete(context.Background(), "tenant-2", entry.ID); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("cross-tenant delete = %v, want NOT_FOUND", err)
	}
}
