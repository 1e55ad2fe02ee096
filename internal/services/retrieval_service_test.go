package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/testutil"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

func TestSuggestAnswer_EmptyKnowledgeBase(t *testing.T) {
	mockLLM := &testutil.MockLLM{GenerateOut: "should never be used"}
	knowledge := testutil.NewMockKnowledgeRepo()
	s := NewSuggester(&testutil.MockEmbedder{}, mockLLM, knowledge, DefaultTopK, DefaultAITimeouts(), testLogger())

	got := s.SuggestAnswer(context.Background(), "tenant-1", "как оплатить?", true)

	if got != NoAnswerFound {
		t.Fatalf("answer = %q, want empty-KB sentinel", got)
	}
	// Empty retrieval must short-circuit before generation.
	if mockLLM.Generations() != 0 {
		t.Errorf("generate calls = %d, want 0", mockLLM.Generations())
	}
}

func TestSuggestAnswer_EmbeddingFailure(t *testing.T) {
	embedder := &testutil.MockEmbedder{Err: errors.New("quota exceeded")}
	s := NewSuggester(embedder, &testutil.MockLLM{}, testutil.NewMockKnowledgeRepo(), DefaultTopK, DefaultAITimeouts(), testLogger())

	if got := s.SuggestAnswer(context.Background(), "tenant-1", "вопрос", false); got != SuggestionFailed {
		t.Errorf("answer = %q, want failure sentinel", got)
	}
}

func TestSuggestAnswer_GenerationFailure(t *testing.T) {
	knowledge := testutil.NewMockKnowledgeRepo()
	knowledge.NearestEntries = []models.KnowledgeEntry{{Title: "Оплата", Content: "Оплатить можно картой."}}
	mockLLM := &testutil.MockLLM{GenerateErr: errors.New("timeout")}
	s := NewSuggester(&testutil.MockEmbedder{}, mockLLM, knowledge, DefaultTopK, DefaultAITimeouts(), testLogger())

	if got := s.SuggestAnswer(context.Background(), "tenant-1", "вопрос", false); got != SuggestionFailed {
		t.Errorf("answer = %q, want failure sentinel", got)
	}
}

func TestSuggestAnswer_GroundedPrompt(t *testing.T) {
	knowledge := testutil.NewMockKnowledgeRepo()
	knowledge.NearestEntries = []models.KnowledgeEntry{
		{Title: "Оплата", Content: "Оплатить можно картой."},
		{Title: "Возврат", Content: "Возврат в течение 14 дней."},
	}
	mockLLM := &testutil.MockLLM{GenerateOut: "Оплатить можно картой."}
	s := NewSuggester(&testutil.MockEmbedder{}, mockLLM, knowledge, DefaultTopK, DefaultAITimeouts(), testLogger())

	got := s.SuggestAnswer(context.Background(), "tenant-1", "как оплатить?", true)
	if got != "Оплатить можно картой." {
		t.Fatalf("answer = %q", got)
	}

	prompt := mockLLM.LastPrompt()
	if !strings.Contains(prompt, "Оплата: Оплатить можно картой.") {
		t.Errorf("prompt missing retrieved context:\n%s", prompt)
	}
	if !strings.Contains(prompt, NoInformationPhrase) {
		t.Errorf("prompt missing no-information instruction")
	}
	if !strings.Contains(prompt, "вежливого приветствия") {
		t.Errorf("first-response prompt missing greeting instruction")
	}

	// Retrieval is tenant-scoped and capped at top-k.
	if knowledge.LastTenantID != "tenant-1" {
		t.Errorf("tenant = %q, want tenant-1", knowledge.LastTenantID)
	}
	if knowledge.LastNearestK != DefaultTopK {
		t.Errorf("k = %d, want %d", knowledge.LastNearestK, DefaultTopK)
	}
}

func TestSuggestAnswer_FollowUpSkipsGreeting(t *testing.T) {
	knowledge := testutil.NewMockKnowledgeRepo()
	knowledge.NearestEntries = []models.KnowledgeEntry{{Title: "A", Content: "B"}}
	mockLLM := &testutil.MockLLM{GenerateOut: "ответ"}
	s := NewSuggester(&testutil.MockEmbedder{}, mockLLM, knowledge, DefaultTopK, DefaultAITimeouts(), testLogger())

	s.SuggestAnswer(context.Background(), "tenant-1", "ещё вопрос", false)

	if !strings.Contains(mockLLM.LastPrompt(), "НЕ используй приветствие") {
		t.Errorf("follow-up prompt should suppress greeting:\n%s", mockLLM.LastPrompt())
	}
}

func TestNearest_DimensionMismatch(t *testing.T) {
	s := NewSuggester(&testutil.MockEmbedder{}, &testutil.MockLLM{}, testutil.NewMockKnowledgeRepo(), DefaultTopK, DefaultAITimeouts(), testLogger())

	_, err := s.Nearest(context.Background(), "tenant-1", pgvector.NewVector(make([]float32, 12)), DefaultTopK)
	if err == nil {
		t.Fatal("expected error for wrong dimensionality")
	}
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("error code = %v, want INVALID_ARGUMENT", err)
	}
}
