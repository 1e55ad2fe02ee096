package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/providers/embedding"
	"github.com/nikzan/Multimodal-Support-System/internal/providers/llm"
	pgrepo "github.com/nikzan/Multimodal-Support-System/internal/repositories/postgres"
	"github.com/nikzan/Multimodal-Support-System/internal/utils"
)

// DefaultTopK bounds the grounded context to the k nearest entries. There is
// no separate length cap beyond k.
const DefaultTopK = 3

// Suggester produces a grounded suggested answer from the tenant's knowledge
// base. SuggestAnswer never fails: degraded branches return fixed sentinels.
type Suggester interface {
	SuggestAnswer(ctx context.Context, tenantID, query string, isFirstResponse bool) string
	EmbedText(ctx context.Context, text string) (pgvector.Vector, error)
	Nearest(ctx context.Context, tenantID string, vec pgvector.Vector, k int) ([]models.KnowledgeEntry, error)
}

type suggester struct {
	embedder  embedding.Provider
	llm       llm.Provider
	knowledge pgrepo.KnowledgeRepo
	topK      int
	timeouts  AITimeouts
	log       *logrus.Logger
}

func NewSuggester(e embedding.Provider, p llm.Provider, knowledge pgrepo.KnowledgeRepo, topK int, timeouts AITimeouts, log *logrus.Logger) Suggester {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &suggester{embedder: e, llm: p, knowledge: knowledge, topK: topK, timeouts: timeouts, log: log}
}

func (s *suggester) EmbedText(ctx context.Context, text string) (pgvector.Vector, error) {
	const op = "Suggester.EmbedText"

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Embed)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, utils.E(utils.CodeUnavailable, op, "embedding call failed", err)
	}
	return pgvector.NewVector(vec), nil
}

// Nearest rejects a dimensionality mismatch against stored vectors outright:
// truncating or padding would silently corrupt the ranking.
func (s *suggester) Nearest(ctx context.Context, tenantID string, vec pgvector.Vector, k int) ([]models.KnowledgeEntry, error) {
	const op = "Suggester.Nearest"

	if got := len(vec.Slice()); got != models.EmbeddingDims {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("embedding dimensionality mismatch: got %d, want %d", got, models.EmbeddingDims), nil)
	}

	entries, err := s.knowledge.NearestByVector(ctx, tenantID, vec, k)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "vector query failed", err)
	}
	return entries, nil
}

func (s *suggester) SuggestAnswer(ctx context.Context, tenantID, query string, isFirstResponse bool) string {
	log := s.log.WithFields(logrus.Fields{"tenant_id": tenantID, "first_response": isFirstResponse})

	vec, err := s.EmbedText(ctx, query)
	if err != nil {
		log.WithError(err).Error("suggest: embedding failed")
		return SuggestionFailed
	}

	entries, err := s.Nearest(ctx, tenantID, vec, s.topK)
	if err != nil {
		log.WithError(err).Error("suggest: retrieval failed")
		return SuggestionFailed
	}

	// Empty knowledge base: deterministic sentinel, no generation call.
	if len(entries) == 0 {
		return NoAnswerFound
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeouts.Generate)
	defer cancel()

	answer, err := s.llm.Generate(genCtx, buildGroundedPrompt(entries, query, isFirstResponse))
	if err != nil {
		log.WithError(err).Error("suggest: generation failed")
		return SuggestionFailed
	}
	return strings.TrimSpace(answer)
}

// buildGroundedPrompt constrains the model to the retrieved context: no
// fabrication, fixed no-information phrase, polite professional tone, and a
// greeting only on the first response.
func buildGroundedPrompt(entries []models.KnowledgeEntry, query string, isFirstResponse bool) string {
	var context strings.Builder
	for _, e := range entries {
		context.WriteString(e.Title)
		context.WriteString(": ")
		context.WriteString(e.Content)
		context.WriteString("\n\n")
	}

	greeting := "- НЕ используй приветствие, так как это продолжение диалога\n"
	if isFirstResponse {
		greeting = "- Начни ответ с вежливого приветствия\n"
	}

	return fmt.Sprintf(
		"Ты - ассистент службы поддержки. Используй ТОЛЬКО информацию из базы знаний ниже для ответа.\n\n"+
			"База знаний:\n%s\n\n"+
			"Вопрос клиента: %s\n\n"+
			"ВАЖНО:\n"+
			"- Отвечай ТОЛЬКО на основе предоставленной информации\n"+
			"- Если в базе знаний НЕТ точного ответа на вопрос, скажи: '%s'\n"+
			"- НЕ додумывай и НЕ добавляй информацию, которой нет в базе знаний\n"+
			"- Будь точным, очень вежливым и тактичным\n"+
			"- Используй дружелюбный и профессиональный тон общения\n"+
			"%s"+
			"Ответ:",
		context.String(), query, NoInformationPhrase, greeting,
	)
}
