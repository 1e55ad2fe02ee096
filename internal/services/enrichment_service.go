package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/providers/llm"
)

// Enrichment is the AI-derived metadata for a ticket's canonical text.
type Enrichment struct {
	Summary        string
	Sentiment      models.Sentiment
	SentimentScore float64
	Priority       models.Priority
}

// Enricher derives summary, sentiment and priority from canonical text. It
// never fails: every degraded branch falls back to a fixed value.
type Enricher interface {
	Enrich(ctx context.Context, text string) Enrichment
}

type enricher struct {
	llm      llm.Provider
	timeouts AITimeouts
	log      *logrus.Logger
}

func NewEnricher(p llm.Provider, timeouts AITimeouts, log *logrus.Logger) Enricher {
	return &enricher{llm: p, timeouts: timeouts, log: log}
}

func (e *enricher) Enrich(ctx context.Context, text string) Enrichment {
	summary := e.summarize(ctx, text)
	sentiment := e.classifySentiment(ctx, text)

	return Enrichment{
		Summary:        summary,
		Sentiment:      sentiment,
		SentimentScore: SentimentScore(sentiment),
		Priority:       DeterminePriority(sentiment, text),
	}
}

func (e *enricher) summarize(ctx context.Context, text string) string {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Generate)
	defer cancel()

	prompt := fmt.Sprintf(
		"Кратко резюмируй следующий текст обращения клиента в 2-3 предложениях:\n\n%s", text)

	out, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		e.log.WithError(err).Warn("enrich: summary generation failed")
		return DegradedSummary
	}
	return strings.TrimSpace(out)
}

func (e *enricher) classifySentiment(ctx context.Context, text string) models.Sentiment {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Generate)
	defer cancel()

	prompt := fmt.Sprintf(
		"Определи тональность следующего обращения клиента (positive/neutral/negative):\n\n%s\n\n"+
			"Ответь одним словом: positive, neutral или negative", text)

	out, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		e.log.WithError(err).Warn("enrich: sentiment classification failed")
		return models.SentimentNeutral
	}
	return MatchSentiment(out)
}

// sentimentKeywords maps free-text model output to a sentiment class.
// Ordered; first match wins. Unmatched output stays NEUTRAL.
var sentimentKeywords = []struct {
	keyword string
	outcome models.Sentiment
}{
	{"positive", models.SentimentPositive},
	{"позитивный", models.SentimentPositive},
	{"negative", models.SentimentNegative},
	{"негативный", models.SentimentNegative},
	{"neutral", models.SentimentNeutral},
	{"нейтральный", models.SentimentNeutral},
}

func MatchSentiment(raw string) models.Sentiment {
	lower := strings.ToLower(raw)
	for _, e := range sentimentKeywords {
		if strings.Contains(lower, e.keyword) {
			return e.outcome
		}
	}
	return models.SentimentNeutral
}

// SentimentScore is a deterministic mapping from class to score; scores are
// never model-derived.
func SentimentScore(s models.Sentiment) float64 {
	switch s {
	case models.SentimentPositive:
		return 0.8
	case models.SentimentNegative:
		return -0.8
	default:
		return 0.0
	}
}

// Priority rule tables. Urgency keywords always dominate sentiment; the rule
// order below must not be reshuffled.
var (
	urgentKeywords    = []string{"urgent", "срочно", "critical", "критично", "не работает", "broken"}
	importantKeywords = []string{"важно", "important"}
)

func DeterminePriority(sentiment models.Sentiment, text string) models.Priority {
	lower := strings.ToLower(text)

	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return models.PriorityCritical
		}
	}

	if sentiment == models.SentimentNegative {
		return models.PriorityHigh
	}

	for _, kw := range importantKeywords {
		if strings.Contains(lower, kw) {
			return models.PriorityMedium
		}
	}

	return models.PriorityLow
}
