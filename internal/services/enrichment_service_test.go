package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/nikzan/Multimodal-Support-System/internal/models"
	"github.com/nikzan/Multimodal-Support-System/internal/testutil"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMatchSentiment(t *testing.T) {
	cases := []struct {
		raw  string
		want models.Sentiment
	}{
		{"positive", models.SentimentPositive},
		{"The sentiment is POSITIVE.", models.SentimentPositive},
		{"Тональность: позитивный", models.SentimentPositive},
		{"negative", models.SentimentNegative},
		{"негативный отзыв", models.SentimentNegative},
		{"neutral", models.SentimentNeutral},
		{"нейтральный", models.SentimentNeutral},
		{"I cannot classify this", models.SentimentNeutral},
		{"", models.SentimentNeutral},
	}
	for _, c := range cases {
		if got := MatchSentiment(c.raw); got != c.want {
			t.Errorf("MatchSentiment(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestSentimentScore(t *testing.T) {
	if got := SentimentScore(models.SentimentPositive); got != 0.8 {
		t.Errorf("positive score = %v, want 0.8", got)
	}
	if got := SentimentScore(models.SentimentNegative); got != -0.8 {
		t.Errorf("negative score = %v, want -0.8", got)
	}
	if got := SentimentScore(models.SentimentNeutral); got != 0.0 {
		t.Errorf("neutral score = %v, want 0", got)
	}
}

func TestDeterminePriority_UrgencyBeatsSentiment(t *testing.T) {
	// Urgency keywords dominate even a positive sentiment.
	got := DeterminePriority(models.SentimentPositive, "Всё отлично, но срочно нужна помощь")
	if got != models.PriorityCritical {
		t.Errorf("priority = %v, want CRITICAL", got)
	}

	got = DeterminePriority(models.SentimentNegative, "приложение не работает")
	if got != models.PriorityCritical {
		t.Errorf("priority = %v, want CRITICAL", got)
	}
}

func TestDeterminePriority_Ladder(t *testing.T) {
	if got := DeterminePriority(models.SentimentNegative, "очень разочарован сервисом"); got != models.PriorityHigh {
		t.Errorf("negative priority = %v, want HIGH", got)
	}
	if got := DeterminePriority(models.SentimentNeutral, "это важно для нашей команды"); got != models.PriorityMedium {
		t.Errorf("important priority = %v, want MEDIUM", got)
	}
	if got := DeterminePriority(models.SentimentNeutral, "как сменить пароль?"); got != models.PriorityLow {
		t.Errorf("default priority = %v, want LOW", got)
	}
}

func TestDeterminePriority_CaseInsensitive(t *testing.T) {
	if got := DeterminePriority(models.SentimentNeutral, "URGENT: server down"); got != models.PriorityCritical {
		t.Errorf("priority = %v, want CRITICAL", got)
	}
}

func TestEnrich_DegradedSummary(t *testing.T) {
	mockLLM := &testutil.MockLLM{GenerateErr: errors.New("model unavailable")}
	e := NewEnricher(mockLLM, DefaultAITimeouts(), testLogger())

	out := e.Enrich(context.Background(), "не могу войти в аккаунт")

	if out.Summary != DegradedSummary {
		t.Errorf("summary = %q, want degraded sentinel", out.Summary)
	}
	// Sentiment classification also failed, so everything stays neutral.
	if out.Sentiment != models.SentimentNeutral {
		t.Errorf("sentiment = %v, want NEUTRAL", out.Sentiment)
	}
	if out.SentimentScore != 0.0 {
		t.Errorf("score = %v, want 0", out.SentimentScore)
	}
	if out.Priority != models.PriorityLow {
		t.Errorf("priority = %v, want LOW", out.Priority)
	}
}

func TestEnrich_NegativeTicket(t *testing.T) {
	mockLLM := &testutil.MockLLM{GenerateOut: "negative"}
	e := NewEnricher(mockLLM, DefaultAITimeouts(), testLogger())

	out := e.Enrich(context.Background(), "ваш сервис ужасен, ничего не получается")

	if out.Sentiment != models.SentimentNegative {
		t.Fatalf("sentiment = %v, want NEGATIVE", out.Sentiment)
	}
	if out.SentimentScore != -0.8 {
		t.Errorf("score = %v, want -0.8", out.SentimentScore)
	}
	if out.Priority != models.PriorityHigh {
		t.Errorf("priority = %v, want HIGH", out.Priority)
	}
}
