package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/nikzan/Multimodal-Support-System/internal/testutil"
)

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestNormalize_TinyAudioSkipsTranscription(t *testing.T) {
	mockSTT := &testutil.MockSTT{Text: "should not run"}
	store := &testutil.MockObjectStore{}
	n := NewMediaNormalizer(mockSTT, &testutil.MockLLM{}, store, DefaultAITimeouts(), testLogger())

	// 10 bytes: a stray click on the record button, not speech.
	out := n.Normalize(context.Background(), NormalizeInput{
		Text:        "помогите",
		AudioBase64: b64(make([]byte, 10)),
	})

	if mockSTT.Transcriptions() != 0 {
		t.Errorf("transcribe calls = %d, want 0", mockSTT.Transcriptions())
	}
	if out.Transcript != "" {
		t.Errorf("transcript = %q, want empty", out.Transcript)
	}
	// The payload is still stored; only transcription is skipped.
	if out.AudioPath == "" {
		t.Error("audio path empty, payload should be stored")
	}
	if out.CanonicalText != "помогите" {
		t.Errorf("canonical = %q", out.CanonicalText)
	}
}

func TestNormalize_AudioThresholdBoundary(t *testing.T) {
	mockSTT := &testutil.MockSTT{Text: "речь"}
	n := NewMediaNormalizer(mockSTT, &testutil.MockLLM{}, &testutil.MockObjectStore{}, DefaultAITimeouts(), testLogger())

	// Exactly at the threshold: still skipped.
	n.Normalize(context.Background(), NormalizeInput{
		AudioBase64: b64(make([]byte, minSpeechBytes)),
	})
	if mockSTT.Transcriptions() != 0 {
		t.Errorf("transcribe calls = %d, want 0 at exactly %d bytes", mockSTT.Transcriptions(), minSpeechBytes)
	}

	// One byte above: transcribed.
	out := n.Normalize(context.Background(), NormalizeInput{
		AudioBase64: b64(make([]byte, minSpeechBytes+1)),
	})
	if mockSTT.Transcriptions() != 1 {
		t.Errorf("transcribe calls = %d, want 1 above the threshold", mockSTT.Transcriptions())
	}
	if out.Transcript != "речь" {
		t.Errorf("transcript = %q", out.Transcript)
	}
}

func TestNormalize_AudioTranscriptJoinsCanonicalText(t *testing.T) {
	mockSTT := &testutil.MockSTT{Text: "не приходит код", Conf: 0.92}
	n := NewMediaNormalizer(mockSTT, &testutil.MockLLM{}, &testutil.MockObjectStore{}, DefaultAITimeouts(), testLogger())

	out := n.Normalize(context.Background(), NormalizeInput{
		Text:        "Проблема с входом.",
		AudioBase64: b64(make([]byte, 4096)),
	})

	if mockSTT.Transcriptions() != 1 {
		t.Fatalf("transcribe calls = %d, want 1", mockSTT.Transcriptions())
	}
	if out.Transcript != "не приходит код" {
		t.Errorf("transcript = %q", out.Transcript)
	}
	if out.CanonicalText != "Проблема с входом. не приходит код" {
		t.Errorf("canonical = %q", out.CanonicalText)
	}
}

func TestNormalize_CaptionStaysOutOfCanonicalText(t *testing.T) {
	mockLLM := &testutil.MockLLM{CaptionOut: "скриншот с ошибкой 500"}
	n := NewMediaNormalizer(&testutil.MockSTT{}, mockLLM, &testutil.MockObjectStore{}, DefaultAITimeouts(), testLogger())

	out := n.Normalize(context.Background(), NormalizeInput{
		Text:        "вот скриншот",
		ImageBase64: b64([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}),
	})

	if out.ImageCaption != "скриншот с ошибкой 500" {
		t.Errorf("caption = %q", out.ImageCaption)
	}
	if strings.Contains(out.CanonicalText, "скриншот с ошибкой") {
		t.Errorf("caption leaked into canonical text: %q", out.CanonicalText)
	}
	if out.ImagePath == "" {
		t.Error("image path empty, payload should be stored")
	}
}

func TestNormalize_TranscriptionFailureTolerated(t *testing.T) {
	mockSTT := &testutil.MockSTT{Err: errors.New("stt down")}
	n := NewMediaNormalizer(mockSTT, &testutil.MockLLM{}, &testutil.MockObjectStore{}, DefaultAITimeouts(), testLogger())

	out := n.Normalize(context.Background(), NormalizeInput{
		Text:        "аудио во вложении",
		AudioBase64: b64(make([]byte, 4096)),
	})

	if out.Transcript != "" {
		t.Errorf("transcript = %q, want empty", out.Transcript)
	}
	if out.CanonicalText != "аудио во вложении" {
		t.Errorf("canonical = %q", out.CanonicalText)
	}
	if out.AudioPath == "" {
		t.Error("audio still stored despite failed transcription")
	}
}

func TestNormalize_DataURIPrefix(t *testing.T) {
	mockSTT := &testutil.MockSTT{Text: "текст"}
	n := NewMediaNormalizer(mockSTT, &testutil.MockLLM{}, &testutil.MockObjectStore{}, DefaultAITimeouts(), testLogger())

	out := n.Normalize(context.Background(), NormalizeInput{
		AudioBase64: "data:audio/webm;base64," + b64(make([]byte, 2048)),
	})

	if mockSTT.Transcriptions() != 1 {
		t.Errorf("transcribe calls = %d, want 1", mockSTT.Transcriptions())
	}
	if out.CanonicalText != "текст" {
		t.Errorf("canonical = %q", out.CanonicalText)
	}
}

func TestNormalize_MalformedBase64TreatedAsAbsent(t *testing.T) {
	mockSTT := &testutil.MockSTT{Text: "x"}
	store := &testutil.MockObjectStore{}
	n := NewMediaNormalizer(mockSTT, &testutil.MockLLM{}, store, DefaultAITimeouts(), testLogger())

	out := n.Normalize(context.Background(), NormalizeInput{
		Text:        "текст",
		AudioBase64: "%%%not-base64%%%",
	})

	if mockSTT.Transcriptions() != 0 {
		t.Errorf("transcribe calls = %d, want 0", mockSTT.Transcriptions())
	}
	if out.AudioPath != "" {
		t.Errorf("audio path = %q, want empty", out.AudioPath)
	}
	if out.CanonicalText != "текст" {
		t.Errorf("canonical = %q", out.CanonicalText)
	}
}
