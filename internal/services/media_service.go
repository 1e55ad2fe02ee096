package services

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nikzan/Multimodal-Support-System/internal/providers/llm"
	"github.com/nikzan/Multimodal-Support-System/internal/providers/stt"
	"github.com/nikzan/Multimodal-Support-System/internal/storage"
)

// minSpeechBytes: payloads at or below this are non-speech noise (a click on
// the record button); transcription is skipped silently.
const minSpeechBytes = 1024

const captionInstruction = "Опиши что изображено на этой картинке. Это скриншот или фото проблемы пользователя."

type NormalizeInput struct {
	Text        string
	AudioBase64 string
	ImageBase64 string
	Language    string
}

// NormalizedContent carries the canonical text plus side-channel annotations.
// The image caption stays out of CanonicalText so it never leaks into
// sentiment or priority analysis.
type NormalizedContent struct {
	CanonicalText string
	Transcript    string
	ImageCaption  string
	AudioPath     string
	ImagePath     string
}

// MediaNormalizer turns raw request payloads into canonical text plus
// annotations. Every branch is best-effort: normalization never fails.
type MediaNormalizer interface {
	Normalize(ctx context.Context, in NormalizeInput) NormalizedContent
}

type mediaNormalizer struct {
	stt      stt.Provider
	llm      llm.Provider
	store    storage.ObjectStore
	timeouts AITimeouts
	log      *logrus.Logger
}

func NewMediaNormalizer(sttProvider stt.Provider, llmProvider llm.Provider, store storage.ObjectStore, timeouts AITimeouts, log *logrus.Logger) MediaNormalizer {
	return &mediaNormalizer{stt: sttProvider, llm: llmProvider, store: store, timeouts: timeouts, log: log}
}

func (n *mediaNormalizer) Normalize(ctx context.Context, in NormalizeInput) NormalizedContent {
	var out NormalizedContent

	audio := decodePayload(in.AudioBase64, n.log)
	image := decodePayload(in.ImageBase64, n.log)

	// The audio and image branches depend on different services and run
	// concurrently; each writes only its own fields.
	var wg sync.WaitGroup

	if len(audio) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.AudioPath, out.Transcript = n.processAudio(ctx, audio, in.Language)
		}()
	}

	if len(image) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.ImagePath, out.ImageCaption = n.processImage(ctx, image)
		}()
	}

	wg.Wait()

	out.CanonicalText = strings.TrimSpace(strings.TrimSpace(in.Text) + " " + out.Transcript)
	return out
}

// processAudio stores the raw payload first so a reference survives a failed
// transcription, then transcribes only payloads large enough to contain
// speech (strictly above the threshold).
func (n *mediaNormalizer) processAudio(ctx context.Context, audio []byte, language string) (path, transcript string) {
	path, err := n.store.Put(ctx, audio, "audio", "audio/webm")
	if err != nil {
		n.log.WithError(err).Warn("normalize: audio upload failed")
	}

	if len(audio) <= minSpeechBytes {
		n.log.WithField("bytes", len(audio)).Debug("normalize: audio too small for transcription")
		return path, ""
	}

	sttCtx, cancel := context.WithTimeout(ctx, n.timeouts.Transcribe)
	defer cancel()

	text, conf, err := n.stt.Transcribe(sttCtx, audio, language)
	if err != nil {
		n.log.WithError(err).Warn("normalize: transcription failed, continuing without transcript")
		return path, ""
	}

	text = strings.TrimSpace(text)
	if text != "" {
		n.log.WithFields(logrus.Fields{"bytes": len(audio), "chars": len(text), "confidence": conf}).
			Info("normalize: audio transcribed")
	}
	return path, text
}

func (n *mediaNormalizer) processImage(ctx context.Context, image []byte) (path, caption string) {
	path, err := n.store.Put(ctx, image, "images", http.DetectContentType(image))
	if err != nil {
		n.log.WithError(err).Warn("normalize: image upload failed")
	}

	capCtx, cancel := context.WithTimeout(ctx, n.timeouts.Caption)
	defer cancel()

	caption, err = n.llm.Caption(capCtx, image, captionInstruction)
	if err != nil {
		n.log.WithError(err).Warn("normalize: captioning failed, continuing without caption")
		return path, ""
	}
	return path, strings.TrimSpace(caption)
}

// decodePayload strips a data:...;base64, prefix if present and decodes.
// Malformed input is treated as absent.
func decodePayload(b64 string, log *logrus.Logger) []byte {
	raw := strings.TrimSpace(b64)
	if raw == "" {
		return nil
	}
	if i := strings.Index(raw, ","); i >= 0 && strings.Contains(raw[:i], ";base64") {
		raw = raw[i+1:]
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.WithError(err).Warn("normalize: base64 decode failed")
		return nil
	}
	return decoded
}
