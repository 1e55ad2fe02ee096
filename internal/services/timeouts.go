package services

import (
	"os"
	"strconv"
	"time"
)

// AITimeouts are the per-call budgets for external AI services. Generation
// dominates latency, so it gets the largest budget. One attempt per call, no
// retry.
type AITimeouts struct {
	Transcribe time.Duration
	Caption    time.Duration
	Embed      time.Duration
	Generate   time.Duration
}

func DefaultAITimeouts() AITimeouts {
	return AITimeouts{
		Transcribe: 15 * time.Second,
		Caption:    20 * time.Second,
		Embed:      10 * time.Second,
		Generate:   60 * time.Second,
	}
}

// AITimeoutsFromEnv reads budgets in seconds from STT_TIMEOUT,
// CAPTION_TIMEOUT, EMBED_TIMEOUT and GENERATE_TIMEOUT.
func AITimeoutsFromEnv() AITimeouts {
	t := DefaultAITimeouts()
	t.Transcribe = envSeconds("STT_TIMEOUT", t.Transcribe)
	t.Caption = envSeconds("CAPTION_TIMEOUT", t.Caption)
	t.Embed = envSeconds("EMBED_TIMEOUT", t.Embed)
	t.Generate = envSeconds("GENERATE_TIMEOUT", t.Generate)
	return t
}

func envSeconds(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
