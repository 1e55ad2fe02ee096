package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nikzan/Multimodal-Support-System/internal/notify"
	"github.com/nikzan/Multimodal-Support-System/internal/services"
)

// RedisRefreshQueue feeds ticket ids to the worker pool through a redis
// stream, so a burst of client messages does not serialize suggestion
// regeneration behind a single goroutine.
type RedisRefreshQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q *RedisRefreshQueue) Enqueue(ctx context.Context, ticketID string) error {
	stream := q.Stream
	if stream == "" {
		stream = DefaultRefreshStream
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"ticket_id": ticketID},
	}).Err()
}

const (
	DefaultRefreshStream = "suggestions:refresh"
	DefaultRefreshGroup  = "suggestion-workers"
)

// RefreshWorkerPool consumes refresh requests and regenerates suggested
// answers off the request path. Multiple requests for the same ticket may
// collapse into regenerations over the same accumulator snapshot, which is
// harmless.
type RefreshWorkerPool struct {
	Redis      *redis.Client
	Bucket     services.BucketService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *RefreshWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Bucket == nil {
		return errors.New("RefreshWorkerPool missing dependency: Redis/Bucket must be set")
	}
	if p.Stream == "" {
		p.Stream = DefaultRefreshStream
	}
	if p.Group == "" {
		p.Group = DefaultRefreshGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *RefreshWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *RefreshWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	ticketID, _ := msg.Values["ticket_id"].(string)
	if ticketID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":  msg.ID,
		"ticket_id": ticketID,
	})

	sugg, err := p.Bucket.Regenerate(ctx, ticketID)
	if err != nil {
		log.WithError(err).Error("refresh: regeneration failed")
		return
	}

	// An empty accumulator means an operator already replied between the
	// enqueue and now; nothing to push.
	if sugg.Answer == services.NothingNew {
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"type":              "suggestion",
		"ticket_id":         ticketID,
		"answer":            sugg.Answer,
		"messages_count":    sugg.MessagesCount,
		"is_first_response": sugg.IsFirstResponse,
		"generated_at":      sugg.GeneratedAt,
	})
	_ = p.Redis.Publish(ctx, notify.SuggestionTopic(ticketID), string(payload)).Err()

	log.WithField("messages_count", sugg.MessagesCount).Info("refresh: suggestion published")
}
