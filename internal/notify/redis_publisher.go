package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RedisPublisher struct {
	rdb *redis.Client
	log *logrus.Logger
}

func NewRedisPublisher(rdb *redis.Client, log *logrus.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		p.log.WithError(err).WithField("topic", topic).Warn("notify: marshal failed")
		return
	}
	if err := p.rdb.Publish(ctx, topic, b).Err(); err != nil {
		p.log.WithError(err).WithField("topic", topic).Warn("notify: publish failed")
	}
}
