// Package redisfeed carries table change notifications between processes over Redis pub/sub.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"procurement/tables"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultPrefix = "procurement:changes:"

type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

type Feed struct {
	client redis.UniversalClient
	prefix string
}

var _ tables.Feed = (*Feed)(nil)

func New(cfg Config) (*Feed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix), nil
}

func NewWithClient(client redis.UniversalClient, prefix string) *Feed {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Feed{client: client, prefix: prefix}
}

func (f *Feed) Channel(table string) string {
	return f.prefix + table
}

func (f *Feed) Publish(ctx context.Context, c tables.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	return f.client.Publish(ctx, f.Channel(c.Table), data).Err()
}

// Subscribe returns once Redis confirmed the subscription.
func (f *Feed) Subscribe(ctx context.Context, table string) (*tables.Subscription, error) {
	pubsub := f.client.Subscribe(ctx, f.Channel(table))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.Channel(table), err)
	}

	ch := make(chan tables.Change, 1)
	logger := logrus.WithField("table", table)
	go func() {
		defer close(ch)
		for msg := range pubsub.Channel() {
			var c tables.Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				logger.WithError(err).WithField("payload", msg.Payload).Warn("failed to unmarshal change")
				continue
			}
			if c.Table == "" {
				c.Table = table
			}
			tables.Offer(ch, c)
		}
	}()

	return tables.NewSubscription(ch, func() {
		if err := pubsub.Close(); err != nil {
			logger.WithError(err).Warn("failed to close subscription")
		}
	}), nil
}

func (f *Feed) Close() error {
	return f.client.Close()
}
