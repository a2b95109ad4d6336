package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/model"
)

// InstituteBroadcaster fans registry snapshots out over Redis PubSub so that
// every server process can push them to its live clients.
type InstituteBroadcaster struct {
	rdb *redis.Client
	id  string
	log zerolog.Logger
}

// NewInstituteBroadcaster creates a new InstituteBroadcaster.
func NewInstituteBroadcaster(rdb *redis.Client, log zerolog.Logger) *InstituteBroadcaster {
	return &InstituteBroadcaster{
		rdb: rdb,
		id:  uuid.New().String(),
		log: log.With().Str("component", "institute_broadcaster").Logger(),
	}
}

// InstanceID stamps every snapshot this broadcaster publishes.
func (b *InstituteBroadcaster) InstanceID() string {
	return b.id
}

// Publish sends the full list on the institutes channel.
func (b *InstituteBroadcaster) Publish(ctx context.Context, names []string) error {
	payload, err := json.Marshal(model.InstitutesSnapshot{Institutes: names, Origin: b.id})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := b.rdb.Publish(ctx, config.CacheKey.InstitutesChannel(), payload).Err(); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Subscribe returns a channel of snapshots and a function that ends the
// subscription. The channel is closed once the subscription ends or ctx is
// cancelled.
func (b *InstituteBroadcaster) Subscribe(ctx context.Context) (<-chan model.InstitutesSnapshot, func() error, error) {
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.InstitutesChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe institutes: %w", err)
	}

	out := make(chan model.InstitutesSnapshot, 8)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var snap model.InstitutesSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				b.log.Warn().Err(err).Msg("Dropping malformed institute snapshot")
				continue
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pubsub.Close, nil
}
