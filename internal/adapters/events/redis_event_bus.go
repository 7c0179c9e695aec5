package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/serviceportal/internal/domain/entities"
	"github.com/zatekoja/serviceportal/internal/domain/providers"
	redisclient "github.com/zatekoja/serviceportal/internal/infrastructure/clients/redis"
)

// relay owns one Redis subscription and the local subscribers fed from it
type relay struct {
	pubsub      *redis.PubSub
	subscribers map[chan *entities.RequestEvent]struct{}
}

// RedisEventBus implements EventBus over Redis Pub/Sub so that every API
// instance sees requests submitted through any other instance. Each channel
// has at most one Redis subscription, shared by all local subscribers.
type RedisEventBus struct {
	client *redisclient.Client

	mu     sync.Mutex
	relays map[string]*relay
	closed bool
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	return &RedisEventBus{
		client: client,
		relays: make(map[string]*relay),
	}
}

// Publish sends the event to every instance subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.RequestEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Published request event")
	return nil
}

// Subscribe returns a channel of events published after the call returns. The
// channel is closed when ctx is done or the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RequestEvent, error) {
	eventChan := make(chan *entities.RequestEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(eventChan)
		return eventChan, nil
	}
	if r, ok := b.relays[channel]; ok {
		b.attach(ctx, channel, r, eventChan)
		b.mu.Unlock()
		return eventChan, nil
	}
	b.mu.Unlock()

	// The round trip to Redis happens without the lock so other channels keep flowing.
	// Wait for the confirmation so nothing published after Subscribe is missed.
	pubsub := b.client.Client().Subscribe(context.Background(), channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = pubsub.Close()
		close(eventChan)
		return eventChan, nil
	}
	r, ok := b.relays[channel]
	if !ok {
		r = &relay{pubsub: pubsub, subscribers: make(map[chan *entities.RequestEvent]struct{})}
		b.relays[channel] = r
		go b.fanOut(channel, r)
	}
	b.attach(ctx, channel, r, eventChan)
	b.mu.Unlock()

	// a concurrent Subscribe installed its relay first
	if r.pubsub != pubsub {
		_ = pubsub.Close()
	}
	return eventChan, nil
}

// attach must be called with mu held
func (b *RedisEventBus) attach(ctx context.Context, channel string, r *relay, eventChan chan *entities.RequestEvent) {
	r.subscribers[eventChan] = struct{}{}
	log.Info().Str("channel", channel).Int("subscribers", len(r.subscribers)).Msg("Subscribed to channel")

	go func() {
		<-ctx.Done()
		b.unsubscribe(channel, r, eventChan)
	}()
}

// fanOut runs until the relay's Redis subscription is closed
func (b *RedisEventBus) fanOut(channel string, r *relay) {
	for msg := range r.pubsub.Channel() {
		var event entities.RequestEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("Failed to unmarshal event")
			continue
		}

		b.mu.Lock()
		for subscriber := range r.subscribers {
			select {
			case subscriber <- &event:
			default:
				log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
			}
		}
		b.mu.Unlock()
	}
}

func (b *RedisEventBus) unsubscribe(channel string, r *relay, eventChan chan *entities.RequestEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := r.subscribers[eventChan]; !ok {
		return
	}
	delete(r.subscribers, eventChan)
	close(eventChan)

	if len(r.subscribers) > 0 {
		return
	}
	if b.relays[channel] == r {
		delete(b.relays, channel)
	}
	if err := r.pubsub.Close(); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Failed to close subscription")
	}
	log.Info().Str("channel", channel).Msg("Closed subscription")
}

// Close ends every subscription and closes all subscriber channels
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for channel, r := range b.relays {
		for subscriber := range r.subscribers {
			close(subscriber)
		}
		r.subscribers = nil
		if err := r.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing subscription %s: %w", channel, err))
		}
	}
	b.relays = make(map[string]*relay)

	log.Info().Msg("Event bus closed")
	return errors.Join(errs...)
}
