// Package notify propagates document lifecycle events to subscribed
// owners over redis pub/sub. Delivery is at-most-once with no replay: a
// subscriber that drops its connection loses the gap and reconciles by
// re-fetching current state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/logger"
	"github.com/mikobrno/pdfkar/internal/model"
)

type Notifier struct {
	client  *redis.Client
	prefix  string
	bufSize int
	log     zerolog.Logger
}

func NewNotifier(redisClient *RedisClient, cfg *config.Config) *Notifier {
	return &Notifier{
		client:  redisClient.Client(),
		prefix:  cfg.Redis.EventChannel,
		bufSize: cfg.Redis.EventBufferSz,
		log:     logger.Get(),
	}
}

func (n *Notifier) channel(ownerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", n.prefix, ownerID)
}

// Publish pushes one event to the owner's channel. Best-effort: an error
// is returned for logging but callers are expected to swallow it.
func (n *Notifier) Publish(ctx context.Context, ownerID uuid.UUID, event model.DocumentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel(ownerID), data).Err()
}

// Subscription is one owner's live event sequence. Closing it releases
// all resources; it has no effect on documents or jobs.
type Subscription struct {
	C      <-chan model.DocumentEvent
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func (s *Subscription) Close() error {
	s.cancel()
	return s.pubsub.Close()
}

// Subscribe opens a live event stream for one owner. Events published
// while the receiver is not keeping up are dropped, never buffered
// unboundedly.
func (n *Notifier) Subscribe(ctx context.Context, ownerID uuid.UUID) (*Subscription, error) {
	pubsub := n.client.Subscribe(ctx, n.channel(ownerID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan model.DocumentEvent, n.bufSize)
	sub := &Subscription{C: out, pubsub: pubsub, cancel: cancel}

	go func() {
		defer close(out)
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				var event model.DocumentEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					n.log.Warn().Err(err).Str("owner_id", ownerID.String()).Msg("Dropping malformed event")
					continue
				}
				select {
				case out <- event:
				default:
					n.log.Warn().Str("owner_id", ownerID.String()).Msg("Subscriber lagging, event dropped")
				}
			}
		}
	}()

	return sub, nil
}
