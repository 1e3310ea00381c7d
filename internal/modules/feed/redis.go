// README: Booking feed over Redis pub/sub.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campusride/internal/modules/booking"
)

type Publisher struct {
	redis   *redis.Client
	channel string
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{redis: client, channel: channel}
}

// Publish satisfies booking.Notifier.
func (p *Publisher) Publish(ctx context.Context, e booking.Event, b *booking.Booking) error {
	payload, err := json.Marshal(NewMessage(e, b))
	if err != nil {
		return fmt.Errorf("encode feed message: %w", err)
	}
	return p.redis.Publish(ctx, p.channel, payload).Err()
}

type Subscriber struct {
	redis   *redis.Client
	channel string
	log     *zap.Logger
}

func NewSubscriber(client *redis.Client, channel string, log *zap.Logger) *Subscriber {
	if log == nil {
		log = zap.NewNop()
	}
	return &Subscriber{redis: client, channel: channel, log: log}
}

// Subscribe streams decoded messages until ctx is done. The returned channel
// is closed when the subscription ends.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan Message, error) {
	ps := s.redis.Subscribe(ctx, s.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	out := make(chan Message, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-in:
				if !ok {
					return
				}
				var m Message
				if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
					s.log.Warn("drop malformed feed message", zap.Error(err))
					continue
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
