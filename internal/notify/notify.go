// Package notify relays word store change events between service instances
// over a Redis Pub/Sub channel, so that a write on one instance invalidates
// the word set cache on all of them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/go-ports/wordmask/internal/config"
	"github.com/go-ports/wordmask/internal/models"
)

const publishTimeout = 2 * time.Second

// NewClient returns a Redis client for cfg.
func NewClient(cfg config.NotifyConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// ---------------------------------------------------------------------------
// Publisher
// ---------------------------------------------------------------------------

// Publisher publishes local change events to the channel.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewPublisher returns a Publisher for channel.
func NewPublisher(client *redis.Client, channel string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, channel: channel, logger: logger.Named("notify")}
}

// Publish sends ev as JSON.
func (p *Publisher) Publish(ctx context.Context, ev models.ChangeEvent) error {
	b, err := ev.Marshal()
	if err != nil {
		return errors.Wrap(err, "notify.Publish: marshal")
	}
	if err := p.client.Publish(ctx, p.channel, b).Err(); err != nil {
		return errors.Wrapf(err, "notify.Publish: channel %s", p.channel)
	}
	return nil
}

// OnChange publishes ev in the background; it is meant to be registered as
// a store subscriber and never blocks the write path.
func (p *Publisher) OnChange(ev models.ChangeEvent) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			p.logger.Warn("failed to publish change notification", zap.Stringer("event", ev), zap.Error(err))
			return
		}
		p.logger.Debug("published change notification", zap.Stringer("event", ev))
	}()
}

// Wait blocks until every publish started by OnChange has finished.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// ---------------------------------------------------------------------------
// Subscriber
// ---------------------------------------------------------------------------

// Subscriber delivers remote change events to a handler. Events published
// by this instance (same origin) are dropped because the local store has
// already notified its own subscribers.
type Subscriber struct {
	client  *redis.Client
	channel string
	origin  string
	handler func(models.ChangeEvent)
	logger  *zap.Logger
}

// NewSubscriber returns a Subscriber for channel that calls handler for each
// remote event.
func NewSubscriber(client *redis.Client, channel, origin string, handler func(models.ChangeEvent), logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		client:  client,
		channel: channel,
		origin:  origin,
		handler: handler,
		logger:  logger.Named("notify"),
	}
}

// Run subscribes and dispatches messages until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return errors.Wrapf(err, "notify: subscribe %s", s.channel)
	}
	s.logger.Info("listening for change notifications", zap.String("channel", s.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.Newf("notify: subscription to %s closed", s.channel)
			}
			s.handle(msg.Payload)
		}
	}
}

// handle decodes payload and forwards it. A payload that cannot be decoded
// still triggers the handler with a zero event.
func (s *Subscriber) handle(payload string) {
	ev, ok := decodeEvent(payload)
	if !ok {
		s.logger.Warn("malformed change notification, invalidating anyway", zap.String("payload", payload))
		s.handler(models.ChangeEvent{})
		return
	}
	if s.origin != "" && ev.Origin == s.origin {
		s.logger.Debug("ignoring own change notification", zap.Stringer("event", ev))
		return
	}
	s.handler(ev)
}

// decodeEvent parses a JSON change event. ok is false when payload is not
// JSON or carries an unknown op.
func decodeEvent(payload string) (ev models.ChangeEvent, ok bool) {
	if !gjson.Valid(payload) {
		return models.ChangeEvent{}, false
	}
	r := gjson.Parse(payload)
	if !r.IsObject() {
		return models.ChangeEvent{}, false
	}
	ev = models.ChangeEvent{
		Op:     models.ChangeOp(r.Get("op").String()),
		ID:     r.Get("id").Int(),
		Origin: r.Get("origin").String(),
		At:     r.Get("at").Time(),
	}
	return ev, ev.Valid()
}
