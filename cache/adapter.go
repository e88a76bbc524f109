package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/voxelpilot/cache/local"
	cacheredis "github.com/kasuganosora/voxelpilot/cache/redis"
)

// Store is the key/value and capped-list surface behind the status feed.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// PushCapped prepends value to the list at key, keeping the newest max.
	PushCapped(ctx context.Context, key, value string, max int) error
	// Range lists up to n entries newest first; n <= 0 lists all.
	Range(ctx context.Context, key string, n int) ([]string, error)
	Close() error
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// CacheConfig holds configuration for both Redis and the local store.
type CacheConfig struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LocalGCInterval time.Duration
	LocalPubSubBuf  int
}

// IsNotFound reports whether err is a missing-key error from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// NewStore returns a Store backed by Redis if RedisAddr is set,
// otherwise an in-process store.
func NewStore(cfg CacheConfig) (Store, error) {
	if cfg.RedisAddr != "" {
		s, err := cacheredis.NewStore(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return local.NewStore(local.Config{GCInterval: cfg.LocalGCInterval}), nil
}

// NewPubSub returns a PubSub backed by Redis if RedisAddr is set,
// otherwise an in-process one.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	if cfg.RedisAddr != "" {
		rps, err := cacheredis.NewPubSub(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return &redisPubSub{ps: rps}, nil
	}
	return &localPubSub{ps: local.NewPubSub(cfg.LocalPubSubBuf)}, nil
}

// relay converts a backend message stream into cache.Message values.
func relay[M any](in <-chan *M, conv func(*M) *Message) <-chan *Message {
	out := make(chan *Message, cap(in))
	go func() {
		defer close(out)
		for m := range in {
			out <- conv(m)
		}
	}()
	return out
}

type localPubSub struct {
	ps *local.PubSub
}

func (a *localPubSub) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *localPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	ch, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return relay(ch, func(m *local.Message) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}

type redisPubSub struct {
	ps *cacheredis.PubSub
}

func (a *redisPubSub) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *redisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	ch, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return relay(ch, func(m *cacheredis.Message) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}
