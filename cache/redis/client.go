package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

func dial(cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Store is the Redis-backed status store.
type Store struct {
	client *goredis.Client
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg Config) (*Store, error) {
	client, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

func (r *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Store) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// PushCapped prepends value and trims the list to max entries in one round trip.
func (r *Store) PushCapped(ctx context.Context, key, value string, max int) error {
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.LPush(ctx, key, value)
		if max > 0 {
			p.LTrim(ctx, key, 0, int64(max-1))
		}
		return nil
	})
	return err
}

// Range returns up to n entries, newest first. n <= 0 returns all.
func (r *Store) Range(ctx context.Context, key string, n int) ([]string, error) {
	stop := int64(n - 1)
	if n <= 0 {
		stop = -1
	}
	return r.client.LRange(ctx, key, 0, stop).Result()
}

func (r *Store) Close() error { return r.client.Close() }

// Message is the message type returned by PubSub.Subscribe.
type Message struct {
	Channel string
	Payload string
}

// PubSub wraps the Redis pub/sub client.
type PubSub struct {
	client *goredis.Client
}

// NewPubSub connects to Redis for publish/subscribe.
func NewPubSub(cfg Config) (*PubSub, error) {
	client, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &PubSub{client: client}, nil
}

func (r *PubSub) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, channel, message).Err()
}

// Subscribe waits for the subscription to be confirmed before returning.
func (r *PubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	ps := r.client.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	ch := make(chan *Message, 256)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			ch <- &Message{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()
	return ch, func() { _ = ps.Close() }, nil
}
