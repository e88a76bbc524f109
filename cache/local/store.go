package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// Config holds Store settings.
type Config struct {
	GCInterval time.Duration
	// Now overrides the clock used for expiry.
	Now func() time.Time
}

type entry struct {
	data     string
	expireAt time.Time // zero never expires
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// Store is an in-process key/value and capped-list store.
type Store struct {
	mu    sync.Mutex
	kv    map[string]entry
	lists map[string][]string
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewStore creates a Store and starts the background expiry sweep.
func NewStore(cfg Config) *Store {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Store{
		kv:    make(map[string]entry),
		lists: make(map[string][]string),
		now:   now,
		stop:  make(chan struct{}),
	}
	go s.sweep(interval)
	return s
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for k, e := range s.kv {
				if e.expired(now) {
					delete(s.kv, k)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	if !ok {
		return "", ErrNotFound
	}
	if e.expired(s.now()) {
		delete(s.kv, key)
		return "", ErrNotFound
	}
	return e.data, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := entry{data: value}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.kv[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.kv, k)
		delete(s.lists, k)
	}
	return nil
}

// PushCapped prepends value to the list at key and keeps the newest max.
func (s *Store) PushCapped(_ context.Context, key, value string, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := append([]string{value}, s.lists[key]...)
	if max > 0 && len(l) > max {
		l = l[:max]
	}
	s.lists[key] = l
	return nil
}

// Range returns up to n list entries, newest first. n <= 0 returns all.
func (s *Store) Range(_ context.Context, key string, n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	if n <= 0 || n > len(l) {
		n = len(l)
	}
	out := make([]string, n)
	copy(out, l)
	return out, nil
}
