package local

import (
	"context"
	"sync"
)

// Message is an in-process pub/sub message.
type Message struct {
	Channel string
	Payload string
}

type subscriber struct {
	ch chan *Message
}

// PubSub is an in-process fan-out pub/sub. Slow subscribers drop messages.
type PubSub struct {
	mu      sync.RWMutex
	subs    map[string][]*subscriber
	bufSize int
}

// NewPubSub creates a PubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *PubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &PubSub{subs: make(map[string][]*subscriber), bufSize: bufSize}
}

func (ps *PubSub) Publish(_ context.Context, channel, message string) error {
	msg := &Message{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, s := range ps.subs[channel] {
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of messages for the given channels and a
// cancel function that unsubscribes and closes it.
func (ps *PubSub) Subscribe(_ context.Context, channels ...string) (<-chan *Message, func(), error) {
	s := &subscriber{ch: make(chan *Message, ps.bufSize)}

	ps.mu.Lock()
	for _, c := range channels {
		ps.subs[c] = append(ps.subs[c], s)
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			for _, c := range channels {
				list := ps.subs[c]
				for i, sub := range list {
					if sub == s {
						ps.subs[c] = append(list[:i], list[i+1:]...)
						break
					}
				}
				if len(ps.subs[c]) == 0 {
					delete(ps.subs, c)
				}
			}
			close(s.ch)
		})
	}
	return s.ch, cancel, nil
}
