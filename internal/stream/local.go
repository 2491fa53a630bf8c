package stream

import (
	"context"
	"sync"
)

// Subscription receives changes for its topics on C until Close is called.
type Subscription struct {
	C <-chan Change

	ch     chan Change
	topics []string
	local  *Local
	once   sync.Once
}

// Topics returns the topics the subscription listens on.
func (s *Subscription) Topics() []string { return s.topics }

// Close stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.local.remove(s) })
}

// Local is an in-process broker.
type Local struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

func NewLocal(buffer int) *Local {
	if buffer <= 0 {
		buffer = 64
	}
	return &Local{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

func (l *Local) Subscribe(topics ...string) *Subscription {
	ch := make(chan Change, l.buffer)
	s := &Subscription{C: ch, ch: ch, topics: topics, local: l}

	l.mu.Lock()
	for _, t := range topics {
		set, ok := l.subs[t]
		if !ok {
			set = make(map[*Subscription]struct{})
			l.subs[t] = set
		}
		set[s] = struct{}{}
	}
	l.mu.Unlock()
	return s
}

func (l *Local) remove(s *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range s.topics {
		if set, ok := l.subs[t]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(l.subs, t)
			}
		}
	}
	close(s.ch)
}

// Publish delivers c to every subscriber of its topic without blocking. A
// subscriber with a full buffer loses its oldest pending change.
func (l *Local) Publish(ctx context.Context, c Change) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for s := range l.subs[c.Topic] {
		select {
		case s.ch <- c:
			continue
		default:
		}
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- c:
		default:
		}
	}
	return nil
}

// Subscribers reports how many subscriptions listen on topic.
func (l *Local) Subscribers(topic string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[topic])
}
