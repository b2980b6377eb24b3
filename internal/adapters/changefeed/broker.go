package changefeed

import (
	"context"
	"sync"
)

// Topic names a collection whose contents changed.
type Topic string

const (
	TopicSessions    Topic = "sessions"
	TopicInstructors Topic = "instructors"
	TopicUsers       Topic = "users"
)

// subscriberBuffer bounds how many undelivered signals a subscriber holds.
// Signals only mean "reload", so dropping extras loses nothing.
const subscriberBuffer = 16

// Broker fans out change signals. Subscribers receive the topic and reload
// the full collection themselves.
type Broker interface {
	Publish(ctx context.Context, topic Topic) error
	// Subscribe returns a channel that is closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan Topic, error)
}

// MemoryBroker is an in-process Broker for single-instance deployments and tests.
type MemoryBroker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Topic
}

// NewMemoryBroker creates an empty broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]chan Topic)}
}

// Publish delivers topic to every subscriber without blocking.
func (b *MemoryBroker) Publish(_ context.Context, topic Topic) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- topic:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is cancelled.
func (b *MemoryBroker) Subscribe(ctx context.Context) (<-chan Topic, error) {
	ch := make(chan Topic, subscriberBuffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// Subscribers returns the current subscriber count.
func (b *MemoryBroker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
