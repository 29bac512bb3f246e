package events

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const defaultBufferSize = 64

// Broker is a channel-based publish-subscribe broker. Publishing
// never blocks: a subscriber whose channel is full has the event
// dropped rather than stalling the producer, which matters when the
// producer is a streaming goroutine in the middle of a reply.
type Broker[T any] struct {
	subs       map[chan Event[T]]subscriberInfo
	mu         sync.RWMutex
	done       chan struct{}
	bufferSize int
}

type subscriberInfo struct {
	id      string
	filters []EventFilter
	created time.Time
}

// NewBroker creates a broker with default settings.
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer creates a broker with a custom per-subscriber
// channel buffer.
func NewBrokerWithBuffer[T any](channelBufferSize int) *Broker[T] {
	return &Broker[T]{
		subs:       make(map[chan Event[T]]subscriberInfo),
		done:       make(chan struct{}),
		bufferSize: channelBufferSize,
	}
}

// Publish delivers an event to every subscriber whose filters accept
// it. Events published after Shutdown are discarded.
func (b *Broker[T]) Publish(eventType EventType, payload T, opts ...PublishOption) {
	select {
	case <-b.done:
		return
	default:
	}

	options := &PublishOptions{}
	for _, opt := range opts {
		opt(options)
	}

	event := Event[T]{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		ChatID:    options.ChatID,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, info := range b.subs {
		if !accepts(event, info.filters) {
			continue
		}
		select {
		case ch <- event:
		default:
			log.Warn("event channel full, dropping event",
				"subscriber", info.id, "event_id", event.ID, "type", event.Type)
		}
	}
}

// Subscribe registers a subscriber with optional filters. The
// subscription ends when ctx is cancelled, at which point the returned
// channel is closed.
func (b *Broker[T]) Subscribe(ctx context.Context, filters ...EventFilter) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event[T], b.bufferSize)
	b.subs[ch] = subscriberInfo{
		id:      uuid.New().String(),
		filters: filters,
		created: time.Now(),
	}

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(ch)
		case <-b.done:
		}
	}()

	return ch
}

func (b *Broker[T]) unsubscribe(ch chan Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[ch]; exists {
		delete(b.subs, ch)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Shutdown closes every subscriber channel and discards subsequent
// publishes.
func (b *Broker[T]) Shutdown() {
	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

func accepts[T any](event Event[T], filters []EventFilter) bool {
	if len(filters) == 0 {
		return true
	}
	anyEvent := Event[any]{
		ID:        event.ID,
		Type:      event.Type,
		Payload:   event.Payload,
		Timestamp: event.Timestamp,
		ChatID:    event.ChatID,
	}
	for _, filter := range filters {
		if !filter(anyEvent) {
			return false
		}
	}
	return true
}
