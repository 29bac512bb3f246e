package events

import (
	"context"
	"time"
)

// EventType identifies the type of event.
type EventType string

const (
	// ChatStreamChunk carries one progress record of a streamed reply.
	ChatStreamChunk EventType = "chat.stream.chunk"
	// ChatStreamError reports a failed stream after the initiating
	// call has already returned.
	ChatStreamError EventType = "chat.stream.error"
)

// Event is one published occurrence. ChatID scopes chat events to the
// conversation they belong to.
type Event[T any] struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	ChatID    string    `json:"chat_id,omitempty"`
}

// StreamChunk is the payload of a ChatStreamChunk event: one content
// fragment of the assistant's reply. Fragments concatenated in
// emission order reconstruct the full reply exactly. Done marks the
// terminal record.
type StreamChunk struct {
	ChatID     string `json:"chat_id"`
	Content    string `json:"content"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
}

// StreamError is the payload of a ChatStreamError event.
type StreamError struct {
	ChatID string `json:"chat_id"`
	Error  string `json:"error"`
}

// Publisher is the event-producing half of the broker.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T, opts ...PublishOption)
}

// Subscriber is the event-consuming half of the broker.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context, filters ...EventFilter) <-chan Event[T]
}

// EventFilter decides whether a subscriber receives an event.
type EventFilter func(Event[any]) bool

// PublishOption configures a single Publish call.
type PublishOption func(*PublishOptions)

// PublishOptions carries per-publish settings.
type PublishOptions struct {
	ChatID string
}

// WithChatID scopes the published event to a chat.
func WithChatID(chatID string) PublishOption {
	return func(opts *PublishOptions) {
		opts.ChatID = chatID
	}
}

// FilterByType accepts only the given event types.
func FilterByType(eventTypes ...EventType) EventFilter {
	typeMap := make(map[EventType]bool)
	for _, t := range eventTypes {
		typeMap[t] = true
	}
	return func(event Event[any]) bool {
		return typeMap[event.Type]
	}
}

// FilterByChatID accepts only events scoped to the given chat.
func FilterByChatID(chatID string) EventFilter {
	return func(event Event[any]) bool {
		return event.ChatID == chatID
	}
}
