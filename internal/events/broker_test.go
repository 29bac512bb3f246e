package events

import (
	"context"
	"testing"
	"time"
)

func receiveEvent[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case event, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event[T]{}
}

func TestPublishSubscribe(t *testing.T) {
	broker := NewBroker[any]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)

	payload := StreamChunk{ChatID: "c1", Content: "hello"}
	broker.Publish(ChatStreamChunk, payload, WithChatID("c1"))

	event := receiveEvent(t, ch)
	if event.Type != ChatStreamChunk {
		t.Errorf("expected type %q, got %q", ChatStreamChunk, event.Type)
	}
	if event.ChatID != "c1" {
		t.Errorf("expected chat id c1, got %q", event.ChatID)
	}
	if event.ID == "" {
		t.Error("event has no id")
	}
	chunk, ok := event.Payload.(StreamChunk)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Payload)
	}
	if chunk.Content != "hello" {
		t.Errorf("expected content hello, got %q", chunk.Content)
	}
}

func TestFilters(t *testing.T) {
	broker := NewBroker[any]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("by type", func(t *testing.T) {
		ch := broker.Subscribe(ctx, FilterByType(ChatStreamError))

		broker.Publish(ChatStreamChunk, StreamChunk{Content: "ignored"})
		broker.Publish(ChatStreamError, StreamError{ChatID: "c1", Error: "boom"})

		event := receiveEvent(t, ch)
		if event.Type != ChatStreamError {
			t.Errorf("filter let through %q", event.Type)
		}
	})

	t.Run("by chat id", func(t *testing.T) {
		ch := broker.Subscribe(ctx, FilterByChatID("c2"))

		broker.Publish(ChatStreamChunk, StreamChunk{ChatID: "c1"}, WithChatID("c1"))
		broker.Publish(ChatStreamChunk, StreamChunk{ChatID: "c2"}, WithChatID("c2"))

		event := receiveEvent(t, ch)
		if event.ChatID != "c2" {
			t.Errorf("filter let through chat %q", event.ChatID)
		}
	})

	t.Run("combined", func(t *testing.T) {
		ch := broker.Subscribe(ctx, FilterByType(ChatStreamChunk), FilterByChatID("c3"))

		broker.Publish(ChatStreamError, StreamError{ChatID: "c3"}, WithChatID("c3"))
		broker.Publish(ChatStreamChunk, StreamChunk{ChatID: "c3", Content: "yes"}, WithChatID("c3"))

		event := receiveEvent(t, ch)
		if event.Type != ChatStreamChunk {
			t.Errorf("combined filters let through %q", event.Type)
		}
	})
}

func TestUnsubscribeOnContextCancel(t *testing.T) {
	broker := NewBroker[any]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	if broker.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", broker.SubscriberCount())
	}

	cancel()

	deadline := time.After(2 * time.Second)
	for broker.SubscriberCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("subscriber not removed after context cancel")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// The channel is closed so receivers do not hang forever.
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Error("channel not closed after cancel")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	broker := NewBrokerWithBuffer[any](1)
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		// Nobody is draining ch; the second publish must be dropped,
		// not block.
		broker.Publish(ChatStreamChunk, StreamChunk{Content: "one"})
		broker.Publish(ChatStreamChunk, StreamChunk{Content: "two"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}

	event := receiveEvent(t, ch)
	if chunk := event.Payload.(StreamChunk); chunk.Content != "one" {
		t.Errorf("expected first event to survive, got %q", chunk.Content)
	}
}

func TestShutdown(t *testing.T) {
	broker := NewBroker[any]()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Shutdown()

	if broker.SubscriberCount() != 0 {
		t.Errorf("expected no subscribers after shutdown, got %d", broker.SubscriberCount())
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after shutdown")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after shutdown")
	}

	// Publishing after shutdown is a no-op, not a panic.
	broker.Publish(ChatStreamChunk, StreamChunk{Content: "late"})

	// A second shutdown is safe.
	broker.Shutdown()
}
