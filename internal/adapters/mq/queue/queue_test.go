package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	model "github.com/musterhq/muster/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	event1 := model.TimelineEvent{ID: "e1", Type: model.EventWarning, OwnerID: "a", Turn: 1}
	if !q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	eventChan := q.Dequeue(ctx)
	event := <-eventChan
	if event.ID != "e1" {
		t.Errorf("expected e1, got %v", event.ID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	event1 := model.TimelineEvent{ID: "e1", Type: model.EventWarning, OwnerID: "a"}
	event2 := model.TimelineEvent{ID: "e2", Type: model.EventWarning, OwnerID: "b"}
	event3 := model.TimelineEvent{ID: "e3", Type: model.EventWarning, OwnerID: "c"}

	if !q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, event2) {
		t.Error("expected enqueue to succeed")
	}

	// Try to enqueue when full
	if q.Enqueue(ctx, event3) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numEvents := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numEvents; j++ {
				event := model.TimelineEvent{
					ID:      fmt.Sprintf("event%d_%d", id, j),
					Type:    model.EventWarning,
					OwnerID: fmt.Sprintf("owner%d", id),
					Turn:    j,
				}
				for !q.Enqueue(ctx, event) {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	consumed := make(chan string, numGoroutines*numEvents)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			eventChan := q.Dequeue(ctx)
			for event := range eventChan {
				consumed <- event.ID
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	// Wait a bit for consumers to process
	time.Sleep(100 * time.Millisecond)

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	event1 := model.TimelineEvent{ID: "e1", Type: model.EventWarning, OwnerID: "a"}
	event2 := model.TimelineEvent{ID: "e2", Type: model.EventWarning, OwnerID: "b"}

	if !q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, event2) {
		t.Error("expected enqueue to succeed")
	}

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}

	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	// Enqueue after closing should fail
	if q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to fail after closing")
	}

	// Dequeue channel drains the remainder and then closes
	eventChan := q.Dequeue(ctx)

	timeout := time.After(time.Second)
	received := 0
	for {
		select {
		case _, ok := <-eventChan:
			if !ok {
				if received != 2 {
					t.Errorf("expected 2 drained events, got %d", received)
				}
				goto channelClosed
			}
			received++
		case <-timeout:
			t.Error("expected dequeue channel to be closed within timeout")
			return
		}
	}
channelClosed:

	// Close again should not error
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
