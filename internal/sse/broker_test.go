package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeSettingsUpdated, Data: map[string]string{"delete_behavior": "Permanent"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: settings.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"delete_behavior":"Permanent"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishNoteEvent_ListThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("created", "a")
	b.PublishNoteEvent("updated", "b")
	b.PublishNoteEvent("attachment_added", "b")

	time.Sleep(50 * time.Millisecond)
	listCount, noteCount := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, TypeListChanged) {
			listCount++
		} else {
			noteCount++
		}
	}

	if noteCount != 3 {
		t.Errorf("note events = %d, want 3", noteCount)
	}
	if listCount != 1 {
		t.Errorf("list events = %d, want 1 (throttled)", listCount)
	}
}

func TestPublishNoteEvent_Payload(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("deleted", "n-1")
	b.PublishNoteEvent("bogus", "n-2")
	time.Sleep(50 * time.Millisecond)

	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2: %q", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "event: note.deleted") || !strings.Contains(msgs[0], `"id":"n-1"`) {
		t.Errorf("unexpected message %q", msgs[0])
	}
}

// syncRecorder guards the recorder body against the concurrent handler.
type syncRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishNoteEvent("updated", "x")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.body()
	if !strings.Contains(body, "event: note.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest must be dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeNoteUpdated, Data: map[string]string{"id": "x"}})
	b.PublishNoteEvent("updated", "x")
}

func TestFramesCarryIncreasingIDs(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeSettingsUpdated, Data: 1})
	b.Publish(Event{Type: TypeSettingsUpdated, Data: 2})
	time.Sleep(50 * time.Millisecond)

	msgs := drain(ch)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if !strings.HasPrefix(msgs[0], "id: 1\n") || !strings.HasPrefix(msgs[1], "id: 2\n") {
		t.Errorf("unexpected ids: %q", msgs)
	}
}

func TestSubscribeAfterReplaysMissedFrames(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	b.PublishNoteEvent("created", "a") // id 1, plus list_changed id 2
	b.PublishNoteEvent("updated", "a") // id 3 (list throttled)
	time.Sleep(50 * time.Millisecond)

	ch := b.SubscribeAfter(2)
	defer b.Unsubscribe(ch)

	msgs := drain(ch)
	if len(msgs) != 1 {
		t.Fatalf("replayed = %d, want 1: %q", len(msgs), msgs)
	}
	if !strings.HasPrefix(msgs[0], "id: 3\nevent: note.updated") {
		t.Errorf("unexpected replay %q", msgs[0])
	}
}

func TestSSEHandlerResumesFromLastEventID(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	b.PublishNoteEvent("deleted", "gone")
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "0")
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
	b.ServeHTTP(w, req)
	if strings.Contains(w.body(), "note.deleted") {
		t.Error("id 0 should not replay history")
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel2()
	req = httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx2)
	req.Header.Set("Last-Event-ID", "1")
	w = &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
	b.ServeHTTP(w, req)
	body := w.body()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if strings.Contains(body, "note.deleted") || !strings.Contains(body, "id: 2\nevent: notes.list_changed") {
		t.Errorf("expected only frame 2 replayed: %q", body)
	}
}
