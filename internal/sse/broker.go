// Package sse streams note change events to HTTP clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeNoteCreated     = "note.created"
	TypeNoteUpdated     = "note.updated"
	TypeNoteDeleted     = "note.deleted"
	TypeAttachmentAdded = "note.attachment_added"
	TypeListChanged     = "notes.list_changed"
	TypeSettingsUpdated = "settings.updated"
)

const (
	// heartbeat keeps idle connections open through proxies.
	heartbeat    = 25 * time.Second
	// historySize is how many frames are kept for Last-Event-ID replay.
	historySize  = 128
	clientBuffer = 64
)

var noteEventTypes = map[string]string{
	"created":          TypeNoteCreated,
	"updated":          TypeNoteUpdated,
	"deleted":          TypeNoteDeleted,
	"attachment_added": TypeAttachmentAdded,
}

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type frame struct {
	seq uint64
	raw []byte
}

type subscribeReq struct {
	ch    chan []byte
	after uint64
	done  chan struct{} // closed once replayed frames are queued
}

// hub is the state owned by the broker loop.
type hub struct {
	clients  map[chan []byte]struct{}
	seq      uint64
	history  []frame
	lastList time.Time
	listMin  time.Duration
}

func (h *hub) send(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	h.seq++
	f := frame{
		seq: h.seq,
		raw: fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", h.seq, ev.Type, payload),
	}
	if len(h.history) == historySize {
		h.history = append(h.history[:0], h.history[1:]...)
	}
	h.history = append(h.history, f)

	for ch := range h.clients {
		select {
		case ch <- f.raw:
		default:
			// Slow client; it can catch up with Last-Event-ID on reconnect.
		}
	}
}

func (h *hub) noteChanged(kind, id string, now time.Time) {
	typ, ok := noteEventTypes[kind]
	if !ok {
		return
	}
	h.send(Event{Type: typ, Data: map[string]string{"id": id}})
	if kind == "attachment_added" {
		return
	}
	// Creates, updates and deletes reorder the recency list.
	if now.Sub(h.lastList) >= h.listMin {
		h.lastList = now
		h.send(Event{Type: TypeListChanged, Data: map[string]string{}})
	}
}

func (h *hub) join(req subscribeReq) {
	if req.after > 0 {
		for _, f := range h.history {
			if f.seq <= req.after {
				continue
			}
			select {
			case req.ch <- f.raw:
			default:
			}
		}
	}
	h.clients[req.ch] = struct{}{}
}

type noteEventReq struct {
	kind string
	id   string
}

// Broker fans events out to subscribed clients. Every frame carries an
// increasing id, and recent frames are kept so a reconnecting client can
// resume after the last id it saw.
//
// One loop goroutine owns the hub; public methods talk to it over channels.
type Broker struct {
	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan noteEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. listThrottle is the minimum spacing between
// notes.list_changed events.
func NewBroker(listThrottle time.Duration) *Broker {
	if listThrottle <= 0 {
		listThrottle = time.Second
	}
	b := &Broker{
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan noteEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.loop(&hub{
		clients: make(map[chan []byte]struct{}),
		listMin: listThrottle,
	})
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return
		case req := <-b.subscribeCh:
			h.join(req)
			close(req.done)
		case ch := <-b.unsubscribeCh:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case ev := <-b.publishCh:
			h.send(ev)
		case req := <-b.noteEventCh:
			h.noteChanged(req.kind, req.id, time.Now())
		case resp := <-b.countReqCh:
			resp <- len(h.clients)
		}
	}
}

// Close stops the loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client that receives events published from now on.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeAfter(0)
}

// SubscribeAfter adds a client and first queues any retained frames with an id
// greater than lastID. The replayed frames are buffered on the returned channel
// by the time it returns.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	req := subscribeReq{ch: ch, after: lastID, done: make(chan struct{})}
	select {
	case b.subscribeCh <- req:
	case <-b.stopped:
		close(ch)
		return ch
	}
	select {
	case <-req.done:
	case <-b.stopped:
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes a note change for id. kind is one of "created",
// "updated", "deleted" or "attachment_added"; the first three are followed by
// a throttled notes.list_changed event. Unknown kinds are ignored.
func (b *Broker) PublishNoteEvent(kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- noteEventReq{kind: kind, id: id}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A Last-Event-ID
// header resumes the stream after that id when the frames are still retained.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.SubscribeAfter(lastID)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(heartbeat)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
