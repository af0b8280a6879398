// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeNoteCreated      = "note.created"
	TypeNoteUpdated      = "note.updated"
	TypeNoteDeleted      = "note.deleted"
	TypeNoteSaveFailed   = "note.save_failed"
	TypeGraphUpdated     = "graph.updated"
	TypeAnalysisProgress = "analysis.progress"
)

const (
	clientBuffer      = 64
	defaultThrottle   = 2 * time.Second
	keepAliveInterval = 25 * time.Second
)

// Event is one message for clients. NoteID scopes it: an event with a note
// reaches unscoped clients and clients watching that note; an event without
// one reaches everybody.
type Event struct {
	Type   string
	NoteID string
	Data   any
}

var noteEventTypes = map[string]string{
	"created": TypeNoteCreated,
	"updated": TypeNoteUpdated,
	"deleted": TypeNoteDeleted,
}

type subscription struct {
	ch     chan []byte
	noteID string
}

// Broker fans events out to SSE clients.
//
// A single loop owns the client set, the event sequence and the graph
// throttle; public methods talk to it over channels.
type Broker struct {
	graphMin  time.Duration
	keepAlive time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits graph.updated at most once per
// graphThrottle.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = defaultThrottle
	}

	b := &Broker{
		graphMin:      graphThrottle,
		keepAlive:     keepAliveInterval,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var (
		seq       uint64
		lastGraph time.Time
	)

	send := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch, watching := range clients {
			if watching != "" && event.NoteID != "" && watching != event.NoteID {
				continue
			}
			select {
			case ch <- raw:
			default:
				// slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.noteID

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			send(event)
			if _, isNote := noteEventTypes[event.Type]; !isNote {
				continue
			}
			if now := time.Now(); now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				send(Event{Type: TypeGraphUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. A non-empty noteID limits note-scoped events to
// that note.
func (b *Broker) Subscribe(noteID string) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, noteID: noteID}:
	case <-b.stopped:
		close(ch)
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

// Publish queues an event for delivery.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes a persisted note change followed, at most once
// per throttle interval, by graph.updated. Unknown kinds are ignored. The
// signature matches the note service observer hook.
func (b *Broker) PublishNoteEvent(kind, id string) {
	typ, ok := noteEventTypes[kind]
	if !ok {
		return
	}
	b.Publish(Event{Type: typ, NoteID: id, Data: map[string]string{"id": id}})
}

// PublishProgress forwards an analysis progress update for noteID.
func (b *Broker) PublishProgress(noteID string, progress any) {
	b.Publish(Event{Type: TypeAnalysisProgress, NoteID: noteID, Data: progress})
}

// PublishSaveFailed reports a debounced save that could not be persisted.
func (b *Broker) PublishSaveFailed(id string, err error) {
	b.Publish(Event{Type: TypeNoteSaveFailed, NoteID: id, Data: map[string]string{"id": id, "error": err.Error()}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events[?note=<id>]).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: 3000\n\n"))
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("note"))
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
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
