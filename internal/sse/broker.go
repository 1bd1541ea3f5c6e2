// Package sse implements a Server-Sent Events broker for index and export updates.
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
	FileCreated     = "file.created"
	FileUpdated     = "file.updated"
	FileDeleted     = "file.deleted"
	IndexUpdated    = "index.updated"
	ExportCompleted = "export.completed"
)

// retryMillis is the reconnect delay suggested to clients.
const retryMillis = 3000

// fileEventTypes maps watcher change kinds to event types.
var fileEventTypes = map[string]string{
	"created": FileCreated,
	"updated": FileUpdated,
	"deleted": FileDeleted,
}

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithIndexThrottle sets the minimum gap between two index.updated events.
func WithIndexThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.indexMin = d
		}
	}
}

// WithKeepAlive sets how often idle connections receive a comment line.
// Zero disables keep-alives.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		b.keepAlive = d
	}
}

type fileChange struct {
	kind string
	path string
}

// Broker manages SSE client connections and broadcasts events.
//
// One goroutine owns the client set, the event counter and the
// index.updated throttle. Public methods talk to it through channels.
type Broker struct {
	indexMin  time.Duration
	keepAlive time.Duration

	joinCh   chan chan []byte
	leaveCh  chan chan []byte
	eventCh  chan Event
	changeCh chan fileChange
	countCh  chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its loop. Call Close to stop it.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		indexMin:  2 * time.Second,
		keepAlive: 30 * time.Second,
		joinCh:    make(chan chan []byte),
		leaveCh:   make(chan chan []byte),
		eventCh:   make(chan Event, 256),
		changeCh:  make(chan fileChange, 256),
		countCh:   make(chan chan int),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.loop()
	return b
}

// hub is the state owned by the broker loop.
type hub struct {
	clients   map[chan []byte]struct{}
	seq       uint64
	lastIndex time.Time
}

// frame encodes e with the next event id. Unencodable data yields nil.
func (h *hub) frame(e Event) []byte {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil
	}
	h.seq++
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", h.seq, e.Type, payload)
}

func (h *hub) broadcast(e Event) {
	raw := h.frame(e)
	if raw == nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- raw:
		default:
			// slow client: drop
		}
	}
}

func (b *Broker) loop() {
	defer close(b.stopped)

	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return

		case ch := <-b.joinCh:
			h.clients[ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}

		case e := <-b.eventCh:
			h.broadcast(e)

		case c := <-b.changeCh:
			typ, ok := fileEventTypes[c.kind]
			if !ok {
				continue
			}
			h.broadcast(Event{Type: typ, Data: map[string]string{"path": c.path}})
			if now := time.Now(); now.Sub(h.lastIndex) >= b.indexMin {
				h.lastIndex = now
				h.broadcast(Event{Type: IndexUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countCh:
			resp <- len(h.clients)
		}
	}
}

// send hands v to the loop unless the broker is closed.
func send[T any](b *Broker, ch chan T, v T) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case ch <- v:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the loop and closes all client channels. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. The channel is
// closed by Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if !send(b, b.joinCh, ch) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	send(b, b.leaveCh, ch)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !send(b, b.countCh, resp) {
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
func (b *Broker) Publish(e Event) {
	send(b, b.eventCh, e)
}

// PublishFileEvent publishes a watcher-driven index change followed by a
// throttled index.updated event. kind is "created", "updated" or "deleted";
// other kinds are ignored. Its signature matches index.EventCallback.
func (b *Broker) PublishFileEvent(kind, path string) {
	send(b, b.changeCh, fileChange{kind: kind, path: path})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
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
	fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
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
