// Package broadcast fans serialized snapshots out to every connected viewer.
//
// The Hub is transport agnostic; ServeWS and ServeSSE attach websocket and
// server-sent-event clients to it. Publishing never blocks: a client whose
// buffer is full misses that tick and gets the next one.
package broadcast

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/wifiradar/internal/monitoring"
)

// DefaultClientBuffer is the number of payloads queued per client.
const DefaultClientBuffer = 4

// Hub is a publish/subscribe fan-out of byte payloads.
type Hub struct {
	bufferSize int

	mu          sync.Mutex
	subscribers map[string]chan []byte
	latest      []byte
	closed      bool

	published atomic.Uint64
	dropped   atomic.Uint64
	logf      func(format string, v ...interface{})
}

// Stats reports hub activity.
type Stats struct {
	Clients   int    `json:"clients"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// NewHub creates a Hub. A non-positive bufferSize uses DefaultClientBuffer.
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultClientBuffer
	}
	return &Hub{
		bufferSize:  bufferSize,
		subscribers: make(map[string]chan []byte),
		logf:        monitoring.Component("broadcast"),
	}
}

// randomID generates a random client ID (8 byte random hex encoded value).
// crypto/rand.Read never returns an error on supported platforms.
func randomID() string {
	b := make([]byte, 8)
	if _, err := crand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(b)
}

// Subscribe registers a new client. The most recent payload, if any, is
// queued immediately so a new viewer does not wait a full tick. The channel
// is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() (string, <-chan []byte) {
	id := randomID()
	ch := make(chan []byte, h.bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return id, ch
	}
	if h.latest != nil {
		ch <- h.latest
	}
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Publish delivers payload verbatim to every client without blocking.
// The payload must not be modified afterwards.
func (h *Hub) Publish(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest = payload
	h.published.Add(1)

	for _, ch := range h.subscribers {
		select {
		case ch <- payload:
		default:
			// if the channel is full skip so a slow viewer cannot stall the ticker
			h.dropped.Add(1)
		}
	}
}

// Latest returns the most recently published payload, or nil.
func (h *Hub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Stats returns the current client count and counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	clients := len(h.subscribers)
	h.mu.Unlock()
	return Stats{Clients: clients, Published: h.published.Load(), Dropped: h.dropped.Load()}
}

// Close disconnects every client; later Publish calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
