// Package sse streams record changes to dashboard clients as Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// EventDashboardUpdated hints clients to refresh aggregate views.
const EventDashboardUpdated = "dashboard.updated"

const (
	clientBuffer = 64
	queueSize    = 256
)

var pingFrame = []byte(": ping\n\n")

// Event is a named SSE event with a JSON payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Change describes a record write, e.g. lead/created or lead/converted.
type Change struct {
	Entity     string `json:"entity"`
	Action     string `json:"action"`
	ID         int64  `json:"id"`
	PropertyID int64  `json:"propertyId,omitempty"`
}

// Type returns the SSE event name, "<entity>.<action>".
func (c Change) Type() string {
	return c.Entity + "." + c.Action
}

// frame is an encoded event. Change frames also drive the dashboard hint.
type frame struct {
	raw    []byte
	change bool
}

// membership adds or removes one client. The loop closes applied once done.
type membership struct {
	ch      chan []byte
	join    bool
	applied chan struct{}
}

// Broker fans encoded events out to subscribed clients. Its loop goroutine
// owns the client set and the dashboard throttle; events are encoded by the
// caller before they are queued.
type Broker struct {
	dashboardMin time.Duration
	heartbeat    time.Duration
	dashboard    []byte

	queue   chan frame
	control chan membership
	clients atomic.Int64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewBroker starts a broker. dashboardThrottle bounds how often
// dashboard.updated follows a change.
func NewBroker(dashboardThrottle time.Duration) *Broker {
	if dashboardThrottle <= 0 {
		dashboardThrottle = 2 * time.Second
	}
	dashboard, _ := encode(Event{Type: EventDashboardUpdated, Data: struct{}{}})

	b := &Broker{
		dashboardMin: dashboardThrottle,
		heartbeat:    25 * time.Second,
		dashboard:    dashboard,
		queue:        make(chan frame, queueSize),
		control:      make(chan membership),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go b.loop()
	return b
}

func encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(e.Type) + len(payload) + 16)
	buf.WriteString("event: ")
	buf.WriteString(e.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func (b *Broker) loop() {
	clients := make(map[chan []byte]struct{})
	var lastDashboard time.Time

	fanOut := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default: // slow client
			}
		}
	}

	defer func() {
		for ch := range clients {
			close(ch)
		}
		b.clients.Store(0)
		close(b.done)
	}()

	for {
		select {
		case <-b.stop:
			return

		case m := <-b.control:
			if m.join {
				clients[m.ch] = struct{}{}
			} else if _, ok := clients[m.ch]; ok {
				delete(clients, m.ch)
				close(m.ch)
			}
			b.clients.Store(int64(len(clients)))
			close(m.applied)

		case f := <-b.queue:
			fanOut(f.raw)
			if f.change && time.Since(lastDashboard) >= b.dashboardMin {
				lastDashboard = time.Now()
				fanOut(b.dashboard)
			}
		}
	}
}

// Close stops the loop and closes every client channel. It is safe to call
// more than once.
func (b *Broker) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close; it is already closed if the broker is.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.member(ch, true) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.member(ch, false)
}

// member hands a membership change to the loop and waits until it is
// applied. It reports false once the broker is closed.
func (b *Broker) member(ch chan []byte, join bool) bool {
	m := membership{ch: ch, join: join, applied: make(chan struct{})}
	select {
	case b.control <- m:
	case <-b.done:
		return false
	}
	<-m.applied
	return true
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	return int(b.clients.Load())
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(e Event) {
	raw, err := encode(e)
	if err != nil {
		return
	}
	b.enqueue(frame{raw: raw})
}

// PublishChange broadcasts a record change followed by a throttled
// dashboard.updated event.
func (b *Broker) PublishChange(c Change) {
	raw, err := encode(Event{Type: c.Type(), Data: c})
	if err != nil {
		return
	}
	b.enqueue(frame{raw: raw, change: true})
}

func (b *Broker) enqueue(f frame) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.queue <- f:
	case <-b.done:
	}
}

// ServeHTTP streams events to one client (GET /api/events) with a comment
// heartbeat so idle proxies keep the connection open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	heartbeat := time.NewTicker(b.heartbeat)
	defer heartbeat.Stop()

	for {
		var msg []byte
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			msg = pingFrame
		case m, ok := <-ch:
			if !ok {
				return
			}
			msg = m
		}
		if _, err := w.Write(msg); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
