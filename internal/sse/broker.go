// Package sse implements a Server-Sent Events broker for archive updates.
package sse

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// Event types broadcast by the broker.
const (
	EventPostCreated  = "post.created"
	EventPostUpdated  = "post.updated"
	EventPostDeleted  = "post.deleted"
	EventIndexUpdated = "index.updated"
	EventBookBuilt    = "book.built"
)

const (
	defaultIndexThrottle = 2 * time.Second
	defaultKeepAlive     = 15 * time.Second
	defaultHistory       = 128
	clientBuffer         = 64
)

// Event is a message to broadcast. Data is encoded as JSON.
type Event struct {
	Type string
	Data any
}

// PostChange is the payload of post.* events.
type PostChange struct {
	Path string `json:"path"`
}

// BookBuilt is the payload of book.built events.
type BookBuilt struct {
	Path  string `json:"path"`
	Scope string `json:"scope"`
}

// frame is an encoded event together with its sequence number.
type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch    chan []byte
	after uint64
	ready chan struct{}
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets how often idle streams receive a comment line.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		b.keepAlive = d
	}
}

// WithHistory sets how many recent events are kept for clients resuming
// with Last-Event-ID. Zero disables replay.
func WithHistory(n int) Option {
	return func(b *Broker) {
		b.history = n
	}
}

// Broker fans archive events out to SSE clients.
//
// One loop goroutine owns the client set, the replay history, the event
// sequence and the index.updated throttle. Public methods talk to it over
// channels and become no-ops after Close.
type Broker struct {
	indexMin  time.Duration
	keepAlive time.Duration
	history   int

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that emits index.updated at most once per
// indexThrottle.
func NewBroker(indexThrottle time.Duration, opts ...Option) *Broker {
	if indexThrottle <= 0 {
		indexThrottle = defaultIndexThrottle
	}
	b := &Broker{
		indexMin:      indexThrottle,
		keepAlive:     defaultKeepAlive,
		history:       defaultHistory,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func postEventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return EventPostCreated, true
	case "updated":
		return EventPostUpdated, true
	case "deleted":
		return EventPostDeleted, true
	}
	return "", false
}

func encode(id uint64, e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, e.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	var (
		clients   = make(map[chan []byte]struct{})
		recent    []frame
		seq       uint64
		lastIndex time.Time
	)

	emit := func(e Event) {
		raw, err := encode(seq+1, e)
		if err != nil {
			return
		}
		seq++
		if b.history > 0 {
			recent = append(recent, frame{id: seq, raw: raw})
			if len(recent) > b.history {
				recent = recent[len(recent)-b.history:]
			}
		}
		for ch := range clients {
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
			if sub.after > 0 {
				for _, f := range recent {
					if f.id <= sub.after {
						continue
					}
					select {
					case sub.ch <- f.raw:
					default:
					}
				}
			}
			clients[sub.ch] = struct{}{}
			close(sub.ready)

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case e := <-b.publishCh:
			emit(e)
			if _, isPost := e.Data.(PostChange); isPost {
				if now := time.Now(); now.Sub(lastIndex) >= b.indexMin {
					lastIndex = now
					emit(Event{Type: EventIndexUpdated, Data: struct{}{}})
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel.
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

// SubscribeAfter adds a client and first replays the retained events with
// an id greater than lastID.
func (b *Broker) SubscribeAfter(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	sub := subscription{ch: ch, after: lastID, ready: make(chan struct{})}
	select {
	case b.subscribeCh <- sub:
	case <-b.stopped:
		close(ch)
		return ch
	}
	select {
	case <-sub.ready:
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

// Publish broadcasts an event to all connected clients.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}

// PublishPostEvent announces a post file change ("created", "updated" or
// "deleted"), followed by a throttled index.updated. Other kinds are ignored.
func (b *Broker) PublishPostEvent(kind, path string) {
	typ, ok := postEventType(kind)
	if !ok {
		return
	}
	b.Publish(Event{Type: typ, Data: PostChange{Path: path}})
}

// PublishBookEvent announces a newly written book.
func (b *Broker) PublishBookEvent(path, scope string) {
	b.Publish(Event{Type: EventBookBuilt, Data: BookBuilt{Path: path, Scope: scope}})
}
