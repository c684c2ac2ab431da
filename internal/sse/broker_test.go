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

// next waits for one message on ch.
func next(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

// waitFor reads ch until a message containing marker arrives. Publishes are
// processed in order, so everything published before the marker is done.
func waitFor(t *testing.T, ch chan []byte, marker string) {
	t.Helper()
	for {
		if strings.Contains(next(t, ch), marker) {
			return
		}
	}
}

// drain returns every message already queued on ch.
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

	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after unsubscribe = %d, want 0", n)
	}
	if _, ok := <-ch; ok {
		t.Error("unsubscribed channel should be closed")
	}
}

func TestPublishPostEvent(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPostEvent("created", "2014-01-02_1-Winter.md")

	msg := next(t, ch)
	for _, want := range []string{"id: 1\n", "event: post.created\n", `data: {"path":"2014-01-02_1-Winter.md"}`} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q lacks %q", msg, want)
		}
	}
	if msg := next(t, ch); !strings.Contains(msg, "event: index.updated") || !strings.Contains(msg, "id: 2\n") {
		t.Errorf("second message = %q, want index.updated with id 2", msg)
	}
}

func TestPublishPostEvent_IndexThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPostEvent("created", "a.md")
	b.PublishPostEvent("updated", "b.md")
	b.PublishPostEvent("deleted", "a.md")
	time.Sleep(50 * time.Millisecond)

	var posts, index int
	for _, msg := range drain(ch) {
		if strings.Contains(msg, "index.updated") {
			index++
		} else {
			posts++
		}
	}
	if posts != 3 {
		t.Errorf("post events = %d, want 3", posts)
	}
	if index != 1 {
		t.Errorf("index events = %d, want 1", index)
	}
}

func TestPublishPostEvent_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPostEvent("renamed", "x.md")
	b.Publish(Event{Type: "marker", Data: struct{}{}})

	if msg := next(t, ch); !strings.Contains(msg, "event: marker") {
		t.Errorf("got %q before marker", msg)
	}
}

func TestPublishBookEvent(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishBookEvent("blog_posts_2014.epub", "2014")

	msg := next(t, ch)
	if !strings.Contains(msg, "event: book.built") || !strings.Contains(msg, `{"path":"blog_posts_2014.epub","scope":"2014"}`) {
		t.Errorf("unexpected message %q", msg)
	}
	if rest := drain(ch); len(rest) != 0 {
		t.Errorf("book events must not trigger index.updated, got %q", rest)
	}
}

func TestSubscribeAfter_ReplaysMissedEvents(t *testing.T) {
	b := NewBroker(time.Hour, WithHistory(2))
	defer b.Close()

	for _, typ := range []string{"one", "two", "three"} {
		b.Publish(Event{Type: typ, Data: struct{}{}})
	}
	live := b.Subscribe()
	b.Publish(Event{Type: "sync", Data: struct{}{}})
	waitFor(t, live, "event: sync")
	b.Unsubscribe(live)

	ch := b.SubscribeAfter(1)
	defer b.Unsubscribe(ch)
	got := drain(ch)
	if len(got) != 2 {
		t.Fatalf("replayed %d events, want 2: %q", len(got), got)
	}
	if !strings.Contains(got[0], "event: three") || !strings.Contains(got[1], "event: sync") {
		t.Errorf("replayed = %q", got)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < clientBuffer+10; i++ {
		b.Publish(Event{Type: "test", Data: i})
	}
	deadline := time.Now().Add(time.Second)
	for len(ch) < clientBuffer && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := len(ch); got != clientBuffer {
		t.Errorf("buffered = %d, want %d", got, clientBuffer)
	}
	if n := b.ClientCount(); n != 1 {
		t.Errorf("slow client dropped, clients = %d", n)
	}
}

// lockedRecorder guards the recorder body so the test can read it while
// the handler is still writing.
type lockedRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *lockedRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *lockedRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func serve(t *testing.T, b *Broker, header http.Header) (*lockedRecorder, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	for k, v := range header {
		req.Header[k] = v
	}
	w := &lockedRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()
	deadline := time.Now().Add(time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	return w, func() {
		cancel()
		<-done
	}
}

func TestServeHTTP(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	w, stop := serve(t, b, nil)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	b.PublishPostEvent("updated", "x.md")
	time.Sleep(50 * time.Millisecond)
	stop()

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.body(), "event: post.updated") {
		t.Errorf("stream lacks event: %q", w.body())
	}

	time.Sleep(20 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("client not cleaned up, count = %d", n)
	}
}

func TestServeHTTP_LastEventID(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	b.PublishBookEvent("a.epub", "all")
	b.PublishBookEvent("b.epub", "2014")
	watcher := b.Subscribe()
	b.Publish(Event{Type: "sync", Data: struct{}{}})
	waitFor(t, watcher, "event: sync")
	b.Unsubscribe(watcher)

	w, stop := serve(t, b, http.Header{"Last-Event-Id": {"1"}})
	time.Sleep(20 * time.Millisecond)
	stop()

	body := w.body()
	if strings.Contains(body, "a.epub") {
		t.Errorf("event 1 replayed: %q", body)
	}
	if !strings.Contains(body, "b.epub") {
		t.Errorf("event 2 not replayed: %q", body)
	}
}

func TestServeHTTP_KeepAlive(t *testing.T) {
	b := NewBroker(time.Hour, WithKeepAlive(10*time.Millisecond))
	defer b.Close()

	w, stop := serve(t, b, nil)
	time.Sleep(60 * time.Millisecond)
	stop()

	if !strings.Contains(w.body(), ": keepalive") {
		t.Errorf("no keepalive in %q", w.body())
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after close = %d", n)
	}

	// No-ops after close.
	b.Publish(Event{Type: "post.updated", Data: PostChange{Path: "x.md"}})
	b.PublishPostEvent("updated", "x.md")
	if _, ok := <-b.Subscribe(); ok {
		t.Error("subscribe after close should return a closed channel")
	}
	b.Close()
}
