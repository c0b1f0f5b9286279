// Package sse streams page changes to browsers as Server-Sent Events.
//
// Every change produces a page.<kind> event immediately. Changes also feed a
// tags.updated event listing the slugs touched since the previous one; it is
// sent at most once per throttle window and always flushed once the window
// closes, so the last edit of a burst is never lost.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Page change kinds accepted by PublishPageEvent.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// DefaultTagsThrottle spaces tags.updated events when no throttle is given.
const DefaultTagsThrottle = 2 * time.Second

const clientBuffer = 64

// PageEvent is the payload of page.created, page.updated and page.deleted.
type PageEvent struct {
	Slug string `json:"slug"`
}

// TagsEvent is the payload of tags.updated: the pages whose edits may have
// changed the tag set, in first-changed order.
type TagsEvent struct {
	Slugs []string `json:"slugs"`
}

type change struct {
	kind string
	slug string
}

// Broker fans page changes out to connected clients. One goroutine owns the
// client set and the pending tag batch.
type Broker struct {
	tagsMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	changeCh      chan change

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. tagsThrottle is the minimum spacing between two
// tags.updated events; zero or less selects DefaultTagsThrottle.
func NewBroker(tagsThrottle time.Duration) *Broker {
	if tagsThrottle <= 0 {
		tagsThrottle = DefaultTagsThrottle
	}
	b := &Broker{
		tagsMin:       tagsThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		changeCh:      make(chan change, 256),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

// frame renders one SSE message.
func frame(name string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", name, data)
}

// tagBatch collects the slugs changed since the last tags.updated.
type tagBatch struct {
	slugs []string
	seen  map[string]struct{}
}

func (t *tagBatch) add(slug string) {
	if t.seen == nil {
		t.seen = make(map[string]struct{})
	}
	if _, ok := t.seen[slug]; ok {
		return
	}
	t.seen[slug] = struct{}{}
	t.slugs = append(t.slugs, slug)
}

func (t *tagBatch) take() []string {
	out := t.slugs
	t.slugs, t.seen = nil, nil
	return out
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	send := func(msg []byte) {
		if msg == nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Slow client; it will refetch on the next event.
			}
		}
	}

	var (
		batch    tagBatch
		lastTags time.Time
		timer    *time.Timer
		flushC   <-chan time.Time
	)
	flush := func() {
		lastTags = time.Now()
		send(frame("tags.updated", TagsEvent{Slugs: batch.take()}))
	}

	for {
		select {
		case <-b.stopCh:
			if timer != nil {
				timer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case c := <-b.changeCh:
			send(frame("page."+c.kind, PageEvent{Slug: c.slug}))
			batch.add(c.slug)
			if flushC != nil {
				continue
			}
			if wait := b.tagsMin - time.Since(lastTags); wait > 0 {
				timer = time.NewTimer(wait)
				flushC = timer.C
				continue
			}
			flush()

		case <-flushC:
			timer, flushC = nil, nil
			flush()
		}
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed when the
// client unsubscribes or the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
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

// PublishPageEvent announces a page change. Unknown kinds are dropped.
func (b *Broker) PublishPageEvent(kind, slug string) {
	switch kind {
	case KindCreated, KindUpdated, KindDeleted:
	default:
		return
	}
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- change{kind: kind, slug: slug}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
