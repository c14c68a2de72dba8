package eventbus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Bus fans events out to subscribers without blocking the publisher.
// A buffered subscriber whose buffer is full misses the event; an
// unbounded subscriber queues it instead.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

type subscriber struct {
	ch chan *Event

	// Set for unbounded subscribers only.
	queue  *queue
	notify chan struct{}
	done   chan struct{}
}

type queue struct {
	mu      sync.Mutex
	pending []*Event
}

func (q *queue) push(e *Event) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()
}

func (q *queue) take() []*Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]*subscriber),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Event) {
	id := ulid.Make().String()
	sub := &subscriber{ch: make(chan *Event, bufSize)}
	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()
	return id, sub.ch
}

// SubscribeUnbounded returns a subscription that never drops. Events wait
// in an in-memory queue until the reader takes them, in publish order.
func (b *Bus) SubscribeUnbounded() (string, <-chan *Event) {
	id := ulid.Make().String()
	sub := &subscriber{
		ch:     make(chan *Event),
		queue:  &queue{},
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go sub.pump()
	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()
	return id, sub.ch
}

func (s *subscriber) pump() {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}
		for _, e := range s.queue.take() {
			select {
			case s.ch <- e:
			case <-s.done:
				return
			}
		}
	}
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if sub, ok := b.subscribers[id]; ok {
		if sub.queue != nil {
			close(sub.done)
		} else {
			close(sub.ch)
		}
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subscribers {
		if sub.queue != nil {
			sub.queue.push(event)
			select {
			case sub.notify <- struct{}{}:
			default:
			}
			continue
		}
		select {
		case sub.ch <- event:
		default:
			slog.Warn("subscriber is behind, event dropped", "subscriber_id", id, "event_type", event.Type)
		}
	}
}

func (b *Bus) PublishNew(eventType EventType, resourceID string, version uint64, metadata map[string]string) *Event {
	event := &Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		ResourceID: resourceID,
		Metadata:   metadata,
		Version:    version,
		CreatedAt:  time.Now(),
	}
	b.Publish(event)
	return event
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
