// Package notification provides the notification manager for broadcasting player events.
package notification

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodybox/internal/api/playerapi"
)

// DefaultBuffer is the number of notifications queued per subscriber.
const DefaultBuffer = 64

var (
	// ErrLagging is returned by Send when the subscriber's queue is full.
	ErrLagging = errors.New("notification: subscriber is lagging")
	// ErrNotSubscribed is returned by Send for an unknown or ended subscription.
	ErrNotSubscribed = errors.New("notification: not subscribed")
)

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*playerapi.Notification) error
}

// subscription is one subscriber and its delivery goroutine.
type subscription struct {
	id     string
	stream Stream
	queue  chan *playerapi.Notification
	done   chan struct{} // closed to stop delivery
	exited chan struct{} // closed when delivery returned
}

// Manager manages notification subscriptions and broadcasting.
// Each subscriber gets its own ordered queue, so a slow stream neither
// blocks the broadcaster nor reorders what the others receive.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	retired       map[string]*subscription // stopped by Close, awaiting Unsubscribe
	sequenceNo    uint64                   // guarded by mu
	buffer        int
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		retired:       make(map[string]*subscription),
		buffer:        DefaultBuffer,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// When initial is non-nil, its notification is built under the broadcast
// lock and queued first, so nothing broadcast afterwards precedes it.
// Delivery runs until Unsubscribe, Close, or a failed send.
func (m *Manager) Subscribe(stream Stream, initial func() *playerapi.Notification) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.buffer
	if initial != nil {
		size++
	}
	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
		queue:  make(chan *playerapi.Notification, size),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	if initial != nil {
		if n := initial(); n != nil {
			n.SequenceNo = m.nextSequenceNoLocked()
			sub.queue <- n
		}
	}
	m.subscriptions[sub.id] = sub
	go m.deliver(sub)

	zlog.Debug().Msgf("notification: subscribed id=%s total=%d", sub.id, len(m.subscriptions))
	return sub.id
}

func (m *Manager) deliver(sub *subscription) {
	defer close(sub.exited)
	for {
		select {
		case <-sub.done:
			return
		case n := <-sub.queue:
			if err := sub.stream.Send(n); err != nil {
				zlog.Warn().Msgf("notification: dropping subscriber id=%s: %v", sub.id, err)
				m.drop(sub.id)
				return
			}
		}
	}
}

// drop removes a subscription whose delivery already ended.
func (m *Manager) drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscriptions[id]; ok {
		delete(m.subscriptions, id)
		close(sub.done)
	}
}

// nextSequenceNoLocked increments the counter. Must be called with the
// write lock held, so numbers follow queue order on every subscriber.
func (m *Manager) nextSequenceNoLocked() uint64 {
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription. When it returns, the stream is no
// longer written to.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	if ok {
		delete(m.subscriptions, subscriptionID)
		close(sub.done)
	} else if sub, ok = m.retired[subscriptionID]; ok {
		delete(m.retired, subscriptionID)
	}
	m.mu.Unlock()

	if ok {
		<-sub.exited
	}
}

// Broadcast assigns the next sequence number and queues the notification
// for every subscriber. A subscriber whose queue is full misses it.
func (m *Manager) Broadcast(notification *playerapi.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	notification.SequenceNo = m.nextSequenceNoLocked()
	for _, sub := range m.subscriptions {
		select {
		case sub.queue <- notification:
		default:
			zlog.Warn().Msgf("notification: subscriber id=%s is lagging, dropped seq=%d", sub.id, notification.SequenceNo)
		}
	}
}

// Send assigns the next sequence number and queues a notification for one
// subscriber, behind everything already broadcast to it.
func (m *Manager) Send(subscriptionID string, notification *playerapi.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return ErrNotSubscribed
	}
	notification.SequenceNo = m.nextSequenceNoLocked()
	select {
	case sub.queue <- notification:
		return nil
	default:
		return ErrLagging
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close stops delivery to every subscriber. It does not wait for
// in-flight sends; Unsubscribe does.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subscriptions {
		close(sub.done)
		m.retired[id] = sub
	}
	m.subscriptions = make(map[string]*subscription)
}
