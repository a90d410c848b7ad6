package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/melodybox/internal/api/playerapi"
)

type recordingStream struct {
	mu   sync.Mutex
	got  []*playerapi.Notification
	err  error
	wait chan struct{}
}

func (s *recordingStream) Send(n *playerapi.Notification) error {
	if s.wait != nil {
		<-s.wait
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, n)
	return nil
}

func (s *recordingStream) received() []*playerapi.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*playerapi.Notification(nil), s.got...)
}

func (s *recordingStream) count() int {
	return len(s.received())
}

func TestBroadcast_AssignsSequence(t *testing.T) {
	m := NewManager()
	a, b := &recordingStream{}, &recordingStream{}
	m.Subscribe(a, nil)
	m.Subscribe(b, nil)

	m.Broadcast(&playerapi.Notification{Type: playerapi.NotificationEvent})
	m.Broadcast(&playerapi.Notification{Type: playerapi.NotificationEvent})

	for _, s := range []*recordingStream{a, b} {
		require.Eventually(t, func() bool { return s.count() == 2 }, time.Second, 5*time.Millisecond)
		got := s.received()
		assert.Equal(t, uint64(1), got[0].SequenceNo)
		assert.Equal(t, uint64(2), got[1].SequenceNo)
	}

	m.Broadcast(&playerapi.Notification{})
	require.Eventually(t, func() bool { return a.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(3), a.received()[2].SequenceNo)
}

func TestBroadcast_KeepsOrder(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	m.Subscribe(s, nil)

	for range 20 {
		m.Broadcast(&playerapi.Notification{})
	}

	require.Eventually(t, func() bool { return s.count() == 20 }, time.Second, 5*time.Millisecond)
	for i, n := range s.received() {
		assert.Equal(t, uint64(i+1), n.SequenceNo)
	}
}

func TestBroadcast_DropsFailingSubscriber(t *testing.T) {
	m := NewManager()
	ok := &recordingStream{}
	broken := &recordingStream{err: errors.New("stream closed")}
	m.Subscribe(ok, nil)
	m.Subscribe(broken, nil)

	m.Broadcast(&playerapi.Notification{})

	require.Eventually(t, func() bool { return m.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return ok.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestBroadcast_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager()
	slow := &recordingStream{wait: make(chan struct{})}
	fast := &recordingStream{}

	// the queue size is taken at subscribe time
	m.buffer = 2
	slowID := m.Subscribe(slow, nil)
	m.buffer = DefaultBuffer
	m.Subscribe(fast, nil)

	start := time.Now()
	for range 5 {
		m.Broadcast(&playerapi.Notification{})
	}
	assert.Less(t, time.Since(start), time.Second)

	require.Eventually(t, func() bool { return fast.count() == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, m.SubscriberCount(), "a lagging subscriber stays subscribed")

	close(slow.wait)
	m.Unsubscribe(slowID)
	got := slow.received()
	assert.NotEmpty(t, got)
	assert.Less(t, len(got), 5)
}

func TestSubscribe_InitialComesFirst(t *testing.T) {
	m := NewManager()
	m.Broadcast(&playerapi.Notification{})

	s := &recordingStream{}
	m.Subscribe(s, func() *playerapi.Notification {
		return &playerapi.Notification{Type: playerapi.NotificationInitialState}
	})
	m.Broadcast(&playerapi.Notification{Type: playerapi.NotificationEvent})

	require.Eventually(t, func() bool { return s.count() == 2 }, time.Second, 5*time.Millisecond)
	got := s.received()
	assert.Equal(t, playerapi.NotificationInitialState, got[0].Type)
	assert.Equal(t, uint64(2), got[0].SequenceNo)
	assert.Equal(t, uint64(3), got[1].SequenceNo)
}

func TestSend_SharesSequenceWithBroadcast(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	other := &recordingStream{}
	id := m.Subscribe(s, nil)
	m.Subscribe(other, nil)

	for i := range 30 {
		if i%3 == 0 {
			require.NoError(t, m.Send(id, &playerapi.Notification{Type: playerapi.NotificationCommand}))
			continue
		}
		m.Broadcast(&playerapi.Notification{Type: playerapi.NotificationEvent})
	}

	require.Eventually(t, func() bool { return s.count() == 30 }, time.Second, 5*time.Millisecond)
	for i, n := range s.received() {
		assert.Equal(t, uint64(i+1), n.SequenceNo)
	}
	require.Eventually(t, func() bool { return other.count() == 20 }, time.Second, 5*time.Millisecond)
	for _, n := range other.received() {
		assert.Equal(t, playerapi.NotificationEvent, n.Type)
	}
}

func TestSend_LaggingAndUnsubscribed(t *testing.T) {
	m := NewManager()
	m.buffer = 1
	blocked := &recordingStream{wait: make(chan struct{})}
	id := m.Subscribe(blocked, nil)

	// one in flight, one queued, then the queue is full
	require.NoError(t, m.Send(id, &playerapi.Notification{}))
	require.Eventually(t, func() bool {
		return m.Send(id, &playerapi.Notification{}) == nil
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, m.Send(id, &playerapi.Notification{}), ErrLagging)

	close(blocked.wait)
	m.Unsubscribe(id)
	assert.ErrorIs(t, m.Send(id, &playerapi.Notification{}), ErrNotSubscribed)
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestClose(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	id := m.Subscribe(s, nil)

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())

	m.Broadcast(&playerapi.Notification{})
	m.Unsubscribe(id)
	assert.Empty(t, s.received())
}
