package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	members map[uint][]uint
	err     error
	touched []uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{members: make(map[uint][]uint)}
}

func (s *fakeStore) MembersOf(_ context.Context, conversationID uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]uint(nil), s.members[conversationID]...), nil
}

func (s *fakeStore) TouchLastOnline(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, userID)
	return nil
}

func (s *fakeStore) setMembers(conversationID uint, userIDs ...uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[conversationID] = userIDs
}

type recordingObserver struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) UserOnline(_ context.Context, userID uint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, fmt.Sprintf("online:%d", userID))
}

func (o *recordingObserver) UserOffline(_ context.Context, userID uint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, fmt.Sprintf("offline:%d", userID))
}

// newTestHub returns a hub whose store calls run inline. Tests drive the loop
// by hand with connect, send and flush instead of running Run.
func newTestHub(store Store, observers ...PresenceObserver) *Hub {
	h := NewHub(store, Options{Observers: observers})
	h.spawn = func(f func()) { f() }
	return h
}

// pendingLookups holds spawned store calls until the test releases them, so
// events can be sent while a lookup is in flight.
type pendingLookups struct {
	fns []func()
}

func (p *pendingLookups) release() {
	fns := p.fns
	p.fns = nil
	for _, f := range fns {
		f()
	}
}

func newDeferredHub(store Store) (*Hub, *pendingLookups) {
	h := NewHub(store, Options{})
	pending := &pendingLookups{}
	h.spawn = func(f func()) { pending.fns = append(pending.fns, f) }
	return h, pending
}

var connSeq int64

func newTestClient(h *Hub, userID uint) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:     ConnID(fmt.Sprintf("conn-%d", atomic.AddInt64(&connSeq, 1))),
		userID: userID,
		hub:    h,
		send:   make(chan []byte, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

// flush runs queued continuations on the calling goroutine, as the loop would.
func flush(h *Hub) {
	for {
		select {
		case task := <-h.tasks:
			task()
		default:
			return
		}
	}
}

// drainEffects runs queued side effects in order.
func drainEffects(h *Hub) {
	for {
		select {
		case effect := <-h.effects:
			effect(context.Background())
		default:
			return
		}
	}
}

func connect(h *Hub, userID uint) *Client {
	c := newTestClient(h, userID)
	h.registerClient(c)
	return c
}

func sendEvent(t *testing.T, h *Hub, c *Client, event EventName, payload interface{}) {
	t.Helper()
	frame, err := Encode(event, payload)
	require.NoError(t, err)
	h.dispatch(c, frame)
	flush(h)
}

// received drains everything queued for the client.
func received(c *Client) []Message {
	var out []Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg Message
			if err := json.Unmarshal(data, &msg); err == nil {
				out = append(out, msg)
			}
		default:
			return out
		}
	}
}

func eventsOf(msgs []Message) []EventName {
	out := make([]EventName, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Event)
	}
	return out
}

func countEvent(msgs []Message, event EventName) int {
	n := 0
	for _, m := range msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

func findEvent(t *testing.T, msgs []Message, event EventName) Message {
	t.Helper()
	for _, m := range msgs {
		if m.Event == event {
			return m
		}
	}
	require.Failf(t, "event not received", "%s not in %v", event, eventsOf(msgs))
	return Message{}
}
