package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAnnouncesOnlineOnce(t *testing.T) {
	store := newFakeStore()
	observer := &recordingObserver{}
	h := newTestHub(store, observer)

	a := connect(h, 1)
	msgs := received(a)
	require.Len(t, msgs, 1)
	assert.Equal(t, EventOnlineUsers, msgs[0].Event)
	assert.JSONEq(t, `[1]`, string(msgs[0].Data))

	b := connect(h, 2)
	assert.JSONEq(t, `[1,2]`, string(findEvent(t, received(b), EventOnlineUsers).Data))
	online := findEvent(t, received(a), EventOnline)
	assert.JSONEq(t, `2`, string(online.Data))

	// a second tab of user 2 is not a transition
	connect(h, 2)
	assert.Zero(t, countEvent(received(a), EventOnline))
	assert.Empty(t, received(b))

	drainEffects(h)
	assert.Equal(t, []string{"online:1", "online:2"}, observer.events)
	assert.Equal(t, []uint{1, 2, 2}, store.touched)
}

func TestOfflineOnlyAfterLastConnection(t *testing.T) {
	store := newFakeStore()
	observer := &recordingObserver{}
	h := newTestHub(store, observer)

	watcher := connect(h, 9)
	tab1 := connect(h, 1)
	tab2 := connect(h, 1)
	received(watcher)

	h.unregisterClient(tab1)
	assert.Zero(t, countEvent(received(watcher), EventOffline))
	assert.True(t, h.presence.IsOnline(1))

	h.unregisterClient(tab2)
	msgs := received(watcher)
	assert.Equal(t, 1, countEvent(msgs, EventOffline))
	assert.JSONEq(t, `1`, string(findEvent(t, msgs, EventOffline).Data))
	assert.False(t, h.presence.IsOnline(1))
	assert.Empty(t, h.rooms.Members(UserRoom(1)))

	// a repeated disconnect is ignored
	h.unregisterClient(tab2)
	assert.Empty(t, received(watcher))

	drainEffects(h)
	assert.Equal(t, []string{"online:9", "online:1", "offline:1"}, observer.events)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := newTestHub(newFakeStore())
	c := connect(h, 1)
	received(c)

	h.unregisterClient(c)

	_, ok := <-c.send
	assert.False(t, ok)
	assert.True(t, c.isClosed())
}

func TestJoinPostsAndUpdatePost(t *testing.T) {
	h := newTestHub(newFakeStore())
	a := connect(h, 1)
	b := connect(h, 2)
	c := connect(h, 3)
	received(a)
	received(b)
	received(c)

	sendEvent(t, h, a, EventJoinPosts, []uint{10, 11})
	sendEvent(t, h, b, EventJoinPosts, []uint{10})
	sendEvent(t, h, b, EventJoinPosts, []uint{12})

	sendEvent(t, h, c, EventUpdatePost, map[string]interface{}{"id": 10, "likes": 3})

	update := findEvent(t, received(a), EventUpdatePost)
	assert.JSONEq(t, `{"id":10,"likes":3}`, string(update.Data))
	assert.Empty(t, received(b), "b replaced its post rooms")
	assert.Empty(t, received(c), "the sender is excluded")

	sendEvent(t, h, a, EventUpdatePost, map[string]interface{}{"id": 11})
	assert.Empty(t, received(a))
}

func TestAddMessageGoesToMembersExceptSender(t *testing.T) {
	store := newFakeStore()
	store.setMembers(5, 1, 2)
	h := newTestHub(store)

	a1 := connect(h, 1)
	a2 := connect(h, 1)
	b := connect(h, 2)
	outsider := connect(h, 3)
	for _, c := range []*Client{a1, a2, b, outsider} {
		received(c)
	}

	msg := map[string]interface{}{"text": "hey", "member": map[string]interface{}{"conversationId": 5}}
	sendEvent(t, h, a1, EventAddMessage, map[string]interface{}{"message": msg})

	assert.Empty(t, received(a1))
	assert.Equal(t, 1, countEvent(received(a2), EventAddMessage), "other tab of the sender still gets it")
	got := findEvent(t, received(b), EventAddMessage)
	assert.JSONEq(t, `{"message":{"text":"hey","member":{"conversationId":5}}}`, string(got.Data))
	assert.Empty(t, received(outsider))
}

func TestSeenConversation(t *testing.T) {
	store := newFakeStore()
	store.setMembers(5, 1, 2)
	h := newTestHub(store)
	a := connect(h, 1)
	b := connect(h, 2)
	received(a)
	received(b)

	sendEvent(t, h, a, EventSeenConversation, map[string]uint{"conversationId": 5})

	seen := findEvent(t, received(b), EventSeenConversation)
	assert.JSONEq(t, `{"userId":1,"conversationId":5}`, string(seen.Data))
	assert.Empty(t, received(a))
}

func TestStoreFailureDropsEvent(t *testing.T) {
	store := newFakeStore()
	store.setMembers(5, 1, 2)
	store.err = errors.New("db down")
	h := newTestHub(store)
	a := connect(h, 1)
	b := connect(h, 2)
	received(a)
	received(b)

	sendEvent(t, h, a, EventSeenConversation, map[string]uint{"conversationId": 5})

	assert.Empty(t, received(a))
	assert.Empty(t, received(b))
}

func TestContinuationDroppedAfterDisconnect(t *testing.T) {
	store := newFakeStore()
	store.setMembers(5, 1, 2)
	h := newTestHub(store)
	a := connect(h, 1)
	b := connect(h, 2)
	received(b)

	frame, err := Encode(EventSeenConversation, map[string]uint{"conversationId": 5})
	require.NoError(t, err)
	h.dispatch(a, frame)
	h.unregisterClient(a)
	received(b)
	flush(h)

	assert.Zero(t, countEvent(received(b), EventSeenConversation))
}

func TestFriendRequestRelays(t *testing.T) {
	h := newTestHub(newFakeStore())
	sender := connect(h, 1)
	senderTab := connect(h, 1)
	receiver := connect(h, 2)
	other := connect(h, 3)
	for _, c := range []*Client{sender, senderTab, receiver, other} {
		received(c)
	}

	sendEvent(t, h, sender, EventAddFriendRequest, map[string]interface{}{"id": 7, "senderId": 1, "receiverId": 2, "note": "hi"})
	add := findEvent(t, received(receiver), EventAddFriendRequest)
	assert.JSONEq(t, `{"id":7,"senderId":1,"receiverId":2,"note":"hi"}`, string(add.Data))
	assert.Equal(t, 1, countEvent(received(senderTab), EventAddFriendRequest))
	assert.Empty(t, received(sender))
	assert.Empty(t, received(other))

	sendEvent(t, h, receiver, EventDeleteFriendRequest, map[string]interface{}{"id": 7, "senderId": 1, "receiverId": 2})
	del := findEvent(t, received(sender), EventDeleteFriendRequest)
	assert.JSONEq(t, `7`, string(del.Data))
	assert.Empty(t, received(receiver))
}

func TestInvalidFrameGetsErrorEvent(t *testing.T) {
	h := newTestHub(newFakeStore())
	a := connect(h, 1)
	b := connect(h, 2)
	received(a)
	received(b)

	h.dispatch(a, []byte(`not json`))
	h.dispatch(a, []byte(`{"event":"dance"}`))

	msgs := received(a)
	require.Len(t, msgs, 2)
	var first, second ErrorData
	require.NoError(t, json.Unmarshal(msgs[0].Data, &first))
	require.NoError(t, json.Unmarshal(msgs[1].Data, &second))
	assert.Equal(t, "INVALID_MESSAGE", first.Code)
	assert.Equal(t, "UNKNOWN_EVENT", second.Code)
	assert.Empty(t, received(b))
}

func TestPeerLookup(t *testing.T) {
	h := newTestHub(newFakeStore())
	a := connect(h, 1)
	b := connect(h, 2)
	received(a)

	sendEvent(t, h, a, EventGetUserFromPeerID, map[string]string{"peerId": string(b.id)})
	owner := findEvent(t, received(a), EventGetUserFromPeerID)
	assert.JSONEq(t, `{"userId":2,"peerId":"`+string(b.id)+`"}`, string(owner.Data))

	sendEvent(t, h, a, EventGetUserFromPeerID, map[string]string{"peerId": "missing"})
	assert.Empty(t, received(a))
}

func TestMediaFlags(t *testing.T) {
	h := newTestHub(newFakeStore())
	a := connect(h, 1)
	b := connect(h, 2)
	received(a)
	received(b)

	sendEvent(t, h, a, EventChange, map[string]bool{"audio": true})
	assert.Equal(t, 1, countEvent(received(a), EventGetChange), "change is broadcast to the sender too")
	snapshot := findEvent(t, received(b), EventGetChange)
	assert.JSONEq(t, `{"`+string(a.id)+`":{"audio":true}}`, string(snapshot.Data))

	sendEvent(t, h, b, EventGetChange, nil)
	assert.JSONEq(t, `{"`+string(a.id)+`":{"audio":true}}`, string(findEvent(t, received(b), EventGetChange).Data))
	assert.Empty(t, received(a))

	h.unregisterClient(a)
	assert.JSONEq(t, `{}`, string(findEvent(t, received(b), EventGetChange).Data))
}

func TestOnlineUsersQuery(t *testing.T) {
	h := NewHub(newFakeStore(), Options{})
	go h.Run()
	defer h.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c := newTestClient(h, 4)
	require.NoError(t, h.Register(ctx, c))

	ids, err := h.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{4}, ids)
}

func TestStoppedHubRejectsRegistration(t *testing.T) {
	h := NewHub(newFakeStore(), Options{})
	go h.Run()
	h.Stop()

	err := h.Register(context.Background(), newTestClient(h, 1))
	assert.ErrorIs(t, err, ErrHubStopped)

	_, err = h.OnlineUsers(context.Background())
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestStatsCounters(t *testing.T) {
	store := newFakeStore()
	store.setMembers(5, 1, 2)
	h := newTestHub(store)
	a := connect(h, 1)
	b := connect(h, 2)

	h.dispatch(a, []byte(`{"event":"dance"}`))
	sendEvent(t, h, a, EventCall, map[string]interface{}{"conversation": map[string]interface{}{"id": 5}})
	sendEvent(t, h, a, EventLeftCall, map[string]uint{"roomId": 5})
	received(a)
	received(b)

	stats := h.snapshotStats()
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, 2, stats.OnlineUsers)
	assert.Equal(t, 0, stats.ActiveCalls)
	assert.Equal(t, int64(1), stats.CallsStarted)
	assert.Equal(t, int64(1), stats.CallsEnded)
	assert.Equal(t, int64(1), stats.FramesRejected)
	assert.Zero(t, stats.FramesDropped)
	assert.Positive(t, stats.FramesDelivered)
}

func TestGuardRecoversPanics(t *testing.T) {
	h := newTestHub(newFakeStore())

	assert.NotPanics(t, func() {
		h.guard(func() { panic("boom") })
	})
}
