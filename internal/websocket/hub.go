package websocket

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrHubStopped         = errors.New("hub stopped")
)

// Store is the slice of the relational store the gateway needs.
type Store interface {
	MembersOf(ctx context.Context, conversationID uint) ([]uint, error)
	TouchLastOnline(ctx context.Context, userID uint) error
}

// PresenceObserver is told about online/offline transitions, off the event loop.
type PresenceObserver interface {
	UserOnline(ctx context.Context, userID uint)
	UserOffline(ctx context.Context, userID uint)
}

type ClientMessage struct {
	Client *Client
	Frame  []byte
}

type Options struct {
	CallCapacity int
	StoreTimeout time.Duration
	Observers    []PresenceObserver
	Logger       *slog.Logger
}

// Hub is the single authority over presence, rooms, calls and media flags.
// Every mutation happens on the goroutine running Run; other goroutines talk
// to it through channels only.
type Hub struct {
	clients  map[ConnID]*Client
	presence *Presence
	rooms    *RoomTracker
	calls    *CallCoordinator
	media    *MediaFlags
	metrics  hubMetrics

	store        Store
	storeTimeout time.Duration
	observers    []PresenceObserver

	register   chan *Client
	unregister chan *Client
	inbound    chan *ClientMessage
	// tasks carries continuations of store calls and queries back onto the loop.
	tasks chan func()
	// effects runs collaborator side effects in order, off the loop.
	effects chan func(ctx context.Context)

	// spawn runs store calls that a handler waits on.
	spawn func(func())

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	logger *slog.Logger
}

func NewHub(store Store, opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}

	return &Hub{
		clients:      make(map[ConnID]*Client),
		presence:     NewPresence(),
		rooms:        NewRoomTracker(),
		calls:        NewCallCoordinator(opts.CallCapacity),
		media:        NewMediaFlags(),
		store:        store,
		storeTimeout: opts.StoreTimeout,
		observers:    opts.Observers,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		inbound:      make(chan *ClientMessage, 256),
		tasks:        make(chan func(), 1024),
		effects:      make(chan func(ctx context.Context), 1024),
		spawn:        func(f func()) { go f() },
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
		logger:       logger.With(slog.String("component", "gateway_hub")),
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	go h.runEffects()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.inbound:
			h.guard(func() { h.dispatch(msg.Client, msg.Frame) })

		case task := <-h.tasks:
			h.guard(task)

		case <-h.ctx.Done():
			h.shutdown()
			return
		}
	}
}

// guard keeps a panicking handler from taking the loop down with it.
func (h *Hub) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered from handler panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Stop ends the loop and closes every connection.
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

func (h *Hub) Register(ctx context.Context, client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Dispatch queues a raw client frame for the loop.
func (h *Hub) Dispatch(client *Client, frame []byte) {
	select {
	case h.inbound <- &ClientMessage{Client: client, Frame: frame}:
	case <-client.ctx.Done():
	case <-h.ctx.Done():
	}
}

// OnlineUsers returns the current online snapshot.
func (h *Hub) OnlineUsers(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := h.query(ctx, func() { ids = h.presence.Online() })
	return ids, err
}

// Stats returns the hub counters.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := h.query(ctx, func() { stats = h.snapshotStats() })
	return stats, err
}

// query runs read on the loop and waits for it.
func (h *Hub) query(ctx context.Context, read func()) error {
	done := make(chan struct{})
	select {
	case h.tasks <- func() { read(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

// registerClient moves an authenticated connection to Active: personal room,
// presence, and the online snapshot.
func (h *Hub) registerClient(client *Client) {
	if _, exists := h.clients[client.id]; exists {
		return
	}
	h.clients[client.id] = client
	h.rooms.Join(client.id, UserRoom(client.userID))

	if h.presence.Add(client.userID, client.id) {
		h.broadcast(EventOnline, client.userID, client)
		h.notifyObservers(client.userID, true)
	}
	h.emit(client, EventOnlineUsers, h.presence.Online())
	h.touchLastOnline(client.userID)

	h.logger.Info("Client registered", "clientID", client.id, "userID", client.userID)
}

// unregisterClient tears down in order: call, rooms and presence, media flags.
// The call goes first so busy checks made while it unwinds still see the user.
func (h *Hub) unregisterClient(client *Client) {
	if h.clients[client.id] != client {
		return
	}
	delete(h.clients, client.id)

	if id, ended, ok := h.calls.Leave(client.id); ok {
		if ended {
			h.metrics.callsEnded++
			h.broadcast(EventEndCall, RoomData{RoomID: id}, client)
		} else {
			h.broadcast(EventLeftCall, LeftCallData{RoomID: id, ConnID: client.id}, client)
		}
	}

	h.rooms.LeaveAll(client.id)
	if h.presence.Remove(client.userID, client.id) && len(h.rooms.Members(UserRoom(client.userID))) == 0 {
		h.broadcast(EventOffline, client.userID, client)
		h.notifyObservers(client.userID, false)
	}

	if h.media.Clear(client.id) {
		h.broadcast(EventGetChange, h.media.Snapshot(), client)
	}

	h.touchLastOnline(client.userID)
	client.closeSendChannel()
	client.close()

	h.logger.Info("Client unregistered", "clientID", client.id, "userID", client.userID)
}

func (h *Hub) shutdown() {
	for _, client := range h.clients {
		client.closeSendChannel()
		client.close()
	}
	h.logger.Info("WebSocket hub shutting down", "clients", len(h.clients))
}

// await runs work off the loop and queues the continuation it returns. The
// continuation is dropped if the client has disconnected in the meantime.
func (h *Hub) await(client *Client, work func(ctx context.Context) func()) {
	h.spawn(func() {
		ctx, cancel := context.WithTimeout(h.ctx, h.storeTimeout)
		next := work(ctx)
		cancel()
		if next == nil {
			return
		}

		task := func() {
			if h.clients[client.id] != client {
				h.logger.Debug("Dropping result for closed client", "clientID", client.id)
				return
			}
			next()
		}
		select {
		case h.tasks <- task:
		case <-h.ctx.Done():
		}
	})
}

func (h *Hub) runEffects() {
	for {
		select {
		case effect := <-h.effects:
			ctx, cancel := context.WithTimeout(context.Background(), h.storeTimeout)
			effect(ctx)
			cancel()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) sideEffect(effect func(ctx context.Context)) {
	select {
	case h.effects <- effect:
	default:
		h.logger.Warn("Side effect queue full, dropping")
	}
}

func (h *Hub) touchLastOnline(userID uint) {
	if h.store == nil {
		return
	}
	h.sideEffect(func(ctx context.Context) {
		if err := h.store.TouchLastOnline(ctx, userID); err != nil {
			h.logger.Error("Failed to update last online", "userID", userID, "error", err)
		}
	})
}

func (h *Hub) notifyObservers(userID uint, online bool) {
	if len(h.observers) == 0 {
		return
	}
	h.sideEffect(func(ctx context.Context) {
		for _, o := range h.observers {
			if online {
				o.UserOnline(ctx, userID)
			} else {
				o.UserOffline(ctx, userID)
			}
		}
	})
}

// =============================================================================
// Delivery
// =============================================================================

func (h *Hub) encode(event EventName, payload interface{}) ([]byte, bool) {
	data, err := Encode(event, payload)
	if err != nil {
		h.logger.Error("Failed to encode event", "event", event, "error", err)
		return nil, false
	}
	return data, true
}

// emit sends to one connection.
func (h *Hub) emit(client *Client, event EventName, payload interface{}) {
	if data, ok := h.encode(event, payload); ok {
		h.deliver(client, data)
	}
}

// broadcast sends to every connection except the given one (which may be nil).
func (h *Hub) broadcast(event EventName, payload interface{}, except *Client) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}
	n := 0
	for _, client := range h.clients {
		if client != except {
			h.deliver(client, data)
			n++
		}
	}
	h.metrics.recordFanout(n)
}

// toRooms sends once to every connection in any of the rooms, except one.
func (h *Hub) toRooms(keys []RoomKey, event EventName, payload interface{}, except *Client) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}

	seen := make(map[ConnID]struct{})
	for _, key := range keys {
		for _, id := range h.rooms.Members(key) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			client, ok := h.clients[id]
			if !ok || client == except {
				continue
			}
			h.deliver(client, data)
		}
	}
	h.metrics.recordFanout(len(seen))
}

func (h *Hub) deliver(client *Client, data []byte) {
	if err := client.trySend(data); err != nil {
		h.metrics.framesDropped++
		h.logger.Warn("Failed to deliver event", "clientID", client.id, "userID", client.userID, "error", err)
		return
	}
	h.metrics.framesDelivered++
}
