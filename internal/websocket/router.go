package websocket

import (
	"context"
	"errors"
)

// dispatch decodes a frame and routes it. A bad frame only ever produces an
// error event for its sender.
func (h *Hub) dispatch(client *Client, frame []byte) {
	if h.clients[client.id] != client {
		return
	}

	ev, err := DecodeInbound(frame)
	if err != nil {
		h.metrics.framesRejected++
		h.logger.Warn("Rejected client frame", "clientID", client.id, "userID", client.userID, "error", err)
		code := "INVALID_MESSAGE"
		if errors.Is(err, ErrUnknownEvent) {
			code = "UNKNOWN_EVENT"
		}
		h.emit(client, EventError, ErrorData{Code: code, Message: err.Error()})
		return
	}

	h.logger.Debug("Dispatching event", "clientID", client.id, "userID", client.userID, "event", ev.Name())

	switch ev := ev.(type) {
	case JoinPostsEvent:
		h.rooms.JoinPosts(client.id, ev.PostIDs)
	case AddMessageEvent:
		h.handleAddMessage(client, ev)
	case SeenConversationEvent:
		h.handleSeenConversation(client, ev)
	case FriendRequestEvent:
		h.handleFriendRequest(client, ev)
	case UpdatePostEvent:
		h.toRooms([]RoomKey{PostRoom(ev.PostID)}, EventUpdatePost, ev.Post, client)
	case CallEvent:
		h.handleCall(client, ev)
	case JoinRoomEvent:
		h.joinCall(client, ev.RoomID)
	case LeftCallEvent:
		h.handleLeftCall(client, ev)
	case PeerLookupEvent:
		h.handlePeerLookup(client, ev)
	case ChangeEvent:
		h.media.Set(client.id, ev.Flags)
		h.broadcast(EventGetChange, h.media.Snapshot(), nil)
	case LeaveMediaEvent:
		h.media.Clear(client.id)
		h.broadcast(EventGetChange, h.media.Snapshot(), nil)
	case GetChangeEvent:
		h.emit(client, EventGetChange, h.media.Snapshot())
	}
}

func memberRooms(userIDs []uint) []RoomKey {
	keys := make([]RoomKey, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, UserRoom(id))
	}
	return keys
}

// withMembers resolves a conversation off the loop and hands its members to fn
// back on the loop. Store failures are logged and the event is dropped.
func (h *Hub) withMembers(client *Client, conversationID uint, fn func(members []uint)) {
	h.await(client, func(ctx context.Context) func() {
		members, err := h.store.MembersOf(ctx, conversationID)
		if err != nil {
			h.logger.Error("Failed to resolve conversation members",
				"clientID", client.id, "conversationID", conversationID, "error", err)
			return nil
		}
		return func() { fn(members) }
	})
}

func (h *Hub) handleAddMessage(client *Client, ev AddMessageEvent) {
	h.withMembers(client, ev.ConversationID, func(members []uint) {
		h.toRooms(memberRooms(members), EventAddMessage, AddMessageData{Message: ev.Message}, client)
	})
}

func (h *Hub) handleSeenConversation(client *Client, ev SeenConversationEvent) {
	h.withMembers(client, ev.ConversationID, func(members []uint) {
		h.toRooms(memberRooms(members), EventSeenConversation, SeenConversationData{
			UserID:         client.userID,
			ConversationID: ev.ConversationID,
		}, client)
	})
}

func (h *Hub) handleFriendRequest(client *Client, ev FriendRequestEvent) {
	var payload interface{} = ev.Request
	if ev.Event != EventAddFriendRequest {
		payload = ev.RequestID
	}
	h.toRooms([]RoomKey{UserRoom(ev.SenderID), UserRoom(ev.ReceiverID)}, ev.Event, payload, client)
}

func (h *Hub) handlePeerLookup(client *Client, ev PeerLookupEvent) {
	owner, ok := h.clients[ev.PeerID]
	if !ok {
		return
	}
	h.emit(client, EventGetUserFromPeerID, PeerOwnerData{UserID: owner.userID, PeerID: ev.PeerID})
}

// =============================================================================
// Call signaling
// =============================================================================

func (h *Hub) handleCall(client *Client, ev CallEvent) {
	if h.calls.IsBusy(client.userID) {
		h.emit(client, EventMeBusy, nil)
		return
	}
	h.withMembers(client, ev.ConversationID, func(members []uint) {
		h.startCall(client, ev, members)
	})
}

// startCall runs after the member lookup, so everything checked before the
// lookup is checked again.
func (h *Hub) startCall(client *Client, ev CallEvent, members []uint) {
	if h.calls.IsBusy(client.userID) {
		h.emit(client, EventMeBusy, nil)
		return
	}

	isMember := false
	var online []uint
	for _, id := range members {
		if id == client.userID {
			isMember = true
			continue
		}
		if h.presence.IsOnline(id) {
			online = append(online, id)
		}
	}
	if !isMember {
		h.logger.Warn("Call to a conversation the caller is not in",
			"clientID", client.id, "userID", client.userID, "conversationID", ev.ConversationID)
		h.emit(client, EventError, ErrorData{Code: "NOT_A_MEMBER", Message: "not a member of this conversation"})
		return
	}

	room := CallID(ev.ConversationID)
	if h.calls.Active(room) {
		h.joinCall(client, room)
		return
	}

	if len(online) == 0 {
		h.emit(client, EventOtherOffline, nil)
		return
	}

	var free []uint
	for _, id := range online {
		if !h.calls.IsBusy(id) {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		h.emit(client, EventOtherBusy, nil)
		return
	}

	if err := h.calls.Start(room, client.id, client.userID); err != nil {
		h.logger.Error("Failed to start call", "clientID", client.id, "roomID", room, "error", err)
		return
	}
	h.metrics.callsStarted++
	h.logger.Info("Call started", "clientID", client.id, "userID", client.userID, "roomID", room, "callees", free)

	h.toRooms(memberRooms(free), EventCall, ev.Payload, client)
}

func (h *Hub) joinCall(client *Client, room CallID) {
	others, err := h.calls.Join(room, client.id, client.userID)
	switch {
	case errors.Is(err, ErrNoCallRoom):
		h.logger.Debug("Join for absent call room", "clientID", client.id, "roomID", room)
	case errors.Is(err, ErrRoomFull):
		h.emit(client, EventRoomFull, RoomData{RoomID: room})
	case errors.Is(err, ErrBusy):
		h.emit(client, EventMeBusy, RoomData{RoomID: room})
	case err != nil:
		h.logger.Error("Failed to join call", "clientID", client.id, "roomID", room, "error", err)
	default:
		h.logger.Info("Joined call", "clientID", client.id, "userID", client.userID, "roomID", room)
		h.emit(client, EventAllUsers, others)
	}
}

func (h *Hub) handleLeftCall(client *Client, ev LeftCallEvent) {
	ended, err := h.calls.LeaveRoom(ev.RoomID, client.id)
	if err != nil {
		h.logger.Debug("Leave for a call the client is not in", "clientID", client.id, "roomID", ev.RoomID)
		return
	}

	if ended {
		h.metrics.callsEnded++
		h.logger.Info("Call ended", "roomID", ev.RoomID)
		h.broadcast(EventEndCall, RoomData{RoomID: ev.RoomID}, nil)
		return
	}
	h.broadcast(EventLeftCall, LeftCallData{RoomID: ev.RoomID, ConnID: client.id}, client)
}
