package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventName is the name carried in every frame's "event" field.
type EventName string

// Inbound events (client -> gateway)
const (
	EventJoinPosts           EventName = "joinPosts"
	EventAddMessage          EventName = "addMessage"
	EventSeenConversation    EventName = "seenConversation"
	EventAddFriendRequest    EventName = "addFriendRequest"
	EventUpdateFriendRequest EventName = "updateFriendRequest"
	EventDeleteFriendRequest EventName = "deleteFriendRequest"
	EventUpdatePost          EventName = "updatePost"
	EventCall                EventName = "call"
	EventJoinRoom            EventName = "joinRoom"
	EventLeftCall            EventName = "leftCall"
	EventGetUserFromPeerID   EventName = "getUserFromPeerId"
	EventChange              EventName = "change"
	EventLeave               EventName = "leave"
	EventGetChange           EventName = "getChange"
)

// Outbound-only events (gateway -> client)
const (
	EventOnline       EventName = "online"
	EventOffline      EventName = "offline"
	EventOnlineUsers  EventName = "onlineUsers"
	EventMeBusy       EventName = "meBusy"
	EventOtherOffline EventName = "otherOffline"
	EventOtherBusy    EventName = "otherBusy"
	EventAllUsers     EventName = "allUsers"
	EventRoomFull     EventName = "roomFull"
	EventEndCall      EventName = "endCall"
	EventError        EventName = "error"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Message is the frame envelope in both directions.
type Message struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an outbound frame once so it can be fanned out as bytes.
func Encode(event EventName, payload interface{}) ([]byte, error) {
	msg := Message{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}

// Inbound is implemented by every decoded client event.
type Inbound interface {
	Name() EventName
}

type JoinPostsEvent struct {
	PostIDs []uint
}

type AddMessageEvent struct {
	ConversationID uint
	Message        json.RawMessage
}

type SeenConversationEvent struct {
	ConversationID uint
}

// FriendRequestEvent covers add, update and delete; Event says which.
type FriendRequestEvent struct {
	Event      EventName
	RequestID  json.RawMessage
	SenderID   uint
	ReceiverID uint
	Request    json.RawMessage
}

type UpdatePostEvent struct {
	PostID uint
	Post   json.RawMessage
}

type CallEvent struct {
	ConversationID uint
	Payload        json.RawMessage
}

type JoinRoomEvent struct {
	RoomID CallID
}

type LeftCallEvent struct {
	RoomID CallID
}

type PeerLookupEvent struct {
	PeerID ConnID
}

type ChangeEvent struct {
	Flags json.RawMessage
}

type LeaveMediaEvent struct{}

type GetChangeEvent struct{}

func (JoinPostsEvent) Name() EventName        { return EventJoinPosts }
func (AddMessageEvent) Name() EventName       { return EventAddMessage }
func (SeenConversationEvent) Name() EventName { return EventSeenConversation }
func (e FriendRequestEvent) Name() EventName  { return e.Event }
func (UpdatePostEvent) Name() EventName       { return EventUpdatePost }
func (CallEvent) Name() EventName             { return EventCall }
func (JoinRoomEvent) Name() EventName         { return EventJoinRoom }
func (LeftCallEvent) Name() EventName         { return EventLeftCall }
func (PeerLookupEvent) Name() EventName       { return EventGetUserFromPeerID }
func (ChangeEvent) Name() EventName           { return EventChange }
func (LeaveMediaEvent) Name() EventName       { return EventLeave }
func (GetChangeEvent) Name() EventName        { return EventGetChange }

type decoder func(data json.RawMessage) (Inbound, error)

var decoders = map[EventName]decoder{
	EventJoinPosts:           decodeJoinPosts,
	EventAddMessage:          decodeAddMessage,
	EventSeenConversation:    decodeSeenConversation,
	EventAddFriendRequest:    friendRequestDecoder(EventAddFriendRequest),
	EventUpdateFriendRequest: friendRequestDecoder(EventUpdateFriendRequest),
	EventDeleteFriendRequest: friendRequestDecoder(EventDeleteFriendRequest),
	EventUpdatePost:          decodeUpdatePost,
	EventCall:                decodeCall,
	EventJoinRoom:            decodeJoinRoom,
	EventLeftCall:            decodeLeftCall,
	EventGetUserFromPeerID:   decodePeerLookup,
	EventChange:              decodeChange,
	EventLeave:               func(json.RawMessage) (Inbound, error) { return LeaveMediaEvent{}, nil },
	EventGetChange:           func(json.RawMessage) (Inbound, error) { return GetChangeEvent{}, nil },
}

// DecodeInbound parses a client frame into its typed event.
func DecodeInbound(frame []byte) (Inbound, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	decode, ok := decoders[msg.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Event)
	}

	ev, err := decode(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, msg.Event, err)
	}
	return ev, nil
}

func decodeJoinPosts(data json.RawMessage) (Inbound, error) {
	var ids []uint
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return JoinPostsEvent{PostIDs: ids}, nil
}

func decodeAddMessage(data json.RawMessage) (Inbound, error) {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	var ref struct {
		Member struct {
			ConversationID uint `json:"conversationId"`
		} `json:"member"`
	}
	if err := json.Unmarshal(body.Message, &ref); err != nil {
		return nil, err
	}
	if ref.Member.ConversationID == 0 {
		return nil, errors.New("message.member.conversationId is required")
	}
	return AddMessageEvent{ConversationID: ref.Member.ConversationID, Message: body.Message}, nil
}

func decodeSeenConversation(data json.RawMessage) (Inbound, error) {
	var body struct {
		ConversationID uint `json:"conversationId"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	if body.ConversationID == 0 {
		return nil, errors.New("conversationId is required")
	}
	return SeenConversationEvent{ConversationID: body.ConversationID}, nil
}

func friendRequestDecoder(event EventName) decoder {
	return func(data json.RawMessage) (Inbound, error) {
		var body struct {
			ID         json.RawMessage `json:"id"`
			SenderID   uint            `json:"senderId"`
			ReceiverID uint            `json:"receiverId"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, err
		}
		if body.SenderID == 0 || body.ReceiverID == 0 {
			return nil, errors.New("senderId and receiverId are required")
		}
		if len(body.ID) == 0 && event != EventAddFriendRequest {
			return nil, errors.New("id is required")
		}
		return FriendRequestEvent{
			Event:      event,
			RequestID:  body.ID,
			SenderID:   body.SenderID,
			ReceiverID: body.ReceiverID,
			Request:    data,
		}, nil
	}
}

func decodeUpdatePost(data json.RawMessage) (Inbound, error) {
	var body struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	if body.ID == 0 {
		return nil, errors.New("id is required")
	}
	return UpdatePostEvent{PostID: body.ID, Post: data}, nil
}

func decodeCall(data json.RawMessage) (Inbound, error) {
	var body struct {
		Conversation struct {
			ID uint `json:"id"`
		} `json:"conversation"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	if body.Conversation.ID == 0 {
		return nil, errors.New("conversation.id is required")
	}
	return CallEvent{ConversationID: body.Conversation.ID, Payload: data}, nil
}

// decodeRoomID takes {"roomId":n} or a bare n.
func decodeRoomID(data json.RawMessage) (CallID, error) {
	var id uint
	if err := json.Unmarshal(data, &id); err != nil {
		var body struct {
			RoomID uint `json:"roomId"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return 0, err
		}
		id = body.RoomID
	}
	if id == 0 {
		return 0, errors.New("roomId is required")
	}
	return CallID(id), nil
}

func decodeJoinRoom(data json.RawMessage) (Inbound, error) {
	id, err := decodeRoomID(data)
	if err != nil {
		return nil, err
	}
	return JoinRoomEvent{RoomID: id}, nil
}

func decodeLeftCall(data json.RawMessage) (Inbound, error) {
	id, err := decodeRoomID(data)
	if err != nil {
		return nil, err
	}
	return LeftCallEvent{RoomID: id}, nil
}

func decodePeerLookup(data json.RawMessage) (Inbound, error) {
	var body struct {
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	if body.PeerID == "" {
		return nil, errors.New("peerId is required")
	}
	return PeerLookupEvent{PeerID: ConnID(body.PeerID)}, nil
}

func decodeChange(data json.RawMessage) (Inbound, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("flags are required")
	}
	if !json.Valid(trimmed) {
		return nil, errors.New("flags must be valid JSON")
	}
	return ChangeEvent{Flags: json.RawMessage(trimmed)}, nil
}

// Outbound payloads

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SeenConversationData struct {
	UserID         uint `json:"userId"`
	ConversationID uint `json:"conversationId"`
}

type AddMessageData struct {
	Message json.RawMessage `json:"message"`
}

type RoomData struct {
	RoomID CallID `json:"roomId"`
}

type LeftCallData struct {
	RoomID CallID `json:"roomId"`
	ConnID ConnID `json:"connId"`
}

type PeerOwnerData struct {
	UserID uint   `json:"userId"`
	PeerID ConnID `json:"peerId"`
}
