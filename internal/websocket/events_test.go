package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Inbound
	}{
		{
			name:  "join posts",
			frame: `{"event":"joinPosts","data":[1,2,3]}`,
			want:  JoinPostsEvent{PostIDs: []uint{1, 2, 3}},
		},
		{
			name:  "seen conversation",
			frame: `{"event":"seenConversation","data":{"conversationId":4}}`,
			want:  SeenConversationEvent{ConversationID: 4},
		},
		{
			name:  "join room",
			frame: `{"event":"joinRoom","data":{"roomId":8}}`,
			want:  JoinRoomEvent{RoomID: 8},
		},
		{
			name:  "left call",
			frame: `{"event":"leftCall","data":{"roomId":8}}`,
			want:  LeftCallEvent{RoomID: 8},
		},
		{
			name:  "join room with bare id",
			frame: `{"event":"joinRoom","data":8}`,
			want:  JoinRoomEvent{RoomID: 8},
		},
		{
			name:  "left call with bare id",
			frame: `{"event":"leftCall","data":8}`,
			want:  LeftCallEvent{RoomID: 8},
		},
		{
			name:  "peer lookup",
			frame: `{"event":"getUserFromPeerId","data":{"peerId":"abc"}}`,
			want:  PeerLookupEvent{PeerID: "abc"},
		},
		{
			name:  "leave without data",
			frame: `{"event":"leave"}`,
			want:  LeaveMediaEvent{},
		},
		{
			name:  "get change",
			frame: `{"event":"getChange"}`,
			want:  GetChangeEvent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Name(), got.Name())
		})
	}
}

func TestDecodeInboundKeepsOpaquePayloads(t *testing.T) {
	ev, err := DecodeInbound([]byte(`{"event":"addMessage","data":{"message":{"text":"hi","member":{"conversationId":5}}}}`))
	require.NoError(t, err)
	msg := ev.(AddMessageEvent)
	assert.Equal(t, uint(5), msg.ConversationID)
	assert.JSONEq(t, `{"text":"hi","member":{"conversationId":5}}`, string(msg.Message))

	ev, err = DecodeInbound([]byte(`{"event":"call","data":{"conversation":{"id":3},"sdp":"x"}}`))
	require.NoError(t, err)
	call := ev.(CallEvent)
	assert.Equal(t, uint(3), call.ConversationID)
	assert.JSONEq(t, `{"conversation":{"id":3},"sdp":"x"}`, string(call.Payload))

	ev, err = DecodeInbound([]byte(`{"event":"updatePost","data":{"id":11,"likes":2}}`))
	require.NoError(t, err)
	post := ev.(UpdatePostEvent)
	assert.Equal(t, uint(11), post.PostID)
	assert.JSONEq(t, `{"id":11,"likes":2}`, string(post.Post))

	ev, err = DecodeInbound([]byte(`{"event":"change","data":{"audio":true,"video":false}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"audio":true,"video":false}`, string(ev.(ChangeEvent).Flags))
}

func TestDecodeFriendRequest(t *testing.T) {
	ev, err := DecodeInbound([]byte(`{"event":"updateFriendRequest","data":{"id":42,"senderId":1,"receiverId":2,"status":"accepted"}}`))
	require.NoError(t, err)
	req := ev.(FriendRequestEvent)
	assert.Equal(t, EventUpdateFriendRequest, req.Name())
	assert.Equal(t, uint(1), req.SenderID)
	assert.Equal(t, uint(2), req.ReceiverID)
	assert.Equal(t, json.RawMessage(`42`), req.RequestID)

	_, err = DecodeInbound([]byte(`{"event":"deleteFriendRequest","data":{"senderId":1,"receiverId":2}}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DecodeInbound([]byte(`{"event":"addFriendRequest","data":{"senderId":1,"receiverId":2}}`))
	assert.NoError(t, err)
}

func TestDecodeInboundErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `hello`, ErrInvalidPayload},
		{"unknown event", `{"event":"dance","data":{}}`, ErrUnknownEvent},
		{"missing event", `{"data":{}}`, ErrUnknownEvent},
		{"join posts not a list", `{"event":"joinPosts","data":{"id":1}}`, ErrInvalidPayload},
		{"seen without id", `{"event":"seenConversation","data":{}}`, ErrInvalidPayload},
		{"message without conversation", `{"event":"addMessage","data":{"message":{"text":"x"}}}`, ErrInvalidPayload},
		{"call without conversation", `{"event":"call","data":{"sdp":"x"}}`, ErrInvalidPayload},
		{"join room without id", `{"event":"joinRoom","data":{}}`, ErrInvalidPayload},
		{"join room with zero id", `{"event":"joinRoom","data":0}`, ErrInvalidPayload},
		{"join room with string id", `{"event":"joinRoom","data":"8"}`, ErrInvalidPayload},
		{"peer lookup without id", `{"event":"getUserFromPeerId","data":{}}`, ErrInvalidPayload},
		{"change without flags", `{"event":"change"}`, ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(EventOnline, uint(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"online","data":7}`, string(data))

	data, err = Encode(EventMeBusy, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"meBusy"}`, string(data))
}
