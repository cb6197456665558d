package websocket

import (
	"strconv"
	"strings"
)

// ConnID identifies one live connection for the lifetime of the process.
// It doubles as the peer id clients hand to the media broker.
type ConnID string

// CallID keys a call-room; it is the id of the conversation being called.
type CallID uint

const (
	postRoomPrefix = "post_"
	userRoomPrefix = "user_"
)

// RoomKey names a multicast group. Build keys with PostRoom and UserRoom only.
type RoomKey string

// PostRoom is the interest room for live updates of one post.
func PostRoom(postID uint) RoomKey {
	return RoomKey(postRoomPrefix + strconv.FormatUint(uint64(postID), 10))
}

// UserRoom is the personal room every connection of a user joins at authentication.
func UserRoom(userID uint) RoomKey {
	return RoomKey(userRoomPrefix + strconv.FormatUint(uint64(userID), 10))
}

func (k RoomKey) IsPost() bool {
	return strings.HasPrefix(string(k), postRoomPrefix)
}

func (k RoomKey) IsUser() bool {
	return strings.HasPrefix(string(k), userRoomPrefix)
}

func (k RoomKey) String() string {
	return string(k)
}
