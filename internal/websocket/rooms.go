package websocket

// RoomTracker keeps room membership in both directions so that a connection's
// rooms can be dropped without scanning every room.
type RoomTracker struct {
	rooms  map[RoomKey]map[ConnID]struct{}
	joined map[ConnID]map[RoomKey]struct{}
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{
		rooms:  make(map[RoomKey]map[ConnID]struct{}),
		joined: make(map[ConnID]map[RoomKey]struct{}),
	}
}

func (t *RoomTracker) Join(connID ConnID, keys ...RoomKey) {
	for _, key := range keys {
		members, ok := t.rooms[key]
		if !ok {
			members = make(map[ConnID]struct{})
			t.rooms[key] = members
		}
		members[connID] = struct{}{}

		rooms, ok := t.joined[connID]
		if !ok {
			rooms = make(map[RoomKey]struct{})
			t.joined[connID] = rooms
		}
		rooms[key] = struct{}{}
	}
}

// JoinPosts replaces every post room the connection holds with the given posts.
// Personal rooms are untouched.
func (t *RoomTracker) JoinPosts(connID ConnID, postIDs []uint) {
	for key := range t.joined[connID] {
		if key.IsPost() {
			t.Leave(connID, key)
		}
	}

	keys := make([]RoomKey, 0, len(postIDs))
	for _, id := range postIDs {
		keys = append(keys, PostRoom(id))
	}
	t.Join(connID, keys...)
}

func (t *RoomTracker) Leave(connID ConnID, key RoomKey) {
	if members, ok := t.rooms[key]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(t.rooms, key)
		}
	}
	if rooms, ok := t.joined[connID]; ok {
		delete(rooms, key)
		if len(rooms) == 0 {
			delete(t.joined, connID)
		}
	}
}

func (t *RoomTracker) LeaveAll(connID ConnID) {
	for key := range t.joined[connID] {
		t.Leave(connID, key)
	}
}

func (t *RoomTracker) Members(key RoomKey) []ConnID {
	members := t.rooms[key]
	out := make([]ConnID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

func (t *RoomTracker) Rooms(connID ConnID) []RoomKey {
	rooms := t.joined[connID]
	out := make([]RoomKey, 0, len(rooms))
	for key := range rooms {
		out = append(out, key)
	}
	return out
}

func (t *RoomTracker) Exists(key RoomKey) bool {
	_, ok := t.rooms[key]
	return ok
}
