package websocket

import "errors"

// DefaultCallCapacity is the participant ceiling of a call-room.
const DefaultCallCapacity = 4

var (
	ErrRoomFull   = errors.New("call room is full")
	ErrBusy       = errors.New("user is busy")
	ErrNoCallRoom = errors.New("call room does not exist")
	ErrCallActive = errors.New("call room already active")
	ErrNotInCall  = errors.New("connection is not in this call room")
)

// CallCoordinator tracks active call-rooms. A connection belongs to at most one
// call; a user is busy while any of their connections does. The busy count per
// user is kept incrementally so the check is constant time.
type CallCoordinator struct {
	capacity int
	calls    map[CallID][]ConnID
	connCall map[ConnID]CallID
	connUser map[ConnID]uint
	busy     map[uint]int
}

func NewCallCoordinator(capacity int) *CallCoordinator {
	if capacity <= 0 {
		capacity = DefaultCallCapacity
	}
	return &CallCoordinator{
		capacity: capacity,
		calls:    make(map[CallID][]ConnID),
		connCall: make(map[ConnID]CallID),
		connUser: make(map[ConnID]uint),
		busy:     make(map[uint]int),
	}
}

func (cc *CallCoordinator) IsBusy(userID uint) bool {
	return cc.busy[userID] > 0
}

func (cc *CallCoordinator) Active(id CallID) bool {
	_, ok := cc.calls[id]
	return ok
}

// Count is the number of active call-rooms.
func (cc *CallCoordinator) Count() int {
	return len(cc.calls)
}

// Participants returns the connections of a call in join order.
func (cc *CallCoordinator) Participants(id CallID) []ConnID {
	participants := cc.calls[id]
	out := make([]ConnID, len(participants))
	copy(out, participants)
	return out
}

// Start opens a call-room with the caller as its only participant.
func (cc *CallCoordinator) Start(id CallID, connID ConnID, userID uint) error {
	if cc.IsBusy(userID) {
		return ErrBusy
	}
	if cc.Active(id) {
		return ErrCallActive
	}
	cc.calls[id] = []ConnID{connID}
	cc.attach(id, connID, userID)
	return nil
}

// Join appends the connection to an existing call-room and returns the
// connections that were already in it.
func (cc *CallCoordinator) Join(id CallID, connID ConnID, userID uint) ([]ConnID, error) {
	participants, ok := cc.calls[id]
	if !ok {
		return nil, ErrNoCallRoom
	}
	if len(participants) >= cc.capacity {
		return nil, ErrRoomFull
	}
	if cc.IsBusy(userID) {
		return nil, ErrBusy
	}

	others := make([]ConnID, len(participants))
	copy(others, participants)

	cc.calls[id] = append(participants, connID)
	cc.attach(id, connID, userID)
	return others, nil
}

// LeaveRoom removes the connection from the named call-room. ended reports
// whether the room emptied and was deleted.
func (cc *CallCoordinator) LeaveRoom(id CallID, connID ConnID) (ended bool, err error) {
	current, ok := cc.connCall[connID]
	if !ok || current != id {
		return false, ErrNotInCall
	}
	return cc.remove(id, connID), nil
}

// Leave removes the connection from whatever call it is in.
func (cc *CallCoordinator) Leave(connID ConnID) (id CallID, ended bool, ok bool) {
	id, ok = cc.connCall[connID]
	if !ok {
		return 0, false, false
	}
	return id, cc.remove(id, connID), true
}

func (cc *CallCoordinator) attach(id CallID, connID ConnID, userID uint) {
	cc.connCall[connID] = id
	cc.connUser[connID] = userID
	cc.busy[userID]++
}

func (cc *CallCoordinator) remove(id CallID, connID ConnID) bool {
	participants := cc.calls[id]
	for i, p := range participants {
		if p == connID {
			participants = append(participants[:i:i], participants[i+1:]...)
			break
		}
	}

	userID := cc.connUser[connID]
	delete(cc.connCall, connID)
	delete(cc.connUser, connID)
	if cc.busy[userID]--; cc.busy[userID] <= 0 {
		delete(cc.busy, userID)
	}

	if len(participants) == 0 {
		delete(cc.calls, id)
		return true
	}
	cc.calls[id] = participants
	return false
}
