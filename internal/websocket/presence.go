package websocket

// Presence maps users to their open connections. A user is online exactly
// while that set is non-empty.
type Presence struct {
	conns map[uint]map[ConnID]struct{}
	order []uint // online users, in the order they came online
}

func NewPresence() *Presence {
	return &Presence{
		conns: make(map[uint]map[ConnID]struct{}),
	}
}

// Add registers connID for userID and reports whether the user just came online.
func (p *Presence) Add(userID uint, connID ConnID) bool {
	set, ok := p.conns[userID]
	if !ok {
		set = make(map[ConnID]struct{})
		p.conns[userID] = set
	}
	set[connID] = struct{}{}

	if ok {
		return false
	}
	p.order = append(p.order, userID)
	return true
}

// Remove drops connID and reports whether the user just went offline.
func (p *Presence) Remove(userID uint, connID ConnID) bool {
	set, ok := p.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) > 0 {
		return false
	}

	delete(p.conns, userID)
	for i, id := range p.order {
		if id == userID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

func (p *Presence) IsOnline(userID uint) bool {
	_, ok := p.conns[userID]
	return ok
}

// Online returns a copy of the online users in go-online order.
func (p *Presence) Online() []uint {
	out := make([]uint, len(p.order))
	copy(out, p.order)
	return out
}
