package websocket

import "encoding/json"

// MediaFlags holds the last audio/video toggle state each connection announced.
type MediaFlags struct {
	flags map[ConnID]json.RawMessage
}

func NewMediaFlags() *MediaFlags {
	return &MediaFlags{flags: make(map[ConnID]json.RawMessage)}
}

func (m *MediaFlags) Set(connID ConnID, flags json.RawMessage) {
	m.flags[connID] = flags
}

// Clear drops the connection's flags and reports whether any were held.
func (m *MediaFlags) Clear(connID ConnID) bool {
	if _, ok := m.flags[connID]; !ok {
		return false
	}
	delete(m.flags, connID)
	return true
}

func (m *MediaFlags) Snapshot() map[ConnID]json.RawMessage {
	out := make(map[ConnID]json.RawMessage, len(m.flags))
	for id, f := range m.flags {
		out[id] = f
	}
	return out
}
