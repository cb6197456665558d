package websocket

// Stats is a point-in-time view of the hub.
type Stats struct {
	Connections     int   `json:"connections"`
	OnlineUsers     int   `json:"onlineUsers"`
	ActiveCalls     int   `json:"activeCalls"`
	CallsStarted    int64 `json:"callsStarted"`
	CallsEnded      int64 `json:"callsEnded"`
	FramesDelivered int64 `json:"framesDelivered"`
	FramesDropped   int64 `json:"framesDropped"`
	FramesRejected  int64 `json:"framesRejected"`
	PeakFanout      int   `json:"peakFanout"`
}

// hubMetrics is only touched on the loop goroutine.
type hubMetrics struct {
	callsStarted    int64
	callsEnded      int64
	framesDelivered int64
	framesDropped   int64
	framesRejected  int64
	peakFanout      int
}

func (m *hubMetrics) recordFanout(n int) {
	if n > m.peakFanout {
		m.peakFanout = n
	}
}

func (h *Hub) snapshotStats() Stats {
	return Stats{
		Connections:     len(h.clients),
		OnlineUsers:     len(h.presence.order),
		ActiveCalls:     h.calls.Count(),
		CallsStarted:    h.metrics.callsStarted,
		CallsEnded:      h.metrics.callsEnded,
		FramesDelivered: h.metrics.framesDelivered,
		FramesDropped:   h.metrics.framesDropped,
		FramesRejected:  h.metrics.framesRejected,
		PeakFanout:      h.metrics.peakFanout,
	}
}
