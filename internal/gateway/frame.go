package gateway

// Channel names outside the per-identity private channels.
const (
	ChannelConnected = "connected"
	ChannelGeneral   = "general"
)

const connectedMessage = "Successfully connected to WebSocket server"

// Frame is the unit written to a live connection.
type Frame struct {
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
}

// Envelope is the payload of a dispatched domain event.
type Envelope struct {
	Event   string      `json:"event"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Conn is a live connection handle as seen by the registry and bridge.
// Push must not block; it reports whether the frame was accepted.
type Conn interface {
	ID() string
	Push(Frame) bool
}

// Metrics receives gateway counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	Handshake(result string)
	Pushed(channel string)
	FrameDropped()
}

type nopMetrics struct{}

func (nopMetrics) ConnectionOpened() {}
func (nopMetrics) ConnectionClosed() {}
func (nopMetrics) Handshake(string)  {}
func (nopMetrics) Pushed(string)     {}
func (nopMetrics) FrameDropped()     {}
