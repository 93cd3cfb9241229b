package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxInboundMessageSize = 4096

// socket is the subset of *websocket.Conn a Client drives.
type socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ClientConfig tunes per-connection buffering and keepalive.
type ClientConfig struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 32
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	return c
}

// Client owns one live socket. Frames are queued on a buffered channel and
// written by a single goroutine, so a slow peer only ever fills its own
// queue.
type Client struct {
	id      string
	sock    socket
	cfg     ClientConfig
	send    chan []byte
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	logger  *zap.Logger
}

// NewClient wraps sock. Start must be called before frames are written.
func NewClient(sock socket, cfg ClientConfig, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Client{
		id:      id,
		sock:    sock,
		cfg:     cfg,
		send:    make(chan []byte, cfg.SendBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger.With(zap.String("conn_id", id)),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Push queues a frame. It never blocks and returns false when the client is
// closed or its queue is full.
func (c *Client) Push(frame Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("encode frame", zap.String("channel", frame.Channel), zap.Error(err))
		return false
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("send queue full", zap.String("channel", frame.Channel))
		return false
	}
}

// Start launches the write loop.
func (c *Client) Start() {
	go c.writePump()
}

// Close stops the client. It is safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} { return c.done }

// Wait blocks until the write loop has exited.
func (c *Client) Wait() { <-c.stopped }

// ReadLoop consumes inbound frames until the peer goes away or stops
// answering pings. Inbound payloads are discarded.
func (c *Client) ReadLoop() {
	pongWait := 2 * c.cfg.PingInterval
	c.sock.SetReadLimit(maxInboundMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.sock.ReadMessage(); err != nil {
			c.logger.Debug("read loop finished", zap.Error(err))
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		close(c.stopped)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.fail(err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.sock.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.sock.WriteMessage(messageType, data)
}

// fail closes the socket so a blocked ReadLoop returns too.
func (c *Client) fail(err error) {
	c.logger.Warn("write failed, closing connection", zap.Error(err))
	c.Close()
	_ = c.sock.Close()
}
