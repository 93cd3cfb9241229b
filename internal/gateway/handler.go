package gateway

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/domain"
)

// Authenticator resolves a handshake credential into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// Handler serves the live connection endpoint.
type Handler struct {
	auth     Authenticator
	registry *Registry
	limiter  *HandshakeLimiter
	cfg      ClientConfig
	baseCtx  context.Context
	logger   *zap.Logger
	metrics  Metrics
}

// HandlerConfig groups the optional collaborators of a Handler.
type HandlerConfig struct {
	Client  ClientConfig
	Limiter *HandshakeLimiter
	Logger  *zap.Logger
	Metrics Metrics
	// BaseContext bounds identity checks made during handshakes.
	BaseContext context.Context
}

// NewHandler constructs the endpoint handler.
func NewHandler(auth Authenticator, registry *Registry, cfg HandlerConfig) *Handler {
	h := &Handler{
		auth:     auth,
		registry: registry,
		limiter:  cfg.Limiter,
		cfg:      cfg.Client.withDefaults(),
		baseCtx:  cfg.BaseContext,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
	if h.baseCtx == nil {
		h.baseCtx = context.Background()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.metrics == nil {
		h.metrics = nopMetrics{}
	}
	return h
}

// Register mounts the endpoint on router at path.
func (h *Handler) Register(router fiber.Router, path string) {
	router.Get(path, h.Guard, websocket.New(h.Serve))
}

// Guard rejects plain HTTP requests and throttled clients before upgrade.
func (h *Handler) Guard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if !h.limiter.Allow(c.IP()) {
		h.metrics.Handshake("throttled")
		return fiber.ErrTooManyRequests
	}
	return c.Next()
}

// Serve authenticates an upgraded connection and keeps it registered until
// the peer disconnects. A failed authentication closes the socket without
// writing any frame.
func (h *Handler) Serve(conn *websocket.Conn) {
	h.serve(conn, conn.Query("token"))
}

func (h *Handler) serve(sock socket, token string) {
	identity, err := h.auth.Authenticate(h.baseCtx, token)
	if err != nil {
		h.metrics.Handshake("rejected")
		h.logger.Debug("handshake rejected", zap.Error(err))
		_ = sock.Close()
		return
	}
	h.metrics.Handshake("accepted")
	h.logger.Debug("handshake accepted", zap.String("identity_id", identity.ID))

	client := NewClient(sock, h.cfg, h.logger)
	client.Start()
	h.metrics.ConnectionOpened()
	defer func() {
		h.registry.Unregister(client)
		client.Close()
		client.Wait()
		h.metrics.ConnectionClosed()
	}()

	client.Push(Frame{Channel: ChannelConnected, Payload: connectedMessage})
	if prev := h.registry.Register(identity, client); prev != nil {
		h.logger.Info("connection superseded",
			zap.String("identity_id", identity.ID),
			zap.String("conn_id", prev.ID()),
		)
	}

	client.ReadLoop()
}
