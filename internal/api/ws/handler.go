package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/membrane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/membrane/internal/scenario"
	"github.com/GriffinCanCode/membrane/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is a client command.
type Message struct {
	Type     string   `json:"type"`
	Scenario string   `json:"scenario,omitempty"`
	RunID    id.RunID `json:"run_id,omitempty"`
}

// Config tunes connection keepalive.
type Config struct {
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	RunTimeout   time.Duration
}

// DefaultConfig returns the keepalive defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
		RunTimeout:   time.Minute,
	}
}

// Handler manages WebSocket connections
type Handler struct {
	runner  *scenario.Runner
	metrics *monitoring.Metrics
	logger  *zap.Logger
	config  Config
}

// NewHandler creates a new WebSocket handler. metrics may be nil.
func NewHandler(runner *scenario.Runner, metrics *monitoring.Metrics, logger *zap.Logger, config Config) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: runner, metrics: metrics, logger: logger, config: config}
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	wait    time.Duration
	metrics *monitoring.Metrics
}

func (c *conn) send(data any) error {
	payload, err := sonic.Marshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.wait))
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	if c.metrics != nil {
		if m, ok := data.(map[string]any); ok {
			if t, ok := m["type"].(string); ok {
				c.metrics.RecordWSMessage("out", t)
			}
		}
	}
	return nil
}

func (c *conn) sendError(msg string) error {
	return c.send(map[string]any{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}

func (c *conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.wait))
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(ctx *gin.Context) {
	ws, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	connID := id.NewConnID()
	logger := h.logger.With(zap.String("conn", connID.String()))
	logger.Debug("WebSocket connected")

	c := &conn{ws: ws, wait: h.config.WriteWait, metrics: h.metrics}
	_ = ws.SetReadDeadline(time.Now().Add(h.config.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	events, unsubscribe := h.runner.Subscribe()
	defer unsubscribe()
	done := make(chan struct{})
	defer close(done)
	go h.pump(c, events, done, logger)

	_ = c.send(map[string]any{
		"type":    "system",
		"message": "Connected to membrane runner",
		"conn_id": connID,
	})

	reqCtx := ctx.Request.Context()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			break
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.config.PongWait))
		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			_ = c.sendError("invalid message")
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}
		h.dispatch(reqCtx, c, msg)
	}
	logger.Debug("WebSocket disconnected")
}

// pump forwards runner events and keeps the connection alive until done.
func (h *Handler) pump(c *conn, events <-chan scenario.Event, done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := c.send(map[string]any{"type": "event", "event": e}); err != nil {
				logger.Debug("Event delivery failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, c *conn, msg Message) {
	var (
		run scenario.Run
		err error
	)
	switch msg.Type {
	case "ping":
		_ = c.send(map[string]any{"type": "pong"})
		return
	case "gc":
		h.runner.CollectGarbage()
		_ = c.send(map[string]any{"type": "gc", "timestamp": time.Now().Unix()})
		return
	case "run":
		runCtx, cancel := context.WithTimeout(ctx, h.config.RunTimeout)
		run, err = h.runner.Start(runCtx, msg.Scenario)
		cancel()
	case "revoke":
		run, err = h.runner.Revoke(msg.RunID)
	case "detach":
		run, err = h.runner.Detach(msg.RunID)
	default:
		_ = c.sendError("unknown message type")
		return
	}

	if err != nil {
		_ = c.sendError(err.Error())
		return
	}
	_ = c.send(map[string]any{
		"type":      msg.Type,
		"run":       run,
		"timestamp": time.Now().Unix(),
	})
}
