// Package transport owns the single persistent WebSocket connection to the
// support backend. It re-exposes backend-pushed events through the local
// event bus so nothing else in the client touches the connection directly,
// and it handles reconnection with capped exponential backoff.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relaydesk/relaydesk/internal/backoff"
	"github.com/relaydesk/relaydesk/internal/events"
)

// Mode selects which front-end profile the client speaks as. The profiles
// differ only in the post-connect join command and the default actor id.
type Mode string

const (
	// ModeAgent joins the fixed "agents" control channel on connect.
	ModeAgent Mode = "agent"
	// ModeUser joins its chat session on connect.
	ModeUser Mode = "user"
)

// Control channel every agent client joins on connect.
const agentsChannel = "agents"

const (
	defaultDialTimeout       = 10 * time.Second
	defaultReconnectAttempts = 5
	defaultActorID           = "agent_001"
)

// ErrNotConnected is returned by outbound commands issued while the
// connection is down.
var ErrNotConnected = errors.New("transport: not connected")

// Options configures a Client.
type Options struct {
	// URL is the backend WebSocket endpoint, e.g. "ws://localhost:5000/ws".
	URL string

	// Mode selects the agent or user profile. Defaults to ModeAgent.
	Mode Mode

	// ActorID is stamped onto every outbound command. Defaults to
	// "agent_001" in agent mode; user mode derives a session-scoped id
	// when empty.
	ActorID string

	// SessionID is the chat session a ModeUser client joins on connect.
	SessionID string

	// DialTimeout bounds the connection handshake (default 10s).
	DialTimeout time.Duration

	// ReconnectAttempts bounds automatic reconnection after a dropped
	// connection (default 5). Zero or negative disables reconnection.
	ReconnectAttempts int

	// ReconnectPolicy shapes the delay between attempts.
	ReconnectPolicy backoff.Policy

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *Metrics
}

// Client is the transport wrapper. All backend events surface on Bus(); UI
// components subscribe there and never see the websocket.
type Client struct {
	opts   Options
	bus    *events.Bus
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closing   bool
	lastError string

	// writeMu serializes frame writes; gorilla connections allow at most
	// one concurrent writer.
	writeMu sync.Mutex

	now func() time.Time
}

// NewClient builds a client around the given bus. If bus is nil a fresh
// one is created; Bus() exposes it either way.
func NewClient(opts Options, bus *events.Bus) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Mode == "" {
		opts.Mode = ModeAgent
	}
	if opts.ActorID == "" {
		if opts.Mode == ModeUser && opts.SessionID != "" {
			opts.ActorID = "user_" + opts.SessionID
		} else {
			opts.ActorID = defaultActorID
		}
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ReconnectAttempts == 0 {
		opts.ReconnectAttempts = defaultReconnectAttempts
	}
	if opts.ReconnectPolicy == (backoff.Policy{}) {
		opts.ReconnectPolicy = backoff.Default()
	}
	if bus == nil {
		bus = events.NewBus(opts.Logger)
	}
	return &Client{
		opts:   opts,
		bus:    bus,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// Bus returns the local subscription registry for backend events.
func (c *Client) Bus() *events.Bus { return c.bus }

// IsConnected reports current connectivity.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// LastError returns the most recent connection failure message, if any.
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Connect establishes the connection. It is idempotent: when already
// connected it returns nil without side effects. Failures are published as
// a connection_error event and also returned; they never panic.
//
// On success the client publishes connection_status{connected:true},
// issues the profile's join command and starts the read loop, which owns
// reconnection from then on.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.closing = false
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		c.publishConnError(fmt.Sprintf("connection failed: %v", err))
		return err
	}
	return nil
}

// dial performs one handshake attempt and, on success, installs the
// connection and fires the post-connect sequence.
func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		if c.opts.Metrics != nil {
			c.opts.Metrics.ConnectFailures.Inc()
		}
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastError = ""
	c.mu.Unlock()

	c.logger.Info("connected", "url", c.opts.URL, "mode", c.opts.Mode)
	c.bus.Publish(events.ConnectionStatus{Connected: true})
	c.joinOnConnect()

	go c.readLoop(ctx, conn)
	return nil
}

// joinOnConnect issues the profile's control join. Agent clients enter the
// fixed agents channel; user clients enter their session.
func (c *Client) joinOnConnect() {
	switch c.opts.Mode {
	case ModeUser:
		if err := c.JoinSession(c.opts.SessionID); err != nil {
			c.logger.Error("session join on connect failed", "error", err)
		}
	default:
		if err := c.send(outJoinRoom, map[string]any{
			"room_id":   agentsChannel,
			"user_type": "agent",
			"user_id":   c.opts.ActorID,
		}); err != nil {
			c.logger.Error("control channel join failed", "error", err)
		}
	}
}

// Disconnect tears the connection down. Safe to call when already
// disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	wasConnected := c.connected
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close() //nolint:errcheck // best-effort teardown
	}
	if wasConnected {
		c.logger.Info("disconnected")
		c.bus.Publish(events.ConnectionStatus{Connected: false})
	}
}

// readLoop decodes inbound frames and publishes them until the connection
// drops, then hands off to the reconnect loop.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closing := c.closing || c.conn != conn
			c.mu.Unlock()
			if closing {
				return
			}

			c.logger.Warn("connection lost", "error", err)
			c.mu.Lock()
			c.conn = nil
			c.connected = false
			c.mu.Unlock()
			c.bus.Publish(events.ConnectionStatus{Connected: false})

			c.reconnect(ctx)
			return
		}
		c.handleFrame(data)
	}
}

// handleFrame validates, maps and publishes one inbound frame. Malformed
// or unknown frames are logged and dropped, never fatal.
func (c *Client) handleFrame(data []byte) {
	ev, err := decodeFrame(data)
	if err != nil {
		if c.opts.Metrics != nil {
			c.opts.Metrics.FramesInvalid.Inc()
		}
		c.logger.Warn("invalid frame dropped", "error", err)
		return
	}
	if ev == nil {
		// Recognized but uninteresting (server acks, legacy noise).
		return
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.FramesReceived.WithLabelValues(ev.Name()).Inc()
	}
	c.bus.Publish(ev)
}

// reconnect retries the handshake with capped exponential backoff until it
// succeeds, attempts run out, or the client is told to close. Exhaustion
// surfaces as a connection_error event.
func (c *Client) reconnect(ctx context.Context) {
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		if err := backoff.Sleep(ctx, c.opts.ReconnectPolicy, attempt); err != nil {
			return
		}
		c.mu.Lock()
		closing := c.closing
		c.mu.Unlock()
		if closing {
			return
		}

		if c.opts.Metrics != nil {
			c.opts.Metrics.Reconnects.Inc()
		}
		c.logger.Info("reconnecting", "attempt", attempt, "max", c.opts.ReconnectAttempts)

		err := c.dial(ctx)
		if err == nil {
			return
		}
		c.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
	}
	c.publishConnError(fmt.Sprintf("reconnect failed after %d attempts", c.opts.ReconnectAttempts))
}

func (c *Client) publishConnError(msg string) {
	c.mu.Lock()
	c.lastError = msg
	c.mu.Unlock()
	c.logger.Error("connection error", "message", msg)
	c.bus.Publish(events.ConnectionError{Message: msg})
}

// send writes one outbound frame. Commands issued while disconnected are
// logged no-ops returning ErrNotConnected.
func (c *Client) send(event string, data map[string]any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Error("command dropped, not connected", "event", event)
		return ErrNotConnected
	}

	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

// timestamp stamps outbound payloads with the client clock.
func (c *Client) timestamp() string {
	return c.now().UTC().Format(time.RFC3339Nano)
}
