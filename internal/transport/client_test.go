package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaydesk/relaydesk/internal/backoff"
	"github.com/relaydesk/relaydesk/internal/events"
)

// testServer upgrades connections and records every inbound frame, while
// letting tests push frames to the most recent client.
type testServer struct {
	t *testing.T

	mu    sync.Mutex
	conns []*websocket.Conn
	seen  chan map[string]any

	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{t: t, seen: make(chan map[string]any, 32)}
	upgrader := websocket.Upgrader{}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conns = append(ts.conns, conn)
		ts.mu.Unlock()
		for {
			var frame map[string]any
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			ts.seen <- frame
		}
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) push(raw string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.conns) == 0 {
		ts.t.Fatal("no client connected")
	}
	conn := ts.conns[len(ts.conns)-1]
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		ts.t.Fatalf("server push failed: %v", err)
	}
}

func (ts *testServer) dropClients() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, conn := range ts.conns {
		_ = conn.Close() //nolint:errcheck // test teardown
	}
	ts.conns = nil
}

func (ts *testServer) nextFrame(timeout time.Duration) (map[string]any, bool) {
	select {
	case frame := <-ts.seen:
		return frame, true
	case <-time.After(timeout):
		return nil, false
	}
}

func waitFor(t *testing.T, ch <-chan events.Event, timeout time.Duration) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func newTestClient(ts *testServer, mode Mode) *Client {
	return NewClient(Options{
		URL:               ts.url(),
		Mode:              mode,
		SessionID:         "sess-1",
		ReconnectAttempts: 2,
		ReconnectPolicy:   backoff.Policy{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond, Factor: 2},
	}, nil)
}

func TestConnectPublishesStatusAndJoinsControlChannel(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeAgent)

	statusCh := make(chan events.Event, 4)
	c.Bus().Subscribe(events.NameConnectionStatus, func(ev events.Event) { statusCh <- ev })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()

	status := waitFor(t, statusCh, time.Second).(events.ConnectionStatus)
	if !status.Connected {
		t.Error("connection_status.Connected = false")
	}

	frame, ok := ts.nextFrame(time.Second)
	if !ok {
		t.Fatal("no control join frame received")
	}
	if frame["event"] != "join_room" {
		t.Fatalf("first frame event = %v, want join_room", frame["event"])
	}
	data := frame["data"].(map[string]any)
	if data["room_id"] != "agents" || data["user_type"] != "agent" {
		t.Errorf("control join payload = %v", data)
	}
}

func TestConnectIdempotent(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeAgent)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()
	if _, ok := ts.nextFrame(time.Second); !ok {
		t.Fatal("no control join after first connect")
	}

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if frame, ok := ts.nextFrame(100 * time.Millisecond); ok {
		t.Fatalf("second Connect() sent %v, want nothing", frame)
	}
}

func TestUserModeJoinsSession(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeUser)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()

	frame, ok := ts.nextFrame(time.Second)
	if !ok {
		t.Fatal("no join frame received")
	}
	if frame["event"] != "join_session" {
		t.Fatalf("event = %v, want join_session", frame["event"])
	}
	if data := frame["data"].(map[string]any); data["sessionId"] != "sess-1" {
		t.Errorf("payload = %v", data)
	}
}

func TestInboundFramesReachSubscribers(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeAgent)

	escCh := make(chan events.Event, 4)
	c.Bus().Subscribe(events.NameEscalationPending, func(ev events.Event) { escCh <- ev })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()
	ts.nextFrame(time.Second) // drain control join

	ts.push(`{"event":"escalation_pending","data":{"roomId":"r1","priority":"high","userName":"alice"}}`)

	push := waitFor(t, escCh, time.Second).(events.EscalationPending)
	if push.Escalation.RoomID != "r1" || push.Escalation.UserName != "alice" {
		t.Errorf("escalation = %+v", push.Escalation)
	}
}

func TestInvalidFrameDroppedConnectionSurvives(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeAgent)

	msgCh := make(chan events.Event, 4)
	c.Bus().Subscribe(events.NameNewMessage, func(ev events.Event) { msgCh <- ev })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()
	ts.nextFrame(time.Second)

	ts.push(`this is not json`)
	ts.push(`{"event":"new_message","data":{"role":"ai","content":"still here","timestamp":"t1"}}`)

	msg := waitFor(t, msgCh, time.Second).(events.NewMessage)
	if msg.Message.Content != "still here" {
		t.Errorf("Content = %q", msg.Message.Content)
	}
}

func TestOutboundCommandShapes(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeAgent)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()
	ts.nextFrame(time.Second)

	if err := c.SendMessage("r1", "checking your line now"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	frame, ok := ts.nextFrame(time.Second)
	if !ok {
		t.Fatal("no agent_message frame")
	}
	if frame["event"] != "agent_message" {
		t.Fatalf("event = %v", frame["event"])
	}
	data := frame["data"].(map[string]any)
	if data["roomId"] != "r1" || data["message"] != "checking your line now" {
		t.Errorf("payload = %v", data)
	}
	if data["agentId"] != "agent_001" {
		t.Errorf("agentId = %v, want default actor id", data["agentId"])
	}
	if stamp, _ := data["timestamp"].(string); stamp == "" {
		t.Error("timestamp missing from outbound payload")
	}

	if err := c.CloseSession("r1", ""); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	frame, _ = ts.nextFrame(time.Second)
	if frame["event"] != "close_session" {
		t.Fatalf("event = %v", frame["event"])
	}
	if data := frame["data"].(map[string]any); data["reason"] != "Agent closed session" {
		t.Errorf("default close reason = %v", data["reason"])
	}

	if err := c.RequestEscalations(); err != nil {
		t.Fatalf("RequestEscalations() error = %v", err)
	}
	frame, _ = ts.nextFrame(time.Second)
	if frame["event"] != "get_escalations" {
		t.Fatalf("event = %v", frame["event"])
	}
}

func TestCommandsWhileDisconnected(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeAgent)

	if err := c.JoinRoom("r1"); err != ErrNotConnected {
		t.Errorf("JoinRoom() = %v, want ErrNotConnected", err)
	}
	if err := c.SendMessage("r1", "hi"); err != ErrNotConnected {
		t.Errorf("SendMessage() = %v, want ErrNotConnected", err)
	}
	if err := c.RequestEscalations(); err != ErrNotConnected {
		t.Errorf("RequestEscalations() = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectSafeWhenAlreadyDown(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeAgent)

	c.Disconnect()
	c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() after Disconnect error = %v", err)
	}
	c.Disconnect()
	c.Disconnect()
}

func TestConnectFailurePublishesConnectionError(t *testing.T) {
	c := NewClient(Options{
		URL:         "ws://127.0.0.1:1/ws",
		DialTimeout: 200 * time.Millisecond,
	}, nil)

	errCh := make(chan events.Event, 1)
	c.Bus().Subscribe(events.NameConnectionError, func(ev events.Event) { errCh <- ev })

	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("Connect() = nil error, want dial failure")
	}
	connErr := waitFor(t, errCh, time.Second).(events.ConnectionError)
	if connErr.Message == "" {
		t.Error("connection_error carries no message")
	}
	if c.LastError() == "" {
		t.Error("LastError() empty after failed connect")
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after failed connect")
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	ts := newTestServer(t)
	c := newTestClient(ts, ModeAgent)

	statusCh := make(chan events.Event, 8)
	c.Bus().Subscribe(events.NameConnectionStatus, func(ev events.Event) { statusCh <- ev })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()
	ts.nextFrame(time.Second)

	up := waitFor(t, statusCh, time.Second).(events.ConnectionStatus)
	if !up.Connected {
		t.Fatal("expected initial connected status")
	}

	ts.dropClients()

	down := waitFor(t, statusCh, 2*time.Second).(events.ConnectionStatus)
	if down.Connected {
		t.Fatal("expected disconnected status after server drop")
	}
	recovered := waitFor(t, statusCh, 2*time.Second).(events.ConnectionStatus)
	if !recovered.Connected {
		t.Fatal("expected reconnected status")
	}

	// The reconnected client re-joins the control channel.
	frame, ok := ts.nextFrame(time.Second)
	if !ok {
		t.Fatal("no control join after reconnect")
	}
	if frame["event"] != "join_room" {
		t.Errorf("event = %v, want join_room", frame["event"])
	}
}

func TestMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.FramesReceived.WithLabelValues("new_message").Inc()
	m.FramesInvalid.Inc()
	m.Reconnects.Inc()
	m.ConnectFailures.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) != 4 {
		t.Fatalf("gathered %d metric families, want 4", len(families))
	}
}
