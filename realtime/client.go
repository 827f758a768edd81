// ABOUTME: Persistent websocket transport: one live connection per board with reconnect, backoff, and heartbeat.
// ABOUTME: Inbound events fan out to named subscribers; outbound frames queue bounded while disconnected.
package realtime

import (
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389-research/retroboard/board"
)

// State is the transport connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// DefaultHeartbeatInterval is the liveness signal period. It must stay
// strictly shorter than the server's liveness timeout (30s) so connected
// clients are never marked inactive.
const DefaultHeartbeatInterval = 15 * time.Second

// SubscribeAll is the subscription name that receives every inbound event.
const SubscribeAll = "*"

// eventBroadcaster fans inbound events out to per-name subscriber channels.
// Broadcast is non-blocking: a subscriber that falls behind loses events
// rather than stalling the read pump.
type eventBroadcaster struct {
	mu   sync.RWMutex
	subs map[string][]chan board.RemoteEvent
}

func newEventBroadcaster() *eventBroadcaster {
	return &eventBroadcaster{subs: make(map[string][]chan board.RemoteEvent)}
}

func (b *eventBroadcaster) subscribe(name string) chan board.RemoteEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan board.RemoteEvent, 1024)
	b.subs[name] = append(b.subs[name], ch)
	return ch
}

func (b *eventBroadcaster) unsubscribe(name string, ch chan board.RemoteEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[name]
	for i, sub := range list {
		if sub == ch {
			b.subs[name] = append(list[:i], list[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *eventBroadcaster) broadcast(ev board.RemoteEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	deliver := func(chans []chan board.RemoteEvent) {
		for _, ch := range chans {
			select {
			case ch <- ev:
			default:
				// Drop if the subscriber's buffer is full.
			}
		}
	}
	if ev.Payload != nil {
		deliver(b.subs[ev.Payload.EventType()])
	}
	deliver(b.subs[SubscribeAll])
}

// Client owns the single live bidirectional connection to the board server.
// It reconnects automatically with backoff, queues outbound frames (bounded)
// while disconnected, and emits a periodic heartbeat while connected.
// Connection failures are logged, never surfaced as errors: transport
// trouble is recoverable by design.
type Client struct {
	streamURL string
	identity  Identity
	heartbeat time.Duration
	policy    ReconnectPolicy
	dialer    *websocket.Dialer

	queue       *sendQueue
	broadcaster *eventBroadcaster

	mu      sync.Mutex
	state   State
	boardID string
	conn    *websocket.Conn
	binding chan struct{} // closed to stop the current board's run loop
	closed  bool

	writeMu sync.Mutex // serializes frame writes on the live conn
}

// ClientOption configures optional Client behavior.
type ClientOption func(*Client)

// WithHeartbeatInterval overrides the heartbeat period.
func WithHeartbeatInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.heartbeat = d }
}

// WithReconnectPolicy overrides the reconnect backoff policy.
func WithReconnectPolicy(p ReconnectPolicy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// WithQueueCapacity overrides the bounded outbound queue capacity.
func WithQueueCapacity(n int) ClientOption {
	return func(c *Client) { c.queue = newSendQueue(n) }
}

// WithDialer replaces the websocket dialer (used in tests).
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = d }
}

// NewClient creates a transport client for the given ws:// or wss:// stream
// URL. The identity rides on join, leave, and heartbeat frames.
func NewClient(streamURL string, identity Identity, opts ...ClientOption) *Client {
	c := &Client{
		streamURL:   streamURL,
		identity:    identity,
		heartbeat:   DefaultHeartbeatInterval,
		policy:      DefaultReconnectPolicy(),
		dialer:      websocket.DefaultDialer,
		queue:       newSendQueue(DefaultQueueCapacity),
		broadcaster: newEventBroadcaster(),
		state:       StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// QueuedFrames returns how many outbound frames are waiting for reconnect.
func (c *Client) QueuedFrames() int {
	return c.queue.len()
}

// Connect binds the transport to a board and starts the connection loop.
// Idempotent: connecting to the board already bound is a no-op; connecting
// to a different board tears down the old binding and rebinds.
func (c *Client) Connect(boardID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("transport closed")
	}
	if c.boardID == boardID && c.binding != nil {
		return nil
	}
	if c.binding != nil {
		close(c.binding)
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
	}
	c.boardID = boardID
	c.binding = make(chan struct{})
	c.state = StateConnecting
	go c.run(boardID, c.binding)
	return nil
}

// Disconnect leaves the current board best-effort and tears down the
// connection loop. Unlike Close, the client stays usable: a later Connect
// binds and dials again.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	conn := c.teardownLocked()
	c.mu.Unlock()

	c.leaveAndClose(conn)
}

// Close leaves the board best-effort and shuts the transport down. The
// client cannot be reused after Close.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.teardownLocked()
	c.mu.Unlock()

	c.leaveAndClose(conn)
}

// teardownLocked stops the current binding and detaches the live conn,
// returning it for the leave handshake. Caller holds c.mu.
func (c *Client) teardownLocked() *websocket.Conn {
	conn := c.conn
	c.conn = nil
	if c.binding != nil {
		close(c.binding)
		c.binding = nil
	}
	c.boardID = ""
	c.state = StateDisconnected
	return conn
}

// leaveAndClose sends a best-effort leave notification before the socket
// goes away.
func (c *Client) leaveAndClose(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	if frame, err := NewFrame(EventLeaveBoard, c.identity); err == nil {
		c.writeMu.Lock()
		_ = conn.WriteJSON(frame)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
	}
	_ = conn.Close()
}

// Send transmits a named event immediately when connected. While
// disconnected the frame joins the bounded queue and is flushed FIFO on
// reconnect; once the queue is full further frames are dropped silently.
func (c *Client) Send(event string, payload any) {
	frame, err := NewFrame(event, payload)
	if err != nil {
		log.Printf("realtime send event=%s error=%v", event, err)
		return
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		if !c.queue.push(frame) {
			log.Printf("realtime queue full, dropping event=%s", event)
		}
		return
	}

	if err := c.writeFrame(conn, frame); err != nil {
		// The read pump will notice the dead conn and reconnect; keep the
		// frame for the flush.
		if !c.queue.push(frame) {
			log.Printf("realtime queue full, dropping event=%s", event)
		}
	}
}

// Subscribe returns a channel receiving inbound events with the given type
// name, or all events for SubscribeAll. Multiple independent subscribers per
// name are supported.
func (c *Client) Subscribe(eventName string) chan board.RemoteEvent {
	return c.broadcaster.subscribe(eventName)
}

// Unsubscribe removes and closes a subscription channel.
func (c *Client) Unsubscribe(eventName string, ch chan board.RemoteEvent) {
	c.broadcaster.unsubscribe(eventName, ch)
}

func (c *Client) writeFrame(conn *websocket.Conn, frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(frame)
}

func (c *Client) setState(binding chan struct{}, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.binding != binding {
		return // stale loop after a rebind
	}
	c.state = s
}

// run is the connection loop for one board binding: dial, join, flush,
// pump, and on failure back off and reconnect until the binding is torn
// down.
func (c *Client) run(boardID string, binding chan struct{}) {
	attempt := 0
	everConnected := false
	for {
		select {
		case <-binding:
			return
		default:
		}

		// Redialing after a lost connection is Reconnecting; the attempt
		// counter only drives backoff and resets on every success.
		if everConnected {
			c.setState(binding, StateReconnecting)
		} else {
			c.setState(binding, StateConnecting)
		}

		conn, err := c.dial(boardID)
		if err != nil {
			delay := c.policy.Delay(attempt)
			log.Printf("realtime connect board=%s attempt=%d error=%v retry_in=%s",
				boardID, attempt, err, delay.Round(time.Millisecond))
			attempt++
			select {
			case <-binding:
				return
			case <-time.After(delay):
			}
			continue
		}

		c.mu.Lock()
		if c.binding != binding {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.state = StateConnected
		c.mu.Unlock()
		attempt = 0
		everConnected = true

		// Rejoining the board's event room is implicit in the join frame.
		if frame, err := NewFrame(EventJoinBoard, c.identity); err == nil {
			_ = c.writeFrame(conn, frame)
		}
		backlog := c.queue.drain()
		for i, frame := range backlog {
			if err := c.writeFrame(conn, frame); err != nil {
				// Keep the unsent tail for the next flush, still in order.
				c.queue.requeue(backlog[i:])
				log.Printf("realtime flush board=%s error=%v", boardID, err)
				break
			}
		}

		heartbeatDone := make(chan struct{})
		go c.heartbeatLoop(conn, heartbeatDone)

		c.readPump(conn)
		close(heartbeatDone)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		stale := c.binding != binding
		if !stale {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		_ = conn.Close()
		if stale {
			return
		}

		select {
		case <-binding:
			return
		default:
			log.Printf("realtime disconnected board=%s, reconnecting", boardID)
		}
	}
}

func (c *Client) dial(boardID string) (*websocket.Conn, error) {
	u, err := url.Parse(c.streamURL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	q := u.Query()
	q.Set("board_id", boardID)
	q.Set("user_id", c.identity.UserID)
	u.RawQuery = q.Encode()

	conn, _, err := c.dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// heartbeatLoop emits the periodic liveness signal while the conn is up.
func (c *Client) heartbeatLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			frame, err := NewFrame(EventHeartbeat, c.identity)
			if err != nil {
				continue
			}
			if err := c.writeFrame(conn, frame); err != nil {
				return
			}
		}
	}
}

// readPump decodes inbound events and fans them out until the conn dies.
func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev board.RemoteEvent
		if err := ev.UnmarshalJSON(data); err != nil {
			log.Printf("realtime decode error=%v", err)
			continue
		}
		c.broadcaster.broadcast(ev)
	}
}
