package live

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/hsx/internal/services"
	"github.com/desertthunder/hsx/internal/shared"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"golang.org/x/oauth2"
)

// State is the connection state of a [ConnectionManager].
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Frame is the JSON envelope carried by every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinEvent and LeaveEvent name the room membership frames for a topic.
func JoinEvent(topic string) string  { return "join-" + topic + "-room" }
func LeaveEvent(topic string) string { return "leave-" + topic + "-room" }

// Handler receives the payload of one inbound event.
type Handler func(data json.RawMessage)

// StateHandler receives connection state transitions.
type StateHandler func(State)

// Dialer opens websocket connections. [*websocket.Dialer] satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (*websocket.Conn, *http.Response, error)
}

// Options configures a [ConnectionManager].
type Options struct {
	URL         string
	TokenSource oauth2.TokenSource // Optional; adds an Authorization header to the handshake
	Dialer      Dialer             // Defaults to [websocket.DefaultDialer]
	MinBackoff  time.Duration      // First reconnect delay
	MaxBackoff  time.Duration      // Reconnect delay cap
	Logger      *log.Logger
}

// ConnectionManager owns the single push channel of a process.
//
// It connects on first use, reconnects with exponential backoff after a drop and replays room
// joins on every connect. Room membership is reference counted so independent views can share
// a room. All methods are safe for concurrent use.
type ConnectionManager struct {
	opts   Options
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	roomsMu       sync.Mutex // Held across a membership change and its frame
	mu            sync.Mutex
	writeMu       sync.Mutex
	state         State
	conn          *websocket.Conn
	started       bool
	closed        bool
	rooms         map[string]int
	handlers      map[string]map[int]Handler
	stateHandlers map[int]StateHandler
	nextID        int
}

// NewConnectionManager returns a disconnected manager. Nothing is dialed until first use.
func NewConnectionManager(opts Options) *ConnectionManager {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = max(30*time.Second, opts.MinBackoff)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ConnectionManager{
		opts:          opts,
		logger:        shared.WithLogger(logger, "component", "live"),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		rooms:         map[string]int{},
		handlers:      map[string]map[int]Handler{},
		stateHandlers: map[int]StateHandler{},
	}
}

// State returns the current connection state.
func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Rooms returns the joined topics.
func (m *ConnectionManager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.rooms))
}

// Join adds a reference to a topic's room and returns its release function.
//
// The first reference sends the join frame (immediately when connected, otherwise on the next
// connect); the last release sends the leave frame. Calling release more than once is a no-op.
func (m *ConnectionManager) Join(topic string) (release func()) {
	m.start()

	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	m.rooms[topic]++
	first := m.rooms[topic] == 1
	conn := m.conn
	m.mu.Unlock()

	if first && conn != nil {
		if err := m.send(conn, Frame{Event: JoinEvent(topic)}); err != nil {
			m.logger.Debug("join deferred until reconnect", "topic", topic, "err", err)
		}
	}

	var once sync.Once
	return func() { once.Do(func() { m.leave(topic) }) }
}

func (m *ConnectionManager) leave(topic string) {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()

	m.mu.Lock()
	n, ok := m.rooms[topic]
	if !ok {
		m.mu.Unlock()
		return
	}
	last := n <= 1
	if last {
		delete(m.rooms, topic)
	} else {
		m.rooms[topic] = n - 1
	}
	conn := m.conn
	m.mu.Unlock()

	if last && conn != nil {
		if err := m.send(conn, Frame{Event: LeaveEvent(topic)}); err != nil {
			m.logger.Debug("leave not sent", "topic", topic, "err", err)
		}
	}
}

// Subscribe registers a handler for an inbound event name and returns its unsubscribe function.
//
// Handlers run on the reader goroutine in arrival order and must not block.
func (m *ConnectionManager) Subscribe(event string, h Handler) (unsubscribe func()) {
	m.start()

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.handlers[event] == nil {
		m.handlers[event] = map[int]Handler{}
	}
	m.handlers[event][id] = h
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers[event], id)
		if len(m.handlers[event]) == 0 {
			delete(m.handlers, event)
		}
	}
}

// OnState registers a handler for connection state transitions.
func (m *ConnectionManager) OnState(h StateHandler) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.stateHandlers[id] = h
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.stateHandlers, id)
	}
}

// Emit sends an application event over the channel.
func (m *ConnectionManager) Emit(event string, data any) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return shared.ErrNotConnected
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return m.send(conn, Frame{Event: event, Data: raw})
}

// Close tears down the connection and stops reconnecting. It is meant for process shutdown only.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.started
	conn := m.conn
	m.mu.Unlock()

	m.cancel()

	var err error
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		err = multierr.Append(err, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))
		err = multierr.Append(err, conn.Close())
	}
	if started {
		<-m.done
	}
	m.setState(Disconnected)
	return err
}

func (m *ConnectionManager) start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	go m.run()
}

func (m *ConnectionManager) run() {
	defer close(m.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.opts.MinBackoff
	b.MaxInterval = m.opts.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	for m.ctx.Err() == nil {
		m.setState(Connecting)

		conn, err := m.dial()
		if err != nil {
			if m.ctx.Err() != nil {
				return
			}
			m.setState(Disconnected)
			wait := b.NextBackOff()
			m.logger.Warn("connect_error", "url", m.opts.URL, "err", err, "retry", wait)
			if !sleep(m.ctx, wait) {
				return
			}
			continue
		}
		b.Reset()

		if !m.attach(conn) {
			conn.Close()
			return
		}

		err = m.read(conn)
		m.detach(conn)

		if m.ctx.Err() != nil {
			return
		}
		wait := b.NextBackOff()
		m.logger.Warn("disconnect", "err", err, "retry", wait)
		if !sleep(m.ctx, wait) {
			return
		}
	}
}

func (m *ConnectionManager) dial() (*websocket.Conn, error) {
	header, err := services.AuthHeader(m.opts.TokenSource)
	if err != nil {
		return nil, err
	}

	conn, resp, err := m.opts.Dialer.DialContext(m.ctx, m.opts.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	return conn, nil
}

// attach publishes the connection and replays every joined room before announcing Connected.
func (m *ConnectionManager) attach(conn *websocket.Conn) bool {
	m.roomsMu.Lock()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.roomsMu.Unlock()
		return false
	}
	m.conn = conn
	rooms := slices.Sorted(maps.Keys(m.rooms))
	m.mu.Unlock()

	for _, topic := range rooms {
		if err := m.send(conn, Frame{Event: JoinEvent(topic)}); err != nil {
			m.logger.Debug("join replay failed", "topic", topic, "err", err)
		}
	}
	m.roomsMu.Unlock()

	m.logger.Info("connect", "url", m.opts.URL, "rooms", len(rooms))
	m.setState(Connected)
	return true
}

func (m *ConnectionManager) detach(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()

	conn.Close()
	m.setState(Disconnected)
}

// read dispatches frames until the connection fails. A single reader keeps per-topic order.
func (m *ConnectionManager) read(conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil || f.Event == "" {
			m.logger.Debug("dropping malformed frame", "size", len(msg), "err", err)
			continue
		}
		m.dispatch(f)
	}
}

func (m *ConnectionManager) dispatch(f Frame) {
	m.mu.Lock()
	registered := m.handlers[f.Event]
	hs := make([]Handler, 0, len(registered))
	for _, id := range slices.Sorted(maps.Keys(registered)) {
		hs = append(hs, registered[id])
	}
	m.mu.Unlock()

	if len(hs) == 0 {
		m.logger.Debug("no subscribers", "event", f.Event)
	}
	for _, h := range hs {
		h(f.Data)
	}
}

func (m *ConnectionManager) send(conn *websocket.Conn, f Frame) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(f)
}

func (m *ConnectionManager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	hs := make([]StateHandler, 0, len(m.stateHandlers))
	for _, id := range slices.Sorted(maps.Keys(m.stateHandlers)) {
		hs = append(hs, m.stateHandlers[id])
	}
	m.mu.Unlock()

	for _, h := range hs {
		h(s)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
