package server

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hsx/internal/live"
	"github.com/desertthunder/hsx/internal/shared"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
)

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub is the push side of the sandbox: websocket clients join topic rooms and receive the
// events broadcast to them.
type Hub struct {
	logger *log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}
	closed  bool
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewHub returns an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
	}
}

// Routes implements [Handler].
func (h *Hub) Routes() []string { return []string{"GET /ws"} }

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "err", err)
		return
	}

	c := &client{
		id:   shared.GenerateID(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.logger.Info("client connected", "client", c.id)

	go h.write(c)
	h.read(c)

	h.unregister(c)
	conn.Close()
	h.logger.Info("client disconnected", "client", c.id)
}

// Broadcast sends an event to every client in the topic's room and reports how many received it.
//
// Clients whose buffers are full miss the event.
func (h *Hub) Broadcast(topic, event string, data any) (int, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	msg, err := json.Marshal(live.Frame{Event: event, Data: raw})
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s frame: %w", event, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.rooms[topic] {
		select {
		case c.send <- msg:
			sent++
		default:
			h.logger.Warn("dropping event for slow client", "client", c.id, "event", event)
		}
	}
	h.logger.Debug("broadcast", "topic", topic, "event", event, "clients", sent)
	return sent, nil
}

// Members returns the number of clients joined to a topic.
func (h *Hub) Members(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[topic])
}

// Topics lists the rooms with at least one member.
func (h *Hub) Topics() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Sorted(maps.Keys(h.rooms))
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := slices.Collect(maps.Keys(h.clients))
	h.mu.Unlock()

	var errs error
	for _, c := range clients {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
		errs = multierr.Append(errs, c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)))
		errs = multierr.Append(errs, c.conn.Close())
	}
	return errs
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c)
	for topic, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, topic)
		}
	}
	close(c.done)
}

func (h *Hub) join(c *client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[topic]
	if members == nil {
		members = make(map[*client]struct{})
		h.rooms[topic] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) leave(c *client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members := h.rooms[topic]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, topic)
		}
	}
}

// read handles room membership frames until the connection fails.
func (h *Hub) read(c *client) {
	for {
		var f live.Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("read failed", "client", c.id, "err", err)
			}
			return
		}

		if topic, ok := roomTopic(f.Event, "join-"); ok {
			h.join(c, topic)
			h.logger.Info("join", "client", c.id, "topic", topic)
			continue
		}
		if topic, ok := roomTopic(f.Event, "leave-"); ok {
			h.leave(c, topic)
			h.logger.Info("leave", "client", c.id, "topic", topic)
			continue
		}
		h.logger.Debug("ignoring frame", "client", c.id, "event", f.Event)
	}
}

func (h *Hub) write(c *client) {
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("write failed", "client", c.id, "err", err)
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// roomTopic extracts the topic from a join-<topic>-room or leave-<topic>-room event.
func roomTopic(event, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(event, prefix)
	if !ok {
		return "", false
	}
	topic, ok := strings.CutSuffix(rest, "-room")
	if !ok || topic == "" {
		return "", false
	}
	return topic, true
}
