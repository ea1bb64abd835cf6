// Package realtime pushes group events to websocket subscribers.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
)

var ErrHubClosed = errors.New("hub closed")

// Hub fans group events out to the clients subscribed to the group. It implements core.Notifier.
type Hub struct {
	logger   core.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex // guards rooms for readers outside Run
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan core.Event
	done       chan struct{}
	closeOnce  sync.Once
}

var _ core.Notifier = (*Hub)(nil)

func NewHub(logger core.Logger, conf *core.Config) *Hub {
	allowed := make(map[string]bool, len(conf.Server.AllowedOrigins))
	for _, o := range conf.Server.AllowedOrigins {
		allowed[o] = true
	}

	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan core.Event, 256),
		done:       make(chan struct{}),
	}
}

// Run processes subscriptions and events until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.groupID] == nil {
				h.rooms[c.groupID] = make(map[*Client]bool)
			}
			h.rooms[c.groupID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case evt := <-h.broadcast:
			h.dispatch(evt)

		case <-h.done:
			h.mu.Lock()
			for _, clients := range h.rooms {
				for c := range clients {
					h.remove(c)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *Client) {
	clients := h.rooms[c.groupID]
	if !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, c.groupID)
	}
}

func (h *Hub) dispatch(evt core.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("encoding realtime event", errors.Wrap(err, evt.Type))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[evt.GroupID] {
		select {
		case c.send <- payload:
		default:
			// slow consumer
			h.remove(c)
		}
	}
	if evt.Type == core.EventGroupDeleted {
		for c := range h.rooms[evt.GroupID] {
			h.remove(c)
		}
	}
}

// Notify queues evt for the group's subscribers. It never blocks the caller: events are dropped when the queue is
// full or the hub is closed.
func (h *Hub) Notify(evt core.Event) {
	select {
	case <-h.done:
	case h.broadcast <- evt:
	default:
		h.logger.Warn("realtime queue full, dropping event " + evt.Type)
	}
}

// Serve upgrades the request and subscribes the connection to the group's events.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, groupID, userName string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	c := &Client{
		hub:      h,
		conn:     conn,
		groupID:  groupID,
		userName: userName,
		send:     make(chan []byte, 64),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return ErrHubClosed
	}

	go c.writePump()
	go c.readPump()
	return nil
}

// Unsubscribe closes userName's connections to the group. It runs under the room lock, so events dispatched after
// it returns never reach those connections.
func (h *Hub) Unsubscribe(groupID, userName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[groupID] {
		if c.userName == userName {
			h.remove(c)
		}
	}
}

// Rename updates the name live subscriptions were opened with.
func (h *Hub) Rename(oldName, newName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for c := range clients {
			if c.userName == oldName {
				c.userName = newName
			}
		}
	}
}

// ClientCount returns the number of live subscriptions to the group.
func (h *Hub) ClientCount(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[groupID])
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
