package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Message is what the hub pushes to subscribed clients. Payload carries the
// event as published to the Kafka events topic.
type Message struct {
	Room      string          `json:"room"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// clientCommand is what clients send upstream: join/leave a room.
type clientCommand struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[string]bool
	closed bool
	mu     sync.Mutex
}

// Hub fans events out to websocket clients grouped into rooms. Rooms are
// free-form strings; the services use "flights", "user:<id>" and "admin".
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	log        *logrus.Logger
	mu         sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		log:        log,
	}
}

// Run is the hub's main loop; the service main starts it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addToRooms(client)
		case client := <-h.unregister:
			h.removeFromRooms(client, true)
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Broadcast queues a message for every client joined to the room. Non-blocking:
// when the hub queue is full, the message is dropped.
func (h *Hub) Broadcast(room, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).Warn("ws: marshal broadcast payload")
		return
	}
	msg := &Message{Room: room, Type: eventType, Payload: data, Timestamp: time.Now().UnixMilli()}
	select {
	case h.broadcast <- msg:
	default:
		h.log.WithField("room", room).Warn("ws: broadcast queue full, dropping event")
	}
}

// HandleConnection upgrades the request and runs the client pumps.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws: upgrade failed")
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 64),
		rooms: map[string]bool{"flights": true},
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Hub) addToRooms(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.mu.Lock()
	defer client.mu.Unlock()
	for room := range client.rooms {
		if h.clients[room] == nil {
			h.clients[room] = make(map[*Client]bool)
		}
		h.clients[room][client] = true
	}
}

func (h *Hub) removeFromRooms(client *Client, closeSend bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.clients {
		if clients[client] {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, room)
			}
		}
	}
	if closeSend {
		// A slow consumer dropped by deliver can still unregister itself from
		// readPump; close the channel at most once.
		client.mu.Lock()
		if !client.closed {
			client.closed = true
			close(client.send)
		}
		client.mu.Unlock()
	}
}

func (h *Hub) deliver(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Warn("ws: marshal message")
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[message.Room]))
	for client := range h.clients[message.Room] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			// Slow consumer; drop it rather than stall the hub.
			h.removeFromRooms(client, true)
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Room == "" {
			continue
		}
		switch cmd.Action {
		case "join":
			c.mu.Lock()
			c.rooms[cmd.Room] = true
			c.mu.Unlock()
			c.hub.mu.Lock()
			if c.hub.clients[cmd.Room] == nil {
				c.hub.clients[cmd.Room] = make(map[*Client]bool)
			}
			c.hub.clients[cmd.Room][c] = true
			c.hub.mu.Unlock()
		case "leave":
			c.mu.Lock()
			delete(c.rooms, cmd.Room)
			c.mu.Unlock()
			c.hub.mu.Lock()
			if clients, ok := c.hub.clients[cmd.Room]; ok {
				delete(clients, c)
				if len(clients) == 0 {
					delete(c.hub.clients, cmd.Room)
				}
			}
			c.hub.mu.Unlock()
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
