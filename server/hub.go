package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	log "github.com/colorfulnotion/moonbase/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	MethodTransfer   = "transfer"
	MethodFees       = "fees"
	MethodSubscribe  = "subscribe"
	MethodSubscribed = "subscribed"

	module = log.ServerMonitoring

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Frame is the JSON envelope of every message pushed to clients.
type Frame struct {
	Method string      `json:"method"`
	Result interface{} `json:"result"`
}

// SubscriptionRequest narrows the topics a client receives.
// {"method":"subscribe","params":["fees"]}
type SubscriptionRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
}

type message struct {
	method string
	data   []byte
	to     *Client // nil: every subscribed client
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub manages client registration and broadcasting
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	direct     chan message
	count      chan chan int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewHub(ctx context.Context) *Hub {
	cctx, cancel := context.WithCancel(ctx)
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, sendBuffer),
		direct:     make(chan message),
		count:      make(chan chan int),
		ctx:        cctx,
		cancel:     cancel,
	}
}

// Run serves the hub until its context is cancelled, then waits for every
// client pump to exit.
func (h *Hub) Run() {
	defer h.wg.Wait()
	for {
		select {
		case <-h.ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.wg.Add(2)
			go client.writePump()
			go client.readPump()
			log.Debug(module, "ws client registered", "id", client.id, "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Debug(module, "ws client unregistered", "id", client.id, "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.wants(msg.method) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					log.Warn(module, "dropping slow ws client", "id", client.id)
					close(client.send)
					delete(h.clients, client)
				}
			}

		case msg := <-h.direct:
			if _, ok := h.clients[msg.to]; !ok {
				continue
			}
			select {
			case msg.to.send <- msg.data:
			default:
			}

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Stop cancels the hub context.
func (h *Hub) Stop() {
	h.cancel()
}

// Broadcast queues result for every client subscribed to method.
func (h *Hub) Broadcast(method string, result interface{}) error {
	data, err := json.Marshal(Frame{Method: method, Result: result})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message{method: method, data: data}:
	case <-h.ctx.Done():
	}
	return nil
}

// ClientCount is the number of registered clients; 0 once the hub stopped.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.ctx.Done():
		return 0
	}
}

// ServeWs upgrades the request and hands the client to Run, which starts
// its pumps. A stopped hub closes the connection instead.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(module, "ws upgrade failed", "err", err)
		return
	}
	client := &Client{
		id:     uuid.New().String(),
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: map[string]bool{MethodTransfer: true, MethodFees: true},
	}
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
	}
}

type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[string]bool
}

func (c *Client) wants(method string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[method]
}

func (c *Client) subscribe(topics []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = make(map[string]bool, len(topics))
	accepted := make([]string, 0, len(topics))
	for _, t := range topics {
		if t == MethodTransfer || t == MethodFees {
			c.topics[t] = true
			accepted = append(accepted, t)
		}
	}
	return accepted
}

// reply queues a frame for this client only. The hub owns c.send, so the
// frame goes through it.
func (c *Client) reply(method string, result interface{}) {
	data, err := json.Marshal(Frame{Method: method, Result: result})
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- message{method: method, data: data, to: c}:
	case <-c.hub.ctx.Done():
	}
}

// readPump handles WebSocket reads and subscription management
func (c *Client) readPump() {
	defer c.hub.wg.Done()
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Trace(module, "ws close error", "id", c.id, "err", err)
			}
			return
		}
		var req SubscriptionRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Warn(module, "invalid ws message", "id", c.id, "err", err)
			continue
		}
		switch req.Method {
		case MethodSubscribe:
			accepted := c.subscribe(req.Params)
			log.Debug(module, "ws subscribed", "id", c.id, "topics", accepted)
			c.reply(MethodSubscribed, accepted)
		default:
			log.Warn(module, "unknown ws method", "id", c.id, "method", req.Method)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
