package ws

import (
	"encoding/json"
	"sync"
	"time"

	"landmarket/internal/stream"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxTopics = 32
)

type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	hub *Hub

	mu   sync.Mutex
	subs map[string]*stream.Subscription

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		hub:    hub,
		subs:   make(map[string]*stream.Subscription),
		done:   make(chan struct{}),
	}
}

// Run serves the connection until it closes. Subscriptions are released on
// every exit path.
func (c *Client) Run() {
	c.hub.register(c)
	defer c.close()

	for _, t := range defaultTopics(c.UserID) {
		c.subscribe(t)
	}
	go c.writePump()
	c.send(ServerMessage{Type: MsgReady, Topics: c.topics()})

	c.readPump()
}

func (c *Client) readPump() {
	c.Conn.SetReadLimit(4096)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.send(ServerMessage{Type: MsgError, Message: "invalid message"})
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg ClientMessage) {
	switch msg.Type {
	case MsgPing:
		c.send(ServerMessage{Type: MsgPong})
	case MsgSubscribe:
		if !allowed(c.UserID, msg.Topic) {
			c.send(ServerMessage{Type: MsgError, Topic: msg.Topic, Message: "topic not allowed"})
			return
		}
		if !c.subscribe(msg.Topic) {
			c.send(ServerMessage{Type: MsgError, Topic: msg.Topic, Message: "too many subscriptions"})
			return
		}
		c.send(ServerMessage{Type: MsgSubscribed, Topic: msg.Topic})
	case MsgUnsubscribe:
		c.unsubscribe(msg.Topic)
		c.send(ServerMessage{Type: MsgUnsubscribed, Topic: msg.Topic})
	default:
		c.send(ServerMessage{Type: MsgError, Message: "unknown message type"})
	}
}

func (c *Client) subscribe(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[topic]; ok {
		return true
	}
	if len(c.subs) >= maxTopics {
		return false
	}
	sub := c.hub.broker.Subscribe(topic)
	c.subs[topic] = sub
	go c.forward(sub)
	return true
}

func (c *Client) unsubscribe(topic string) {
	c.mu.Lock()
	sub, ok := c.subs[topic]
	delete(c.subs, topic)
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
}

func (c *Client) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for t := range c.subs {
		out = append(out, t)
	}
	return out
}

// forward copies changes from one subscription to the socket until the
// subscription or the client is closed.
func (c *Client) forward(sub *stream.Subscription) {
	for ch := range sub.C {
		at := ch.At
		c.send(ServerMessage{Type: MsgChange, Topic: ch.Topic, Change: ch.Type, Data: ch.Data, At: &at})
	}
}

// send queues msg, dropping it when the client is gone or too slow.
func (c *Client) send(msg ServerMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case <-c.done:
	case c.Send <- b:
	default:
		c.hub.log.Warn("ws send buffer full, dropping message", "user_id", c.UserID, "type", msg.Type)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		subs := c.subs
		c.subs = make(map[string]*stream.Subscription)
		c.mu.Unlock()
		for _, s := range subs {
			s.Close()
		}

		c.hub.unregister(c)
		_ = c.Conn.Close()
	})
}
