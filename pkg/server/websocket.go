package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

const (
	maxMessageSize = 1024 * 1024
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking should be restricted when exposed beyond
		// localhost.
		return true
	},
}

// Message is the wire format exchanged with clients.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
}

// CheckRequest asks for one subject check.
type CheckRequest struct {
	Subject string `json:"subject"`
}

// BatchRequest asks for a whole subject list; verdicts stream back one
// message each.
type BatchRequest struct {
	Subjects []string `json:"subjects"`
}

// Client represents one WebSocket connection.
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan Message

	remoteAddr  string
	connectedAt time.Time

	service *Service
}

var clientCounter atomic.Int64

func generateClientID() string {
	return fmt.Sprintf("client-%d-%d", time.Now().Unix(), clientCounter.Add(1))
}

// handleWebSocket upgrades the connection and starts the client pumps.
func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		ID:          generateClientID(),
		conn:        conn,
		send:        make(chan Message, 256),
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
		service:     s,
	}

	s.register <- client

	go client.writePump()
	go client.readPump()

	client.enqueue(Message{
		Type:      "welcome",
		Data:      marshalJSON(map[string]string{"server": "StatusHawk", "client_id": client.ID}),
		Timestamp: time.Now(),
	})
}

// enqueue sends a message without blocking; a client that cannot keep
// up is dropped by the write pump.
func (c *Client) enqueue(msg Message) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.service.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "check":
		var req CheckRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Subject == "" {
			c.enqueue(errorMessage(msg.ID, "check request needs a subject"))
			return
		}
		go c.runCheck(msg.ID, req.Subject)

	case "batch":
		var req BatchRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil || len(req.Subjects) == 0 {
			c.enqueue(errorMessage(msg.ID, "batch request needs subjects"))
			return
		}
		go c.runBatch(msg.ID, req.Subjects)

	case "ping":
		c.enqueue(Message{Type: "pong", ID: msg.ID, Timestamp: time.Now()})

	default:
		c.enqueue(errorMessage(msg.ID, fmt.Sprintf("unknown message type %q", msg.Type)))
	}
}

func (c *Client) runCheck(id, subject string) {
	st, err := c.service.checkOne(subject)
	if err != nil {
		c.enqueue(errorMessage(id, err.Error()))
		return
	}
	c.enqueue(verdictMessage(id, st))
}

func (c *Client) runBatch(id string, subjects []string) {
	err := c.service.checkBatch(context.Background(), subjects, func(st *status.Status) {
		c.enqueue(verdictMessage(id, st))
	})
	if err != nil {
		c.enqueue(errorMessage(id, err.Error()))
		return
	}
	c.enqueue(Message{Type: "batch_complete", ID: id, Timestamp: time.Now()})
}

func verdictMessage(id string, st *status.Status) Message {
	return Message{
		Type:      "verdict",
		ID:        id,
		Subject:   st.Subject,
		Data:      marshalJSON(st),
		Timestamp: time.Now(),
	}
}

func errorMessage(id, text string) Message {
	return Message{
		Type:      "error",
		ID:        id,
		Error:     text,
		Timestamp: time.Now(),
	}
}

func marshalJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
