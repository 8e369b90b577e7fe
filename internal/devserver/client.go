package devserver

import (
	"encoding/json"

	"github.com/fasthttp/websocket"

	"github.com/pelusa-v/mailgram/internal/events"
)

// Conn is the part of a websocket connection a client pumps.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Client is one connected user.
type Client struct {
	ID   string
	Name string
	conn Conn
	send chan []byte
}

func newClient(id, name string, conn Conn) *Client {
	return &Client{ID: id, Name: name, conn: conn, send: make(chan []byte, 16)}
}

// readPump forwards frames to the hub until the connection fails.
func (c *Client) readPump(h *Hub) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if !h.receive(frame{from: c, env: env}) {
			return
		}
	}
}

func (c *Client) writePump() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}
