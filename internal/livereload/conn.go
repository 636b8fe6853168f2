package livereload

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// wsClient is a Client backed by a WebSocket connection.
type wsClient struct {
	id   string
	conn *websocket.Conn

	// gorilla/websocket supports one concurrent writer.
	writeMu sync.Mutex

	mu  sync.Mutex
	url string
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		id:   uuid.NewString(),
		conn: conn,
	}
}

func (c *wsClient) ID() string {
	return c.id
}

func (c *wsClient) Send(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if raw, ok := msg.(json.RawMessage); ok {
		return c.conn.WriteMessage(websocket.TextMessage, raw)
	}
	return c.conn.WriteJSON(msg)
}

func (c *wsClient) setURL(u string) {
	c.mu.Lock()
	c.url = u
	c.mu.Unlock()
}

// URL returns the page URL reported by the client's info command.
func (c *wsClient) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}
