package viewer

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// pingInterval is how often to ping relay clients.
	pingInterval = 54 * time.Second

	// pongWait is the read deadline for relay clients.
	pongWait = 60 * time.Second

	// writeWait is the write deadline for relay clients.
	writeWait = 10 * time.Second

	// clientBuffer is the per-client outbound message buffer. A slow client
	// skips frames rather than backing up the stream.
	clientBuffer = 10

	// readLimit caps incoming control messages from the browser.
	readLimit = 512
)

// controlMessage is what the browser may send back over the relay socket.
type controlMessage struct {
	Type string `json:"type"`
}

// client is one browser connection attached to a camera's viewer.
type client struct {
	id     string
	viewer *Viewer
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue hands a message to the client, skipping it when the buffer is full.
func (c *client) enqueue(msg []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.send <- msg:
	default:
		log.Printf("Client %s: buffer full, skipping message", c.id)
	}
}

// readPump consumes control messages from the browser until the connection
// drops.
func (c *client) readPump() {
	defer func() {
		c.viewer.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client %s: read error: %v", c.id, err)
			}
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Client %s: bad control message, ignoring: %v", c.id, err)
			continue
		}
		c.viewer.handleControl(msg)
	}
}

// writePump pushes queued messages and keepalive pings to the browser.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
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
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Client %s: write error: %v", c.id, err)
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
