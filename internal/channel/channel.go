package channel

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// ReconnectDelay is the fixed wait before re-dialing after an abnormal
	// transport close. A behavioral contract, not a tuning knob: availability
	// is preferred over backoff because the consumer can always unsubscribe.
	ReconnectDelay = 3 * time.Second

	// writeWait bounds how long a single websocket write may take.
	writeWait = 10 * time.Second
)

// State is the channel's connection state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Handlers receive channel events. Nil handlers are skipped. Handlers run on
// the channel's read goroutine and must not block.
type Handlers struct {
	// OnStreamStart fires on the subscription acknowledgement, which the
	// backend guarantees precedes any frame for the subscription.
	OnStreamStart func()

	// OnStreamStop fires on a stream_stopped message. The transport stays
	// connected; this is not an error.
	OnStreamStop func(message string)

	// OnFrame receives the decoded frame payload (the still-image bytes).
	OnFrame func(payload []byte)

	// OnError fires on an error message from the backend.
	OnError func(message string)
}

// Channel owns one persistent websocket connection to the stream endpoint
// for a single session. It subscribes on open, dispatches incoming messages,
// and re-dials once after ReconnectDelay on any abnormal close. Exactly one
// transport exists per channel at a time: reconnection replaces it, never
// duplicates it.
type Channel struct {
	sessionID string
	url       string
	dialer    *websocket.Dialer
	handlers  Handlers

	// Delay defaults to ReconnectDelay; tests shorten it.
	Delay time.Duration

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	generation uint64
	reconnect  *time.Timer
	closed     bool

	// writeMu serializes transport writes; send and Close may hold the same
	// conn at the same time and gorilla forbids concurrent writers.
	writeMu sync.Mutex

	frameCount atomic.Uint64
}

// New creates a channel for a session. The caller must Connect it.
func New(url, sessionID string, handlers Handlers) *Channel {
	return &Channel{
		sessionID: sessionID,
		url:       url,
		dialer:    websocket.DefaultDialer,
		handlers:  handlers,
		Delay:     ReconnectDelay,
		state:     StateIdle,
	}
}

// SessionID returns the session this channel carries.
func (c *Channel) SessionID() string {
	return c.sessionID
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FrameCount returns the number of frames received since the last Close.
func (c *Channel) FrameCount() uint64 {
	return c.frameCount.Load()
}

// Connect dials the stream endpoint and sends the subscribe control message.
// Dial failures follow the abnormal-close path and schedule a reconnect.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	gen := c.generation
	c.state = StateConnecting
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		log.Printf("Channel %s: dial failed: %v", c.sessionID, err)
		c.scheduleReconnect(gen)
		return
	}

	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	if err := c.send(Message{Type: TypeSubscribe, SessionID: c.sessionID}); err != nil {
		log.Printf("Channel %s: subscribe failed: %v", c.sessionID, err)
		conn.Close()
		c.scheduleReconnect(gen)
		return
	}

	go c.readLoop(conn, gen)
}

// Close terminates the channel. It is idempotent and safe from any state:
// it cancels any pending reconnect, sends a best-effort unsubscribe, closes
// the transport with the normal close code and resets the frame counter.
// Local state is authoritative immediately, whatever the handshake does.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	c.frameCount.Store(0)

	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(Message{Type: TypeUnsubscribe})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
}

func (c *Channel) send(msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.closed || gen != c.generation
			if !stale {
				c.state = StateClosed
				c.conn = nil
			}
			c.mu.Unlock()

			if stale {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Channel %s: closed normally", c.sessionID)
				conn.Close()
				return
			}
			log.Printf("Channel %s: transport closed abnormally: %v", c.sessionID, err)
			conn.Close()
			c.scheduleReconnect(gen)
			return
		}
		c.handleMessage(data)
	}
}

// handleMessage dispatches one wire message. A malformed or unknown message
// is logged and skipped; a single bad message must never terminate the
// channel.
func (c *Channel) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Channel %s: unparseable message, ignoring: %v", c.sessionID, err)
		return
	}

	switch msg.Type {
	case TypeSubscribed:
		c.mu.Lock()
		if !c.closed {
			c.state = StateSubscribed
		}
		c.mu.Unlock()
		if c.handlers.OnStreamStart != nil {
			c.handlers.OnStreamStart()
		}

	case TypeFrame:
		if msg.Data == "" {
			log.Printf("Channel %s: frame without payload, ignoring", c.sessionID)
			return
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			log.Printf("Channel %s: bad frame encoding, ignoring: %v", c.sessionID, err)
			return
		}
		c.frameCount.Add(1)
		if c.handlers.OnFrame != nil {
			c.handlers.OnFrame(payload)
		}

	case TypeStreamStopped:
		if c.handlers.OnStreamStop != nil {
			c.handlers.OnStreamStop(msg.Message)
		}

	case TypeError:
		if c.handlers.OnError != nil {
			c.handlers.OnError(msg.Message)
		}

	default:
		log.Printf("Channel %s: unknown message type %q, ignoring", c.sessionID, msg.Type)
	}
}

// scheduleReconnect arms a single reconnect attempt after the fixed delay,
// provided the session is still wanted. The generation check keeps a stale
// timer from resurrecting a channel torn down in the meantime.
func (c *Channel) scheduleReconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation || c.sessionID == "" {
		return
	}
	if c.reconnect != nil {
		c.reconnect.Stop()
	}
	log.Printf("Channel %s: reconnecting in %v", c.sessionID, c.Delay)
	c.reconnect = time.AfterFunc(c.Delay, func() {
		c.mu.Lock()
		wanted := !c.closed && gen == c.generation
		c.mu.Unlock()
		if wanted {
			c.Connect()
		}
	})
}
