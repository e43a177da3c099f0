package viewer

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/egrangel/facerecon-sub002/internal/channel"
	"github.com/egrangel/facerecon-sub002/internal/registry"
	"github.com/egrangel/facerecon-sub002/internal/stream"
)

// ConnectSettleDelay is the wait between tearing down the channel of a
// replaced session and dialing the new one, so the new subscribe cannot race
// the backend teardown of the old session. A behavioral contract.
const ConnectSettleDelay = 500 * time.Millisecond

// relay message types pushed to the browser, beyond the channel's own.
const typeStatus = "status"

// statusMessage is the registry projection pushed to browser clients on
// every registry change.
type statusMessage struct {
	Type    string                 `json:"type"`
	Session registry.StreamSession `json:"session"`
}

// Viewer is the per-camera presentation adapter. It observes the registry,
// attaches a frame channel once the session has a sessionId, feeds frames to
// the renderer, and relays frames and status to attached browser clients.
// Exactly one channel is live per viewer; a session replacement tears the
// old one down fully before the new connection attempt.
type Viewer struct {
	cameraID  int
	manager   *stream.Manager
	streamURL string
	sink      FrameSink

	// SettleDelay defaults to ConnectSettleDelay; tests shorten it.
	SettleDelay time.Duration

	mu          sync.Mutex
	ch          *channel.Channel
	sessionID   string
	generation  uint64
	clients     map[string]*client
	unsubscribe func()
	closed      bool
}

// FrameSink receives decoded frame payloads, typically the renderer.
type FrameSink interface {
	Render(payload []byte)
}

func newViewer(cameraID int, manager *stream.Manager, streamURL string, sink FrameSink) *Viewer {
	v := &Viewer{
		cameraID:    cameraID,
		manager:     manager,
		streamURL:   streamURL,
		sink:        sink,
		SettleDelay: ConnectSettleDelay,
		clients:     make(map[string]*client),
	}
	v.unsubscribe = manager.Registry().Subscribe(v.onRegistryChange)
	return v
}

// onRegistryChange re-reads the camera's state, reconciles the frame channel
// with it, and pushes a status update to attached browsers.
func (v *Viewer) onRegistryChange() {
	v.syncChannel()
	v.broadcastStatus()
}

// syncChannel makes the live channel match the registry's sessionId. The
// old channel is detached under the lock but closed outside it: Close writes
// on the transport and a stalled peer must not hold up broadcasts and client
// attach.
func (v *Viewer) syncChannel() {
	s := v.manager.Registry().Get(v.cameraID)

	v.mu.Lock()
	if v.closed || s.SessionID == v.sessionID {
		v.mu.Unlock()
		return
	}

	old := v.ch
	v.ch = nil
	v.sessionID = s.SessionID
	v.generation++
	gen := v.generation
	sessionID := s.SessionID
	v.mu.Unlock()

	// Teardown completes before the new connection attempt is armed.
	hadChannel := old != nil
	if hadChannel {
		old.Close()
	}

	if sessionID == "" {
		return
	}

	// The settle delay applies only when replacing a live channel; a fresh
	// attach connects immediately.
	delay := time.Duration(0)
	if hadChannel {
		delay = v.SettleDelay
	}

	time.AfterFunc(delay, func() {
		v.mu.Lock()
		if v.closed || v.generation != gen || v.sessionID != sessionID {
			v.mu.Unlock()
			return
		}
		ch := channel.New(v.streamURL, sessionID, v.channelHandlers(sessionID))
		v.ch = ch
		v.mu.Unlock()

		ch.Connect()
	})
}

func (v *Viewer) channelHandlers(sessionID string) channel.Handlers {
	return channel.Handlers{
		OnStreamStart: func() {
			log.Printf("Camera %d: stream started (session %s)", v.cameraID, sessionID)
			v.broadcastStatus()
		},
		OnFrame: func(payload []byte) {
			v.sink.Render(payload)
			v.broadcast(channel.Message{
				Type:      channel.TypeFrame,
				Data:      base64.StdEncoding.EncodeToString(payload),
				Timestamp: time.Now().UnixMilli(),
			})
		},
		OnStreamStop: func(message string) {
			log.Printf("Camera %d: stream stopped (session %s)", v.cameraID, sessionID)
			v.broadcast(channel.Message{Type: channel.TypeStreamStopped, Message: message})
		},
		OnError: func(message string) {
			log.Printf("Camera %d: stream error: %s", v.cameraID, message)
			v.broadcast(channel.Message{Type: channel.TypeError, Message: message})
		},
	}
}

// AddClient attaches a browser connection to this camera's relay and starts
// its pumps. Attaching counts as interaction for the idle sweep.
func (v *Viewer) AddClient(conn *websocket.Conn) {
	c := &client{
		id:     uuid.NewString(),
		viewer: v,
		conn:   conn,
		send:   make(chan []byte, clientBuffer),
	}

	v.mu.Lock()
	v.clients[c.id] = c
	v.mu.Unlock()

	v.manager.Registry().Touch(v.cameraID)

	go c.writePump()
	go c.readPump()

	log.Printf("Camera %d: client %s attached", v.cameraID, c.id)
}

func (v *Viewer) removeClient(c *client) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	v.mu.Lock()
	delete(v.clients, c.id)
	v.mu.Unlock()

	close(c.send)
	log.Printf("Camera %d: client %s detached", v.cameraID, c.id)
}

// handleControl applies a browser control message.
func (v *Viewer) handleControl(msg controlMessage) {
	switch msg.Type {
	case "dismiss_error":
		v.manager.DismissError(v.cameraID)
	case "touch":
		v.manager.Registry().Touch(v.cameraID)
	default:
		log.Printf("Camera %d: unknown control %q, ignoring", v.cameraID, msg.Type)
	}
}

func (v *Viewer) broadcast(msg channel.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	v.eachClient(func(c *client) { c.enqueue(data) })
}

func (v *Viewer) broadcastStatus() {
	s := v.manager.Registry().Get(v.cameraID)
	data, err := json.Marshal(statusMessage{Type: typeStatus, Session: s})
	if err != nil {
		return
	}
	v.eachClient(func(c *client) { c.enqueue(data) })
}

func (v *Viewer) eachClient(fn func(*client)) {
	v.mu.Lock()
	clients := make([]*client, 0, len(v.clients))
	for _, c := range v.clients {
		clients = append(clients, c)
	}
	v.mu.Unlock()

	for _, c := range clients {
		fn(c)
	}
}

// ClientCount returns the number of attached browser clients.
func (v *Viewer) ClientCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.clients)
}

// Close detaches the viewer from the registry, closes its channel and drops
// all relay clients. Safe to call more than once.
func (v *Viewer) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	ch := v.ch
	v.ch = nil
	clients := make([]*client, 0, len(v.clients))
	for _, c := range v.clients {
		clients = append(clients, c)
	}
	unsub := v.unsubscribe
	v.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if ch != nil {
		ch.Close()
	}
	for _, c := range clients {
		v.removeClient(c)
		c.conn.Close()
	}
}
