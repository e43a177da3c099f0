package channel

// Wire message types for the stream websocket. Client to server: subscribe,
// unsubscribe. Server to client: subscribed, frame, stream_stopped, error.
const (
	TypeSubscribe     = "subscribe"
	TypeUnsubscribe   = "unsubscribe"
	TypeSubscribed    = "subscribed"
	TypeFrame         = "frame"
	TypeStreamStopped = "stream_stopped"
	TypeError         = "error"
)

// Message is the JSON envelope carried on the stream websocket in both
// directions. Unused fields are omitted per message type.
type Message struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      string `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}
