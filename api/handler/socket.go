package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ddevcap/fontprefs/prefs"
)

// wsKeepAliveInterval is how often a ping frame and a keepalive message are
// sent to connected clients. Browsers answer the ping with a pong, which
// extends the read deadline of an idle connection.
var wsKeepAliveInterval = 10 * time.Second

const (
	// wsWriteWait bounds a single control frame write.
	wsWriteWait = 5 * time.Second
	// wsReadDeadline is the maximum time to wait for client traffic before considering the connection dead.
	wsReadDeadline = 90 * time.Second
	// wsMaxMessageSize bounds a single preview message.
	wsMaxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	// Previews never touch real cookies, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHub tracks all active WebSocket connections so they can be closed
// during graceful shutdown. Create one in main and pass it to the handler.
type WSHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	done  chan struct{} // closed on shutdown
	once  sync.Once
}

func NewWSHub() *WSHub {
	return &WSHub{
		conns: make(map[*websocket.Conn]struct{}),
		done:  make(chan struct{}),
	}
}

func (h *WSHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *WSHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// Len reports the number of open connections.
func (h *WSHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes all active WebSocket connections and signals handlers to exit.
func (h *WSHub) Shutdown() {
	h.once.Do(func() { close(h.done) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
}

// PreviewMessage is sent by the client on every input event.
type PreviewMessage struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PreviewReply is sent back for each PreviewMessage, and as a keepalive.
type PreviewReply struct {
	Type     string `json:"type"`
	Key      string `json:"key,omitempty"`
	Property string `json:"property,omitempty"`
	Value    string `json:"value,omitempty"`
	Error    string `json:"error,omitempty"`
}

// previewBinding records the properties applied by one Save so they can be
// sent back to the client.
type previewBinding struct {
	applied []PreviewReply
}

func (b *previewBinding) SetProperty(name, value string) {
	b.applied = append(b.applied, PreviewReply{Type: "property", Property: name, Value: value})
}

// PreviewSocketHandler returns a gin handler for live previews. Each
// connection gets its own Store over an in-memory jar seeded from the
// handshake cookies, so input events are applied and echoed back without
// setting real cookies. Saving stays with the form and the JSON API.
func PreviewSocketHandler(hub *WSHub, ttlDays int) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieHeader := strings.Join(c.Request.Header.Values("Cookie"), "; ")
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		id := uuid.NewString()
		hub.add(conn)
		defer func() {
			hub.remove(conn)
			_ = conn.Close()
		}()
		slog.Debug("ws: preview connected", "conn_id", id, "request_id", requestID(c))

		binding := &previewBinding{}
		store := prefs.NewStore(prefs.NewMemoryJarFromHeader(cookieHeader), binding, ttlDays)

		ticker := time.NewTicker(wsKeepAliveInterval)
		defer ticker.Stop()

		conn.SetReadLimit(wsMaxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
			return nil
		})

		msgs := make(chan PreviewMessage)
		readErr := make(chan error, 1)
		quit := make(chan struct{})
		defer close(quit)
		go func() {
			for {
				var msg PreviewMessage
				if err := conn.ReadJSON(&msg); err != nil {
					readErr <- err
					return
				}
				_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
				select {
				case msgs <- msg:
				case <-quit:
					return
				}
			}
		}()

		for {
			select {
			case <-hub.done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					slog.Debug("ws: ping write error", "conn_id", id, "error", err)
					return
				}
				if err := conn.WriteJSON(PreviewReply{Type: "keepalive"}); err != nil {
					slog.Debug("ws: keepalive write error", "conn_id", id, "error", err)
					return
				}
			case msg := <-msgs:
				for _, reply := range preview(store, binding, msg) {
					if err := conn.WriteJSON(reply); err != nil {
						slog.Debug("ws: write error", "conn_id", id, "error", err)
						return
					}
				}
			case err := <-readErr:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
					websocket.CloseNoStatusReceived,
				) {
					slog.Debug("ws: unexpected close", "conn_id", id, "error", err)
				}
				return
			}
		}
	}
}

// preview applies one input event and returns the replies to send.
func preview(store *prefs.Store, binding *previewBinding, msg PreviewMessage) []PreviewReply {
	d, ok := prefs.Lookup(msg.Key)
	if !ok {
		return []PreviewReply{{Type: "error", Key: msg.Key, Error: "unknown preference"}}
	}
	value := d.Normalize(msg.Value)
	if err := validateValue(d.Key, value); err != nil {
		return []PreviewReply{{Type: "error", Key: d.Key, Error: "invalid value for " + d.Key}}
	}

	binding.applied = binding.applied[:0]
	if err := store.OnControlChange(d.Key, value); err != nil {
		return []PreviewReply{{Type: "error", Key: d.Key, Error: err.Error()}}
	}
	replies := make([]PreviewReply, 0, len(binding.applied))
	for _, r := range binding.applied {
		r.Key = d.Key
		replies = append(replies, r)
	}
	return replies
}
