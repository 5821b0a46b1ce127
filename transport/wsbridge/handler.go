package wsbridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alia5/padctl/transport"
)

// Handler accepts bridge connections and replays their frames through a
// relay. One connection drives the relay at a time; a second one is refused.
type Handler struct {
	relay    *transport.Relay
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	active bool
}

func NewHandler(relay *transport.Relay, logger *slog.Logger) *Handler {
	return &Handler{
		relay:  relay,
		logger: logger.With("component", "wsbridge"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.active {
		h.mu.Unlock()
		http.Error(w, "bridge already in use", http.StatusConflict)
		return
	}
	h.active = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.active = false
		h.mu.Unlock()
	}()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	logger := h.logger.With("remote", r.RemoteAddr, "topology", r.Header.Get("X-Padctl-Topology"))
	logger.Info("bridge connected")

	var writeMu sync.Mutex
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("bridge read", "error", err)
			}
			break
		}
		var m transport.Message
		if err := json.Unmarshal(data, &m); err != nil {
			logger.Warn("invalid bridge frame", "error", err)
			continue
		}
		// Requests may block on the sink; operations keep their order.
		if m.Type == transport.TypeRequest {
			go func() {
				reply := h.relay.Handle(r.Context(), m)
				writeMu.Lock()
				defer writeMu.Unlock()
				h.reply(conn, reply, logger)
			}()
			continue
		}
		reply := h.relay.Handle(r.Context(), m)
		writeMu.Lock()
		h.reply(conn, reply, logger)
		writeMu.Unlock()
	}
	if err := h.relay.Release(); err != nil {
		logger.Error("release after disconnect", "error", err)
	}
	logger.Info("bridge disconnected")
}

func (h *Handler) reply(conn *websocket.Conn, m *transport.Message, logger *slog.Logger) {
	if m == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		logger.Error("encode reply", "error", err)
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.Warn("write reply", "error", err)
	}
}
