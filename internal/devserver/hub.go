package devserver

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harshdhankhar10/bucketwings-chat/internal/watch"
)

// hub fans change events out to every connected websocket subscriber.
type hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// serve upgrades the request and holds the connection open until the
// peer goes away. Subscribers only ever receive; inbound frames are
// drained and dropped.
func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("change feed subscriber dropped", zap.Error(err))
			}
			return
		}
	}
}

// broadcast sends one event to every subscriber, dropping connections
// that fail to accept the write.
func (h *hub) broadcast(evt watch.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteJSON(evt); err != nil {
			h.logger.Debug("dropping change feed subscriber", zap.Error(err))
			conn.Close()
			delete(h.conns, conn)
		}
	}
}
