// Package watch consumes the chat-storage change feed so a running
// client can refresh its session list when another writer mutates the
// store.
package watch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is one change notification from the feed.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
}

// Change feed event types.
const (
	EventSessionCreated  = "session.created"
	EventSessionDeleted  = "session.deleted"
	EventMessageAppended = "message.appended"
)

// Watcher maintains a websocket subscription to the change feed with
// automatic reconnection.
type Watcher struct {
	url    string
	token  string
	logger *zap.Logger
}

// New builds a watcher for the feed at url (ws:// or wss://). token is
// sent in the Authorization header like every other storage call.
func New(url, token string, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{url: url, token: token, logger: logger}
}

// Run delivers events on the returned channel until ctx is cancelled.
// Connection loss triggers a reconnect with backoff; the channel is
// closed when Run winds down.
func (w *Watcher) Run(ctx context.Context) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		backoff := time.Second
		for {
			if err := w.consume(ctx, events); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.logger.Warn("change feed disconnected, reconnecting",
					zap.Duration("backoff", backoff), zap.Error(err))
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()

	return events
}

func (w *Watcher) consume(ctx context.Context, events chan<- Event) error {
	header := map[string][]string{}
	if w.token != "" {
		header["Authorization"] = []string{w.token}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	w.logger.Info("change feed connected", zap.String("url", w.url))

	// Close the connection when the context ends so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			w.logger.Warn("unparseable change feed event", zap.Error(err))
			continue
		}

		select {
		case events <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
