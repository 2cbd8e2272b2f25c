// Package client talks to the remote chat-storage service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harshdhankhar10/bucketwings-chat/internal/apperr"
	"github.com/harshdhankhar10/bucketwings-chat/internal/model/chat"
)

const defaultTimeout = 30 * time.Second

// Persistence performs authenticated CRUD against the chat-storage
// API. The credential is injected at construction; absence of one
// short-circuits reads locally instead of making a doomed call.
type Persistence struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPersistence builds a client for the service at baseURL. token is
// sent verbatim in the Authorization header, no scheme prefix.
func NewPersistence(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Persistence {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persistence{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListSessions fetches all chat sessions. An empty list is a valid
// successful result.
func (p *Persistence) ListSessions(ctx context.Context) ([]chat.Session, error) {
	if p.token == "" {
		return nil, apperr.New(apperr.Auth, "missing credential")
	}

	var sessions []chat.Session
	if err := p.do(ctx, http.MethodGet, "/api/v1/aiChat/all", nil, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}
	return sessions, nil
}

// CreateSession records a new empty session remotely and returns it.
func (p *Persistence) CreateSession(ctx context.Context) (chat.Session, error) {
	if p.token == "" {
		return chat.Session{}, apperr.New(apperr.Auth, "missing credential")
	}

	var session chat.Session
	if err := p.do(ctx, http.MethodPost, "/api/v1/aiChat/new", nil, &session); err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

// DeleteSession removes a session permanently. Deleting an unknown id
// reports a not-found error.
func (p *Persistence) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return apperr.New(apperr.Validation, "session id is required")
	}
	if p.token == "" {
		return apperr.New(apperr.Auth, "missing credential")
	}
	return p.do(ctx, http.MethodDelete, "/api/v1/aiChat/"+id, nil, nil)
}

// FetchMessages returns the transcript of sessionID in insertion
// order. A session with no messages yields an empty slice.
func (p *Persistence) FetchMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.Validation, "session id is required")
	}
	if p.token == "" {
		return nil, apperr.New(apperr.Auth, "missing credential")
	}

	var messages []chat.Message
	if err := p.do(ctx, http.MethodGet, "/api/v1/aiChat/"+sessionID, nil, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}

// AppendMessage persists one question/answer turn to sessionID. The
// service updates the session's latest-message preview as a side
// effect.
func (p *Persistence) AppendMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	if sessionID == "" {
		return apperr.New(apperr.Validation, "session id is required")
	}
	if p.token == "" {
		return apperr.New(apperr.Auth, "missing credential")
	}
	return p.do(ctx, http.MethodPost, "/api/v1/aiChat/"+sessionID, msg, nil)
}

// do runs one round trip, mapping transport failures to network
// errors and HTTP status codes to the corresponding kinds. out, when
// non-nil, receives the decoded success body.
func (p *Persistence) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.Network, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.Network, "build request", err)
	}
	req.Header.Set("Authorization", p.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("persistence request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return apperr.Wrap(apperr.Network, method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		p.logger.Warn("persistence request rejected",
			zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return statusError(resp.StatusCode, method+" "+path, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.Network, "decode response", err)
	}
	return nil
}

func statusError(status int, op string, body []byte) error {
	msg := fmt.Sprintf("%s: status %d", op, status)
	if len(body) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(string(body)))
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.New(apperr.Auth, msg)
	case http.StatusNotFound:
		return apperr.New(apperr.NotFound, msg)
	default:
		return apperr.New(apperr.Network, msg)
	}
}
