// Package controller orchestrates the chat session protocol: it is
// the single writer of the SessionStore and the only place errors are
// converted into user-visible notifications.
package controller

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/harshdhankhar10/bucketwings-chat/internal/apperr"
	"github.com/harshdhankhar10/bucketwings-chat/internal/model/chat"
	"github.com/harshdhankhar10/bucketwings-chat/internal/store"
)

// PersistenceClient is the chat-storage surface the controller drives.
type PersistenceClient interface {
	ListSessions(ctx context.Context) ([]chat.Session, error)
	CreateSession(ctx context.Context) (chat.Session, error)
	DeleteSession(ctx context.Context, id string) error
	FetchMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	AppendMessage(ctx context.Context, sessionID string, msg chat.Message) error
}

// CompletionClient generates an answer for a prompt.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Notifier receives exactly one call per failure path, carrying the
// failure class for user display. Implementations must not block.
type Notifier interface {
	Notify(kind apperr.Kind, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(kind apperr.Kind, message string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(kind apperr.Kind, message string) { f(kind, message) }

// Controller reacts to user actions and mutates the store according
// to the session/prompt protocol.
type Controller struct {
	store       *store.SessionStore
	persistence PersistenceClient
	completion  CompletionClient
	notifier    Notifier
	logger      *zap.Logger
}

// New wires a controller; the store reference is explicit, never an
// ambient singleton.
func New(st *store.SessionStore, persistence PersistenceClient, completion CompletionClient, notifier Notifier, logger *zap.Logger) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(apperr.Kind, string) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:       st,
		persistence: persistence,
		completion:  completion,
		notifier:    notifier,
		logger:      logger,
	}
}

// Store exposes the state container for read-only consumers.
func (c *Controller) Store() *store.SessionStore {
	return c.store
}

// RefreshSessions re-fetches the session list and replaces it
// wholesale, keeping server-computed ordering and fields
// authoritative.
func (c *Controller) RefreshSessions(ctx context.Context) error {
	c.store.SetLoadingSessions(true)
	defer c.store.SetLoadingSessions(false)

	sessions, err := c.persistence.ListSessions(ctx)
	if err != nil {
		c.report("list sessions", err)
		return err
	}

	c.store.SetSessions(sessions)
	return nil
}

// SelectChat makes id the current session and loads its transcript.
// Selection itself cannot fail: on a fetch error the transcript is
// cleared and the selection stays put. A fetch that resolves after
// the user has moved on to another session is discarded.
func (c *Controller) SelectChat(ctx context.Context, id string) error {
	c.store.SetSelected(id)

	c.store.SetLoadingMessages(true)
	defer c.store.SetLoadingMessages(false)

	messages, err := c.persistence.FetchMessages(ctx, id)
	if err != nil {
		// Do not wipe another session's transcript when this fetch
		// lost a selection race.
		if c.store.SelectedID() == id {
			c.store.ClearMessages()
		}
		c.report("fetch messages", err)
		return err
	}

	c.store.ReplaceMessages(id, messages)
	return nil
}

// CreateChat records a new session remotely, then re-lists instead of
// splicing locally. Returns the created session.
func (c *Controller) CreateChat(ctx context.Context) (chat.Session, error) {
	session, err := c.persistence.CreateSession(ctx)
	if err != nil {
		c.report("create session", err)
		return chat.Session{}, err
	}

	if err := c.RefreshSessions(ctx); err != nil {
		return session, err
	}
	return session, nil
}

// DeleteChat removes a session remotely and locally. When the deleted
// session was selected, selection moves to the first remaining
// session, or clears when none remain; it never dangles.
func (c *Controller) DeleteChat(ctx context.Context, id string) error {
	if err := c.persistence.DeleteSession(ctx, id); err != nil {
		c.report("delete session", err)
		return err
	}

	wasSelected := c.store.SelectedID() == id
	if err := c.RefreshSessions(ctx); err != nil {
		return err
	}

	if wasSelected {
		sessions := c.store.Sessions()
		if len(sessions) > 0 {
			return c.SelectChat(ctx, sessions[0].ID)
		}
		c.store.ClearSelection()
	}
	return nil
}

// SetPrompt stages text for the next SendMessage call.
func (c *Controller) SetPrompt(text string) {
	c.store.SetPendingPrompt(text)
}

// SendMessage submits the staged prompt: validate, capture-and-clear,
// complete, optimistically append, then persist. The completion
// result is always made visible before the persistence round trip,
// and a persistence failure never rolls the visible answer back.
func (c *Controller) SendMessage(ctx context.Context) error {
	captured, ok := c.store.TakePendingPrompt()
	if !ok {
		// A submission is already in flight; reject without side
		// effects.
		err := apperr.New(apperr.Validation, "a submission is already in progress")
		c.report("send message", err)
		return err
	}

	trimmed := strings.TrimSpace(captured)
	if trimmed == "" {
		c.store.RestorePrompt(captured)
		err := apperr.New(apperr.Validation, "prompt must not be empty")
		c.report("send message", err)
		return err
	}

	sessionID := c.store.SelectedID()
	if sessionID == "" {
		c.store.RestorePrompt(captured)
		err := apperr.New(apperr.Validation, "no session selected")
		c.report("send message", err)
		return err
	}

	defer c.store.FinishSubmit()

	answer, err := c.completion.Complete(ctx, trimmed)
	if err != nil {
		// Nothing was generated, so there is nothing to append or
		// persist.
		c.report("complete prompt", err)
		return err
	}

	msg := chat.Message{Question: trimmed, Answer: answer}
	c.store.AppendMessage(sessionID, msg)

	if err := c.persistence.AppendMessage(ctx, sessionID, msg); err != nil {
		// The optimistic copy stays visible; discarding a shown
		// answer is worse than a copy that may not survive a reload.
		err = apperr.Wrap(apperr.Persistence, "message generated but not saved", err)
		c.report("persist message", err)
		return err
	}

	return nil
}

// report logs the failure for developers and fires exactly one
// user-visible notification.
func (c *Controller) report(op string, err error) {
	kind := apperr.KindOf(err)
	if kind == "" {
		kind = apperr.Network
	}
	c.logger.Error("chat operation failed",
		zap.String("op", op), zap.String("kind", string(kind)), zap.Error(err))
	c.notifier.Notify(kind, err.Error())
}
