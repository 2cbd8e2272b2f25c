// Package store holds the process-local model of chat sessions: the
// session list, the selected session's transcript, the staged prompt,
// and the transient loading flags. The controller is the only writer;
// views read snapshots.
package store

import (
	"sync"

	"github.com/harshdhankhar10/bucketwings-chat/internal/model/chat"
)

// SessionStore owns all mutable chat state.
type SessionStore struct {
	mu sync.RWMutex

	sessions   []chat.Session
	selectedID string
	messages   []chat.Message

	pendingPrompt string

	submitting      bool
	loadingSessions bool
	loadingMessages bool
}

// New bootstraps an empty store.
func New() *SessionStore {
	return &SessionStore{}
}

// SetSessions replaces the session list wholesale. If the selected
// session is no longer present the selection and transcript are
// cleared so the selection never dangles.
func (s *SessionStore) SetSessions(sessions []chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make([]chat.Session, len(sessions))
	copy(s.sessions, sessions)

	if s.selectedID != "" && !containsID(s.sessions, s.selectedID) {
		s.selectedID = ""
		s.messages = nil
	}
}

// Sessions returns a copy of the session list.
func (s *SessionStore) Sessions() []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// SetSelected records the selected session id.
func (s *SessionStore) SetSelected(id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
}

// ClearSelection drops the selection and its transcript.
func (s *SessionStore) ClearSelection() {
	s.mu.Lock()
	s.selectedID = ""
	s.messages = nil
	s.mu.Unlock()
}

// SelectedID returns the selected session id, empty when nothing is
// selected.
func (s *SessionStore) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// ReplaceMessages swaps in a freshly fetched transcript for sessionID.
// The swap is skipped when sessionID is no longer the selection, so a
// slow fetch can never mix transcripts of two sessions. Reports
// whether the swap was applied.
func (s *SessionStore) ReplaceMessages(sessionID string, messages []chat.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != s.selectedID {
		return false
	}

	s.messages = make([]chat.Message, len(messages))
	copy(s.messages, messages)
	return true
}

// ClearMessages empties the transcript.
func (s *SessionStore) ClearMessages() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// AppendMessage adds one turn to the end of the transcript and updates
// the owning session's preview. Messages are only ever appended,
// never reordered.
func (s *SessionStore) AppendMessage(sessionID string, msg chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			s.sessions[i].LatestMessagePreview = msg.Preview()
			break
		}
	}
}

// Messages returns a copy of the current transcript.
func (s *SessionStore) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetPendingPrompt stages prompt text for submission.
func (s *SessionStore) SetPendingPrompt(text string) {
	s.mu.Lock()
	s.pendingPrompt = text
	s.mu.Unlock()
}

// PendingPrompt returns the staged prompt text.
func (s *SessionStore) PendingPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingPrompt
}

// TakePendingPrompt atomically captures and clears the staged prompt
// and raises the submitting flag. It fails when a submission is
// already in flight, which is what enforces the single in-flight
// submission invariant.
func (s *SessionStore) TakePendingPrompt() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return "", false
	}

	text := s.pendingPrompt
	s.pendingPrompt = ""
	s.submitting = true
	return text, true
}

// RestorePrompt puts text back into the staging slot and lowers the
// submitting flag; used when a taken prompt turns out to be invalid.
func (s *SessionStore) RestorePrompt(text string) {
	s.mu.Lock()
	s.pendingPrompt = text
	s.submitting = false
	s.mu.Unlock()
}

// FinishSubmit lowers the submitting flag.
func (s *SessionStore) FinishSubmit() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

// IsSubmitting reports whether a prompt submission is in flight.
func (s *SessionStore) IsSubmitting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitting
}

// SetLoadingSessions toggles the session-list loading flag.
func (s *SessionStore) SetLoadingSessions(v bool) {
	s.mu.Lock()
	s.loadingSessions = v
	s.mu.Unlock()
}

// IsLoadingSessions reports whether the session list is being fetched.
func (s *SessionStore) IsLoadingSessions() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingSessions
}

// SetLoadingMessages toggles the transcript loading flag.
func (s *SessionStore) SetLoadingMessages(v bool) {
	s.mu.Lock()
	s.loadingMessages = v
	s.mu.Unlock()
}

// IsLoadingMessages reports whether a transcript fetch is in flight.
func (s *SessionStore) IsLoadingMessages() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingMessages
}

func containsID(sessions []chat.Session, id string) bool {
	for _, sess := range sessions {
		if sess.ID == id {
			return true
		}
	}
	return false
}
