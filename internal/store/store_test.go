package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshdhankhar10/bucketwings-chat/internal/model/chat"
)

func TestSetSessionsReplacesWholesale(t *testing.T) {
	s := New()
	s.SetSessions([]chat.Session{{ID: "a"}, {ID: "b"}})
	s.SetSessions([]chat.Session{{ID: "c"}})

	sessions := s.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "c", sessions[0].ID)
}

func TestSetSessionsClearsDanglingSelection(t *testing.T) {
	s := New()
	s.SetSessions([]chat.Session{{ID: "a"}, {ID: "b"}})
	s.SetSelected("a")
	s.AppendMessage("a", chat.Message{Question: "q", Answer: "a"})

	s.SetSessions([]chat.Session{{ID: "b"}})

	assert.Empty(t, s.SelectedID())
	assert.Empty(t, s.Messages())
}

func TestSetSessionsKeepsLiveSelection(t *testing.T) {
	s := New()
	s.SetSessions([]chat.Session{{ID: "a"}, {ID: "b"}})
	s.SetSelected("b")

	s.SetSessions([]chat.Session{{ID: "b"}})

	assert.Equal(t, "b", s.SelectedID())
}

func TestReplaceMessagesDiscardsStaleFetch(t *testing.T) {
	s := New()
	s.SetSessions([]chat.Session{{ID: "a"}, {ID: "b"}})
	s.SetSelected("b")

	applied := s.ReplaceMessages("a", []chat.Message{{Question: "old", Answer: "old"}})

	assert.False(t, applied)
	assert.Empty(t, s.Messages())
}

func TestReplaceMessagesForSelectedSession(t *testing.T) {
	s := New()
	s.SetSessions([]chat.Session{{ID: "a"}})
	s.SetSelected("a")

	applied := s.ReplaceMessages("a", []chat.Message{{Question: "q1", Answer: "a1"}})

	assert.True(t, applied)
	require.Len(t, s.Messages(), 1)
}

func TestAppendMessageUpdatesPreview(t *testing.T) {
	s := New()
	s.SetSessions([]chat.Session{{ID: "a"}})
	s.SetSelected("a")

	s.AppendMessage("a", chat.Message{Question: "hello", Answer: "hi there"})

	messages := s.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Question)
	assert.Equal(t, "hello", s.Sessions()[0].LatestMessagePreview)
}

func TestTakePendingPromptCapturesAndClears(t *testing.T) {
	s := New()
	s.SetPendingPrompt("hello")

	text, ok := s.TakePendingPrompt()
	require.True(t, ok)
	assert.Equal(t, "hello", text)
	assert.Empty(t, s.PendingPrompt())
	assert.True(t, s.IsSubmitting())
}

func TestTakePendingPromptRejectsSecondTake(t *testing.T) {
	s := New()
	s.SetPendingPrompt("first")

	_, ok := s.TakePendingPrompt()
	require.True(t, ok)

	s.SetPendingPrompt("second")
	_, ok = s.TakePendingPrompt()
	assert.False(t, ok, "second take must fail while a submission is in flight")

	s.FinishSubmit()
	text, ok := s.TakePendingPrompt()
	require.True(t, ok)
	assert.Equal(t, "second", text)
}

func TestRestorePromptUndoesTake(t *testing.T) {
	s := New()
	s.SetPendingPrompt("   ")

	text, ok := s.TakePendingPrompt()
	require.True(t, ok)

	s.RestorePrompt(text)
	assert.Equal(t, "   ", s.PendingPrompt())
	assert.False(t, s.IsSubmitting())
}

func TestLoadingFlagsAreIndependent(t *testing.T) {
	s := New()
	s.SetLoadingSessions(true)
	s.SetLoadingMessages(true)

	assert.True(t, s.IsLoadingSessions())
	assert.True(t, s.IsLoadingMessages())
	assert.False(t, s.IsSubmitting())

	s.SetLoadingSessions(false)
	assert.False(t, s.IsLoadingSessions())
	assert.True(t, s.IsLoadingMessages())
}

func TestReadsReturnCopies(t *testing.T) {
	s := New()
	s.SetSessions([]chat.Session{{ID: "a"}})
	s.SetSelected("a")
	s.AppendMessage("a", chat.Message{Question: "q", Answer: "a"})

	sessions := s.Sessions()
	sessions[0].ID = "mutated"
	messages := s.Messages()
	messages[0].Question = "mutated"

	assert.Equal(t, "a", s.Sessions()[0].ID)
	assert.Equal(t, "q", s.Messages()[0].Question)
}
