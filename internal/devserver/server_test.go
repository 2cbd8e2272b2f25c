package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshdhankhar10/bucketwings-chat/internal/devserver/store"
	"github.com/harshdhankhar10/bucketwings-chat/internal/model/chat"
	"github.com/harshdhankhar10/bucketwings-chat/internal/watch"
)

const testToken = "dev-token"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(New(st, testToken, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/aiChat"

	var sessions []chat.Session
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/all", nil, &sessions))
	assert.Empty(t, sessions)

	var created chat.Session
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, base+"/new", nil, &created))
	assert.NotEmpty(t, created.ID)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/all", nil, &sessions))
	require.Len(t, sessions, 1)

	msg := chat.Message{Question: "hello", Answer: "hi there"}
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, base+"/"+created.ID, msg, nil))

	var messages []chat.Message
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/"+created.ID, nil, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, msg, messages[0])

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/all", nil, &sessions))
	assert.Equal(t, "hello", sessions[0].LatestMessagePreview)

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodDelete, base+"/"+created.ID, nil, nil))
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/all", nil, &sessions))
	assert.Empty(t, sessions)
}

func TestDeleteUnknownSessionReturns404(t *testing.T) {
	srv := newTestServer(t)
	status := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/aiChat/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMissingCredentialReturns401(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/aiChat/all")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAppendMessageRequiresQuestion(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/aiChat"

	var created chat.Session
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, base+"/new", nil, &created))

	status := doJSON(t, http.MethodPost, base+"/"+created.ID, chat.Message{Answer: "a"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStubCompletionEchoesGeminiShape(t *testing.T) {
	srv := newTestServer(t)

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": "hello"}}},
		},
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(
		srv.URL+"/v1beta/models/test-model:generateContent?key=x",
		"application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.Len(t, parsed.Candidates, 1)
	require.Len(t, parsed.Candidates[0].Content.Parts, 1)
	assert.Contains(t, parsed.Candidates[0].Content.Parts[0].Text, "hello")
}

func TestChangeFeedBroadcastsSessionEvents(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/aiChat"
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/aiChat/watch"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watcher := watch.New(wsURL, testToken, nil)
	events := watcher.Run(ctx)

	// Give the subscription a moment to establish before writing.
	time.Sleep(100 * time.Millisecond)

	var created chat.Session
	require.Equal(t, http.StatusCreated, doJSON(t, http.MethodPost, base+"/new", nil, &created))

	select {
	case evt := <-events:
		assert.Equal(t, watch.EventSessionCreated, evt.Type)
		assert.Equal(t, created.ID, evt.SessionID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for change feed event")
	}

	require.Equal(t, http.StatusOK, doJSON(t, http.MethodDelete, base+"/"+created.ID, nil, nil))

	select {
	case evt := <-events:
		assert.Equal(t, watch.EventSessionDeleted, evt.Type)
	case <-ctx.Done():
		t.Fatal("timed out waiting for delete event")
	}
}
