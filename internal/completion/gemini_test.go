package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshdhankhar10/bucketwings-chat/internal/apperr"
)

func newGeminiServer(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGemini(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, nil)
}

func candidateBody(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	}
}

func TestCompleteSendsContentsAndParsesCandidate(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}

	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(candidateBody("hi there"))
	})

	answer, err := g.Complete(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "hi there", answer)
	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "hello", gotBody.Contents[0].Parts[0].Text)
}

func TestCompleteTrimsPrompt(t *testing.T) {
	var sent string
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sent = body.Contents[0].Parts[0].Text
		json.NewEncoder(w).Encode(candidateBody("ok"))
	})

	_, err := g.Complete(context.Background(), "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", sent)
}

func TestCompleteEmptyPromptNeverReachesNetwork(t *testing.T) {
	called := false
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := g.Complete(context.Background(), "   \n\t ")
	require.True(t, apperr.IsKind(err, apperr.Validation))
	assert.False(t, called)
}

func TestCompleteNoUsableTextSubstitutesPlaceholder(t *testing.T) {
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	answer, err := g.Complete(context.Background(), "hello")
	require.NoError(t, err, "a 2xx response must never surface as an error")
	assert.Equal(t, Placeholder, answer)
}

func TestCompleteMalformedSuccessBodySubstitutesPlaceholder(t *testing.T) {
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	answer, err := g.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Placeholder, answer)
}

func TestCompleteEmptyPartsSubstitutesPlaceholder(t *testing.T) {
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []any{}}},
			},
		})
	})

	answer, err := g.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, Placeholder, answer)
}

func TestCompleteServiceFailureIsCompletionError(t *testing.T) {
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "quota exceeded"}})
	})

	_, err := g.Complete(context.Background(), "hello")
	require.True(t, apperr.IsKind(err, apperr.Completion))
}

func TestCompleteTransportFailureIsCompletionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	g := NewGemini(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: time.Second,
	}, nil)

	_, err := g.Complete(context.Background(), "hello")
	require.True(t, apperr.IsKind(err, apperr.Completion))
}

func TestCompleteMissingAPIKey(t *testing.T) {
	g := NewGemini(GeminiConfig{BaseURL: "http://127.0.0.1:0", Model: "m"}, nil)
	_, err := g.Complete(context.Background(), "hello")
	require.True(t, apperr.IsKind(err, apperr.Completion))
}

func TestCompleteTimeoutIsCompletionError(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(srv.Close)

	g := NewGemini(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 100 * time.Millisecond,
	}, nil)

	_, err := g.Complete(context.Background(), "hello")
	require.True(t, apperr.IsKind(err, apperr.Completion))
}
