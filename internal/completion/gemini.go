package completion

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
)

const geminiDefaultTimeout = 60 * time.Second

// GeminiConfig configures the raw-HTTP generative client.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Gemini calls a generateContent-style endpoint directly over HTTP.
type Gemini struct {
	cfg        GeminiConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGemini builds the provider. Timeout defaults to 60s and is also
// applied per-call when the incoming context has no deadline, so a
// stalled completion cannot suspend a submission forever.
func NewGemini(cfg GeminiConfig, logger *zap.Logger) *Gemini {
	if cfg.Timeout <= 0 {
		cfg.Timeout = geminiDefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one prompt and returns the first candidate's text. A
// 2xx response with no candidate text yields Placeholder.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	trimmed, err := validatePrompt(prompt)
	if err != nil {
		return "", err
	}

	if g.cfg.APIKey == "" {
		return "", apperr.New(apperr.Completion, "completion API key not configured")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: trimmed}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperr.Wrap(apperr.Completion, "encode request", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model, g.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Wrap(apperr.Completion, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn("completion request failed", zap.Error(err))
		return "", apperr.Wrap(apperr.Completion, "completion request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.Completion, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Warn("completion request rejected",
			zap.Int("status", resp.StatusCode))
		return "", apperr.New(apperr.Completion,
			fmt.Sprintf("completion service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Success status with an undecodable body still must not
		// surface as an error.
		g.logger.Warn("completion response unparseable, substituting placeholder", zap.Error(err))
		return Placeholder, nil
	}

	if parsed.Error != nil {
		g.logger.Warn("completion response carried an error payload",
			zap.String("message", parsed.Error.Message))
	}

	text := firstCandidateText(parsed)
	if text == "" {
		g.logger.Warn("completion response had no usable text, substituting placeholder")
		return Placeholder, nil
	}

	g.logger.Debug("completion finished",
		zap.Duration("elapsed", time.Since(start)), zap.Int("response_len", len(text)))
	return text, nil
}

func firstCandidateText(resp geminiResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
