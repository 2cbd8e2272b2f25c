package completion

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/harshdhankhar10/bucketwings-chat/internal/apperr"
)

const arkSystemPrompt = "You are the BucketWings assistant. Answer the user's question directly and concisely."

// Ark generates completions through an eino ChatModel, for deployments
// that talk to an Ark endpoint instead of the generateContent API.
type Ark struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
	logger  *zap.Logger
}

// NewArk compiles a prompt-template-plus-model chain around chatModel.
func NewArk(ctx context.Context, chatModel model.ChatModel, timeout time.Duration, logger *zap.Logger) (*Ark, error) {
	if timeout <= 0 {
		timeout = geminiDefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile completion chain: %w", err)
	}

	return &Ark{chain: runnable, timeout: timeout, logger: logger}, nil
}

// Complete runs the chain for one prompt. Empty model output yields
// Placeholder, matching the Gemini provider.
func (a *Ark) Complete(ctx context.Context, promptText string) (string, error) {
	trimmed, err := validatePrompt(promptText)
	if err != nil {
		return "", err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	response, err := a.chain.Invoke(ctx, map[string]any{
		"system": arkSystemPrompt,
		"query":  trimmed,
	})
	if err != nil {
		a.logger.Warn("ark completion failed", zap.Error(err))
		return "", apperr.Wrap(apperr.Completion, "run completion chain", err)
	}

	if response == nil || response.Content == "" {
		a.logger.Warn("ark completion returned no content, substituting placeholder")
		return Placeholder, nil
	}

	a.logger.Debug("ark completion finished", zap.Int("response_len", len(response.Content)))
	return response.Content, nil
}
