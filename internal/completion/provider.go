// Package completion maps a user prompt to generated text through an
// external generative service.
package completion

import (
	"context"
	"strings"

	"github.com/harshdhankhar10/bucketwings-chat/internal/apperr"
)

// Placeholder substitutes for a successful completion response that
// carried no usable text. It is an answer, not an error: a malformed
// 2xx body must never surface as a failure.
const Placeholder = "No answer received"

// Provider generates text for a prompt. Implementations validate the
// prompt before touching the network and never return an error for an
// HTTP success, however malformed.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// validatePrompt rejects prompts that are empty after trimming.
func validatePrompt(prompt string) (string, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", apperr.New(apperr.Validation, "prompt must not be empty")
	}
	return trimmed, nil
}
