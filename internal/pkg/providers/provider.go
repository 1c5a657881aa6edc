// Package providers dispatches run requests to the upstream LLM APIs.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
)

// Kind selects a provider implementation.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindGemini Kind = "gemini"
)

// ParseKind accepts the provider names used on the wire.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindOpenAI, KindGemini:
		return k, nil
	default:
		return "", fmt.Errorf("provider %q: %w", s, apperror.ErrInvalidRequest)
	}
}

// Message is one chat turn. Role is "system", "user" or "assistant".
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

type Input struct {
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
}

// RunRequest asks for one completion on behalf of an agent.
type RunRequest struct {
	AgentSlug catalog.AgentSlug `json:"agent_slug" validate:"required"`
	Provider  Kind              `json:"provider"`
	Model     string            `json:"model"`
	Input     Input             `json:"input"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is the provider-neutral completion.
type Result struct {
	Provider     Kind   `json:"provider"`
	Model        string `json:"model"`
	Output       string `json:"output"`
	Usage        Usage  `json:"usage"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Provider translates between RunRequest and one upstream API.
type Provider interface {
	Kind() Kind
	// Configured reports whether the provider has credentials.
	Configured() bool
	Endpoint(model string) string
	BuildRequest(ctx context.Context, model string, messages []Message) (*http.Request, error)
	ParseResponse(status int, body []byte) (*Result, error)
}

func upstreamError(kind Kind, status int, code, message string) *apperror.UpstreamError {
	return &apperror.UpstreamError{
		Provider: string(kind),
		Status:   status,
		Code:     string(kind) + "." + code,
		Message:  message,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
