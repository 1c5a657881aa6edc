package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const openaiAPIURL = "https://api.openai.com/v1"

// OpenAI talks to the chat completions API.
type OpenAI struct {
	apiKey  string
	baseURL string
}

func NewOpenAI(apiKey, baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = openaiAPIURL
	}
	return &OpenAI{apiKey: strings.TrimSpace(apiKey), baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *OpenAI) Kind() Kind { return KindOpenAI }

func (p *OpenAI) Configured() bool { return p.apiKey != "" }

func (p *OpenAI) Endpoint(string) string {
	return p.baseURL + "/chat/completions"
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openaiError struct {
	Error openaiErrorDetail `json:"error"`
}

type openaiErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func (p *OpenAI) BuildRequest(ctx context.Context, model string, messages []Message) (*http.Request, error) {
	body := openaiRequest{Model: model, Messages: make([]openaiMessage, 0, len(messages))}
	for _, m := range messages {
		body.Messages = append(body.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint(model), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	return req, nil
}

func (p *OpenAI) ParseResponse(status int, body []byte) (*Result, error) {
	if status < 200 || status > 299 {
		var errResp openaiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			code := errResp.Error.Code
			if code == "" {
				code = errResp.Error.Type
			}
			if code == "" {
				code = fmt.Sprintf("http_%d", status)
			}
			return nil, upstreamError(KindOpenAI, status, code, errResp.Error.Message)
		}
		return nil, upstreamError(KindOpenAI, status, fmt.Sprintf("http_%d", status), truncate(string(body), 512))
	}

	var resp openaiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, upstreamError(KindOpenAI, status, "malformed_response", err.Error())
	}
	if len(resp.Choices) == 0 {
		return nil, upstreamError(KindOpenAI, status, "malformed_response", "no choices in response")
	}

	choice := resp.Choices[0]
	return &Result{
		Provider:     KindOpenAI,
		Model:        resp.Model,
		Output:       choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
