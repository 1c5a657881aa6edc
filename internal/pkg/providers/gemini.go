package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini talks to the generateContent API.
type Gemini struct {
	apiKey  string
	baseURL string
}

func NewGemini(apiKey, baseURL string) *Gemini {
	if baseURL == "" {
		baseURL = geminiAPIURL
	}
	return &Gemini{apiKey: strings.TrimSpace(apiKey), baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *Gemini) Kind() Kind { return KindGemini }

func (p *Gemini) Configured() bool { return p.apiKey != "" }

// Endpoint never contains the key; it travels in the x-goog-api-key header
// so it stays out of access logs.
func (p *Gemini) Endpoint(model string) string {
	model = strings.TrimPrefix(model, "models/")
	return fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, url.PathEscape(model))
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	UsageMetadata  *geminiUsageMetadata  `json:"usageMetadata"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	ModelVersion   string                `json:"modelVersion"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// translateMessages maps chat turns onto Gemini contents: system turns are
// merged into systemInstruction and "assistant" becomes "model".
func translateMessages(messages []Message) geminiRequest {
	var (
		req    geminiRequest
		system []string
	)
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}
	if req.Contents == nil {
		req.Contents = []geminiContent{}
	}
	return req
}

func (p *Gemini) BuildRequest(ctx context.Context, model string, messages []Message) (*http.Request, error) {
	raw, err := json.Marshal(translateMessages(messages))
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint(model), bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)
	return req, nil
}

func (p *Gemini) ParseResponse(status int, body []byte) (*Result, error) {
	if status < 200 || status > 299 {
		var errResp geminiError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			code := errResp.Error.Status
			if code == "" {
				code = fmt.Sprintf("http_%d", status)
			}
			return nil, upstreamError(KindGemini, status, code, errResp.Error.Message)
		}
		return nil, upstreamError(KindGemini, status, fmt.Sprintf("http_%d", status), truncate(string(body), 512))
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, upstreamError(KindGemini, status, "malformed_response", err.Error())
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, upstreamError(KindGemini, status, "prompt_blocked", resp.PromptFeedback.BlockReason)
		}
		return nil, upstreamError(KindGemini, status, "malformed_response", "no candidates in response")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}

	res := &Result{
		Provider:     KindGemini,
		Model:        resp.ModelVersion,
		Output:       text.String(),
		FinishReason: cand.FinishReason,
	}
	if u := resp.UsageMetadata; u != nil {
		res.Usage = Usage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return res, nil
}
