package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// CompletionRequest is one prompt for the assistant.
type CompletionRequest struct {
	Prompt      string
	System      string
	Temperature float32
	MaxTokens   int
}

// CompletionResponse is the assistant's answer.
type CompletionResponse struct {
	Text  string
	Usage TokenUsage
	Model string
}

type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Provider produces completions.
type Provider interface {
	ID() string
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// APIError is a non-200 answer from the model API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api returned status %d: %s", e.StatusCode, e.Body)
}

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	Model      string
	APIKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiProvider(model, apiKey string) *GeminiProvider {
	return NewGeminiProviderWithClient(model, apiKey, "", nil)
}

// NewGeminiProviderWithClient targets baseURL instead of the public endpoint
// when it is set.
func NewGeminiProviderWithClient(model, apiKey, baseURL string, client *http.Client) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{Model: model, APIKey: apiKey, baseURL: baseURL, httpClient: client}
}

func (p *GeminiProvider) ID() string {
	return "gemini:" + p.Model
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"system_instruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if p.APIKey == "" {
		return nil, ErrNotConfigured
	}
	gReq := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		gReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		gReq.GenerationConfig = &generationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens}
	}
	body, err := json.Marshal(gReq)
	if err != nil {
		return nil, err
	}

	endpoint := p.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
			url.PathEscape(p.Model), url.QueryEscape(p.APIKey))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gResp.Candidates) == 0 || len(gResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini api returned no candidates")
	}
	var text strings.Builder
	for _, part := range gResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return &CompletionResponse{
		Text:  text.String(),
		Model: p.Model,
		Usage: TokenUsage{
			InputTokens:  gResp.UsageMetadata.PromptTokenCount,
			OutputTokens: gResp.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

// ResilientProvider retries the inner provider under an overall deadline.
type ResilientProvider struct {
	inner        Provider
	maxAttempts  int
	initialDelay time.Duration
	timeout      time.Duration
}

func NewResilientProvider(inner Provider, maxAttempts int, initialDelay, overall time.Duration) *ResilientProvider {
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	if initialDelay <= 0 {
		initialDelay = time.Second
	}
	if overall <= 0 {
		overall = 60 * time.Second
	}
	return &ResilientProvider{inner: inner, maxAttempts: maxAttempts, initialDelay: initialDelay, timeout: overall}
}

func (p *ResilientProvider) ID() string {
	return p.inner.ID()
}

func (p *ResilientProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	r := retry.New[*CompletionResponse](retry.Config{
		MaxAttempts:   p.maxAttempts,
		InitialDelay:  p.initialDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	t := timeout.New[*CompletionResponse](timeout.Config{DefaultTimeout: p.timeout})
	return t.Execute(ctx, p.timeout, func(ctx context.Context) (*CompletionResponse, error) {
		return r.Do(ctx, func(ctx context.Context) (*CompletionResponse, error) {
			return p.inner.Complete(ctx, req)
		})
	})
}
