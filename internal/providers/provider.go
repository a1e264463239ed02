package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultMaxTokens keeps chat turns short.
const DefaultMaxTokens = 100

// Provider talks to any OpenAI-compatible chat-completions endpoint.
type Provider struct {
	APIKey      string
	APIBase     string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client

	spec *ProviderSpec
}

// NewProvider resolves the backend for model and returns a ready Provider.
// An empty apiKey falls back to the backend's env var.
func NewProvider(apiKey, apiBase, model, providerName string) *Provider {
	spec := FindGateway(providerName, apiKey, apiBase)
	if spec == nil {
		spec = FindByName(providerName)
	}
	if spec == nil {
		spec = FindByModel(model)
	}

	if apiBase == "" && spec != nil {
		apiBase = spec.DefaultAPIBase
	}
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	if apiKey == "" && spec != nil && spec.EnvKey != "" {
		apiKey = os.Getenv(spec.EnvKey)
	}

	return &Provider{
		APIKey:      apiKey,
		APIBase:     apiBase,
		Model:       model,
		MaxTokens:   DefaultMaxTokens,
		Temperature: 0.7,
		HTTPClient:  &http.Client{Timeout: 120 * time.Second},
		spec:        spec,
	}
}

// DefaultModel satisfies LLMProvider.
func (p *Provider) DefaultModel() string { return p.Model }

// ModelInfo is what an agent reports about its backend.
type ModelInfo struct {
	ModelName string         `json:"model_name"`
	BaseURL   string         `json:"base_url"`
	Provider  string         `json:"provider"`
	Settings  map[string]any `json:"settings"`
}

// Info describes the resolved backend.
func (p *Provider) Info() ModelInfo {
	name := "Unknown"
	if p.spec != nil {
		name = p.spec.Label()
	}
	return ModelInfo{
		ModelName: p.Model,
		BaseURL:   p.APIBase,
		Provider:  name,
		Settings:  map[string]any{"max_tokens": p.MaxTokens, "temperature": p.Temperature},
	}
}

// Chat sends one completion request. Upstream failures come back in-band
// with FinishReason "error"; err is reserved for local failures.
func (p *Provider) Chat(ctx context.Context, req ChatRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens < 1 {
		maxTokens = p.MaxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = p.Temperature
	}

	body, err := json.Marshal(map[string]any{
		"model":       p.resolveModel(model),
		"messages":    req.Messages,
		"max_tokens":  maxTokens,
		"temperature": temp,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.APIBase, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return errorResponse("Error calling LLM: %v", err), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorResponse("Error reading response: %v", err), nil
	}
	if resp.StatusCode != http.StatusOK {
		return errorResponse("Error calling LLM (HTTP %d): %s", resp.StatusCode, string(respBody)), nil
	}
	return parseResponse(respBody), nil
}

// resolveModel strips the "vendor/" prefix when calling a vendor's own API.
// Gateways take the full id.
func (p *Provider) resolveModel(model string) string {
	if p.spec == nil || !p.spec.StripModelPrefix {
		return model
	}
	if idx := strings.Index(model, "/"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte) *LLMResponse {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errorResponse("Error parsing response: %v", err)
	}
	if len(resp.Choices) == 0 {
		return errorResponse("Error: no choices in response")
	}

	choice := resp.Choices[0]
	usage := map[string]int{}
	if resp.Usage != nil {
		usage["prompt_tokens"] = resp.Usage.PromptTokens
		usage["completion_tokens"] = resp.Usage.CompletionTokens
		usage["total_tokens"] = resp.Usage.TotalTokens
	}
	finish := choice.FinishReason
	if finish == "" {
		finish = "stop"
	}
	return &LLMResponse{Content: choice.Message.Content, FinishReason: finish, Usage: usage}
}

func errorResponse(format string, args ...any) *LLMResponse {
	msg := fmt.Sprintf(format, args...)
	return &LLMResponse{Content: &msg, FinishReason: FinishError}
}
