package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"astute/internal/domain"
)

const (
	cerebrasAPIURL = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasModel  = "llama-3.3-70b"
)

type CerebrasClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewCerebrasClient(apiKey string) *CerebrasClient {
	return &CerebrasClient{
		apiKey:     apiKey,
		baseURL:    cerebrasAPIURL,
		httpClient: &http.Client{},
	}
}

// Cerebras uses OpenAI-compatible request/response format
type cerebrasMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type cerebrasRequest struct {
	Model       string            `json:"model"`
	Messages    []cerebrasMessage `json:"messages"`
	Temperature float32           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type cerebrasResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *CerebrasClient) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	ctx, cancel := callContext(ctx, opts)
	defer cancel()

	model := opts.Model
	if model == "" {
		model = cerebrasModel
	}

	body, err := json.Marshal(cerebrasRequest{
		Model:       model,
		Messages:    []cerebrasMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal cerebras request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create cerebras request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", requestError(ctx, ProviderCerebras, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.TransportError{Provider: ProviderCerebras, Err: fmt.Errorf("read cerebras response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(ProviderCerebras, resp, respBody)
	}

	var result cerebrasResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &domain.TransportError{Provider: ProviderCerebras, Err: fmt.Errorf("unmarshal cerebras response: %w", err)}
	}

	if result.Error != nil {
		return "", &domain.TransportError{Provider: ProviderCerebras, Err: fmt.Errorf("cerebras API error: %s", result.Error.Message)}
	}

	if len(result.Choices) == 0 {
		return "", &domain.TransportError{Provider: ProviderCerebras, Err: fmt.Errorf("cerebras API returned no choices")}
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
