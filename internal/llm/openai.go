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
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	openAIModel   = "gpt-4o-mini"
)

type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    openAIChatURL,
		httpClient: &http.Client{},
	}
}

// chat types for OpenAI API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	ctx, cancel := callContext(ctx, opts)
	defer cancel()

	model := opts.Model
	if model == "" {
		model = openAIModel
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", requestError(ctx, ProviderOpenAI, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("read chat response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(ProviderOpenAI, resp, respBody)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("unmarshal chat response: %w", err)}
	}

	if result.Error != nil {
		return "", &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("chat API error: %s", result.Error.Message)}
	}

	if len(result.Choices) == 0 {
		return "", &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("chat API returned no choices")}
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
