package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"astute/internal/domain"
)

const (
	openAIEmbeddingURL = "https://api.openai.com/v1/embeddings"
	model              = "text-embedding-3-small"
)

type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    openAIEmbeddingURL,
		httpClient: &http.Client{},
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Model: model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("embedding request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("read embedding response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &domain.RateLimitError{Provider: ProviderOpenAI}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransportError{
			Provider: ProviderOpenAI,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", string(respBody)),
		}
	}

	var result embeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("unmarshal embedding response: %w", err)}
	}

	if result.Error != nil {
		return nil, &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("embedding API error: %s", result.Error.Message)}
	}

	if len(result.Data) == 0 {
		return nil, &domain.TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("embedding API returned no data")}
	}

	return result.Data[0].Embedding, nil
}
