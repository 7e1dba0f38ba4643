// Package openai provides an OpenAI API client implementing the
// provider.Embedder and provider.Generator interfaces.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/thechalk/chalkbot/internal/provider"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config configures the OpenAI client.
type Config struct {
	BaseURL        string        // defaults to api.openai.com; any OpenAI-compatible endpoint works
	APIKey         string        // required
	EmbedModel     string        // e.g. "text-embedding-3-small"
	GenerateModel  string        // e.g. "gpt-4o-mini"
	EmbedDimension int           // output dimension of EmbedModel (1536 for text-embedding-3-small)
	Timeout        time.Duration // per-call bound, defaults to 30s
	MaxRetries     int
}

// Client is an OpenAI API client for embedding and chat completion.
type Client struct {
	baseURL       string
	apiKey        string
	embedModel    string
	generateModel string
	dimensions    int
	maxRetries    int
	httpClient    *http.Client
}

// New creates an OpenAI client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}
	if cfg.GenerateModel == "" {
		cfg.GenerateModel = "gpt-4o-mini"
	}
	if cfg.EmbedDimension == 0 {
		cfg.EmbedDimension = 1536
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		embedModel:    cfg.EmbedModel,
		generateModel: cfg.GenerateModel,
		dimensions:    cfg.EmbedDimension,
		maxRetries:    cfg.MaxRetries,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type embedRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for text. Any transport or API failure
// is reported as provider.ErrEmbeddingUnavailable.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	if err := c.post(ctx, c.baseURL+"/embeddings", embedRequest{Input: text, Model: c.embedModel}, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrEmbeddingUnavailable, err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", provider.ErrEmbeddingUnavailable)
	}
	return out.Data[0].Embedding, nil
}

// Dimensions returns the embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate returns the model's completion for prompt. Any transport or API
// failure is reported as provider.ErrGenerationUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:    c.generateModel,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	var out chatResponse
	if err := c.post(ctx, c.baseURL+"/chat/completions", reqBody, &out); err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrGenerationUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", provider.ErrGenerationUnavailable)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			respBody, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return fmt.Errorf("status %d: %s", resp.StatusCode, respBody)
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return lastErr
}
