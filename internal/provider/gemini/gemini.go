// Package gemini provides a Google Gemini API client implementing the
// provider.Embedder and provider.Generator interfaces.
package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Config configures the Gemini client.
type Config struct {
	BaseURL        string        // defaults to the public Gemini endpoint
	APIKey         string        // required
	EmbedModel     string        // e.g. "embedding-001"
	GenerateModel  string        // e.g. "gemini-2.0-flash-exp"
	EmbedDimension int           // output dimension of EmbedModel (768 for embedding-001)
	Timeout        time.Duration // per-call bound, defaults to 30s
	MaxRetries     int
}

// Client is a Gemini API client for embedding and generation.
type Client struct {
	baseURL       string
	apiKey        string
	embedModel    string
	generateModel string
	dimensions    int
	maxRetries    int
	httpClient    *http.Client
}

// New creates a Gemini client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "embedding-001"
	}
	if cfg.GenerateModel == "" {
		cfg.GenerateModel = "gemini-2.0-flash-exp"
	}
	if cfg.EmbedDimension == 0 {
		cfg.EmbedDimension = 768
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
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// Embed returns the embedding vector for text. Any transport or API failure
// is reported as provider.ErrEmbeddingUnavailable.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", c.baseURL, c.embedModel, c.apiKey)
	reqBody := embedRequest{
		Model:   "models/" + c.embedModel,
		Content: content{Parts: []part{{Text: text}}},
	}
	var out embedResponse
	if err := c.post(ctx, url, reqBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrEmbeddingUnavailable, err)
	}
	if len(out.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", provider.ErrEmbeddingUnavailable)
	}
	return out.Embedding.Values, nil
}

// Dimensions returns the embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate returns the model's text completion for prompt. Any transport or
// API failure is reported as provider.ErrGenerationUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.generateModel, c.apiKey)
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	var out generateResponse
	if err := c.post(ctx, url, reqBody, &out); err != nil {
		return "", fmt.Errorf("%w: %v", provider.ErrGenerationUnavailable, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", provider.ErrGenerationUnavailable)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// post sends a JSON request and decodes the JSON response, retrying
// transport errors and 429/5xx statuses with linear backoff.
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
