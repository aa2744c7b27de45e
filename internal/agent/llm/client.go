package llm

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

	"golang.org/x/time/rate"

	"starreign.ai/internal/sim/tuning"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Response struct {
	Text             string
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	Latency          time.Duration
}

// Provider is one interchangeable text-generation backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	name       string
	endpoint   string
	model      string
	apiKey     string
	timeout    time.Duration
	promptCost float64
	outputCost float64
	httpClient *http.Client
	// nil when the provider has no requests_per_min quota.
	limiter *rate.Limiter
}

func New(cfg tuning.Provider, apiKey string) (*Client, error) {
	name := strings.TrimSpace(cfg.Name)
	base := strings.TrimSpace(cfg.BaseURL)
	if name == "" || base == "" || strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("provider name/base_url/model are required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base_url: %s", base)
	}
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		name:       name,
		endpoint:   strings.TrimRight(u.String(), "/") + "/chat/completions",
		model:      cfg.Model,
		apiKey:     strings.TrimSpace(apiKey),
		timeout:    timeout,
		promptCost: cfg.PromptCostPer1K,
		outputCost: cfg.OutputCostPer1K,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.RequestsPerMin > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMin)/60), max(1, cfg.RequestsPerMin/10))
	}
	return c, nil
}

func (c *Client) Name() string { return c.name }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete issues one bounded call. Errors wrap one of the Err* classes.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return Response{}, fmt.Errorf("%s: %w: local requests_per_min quota", c.name, ErrRateLimited)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w: %v", c.name, classifyTransport(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		class := ErrUnavailable
		if resp.StatusCode == http.StatusTooManyRequests {
			class = ErrRateLimited
		}
		return Response{}, fmt.Errorf("%s: %w: status=%d body=%s", c.name, class, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w: %v", c.name, classifyTransport(err), err)
	}
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return Response{}, fmt.Errorf("%s: %w: %v", c.name, ErrMalformed, err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return Response{}, fmt.Errorf("%s: %w: empty choices", c.name, ErrMalformed)
	}

	out := Response{
		Text:             cr.Choices[0].Message.Content,
		Provider:         c.name,
		Model:            cr.Model,
		PromptTokens:     cr.Usage.PromptTokens,
		CompletionTokens: cr.Usage.CompletionTokens,
		Latency:          time.Since(start),
	}
	if out.Model == "" {
		out.Model = c.model
	}
	out.CostUSD = Cost(c.promptCost, c.outputCost, out.PromptTokens, out.CompletionTokens)
	return out, nil
}

// Cost prices a call from per-1k token rates.
func Cost(promptPer1K, outputPer1K float64, promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*promptPer1K + float64(completionTokens)/1000*outputPer1K
}
