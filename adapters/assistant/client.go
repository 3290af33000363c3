// Package assistant provides the HTTP client for the external
// retrieval-augmented answer service.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/caregate/caregate/domain/chat"
	"github.com/caregate/caregate/ports"
)

// Client talks to the answer service over HTTP.
type Client struct {
	client  *http.Client
	baseURL *url.URL
	apiKey  string
}

// Config contains configuration for the assistant client.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// New creates an assistant client.
func New(cfg Config) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		// Generation plus retrieval can be slow.
		timeout = 60 * time.Second
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}
	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	return &Client{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        maxIdleConns,
				MaxIdleConnsPerHost: maxIdleConns,
				IdleConnTimeout:     idleConnTimeout,
			},
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

type askRequest struct {
	AccountID      string        `json:"account_id"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Question       string        `json:"question"`
	ProfileContext string        `json:"profile_context,omitempty"`
	History        []historyItem `json:"history,omitempty"`
}

type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type askResponse struct {
	Answer    string `json:"answer"`
	Citations []struct {
		Source  string `json:"source"`
		Ref     string `json:"ref"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"citations"`
	LatencyMs int64 `json:"latency_ms"`
}

// Ask sends a question and returns the grounded answer.
func (c *Client) Ask(ctx context.Context, req ports.AssistantRequest) (ports.AssistantAnswer, error) {
	payload := askRequest{
		AccountID:      req.AccountID,
		ConversationID: req.ConversationID,
		Question:       req.Question,
		ProfileContext: req.ProfileContext,
	}
	for _, m := range req.History {
		payload.History = append(payload.History, historyItem{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	var resp askResponse
	if err := c.post(ctx, "/v1/answers", payload, &resp); err != nil {
		return ports.AssistantAnswer{}, err
	}

	answer := ports.AssistantAnswer{
		Content:   resp.Answer,
		LatencyMs: resp.LatencyMs,
	}
	for _, cit := range resp.Citations {
		answer.Citations = append(answer.Citations, chat.Citation{
			Source:  cit.Source,
			Ref:     cit.Ref,
			Title:   cit.Title,
			Snippet: cit.Snippet,
		})
	}
	return answer, nil
}

type indexRequest struct {
	AccountID  string `json:"account_id"`
	DocumentID string `json:"document_id"`
	Title      string `json:"title,omitempty"`
	Content    []byte `json:"content"`
}

// IndexDocument submits a personal document for embedding.
func (c *Client) IndexDocument(ctx context.Context, accountID, documentID, title string, content []byte) error {
	return c.post(ctx, "/v1/documents", indexRequest{
		AccountID:  accountID,
		DocumentID: documentID,
		Title:      title,
		Content:    content,
	}, nil)
}

// HealthCheck verifies the service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: "/healthz"})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("assistant health check: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("assistant health check: status %d", resp.StatusCode)
	}
	return nil
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("assistant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Bounded read so a misbehaving service can't flood logs.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("assistant %s: status %d: %s", path, resp.StatusCode, detail)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ensure interface compliance.
var _ ports.Assistant = (*Client)(nil)
