package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/clouseau/internal/domain"
	"github.com/xiaot623/clouseau/internal/service"
)

// Client talks to a running ledger API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: detail(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// detail extracts the "detail" field of an error body, falling back to the raw body.
func detail(data []byte) string {
	var resp struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &resp); err != nil || len(resp.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}
	var s string
	if err := json.Unmarshal(resp.Detail, &s); err == nil {
		return s
	}
	return string(resp.Detail)
}

// CreateSession creates a session.
func (c *Client) CreateSession(ctx context.Context, name string) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", domain.SessionCreate{Name: name}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns the first page of sessions, most recently updated first.
func (c *Client) ListSessions(ctx context.Context) (*domain.Page[domain.Session], error) {
	var page domain.Page[domain.Session]
	path := fmt.Sprintf("/api/sessions?page_size=%d", domain.MaxPageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateConversation creates a conversation in a session.
func (c *Client) CreateConversation(ctx context.Context, sessionID int64, title string) (*domain.Conversation, error) {
	var conv domain.Conversation
	in := domain.ConversationCreate{SessionID: sessionID, Title: title}
	if err := c.do(ctx, http.MethodPost, "/api/conversations", in, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Generate sends a message in a conversation and returns the recorded exchange.
func (c *Client) Generate(ctx context.Context, conversationID int64, req domain.ChatRequest) (*domain.Exchange, error) {
	var ex domain.Exchange
	path := fmt.Sprintf("/api/conversations/%d/generate", conversationID)
	if err := c.do(ctx, http.MethodPost, path, req, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

// History returns the first page of a conversation's exchanges.
func (c *Client) History(ctx context.Context, conversationID int64) (*domain.Page[domain.Exchange], error) {
	var page domain.Page[domain.Exchange]
	path := fmt.Sprintf("/api/exchanges/by-conversation/%d?page_size=%d", conversationID, domain.MaxExchangePageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ProviderList is the body of GET /api/providers.
type ProviderList struct {
	Providers       []service.ProviderStatus `json:"providers"`
	DefaultProvider string                   `json:"default_provider"`
}

// Providers lists the server's providers.
func (c *Client) Providers(ctx context.Context) (*ProviderList, error) {
	var list ProviderList
	if err := c.do(ctx, http.MethodGet, "/api/providers", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}
