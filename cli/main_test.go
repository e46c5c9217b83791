package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiaot623/clouseau/internal/adapter/llm"
	"github.com/xiaot623/clouseau/internal/config"
	"github.com/xiaot623/clouseau/internal/domain"
	"github.com/xiaot623/clouseau/internal/service"
	handler "github.com/xiaot623/clouseau/internal/transport/http"
	"github.com/xiaot623/clouseau/tests/helpers"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	registry := llm.NewRegistry()
	registry.Register("mock", llm.NewMockProvider(llm.ProviderConfig{Name: "mock"}))
	svc := service.New(store, registry, &config.Config{}, zap.NewNop())

	srv := httptest.NewServer(handler.NewServer(svc, zap.NewNop()))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestReplRecordsExchanges(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	convID, err := startConversation(ctx, client)
	require.NoError(t, err)

	var out bytes.Buffer
	in := strings.NewReader("hello\n\n/history\nsecond\n/quit\nignored\n")
	require.NoError(t, repl(ctx, client, convID, domain.ChatRequest{}, in, &out))

	assert.Contains(t, out.String(), "Mock response to: hello")
	assert.Contains(t, out.String(), "you: hello")
	assert.Contains(t, out.String(), "Bye!")

	page, err := client.History(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestReplReportsErrorsAndContinues(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	var out bytes.Buffer
	in := strings.NewReader("hello\n")
	require.NoError(t, repl(ctx, client, 42, domain.ChatRequest{}, in, &out))
	assert.Contains(t, out.String(), "Conversation with id 42 not found")
}

func TestClientAPIError(t *testing.T) {
	client := newTestClient(t)

	_, err := client.CreateConversation(context.Background(), 7, "t")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestPrintProviders(t *testing.T) {
	client := newTestClient(t)

	var out bytes.Buffer
	require.NoError(t, printProviders(context.Background(), client, &out))
	assert.Contains(t, out.String(), "* mock")
	assert.Contains(t, out.String(), "ready")
}

func TestPrintSessions(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	_, err := client.CreateSession(ctx, "alpha")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printSessions(ctx, client, &out))
	assert.Contains(t, out.String(), "alpha")
	assert.Contains(t, out.String(), "1 of 1 sessions")
}
