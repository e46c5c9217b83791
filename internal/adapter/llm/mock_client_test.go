package llm

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 400), 100},
		{"héllo wörld!", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.text), "text %q", tt.text)
	}
}

func TestMockSendDefaultResponse(t *testing.T) {
	ctx := context.Background()
	m := NewMockProvider(ProviderConfig{Name: "mock", Model: "m"})

	resp, err := m.Send(ctx, []Message{{Role: RoleUser, Content: "Hello"}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: Hello", resp.Content)
	assert.Equal(t, "m", resp.Model)
	assert.Equal(t, 1, resp.InputTokens)
	assert.Equal(t, EstimateTokens(resp.Content), resp.OutputTokens)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, resp.InputTokens+resp.OutputTokens, resp.TotalTokens())
}

func TestMockSendTruncatesLastMessage(t *testing.T) {
	m := NewMockProvider(ProviderConfig{})
	long := strings.Repeat("é", 80)

	resp, err := m.Send(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: long},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: "+strings.Repeat("é", 50), resp.Content)
	assert.Equal(t, DefaultMockModel, resp.Model)
	assert.Equal(t, EstimateTokens("be brief")+EstimateTokens(long), resp.InputTokens)
}

func TestMockIsDeterministic(t *testing.T) {
	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "same input"}}

	a, err := NewMockProvider(ProviderConfig{}).Send(ctx, msgs)
	require.NoError(t, err)
	b, err := NewMockProvider(ProviderConfig{}).Send(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMockSetResponseAndHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMockProvider(ProviderConfig{})
	m.SetResponse("fixed answer")

	msgs := []Message{{Role: RoleUser, Content: "q1"}}
	resp, err := m.Send(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, "fixed answer", resp.Content)

	_, err = Collect(m.Stream(ctx, []Message{{Role: RoleUser, Content: "q2"}}))
	require.NoError(t, err)

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, "q1", history[0].Messages[0].Content)
	assert.Equal(t, "fixed answer", history[0].Response.Content)
	assert.Equal(t, "q2", history[1].Messages[0].Content)

	// Mutating the caller's slice does not rewrite history.
	msgs[0].Content = "changed"
	assert.Equal(t, "q1", m.History()[0].Messages[0].Content)

	m.SetResponse("")
	resp, err = m.Send(ctx, []Message{{Role: RoleUser, Content: "q3"}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: q3", resp.Content)
}

func TestMockStreamConcatenatesToSend(t *testing.T) {
	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "tell me  something   spaced"}}

	sent, err := NewMockProvider(ProviderConfig{}).Send(ctx, msgs)
	require.NoError(t, err)

	var fragments []string
	for fragment, err := range NewMockProvider(ProviderConfig{}).Stream(ctx, msgs) {
		require.NoError(t, err)
		fragments = append(fragments, fragment)
	}
	assert.Greater(t, len(fragments), 1)
	assert.Equal(t, sent.Content, strings.Join(fragments, ""))
}

func TestMockStreamSingleUse(t *testing.T) {
	m := NewMockProvider(ProviderConfig{})
	stream := m.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})

	first, err := Collect(stream)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	_, err = Collect(stream)
	assert.ErrorIs(t, err, ErrStreamConsumed)
	assert.Len(t, m.History(), 1)
}

func TestMockStreamEarlyBreak(t *testing.T) {
	m := NewMockProvider(ProviderConfig{})
	m.SetResponse("one two three four")

	var got []string
	for fragment, err := range m.Stream(context.Background(), nil) {
		require.NoError(t, err)
		got = append(got, fragment)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"one ", "two "}, got)
}

func TestMockConcurrentUse(t *testing.T) {
	m := NewMockProvider(ProviderConfig{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Send(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
		}()
	}
	wg.Wait()
	assert.Len(t, m.History(), 20)
}

func TestMockDescribeAndValidate(t *testing.T) {
	m := NewMockProvider(ProviderConfig{Model: "mock-large"})
	info := m.Describe()
	assert.Equal(t, "mock-large", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.Equal(t, 100000, info.MaxContextTokens)
	assert.True(t, info.SupportsStreaming)
	assert.False(t, info.SupportsVision)
	assert.False(t, info.SupportsFunctionCalling)
	assert.True(t, m.Validate())
}
