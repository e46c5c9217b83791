package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedProviderReusesResponses(t *testing.T) {
	ctx := context.Background()
	inner := NewMockProvider(ProviderConfig{Model: "m"})
	cached := NewCachedProvider(inner, time.Minute, 10)

	msgs := []Message{{Role: RoleUser, Content: "hello"}}
	first, err := cached.Send(ctx, msgs)
	require.NoError(t, err)
	second, err := cached.Send(ctx, msgs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, inner.History(), 1)
	assert.Equal(t, 1, cached.Len())

	_, err = cached.Send(ctx, msgs, WithTemperature(0.1))
	require.NoError(t, err)
	assert.Len(t, inner.History(), 2)

	_, err = Collect(cached.Stream(ctx, msgs))
	require.NoError(t, err)
	assert.Len(t, inner.History(), 3)
}

func TestCachedProviderRespectsMaxSize(t *testing.T) {
	ctx := context.Background()
	inner := NewMockProvider(ProviderConfig{})
	cached := NewCachedProvider(inner, time.Minute, 1)

	_, err := cached.Send(ctx, []Message{{Role: RoleUser, Content: "a"}})
	require.NoError(t, err)
	_, err = cached.Send(ctx, []Message{{Role: RoleUser, Content: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Len())

	_, err = cached.Send(ctx, []Message{{Role: RoleUser, Content: "b"}})
	require.NoError(t, err)
	assert.Len(t, inner.History(), 3)
}

func TestCachedProviderDelegatesDescribe(t *testing.T) {
	cached := NewCachedProvider(NewMockProvider(ProviderConfig{Model: "m"}), time.Minute, 0)
	assert.Equal(t, "m", cached.Describe().Name)
	assert.True(t, cached.Validate())
	assert.Equal(t, 1, cached.CountTokens(""))
}
