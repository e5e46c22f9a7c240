package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls int
}

func (p *countingProvider) Kind() Kind { return KindDeepSeek }

func (p *countingProvider) Generate(ctx context.Context, req Request) (string, error) {
	p.calls++
	return "ok", nil
}

func TestNewRateLimited_DisabledReturnsSameProvider(t *testing.T) {
	inner := &countingProvider{}
	p := NewRateLimited(inner, 0, 0)
	assert.Same(t, inner, p)
}

func TestRateLimited_RejectsWithoutCallingProvider(t *testing.T) {
	inner := &countingProvider{}
	p := NewRateLimited(inner, 1, 1) // 1 запрос в минуту, burst 1

	out, err := p.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = p.Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, KindDeepSeek, p.Kind())
}
