package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	for in, want := range map[string]Provider{
		"":          OpenAI,
		"OpenAI":    OpenAI,
		" gemini ":  Gemini,
		"anthropic": Anthropic,
		"cohere":    Cohere,
	} {
		got, err := ParseProvider(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseProvider("mistral")
	require.Error(t, err)
}

func TestSupportsVision(t *testing.T) {
	assert.True(t, OpenAI.SupportsVision())
	assert.True(t, Gemini.SupportsVision())
	assert.False(t, Cohere.SupportsVision())
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), OpenAI, Credentials{})
	require.Error(t, err)
}

func TestNewOpenAI(t *testing.T) {
	clt, err := New(context.Background(), OpenAI, Credentials{APIKey: "sk-test", BaseURL: "http://localhost:1234/v1"})
	require.NoError(t, err)
	assert.Equal(t, OpenAI, clt.Provider())
	assert.NotNil(t, clt.AgentOption())
}
