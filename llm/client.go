// Package llm builds language model clients for the configured provider.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bububa/instructor-go/pkg/instructor"
	cohereClient "github.com/cohere-ai/cohere-go/v2/client"
	cohereOption "github.com/cohere-ai/cohere-go/v2/option"
	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/bububa/smart-shop/agents"
)

// Provider names a language model vendor
type Provider string

const (
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
	Cohere    Provider = "cohere"
	Gemini    Provider = "gemini"
)

// ParseProvider returns the Provider named by s, case-insensitively
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case OpenAI, Anthropic, Cohere, Gemini:
		return p, nil
	case "":
		return OpenAI, nil
	default:
		return "", fmt.Errorf("unknown llm provider %q", s)
	}
}

// SupportsVision reports whether the provider accepts image input
func (p Provider) SupportsVision() bool {
	return p != Cohere
}

// Credentials for one provider
type Credentials struct {
	APIKey  string
	BaseURL string
	// MaxRetries instructor retries on schema validation failure
	MaxRetries int
}

// Client is a provider client ready to be handed to agents
type Client struct {
	provider   Provider
	instructor instructor.Instructor
	gemini     *genai.Client
}

// New creates a client for provider
func New(ctx context.Context, provider Provider, cred Credentials) (*Client, error) {
	if cred.APIKey == "" {
		return nil, fmt.Errorf("%s api key is required", provider)
	}
	if cred.MaxRetries <= 0 {
		cred.MaxRetries = 3
	}
	ret := &Client{provider: provider}
	switch provider {
	case Anthropic:
		clientOpts := make([]anthropic.ClientOption, 0, 1)
		if cred.BaseURL != "" {
			clientOpts = append(clientOpts, anthropic.WithBaseURL(cred.BaseURL))
		}
		clt := anthropic.NewClient(cred.APIKey, clientOpts...)
		ret.instructor = instructor.FromAnthropic(clt, instructor.WithMode(instructor.ModeJSON), instructor.WithMaxRetries(cred.MaxRetries), instructor.WithValidation())
	case Cohere:
		requestOpts := make([]cohereOption.RequestOption, 0, 2)
		requestOpts = append(requestOpts, cohereOption.WithToken(cred.APIKey))
		if cred.BaseURL != "" {
			requestOpts = append(requestOpts, cohereOption.WithBaseURL(cred.BaseURL))
		}
		clt := cohereClient.NewClient(requestOpts...)
		ret.instructor = instructor.FromCohere(clt, instructor.WithMode(instructor.ModeJSON), instructor.WithMaxRetries(cred.MaxRetries), instructor.WithValidation())
	case Gemini:
		cfg := &genai.ClientConfig{
			APIKey:  cred.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if cred.BaseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: cred.BaseURL}
		}
		clt, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		ret.gemini = clt
	case OpenAI:
		cfg := openai.DefaultConfig(cred.APIKey)
		if cred.BaseURL != "" {
			cfg.BaseURL = cred.BaseURL
		}
		clt := openai.NewClientWithConfig(cfg)
		ret.instructor = instructor.FromOpenAI(clt, instructor.WithMode(instructor.ModeJSON), instructor.WithMaxRetries(cred.MaxRetries), instructor.WithValidation())
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
	return ret, nil
}

// Provider returns the client's provider
func (c *Client) Provider() Provider {
	return c.provider
}

// AgentOption wires the client into an agent
func (c *Client) AgentOption() agents.Option {
	if c.gemini != nil {
		return agents.WithGemini(c.gemini)
	}
	return agents.WithClient(c.instructor)
}
