package agents

import (
	"time"

	"github.com/bububa/instructor-go/pkg/instructor"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/bububa/smart-shop/components"
	"github.com/bububa/smart-shop/components/systemprompt"
)

type Option func(a *Config)

func WithClient(clt instructor.Instructor) Option {
	return func(c *Config) {
		c.client = clt
	}
}

// WithGemini routes requests through a genai client instead of an instructor client
func WithGemini(clt *genai.Client) Option {
	return func(c *Config) {
		c.gemini = clt
	}
}

func WithSystemPromptGenerator(g systemprompt.Generator) Option {
	return func(c *Config) {
		c.systemPromptGenerator = g
	}
}

func WithModel(model string) Option {
	return func(c *Config) {
		c.model = model
	}
}

func WithTemperature(temperature float32) Option {
	return func(c *Config) {
		c.temperature = temperature
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(c *Config) {
		c.maxTokens = maxTokens
	}
}

// WithTimeout bounds every Run with a deadline
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.timeout = timeout
	}
}

func WithName(name string) Option {
	return func(c *Config) {
		c.name = name
	}
}

func WithTokenCounter(counter components.TokenCounter) Option {
	return func(c *Config) {
		c.tokenCounter = counter
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}
