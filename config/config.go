// Package config loads the service configuration from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bububa/smart-shop/llm"
	"github.com/bububa/smart-shop/receipt"
)

// Config is the full service configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	LLM     LLMConfig     `yaml:"llm"`
	Archive ArchiveConfig `yaml:"archive"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	MaxUploadSize   int64         `yaml:"max_upload_size" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Addr returns host:port
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CatalogConfig configures the grocery list store
type CatalogConfig struct {
	Path string `yaml:"path" validate:"required"`
	// TemplatePath empty means the built-in template
	TemplatePath string        `yaml:"template_path"`
	QueueTimeout time.Duration `yaml:"queue_timeout" validate:"gt=0"`
}

// ProviderConfig holds one provider's credentials
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// RoleConfig selects the provider and model for one agent
type RoleConfig struct {
	Provider string `yaml:"provider" validate:"oneof=openai anthropic cohere gemini"`
	Model    string `yaml:"model" validate:"required"`
}

// LLMConfig configures the language model clients and agents
type LLMConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Cohere    ProviderConfig `yaml:"cohere"`
	Gemini    ProviderConfig `yaml:"gemini"`
	// Extract is the image processor reading receipts
	Extract RoleConfig `yaml:"extract"`
	// Match is the inventory manager matching receipt lines
	Match        RoleConfig    `yaml:"match"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	MatchTimeout time.Duration `yaml:"match_timeout" validate:"gt=0"`
	MaxTokens    int           `yaml:"max_tokens" validate:"gt=0"`
	Temperature  float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxRetries   int           `yaml:"max_retries" validate:"gte=0"`
}

// Credentials returns the credentials configured for provider
func (c LLMConfig) Credentials(provider llm.Provider) llm.Credentials {
	var p ProviderConfig
	switch provider {
	case llm.OpenAI:
		p = c.OpenAI
	case llm.Anthropic:
		p = c.Anthropic
	case llm.Cohere:
		p = c.Cohere
	case llm.Gemini:
		p = c.Gemini
	}
	return llm.Credentials{APIKey: p.APIKey, BaseURL: p.BaseURL, MaxRetries: c.MaxRetries}
}

// Archive backends
const (
	ArchiveDir  = "dir"
	ArchiveS3   = "s3"
	ArchiveNone = "none"
)

// S3Config configures the S3 archive
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// ArchiveConfig configures where extraction records are kept
type ArchiveConfig struct {
	Backend string   `yaml:"backend" validate:"oneof=dir s3 none"`
	Dir     string   `yaml:"dir"`
	S3      S3Config `yaml:"s3"`
}

// ReceiptS3 converts to the receipt package config
func (c S3Config) ReceiptS3() receipt.S3Config {
	return receipt.S3Config{
		Bucket:          c.Bucket,
		Prefix:          c.Prefix,
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		UsePathStyle:    c.UsePathStyle,
	}
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    3 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadSize:   receipt.DefaultMaxImageSize,
			AllowedOrigins:  []string{"*"},
		},
		Catalog: CatalogConfig{
			Path:         "data/current_grocery_list.json",
			QueueTimeout: 5 * time.Second,
		},
		LLM: LLMConfig{
			Extract:      RoleConfig{Provider: string(llm.Gemini), Model: "gemini-2.0-flash"},
			Match:        RoleConfig{Provider: string(llm.OpenAI), Model: "gpt-4o-mini"},
			Timeout:      2 * time.Minute,
			MatchTimeout: 30 * time.Second,
			MaxTokens:    4096,
			Temperature:  0.1,
			MaxRetries:   3,
		},
		Archive: ArchiveConfig{
			Backend: ArchiveDir,
			Dir:     "outputs",
			S3:      S3Config{Region: "us-east-1", Prefix: "receipts"},
		},
	}
}

// Load reads the YAML file at path (missing file means defaults), then the env files,
// then applies environment overrides and validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	provider, err := llm.ParseProvider(c.LLM.Extract.Provider)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !provider.SupportsVision() {
		return fmt.Errorf("invalid config: llm.extract.provider %s cannot read images", provider)
	}
	switch c.Archive.Backend {
	case ArchiveDir:
		if c.Archive.Dir == "" {
			return errors.New("invalid config: archive.dir is required for the dir backend")
		}
	case ArchiveS3:
		if c.Archive.S3.Bucket == "" {
			return errors.New("invalid config: archive.s3.bucket is required for the s3 backend")
		}
	}
	return nil
}
