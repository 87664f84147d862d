package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/smart-shop/llm"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Catalog, cfg.Catalog)
	assert.Equal(t, ":5000", cfg.Server.Addr())
	assert.Equal(t, float32(0.1), cfg.LLM.Temperature)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadSize)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartshop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
  allowed_origins: ["https://shop.example.com"]
catalog:
  path: /var/lib/smartshop/list.json
llm:
  extract:
    provider: openai
    model: gpt-4o
  match_timeout: 5s
archive:
  backend: none
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/var/lib/smartshop/list.json", cfg.Catalog.Path)
	assert.Equal(t, "openai", cfg.LLM.Extract.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLM.MatchTimeout)
	// untouched sections keep defaults
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Match.Model)
	assert.Equal(t, ArchiveNone, cfg.Archive.Backend)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("GOOGLE_AI_API_KEY", "g-key")
	t.Setenv("ANTHROPIC_API_BASE_URL", "https://proxy.example.com")
	t.Setenv("OUTPUT_DIR", "/tmp/receipts")
	t.Setenv("MAX_TOKENS", "1024")
	t.Setenv("TEMPERATURE", "0.5")
	t.Setenv("SMARTSHOP_MATCH_TIMEOUT", "3s")
	t.Setenv("SMARTSHOP_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "oa-key", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "g-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, "https://proxy.example.com", cfg.LLM.Anthropic.BaseURL)
	assert.Equal(t, "/tmp/receipts", cfg.Archive.Dir)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, float32(0.5), cfg.LLM.Temperature)
	assert.Equal(t, 3*time.Second, cfg.LLM.MatchTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)

	cred := cfg.LLM.Credentials(llm.Gemini)
	assert.Equal(t, "g-key", cred.APIKey)
	assert.Equal(t, 3, cred.MaxRetries)
}

func TestEnvOverridesInvalidNumber(t *testing.T) {
	t.Setenv("PORT", "http")
	_, err := Load("")
	assert.Error(t, err)
}

func TestEnvFile(t *testing.T) {
	t.Setenv("COHERE_API_KEY", "")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("COHERE_API_KEY=co-key\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("COHERE_API_KEY") })

	// godotenv never overrides variables already set, so clear it first
	require.NoError(t, os.Unsetenv("COHERE_API_KEY"))
	cfg, err := Load("", envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "co-key", cfg.LLM.Cohere.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Extract.Provider = "cohere"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LLM.Match.Provider = "mistral"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Archive.Backend = ArchiveS3
	assert.Error(t, cfg.Validate())
	cfg.Archive.S3.Bucket = "receipts"
	assert.NoError(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}
