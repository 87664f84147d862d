package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("SMARTSHOP_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SMARTSHOP_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("SMARTSHOP_MAX_UPLOAD_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SMARTSHOP_MAX_UPLOAD_SIZE %q: %w", v, err)
		}
		c.Server.MaxUploadSize = size
	}

	if v := os.Getenv("SMARTSHOP_CATALOG_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("SMARTSHOP_TEMPLATE_PATH"); v != "" {
		c.Catalog.TemplatePath = v
	}

	// provider credentials
	for _, p := range []struct {
		key  []string
		base string
		dist *ProviderConfig
	}{
		{key: []string{"OPENAI_API_KEY"}, base: "OPENAI_API_BASE_URL", dist: &c.LLM.OpenAI},
		{key: []string{"ANTHROPIC_API_KEY"}, base: "ANTHROPIC_API_BASE_URL", dist: &c.LLM.Anthropic},
		{key: []string{"COHERE_API_KEY"}, base: "COHERE_API_BASE_URL", dist: &c.LLM.Cohere},
		{key: []string{"GEMINI_API_KEY", "GOOGLE_AI_API_KEY"}, base: "GOOGLE_AI_API_BASE_URL", dist: &c.LLM.Gemini},
	} {
		for _, k := range p.key {
			if v := os.Getenv(k); v != "" {
				p.dist.APIKey = v
			}
		}
		if v := os.Getenv(p.base); v != "" {
			p.dist.BaseURL = v
		}
	}
	if v := os.Getenv("SMARTSHOP_EXTRACT_PROVIDER"); v != "" {
		c.LLM.Extract.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("SMARTSHOP_EXTRACT_MODEL"); v != "" {
		c.LLM.Extract.Model = v
	}
	if v := os.Getenv("SMARTSHOP_MATCH_PROVIDER"); v != "" {
		c.LLM.Match.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("SMARTSHOP_MATCH_MODEL"); v != "" {
		c.LLM.Match.Model = v
	}
	if err := envDuration("SMARTSHOP_LLM_TIMEOUT", &c.LLM.Timeout); err != nil {
		return err
	}
	if err := envDuration("SMARTSHOP_MATCH_TIMEOUT", &c.LLM.MatchTimeout); err != nil {
		return err
	}
	if v := os.Getenv("MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_TOKENS %q: %w", v, err)
		}
		c.LLM.MaxTokens = n
	}
	if v := os.Getenv("TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid TEMPERATURE %q: %w", v, err)
		}
		c.LLM.Temperature = float32(f)
	}

	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		c.Archive.Dir = v
	}
	if v := os.Getenv("SMARTSHOP_ARCHIVE_BACKEND"); v != "" {
		c.Archive.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("SMARTSHOP_S3_BUCKET"); v != "" {
		c.Archive.S3.Bucket = v
	}
	if v := os.Getenv("SMARTSHOP_S3_ENDPOINT"); v != "" {
		c.Archive.S3.Endpoint = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Archive.S3.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Archive.S3.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Archive.S3.SecretAccessKey = v
	}
	return nil
}

func envDuration(key string, dist *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dist = d
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	ret := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}
