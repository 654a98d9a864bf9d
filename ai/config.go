// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"strings"
	"time"
)

// Supported model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds configuration for the LLM backing drafting, parsing and ranking.
type Config struct {
	// Provider selects the client implementation: "gemini" or "openai".
	Provider string

	// Host is the base URL for OpenAI-compatible APIs.
	// Example: "http://localhost:11434/v1" for a local Ollama server.
	// Ignored by the gemini provider.
	Host string

	// APIKey authenticates against the provider. Local OpenAI-compatible
	// servers accept any value.
	APIKey string

	// Model is the model identifier.
	// Example: "gemini-2.5-flash", "gpt-4o-mini", "qwen2.5:7b"
	Model string

	// Temperature is the sampling temperature for conversational calls.
	// Default: 0.7
	Temperature float64

	// MaxOutputTokens caps a single completion.
	// Default: 1024
	MaxOutputTokens int

	// MaxRetries is the number of attempts for transient failures.
	// Default: 3
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff between attempts.
	// Default: 1s
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider name.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the OpenAI-compatible host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxOutputTokens sets the completion token cap.
func WithMaxOutputTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxOutputTokens = n
	}
}

// WithRetry sets the retry attempts and base backoff delay.
func WithRetry(attempts int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = attempts
		c.RetryDelay = delay
	}
}

// DefaultConfig returns a Config for the hosted Gemini API.
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderGemini,
		Model:           "gemini-2.5-flash",
		Temperature:     0.7,
		MaxOutputTokens: 1024,
		MaxRetries:      3,
		RetryDelay:      time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithHost("http://localhost:11434"),
//	    WithModel("qwen2.5:7b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Provider names are lowercased and OpenAI-compatible hosts get the /v1
// suffix most servers (Ollama, LocalAI, vLLM) require.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.Provider == ProviderOpenAI && c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderGemini:
		if c.APIKey == "" {
			return errors.New("ai config: APIKey is required for gemini")
		}
	case ProviderOpenAI:
		if c.Host == "" && c.APIKey == "" {
			return errors.New("ai config: Host or APIKey is required for openai")
		}
	default:
		return errors.New("ai config: Provider must be gemini or openai")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("ai config: MaxOutputTokens must be positive")
	}
	if c.MaxRetries <= 0 {
		return errors.New("ai config: MaxRetries must be positive")
	}
	return nil
}
