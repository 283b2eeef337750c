// Package factory builds the configured LLM provider.
package factory

import (
	"fmt"

	"github.com/newthinker/augur/internal/config"
	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/llm"
	"github.com/newthinker/augur/internal/llm/claude"
	"github.com/newthinker/augur/internal/llm/ollama"
	"github.com/newthinker/augur/internal/llm/openai"
)

// New creates the provider named by cfg.Provider.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown llm provider %q", cfg.Provider))
	}
}
