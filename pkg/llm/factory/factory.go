package factory

import (
	"fmt"

	"exoplanet-classifier-be/pkg/llm"
	"exoplanet-classifier-be/pkg/llm/anthropic"
	"exoplanet-classifier-be/pkg/llm/ollama"
	"exoplanet-classifier-be/pkg/llm/openai"
)

type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "ollama":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, s.Model), nil
	case "openai":
		if s.APIKey == "" && s.BaseURL == "" {
			return nil, fmt.Errorf("openai provider needs an API key")
		}
		return openai.NewOpenAIProvider(s.APIKey, s.BaseURL, s.Model), nil
	case "anthropic":
		if s.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider needs an API key")
		}
		return anthropic.NewAnthropicProvider(s.APIKey, s.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
