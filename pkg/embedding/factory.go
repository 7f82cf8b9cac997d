package embedding

import "fmt"

// NewProvider picks an embedding backend by name ("ollama" or "gemini").
func NewProvider(providerType, ollamaBaseURL, ollamaModel, geminiApiKey string) (EmbeddingProvider, error) {
	switch providerType {
	case "", "ollama":
		return NewOllamaProvider(ollamaBaseURL, ollamaModel), nil
	case "gemini":
		if geminiApiKey == "" {
			return nil, fmt.Errorf("gemini embedding provider requires an API key")
		}
		return NewGeminiProvider(geminiApiKey), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}
