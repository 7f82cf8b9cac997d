package factory

import (
	"fmt"

	"whatsapp-orderbot-be/pkg/llm"
	"whatsapp-orderbot-be/pkg/llm/groq"
	"whatsapp-orderbot-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, ollamaBaseURL, groqBaseURL, groqApiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "groq":
		if groqApiKey == "" {
			return nil, fmt.Errorf("groq provider requires GROQ_API_KEY")
		}
		return groq.NewGroqProvider(groqApiKey, groqBaseURL, modelName), nil
	case "ollama":
		return ollama.NewOllamaProvider(ollamaBaseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
