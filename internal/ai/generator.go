package ai

import (
	"context"
	"strings"
	"time"

	"docai/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

const systemPrompt = "You are an intelligent assistant that answers questions based on documents."

// Generator produces an answer for a fully built prompt.
type Generator interface {
	Provider() string
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error)
}

// DetectProvider picks the first configured backend in the order
// openai, azure, ollama.
func DetectProvider(cfg config.LLMConfig) string {
	switch {
	case strings.TrimSpace(cfg.OpenAIAPIKey) != "":
		return ProviderOpenAI
	case strings.TrimSpace(cfg.AzureAPIKey) != "":
		return ProviderAzure
	case strings.TrimSpace(cfg.OllamaBaseURL) != "":
		return ProviderOllama
	default:
		return ProviderNone
	}
}

// NewGenerator returns nil when no provider is configured.
func NewGenerator(cfg config.LLMConfig) Generator {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch DetectProvider(cfg) {
	case ProviderOpenAI:
		return &chatGenerator{
			provider: ProviderOpenAI,
			client:   NewOpenAICompatibleClient(timeout),
			cfg: ChatConfig{
				BaseURL:     cfg.OpenAIBaseURL,
				APIKey:      cfg.OpenAIAPIKey,
				Model:       cfg.OpenAIModel,
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
			},
		}
	case ProviderAzure:
		return &chatGenerator{
			provider: ProviderAzure,
			client:   NewOpenAICompatibleClient(timeout),
			cfg: ChatConfig{
				BaseURL:         cfg.AzureEndpoint,
				APIKey:          cfg.AzureAPIKey,
				Temperature:     cfg.Temperature,
				MaxTokens:       cfg.MaxTokens,
				AzureDeployment: cfg.AzureDeployment,
				AzureAPIVersion: cfg.AzureAPIVersion,
			},
		}
	case ProviderOllama:
		return &ollamaGenerator{
			client: NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel, OllamaOptions{
				Temperature: cfg.Temperature,
				TopP:        0.9,
				TopK:        40,
			}, timeout),
		}
	default:
		return nil
	}
}

type chatGenerator struct {
	provider string
	client   *OpenAICompatibleClient
	cfg      ChatConfig
}

func (g *chatGenerator) Provider() string {
	return g.provider
}

func (g *chatGenerator) messages(prompt string) []ChatMessage {
	return []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
}

func (g *chatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.Complete(ctx, g.cfg, g.messages(prompt))
}

func (g *chatGenerator) Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	return g.client.StreamComplete(ctx, g.cfg, g.messages(prompt), onChunk)
}

type ollamaGenerator struct {
	client *OllamaClient
}

func (g *ollamaGenerator) Provider() string {
	return ProviderOllama
}

func (g *ollamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.Generate(ctx, prompt)
}

func (g *ollamaGenerator) Stream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	return g.client.StreamGenerate(ctx, prompt, onChunk)
}
