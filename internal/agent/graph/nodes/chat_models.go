package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/blogflow/server/internal/agent/model"
	logx "github.com/blogflow/server/pkg/logger"
)

// Generator is the slice of a chat model the workflow needs.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey          string
	BaseURL         string
	DecomposeConfig *model.DecomposeModelConfig
	SynthConfig     *model.SynthModelConfig
}

// ChatModels holds the decomposition and synthesis chat models plus the
// shared genai client (reused by the embedder).
type ChatModels struct {
	Client             *genai.Client
	Decompose          *gemini.ChatModel
	Synth              *gemini.ChatModel
	DecomposeModelName string
	SynthModelName     string
}

// NewGenaiClient creates the Gemini API client shared by chat and embedding.
func NewGenaiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModels creates both chat models with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	client, err := NewGenaiClient(ctx, config.APIKey, config.BaseURL)
	if err != nil {
		return nil, err
	}

	decompose, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.DecomposeConfig.Model,
		Temperature: &config.DecomposeConfig.Temperature,
		MaxTokens:   &config.DecomposeConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating decompose model")
		return nil, fmt.Errorf("error creating decompose model: %w", err)
	}

	synth, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.SynthConfig.Model,
		Temperature: &config.SynthConfig.Temperature,
		MaxTokens:   &config.SynthConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating synthesis model")
		return nil, fmt.Errorf("error creating synthesis model: %w", err)
	}

	return &ChatModels{
		Client:             client,
		Decompose:          decompose,
		Synth:              synth,
		DecomposeModelName: config.DecomposeConfig.Model,
		SynthModelName:     config.SynthConfig.Model,
	}, nil
}

// logUsage records token usage and cost of one model call.
func logUsage(node, modelName string, u model.Usage) {
	logx.Debug().
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", u.PromptTokens).
		Int("completion_tokens", u.CompletionTokens).
		Float64("total_cost_usd", u.CostUSD).
		Msg("LLM usage")
}
