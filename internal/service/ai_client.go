package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"story-server/internal/models"

	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Supported values of a config's provider field.
const (
	ProviderOpenAI      = "openai"
	ProviderAzureOpenAI = "azure_openai"
	ProviderOllama      = "ollama"
	ProviderOpenRouter  = "openrouter"
	ProviderDeepSeek    = "deepseek"
	ProviderGroq        = "groq"
	ProviderTogether    = "together"
	ProviderMistralAI   = "mistralai"
	ProviderFireworks   = "fireworks"
)

// Base URLs of providers that speak the OpenAI chat completions API.
var compatibleBaseURLs = map[string]string{
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
	ProviderDeepSeek:   "https://api.deepseek.com/v1",
	ProviderGroq:       "https://api.groq.com/openai/v1",
	ProviderTogether:   "https://api.together.xyz/v1",
	ProviderMistralAI:  "https://api.mistral.ai/v1",
	ProviderFireworks:  "https://api.fireworks.ai/inference/v1",
}

// AIClient sends an assembled system/user message pair to a chat model.
type AIClient interface {
	// GenerateText returns the full completion.
	GenerateText(ctx context.Context, systemPrompt, userInput string) (string, UsageInfo, error)
	// GenerateTextStream calls chunkHandler for every piece of the completion as it arrives.
	// An error from chunkHandler aborts the stream.
	GenerateTextStream(ctx context.Context, systemPrompt, userInput string, chunkHandler func(string) error) (UsageInfo, error)
}

// ClientFactory builds an AIClient for a model config.
type ClientFactory func(provider, model string, params GenerationParams, logger *zap.Logger) (AIClient, error)

// NewAIClient selects the client implementation by provider name.
func NewAIClient(provider, model string, params GenerationParams, logger *zap.Logger) (AIClient, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	httpClient := &http.Client{Timeout: params.Timeout}

	switch provider {
	case ProviderOpenAI:
		cfg := openaigo.DefaultConfig(params.APIKey)
		if params.BaseURL != "" {
			cfg.BaseURL = params.BaseURL
		}
		cfg.HTTPClient = httpClient
		return newOpenAIClient(provider, model, cfg, params, logger)

	case ProviderAzureOpenAI:
		if params.BaseURL == "" {
			return nil, fmt.Errorf("provider %s requires model parameter %s", provider, ParamBaseURL)
		}
		cfg := openaigo.DefaultAzureConfig(params.APIKey, params.BaseURL)
		if params.APIVersion != "" {
			cfg.APIVersion = params.APIVersion
		}
		if params.Deployment != "" {
			deployment := params.Deployment
			cfg.AzureModelMapperFunc = func(string) string { return deployment }
		}
		cfg.HTTPClient = httpClient
		return newOpenAIClient(provider, model, cfg, params, logger)

	case ProviderOllama:
		return newOllamaClient(model, params, httpClient, logger)
	}

	if baseURL, ok := compatibleBaseURLs[provider]; ok {
		cfg := openaigo.DefaultConfig(params.APIKey)
		cfg.BaseURL = baseURL
		if params.BaseURL != "" {
			cfg.BaseURL = params.BaseURL
		}
		cfg.HTTPClient = httpClient
		return newOpenAIClient(provider, model, cfg, params, logger)
	}

	return nil, fmt.Errorf("%w: '%s'", models.ErrUnknownProvider, provider)
}

// --- OpenAI-compatible client ---

// Extra model_parameters mapped onto chat completion request fields.
const (
	ParamN                   = "n"
	ParamMaxCompletionTokens = "max_completion_tokens"
	ParamUser                = "user"
	ParamLogProbs            = "logprobs"
	ParamTopLogProbs         = "top_logprobs"
	ParamReasoningEffort     = "reasoning_effort"
)

type openAIExtras struct {
	n                   *int
	maxCompletionTokens *int
	user                string
	logProbs            bool
	topLogProbs         *int
	reasoningEffort     string
}

// parseOpenAIExtras picks the request fields out of params.Extra and
// returns the keys no field exists for, sorted.
func parseOpenAIExtras(extra map[string]interface{}) (openAIExtras, []string, error) {
	var (
		x       openAIExtras
		ignored []string
	)
	for key, value := range extra {
		var err error
		switch key {
		case ParamN:
			x.n, err = intParam(key, value)
		case ParamMaxCompletionTokens:
			x.maxCompletionTokens, err = intParam(key, value)
		case ParamUser:
			x.user, err = stringParam(key, value)
		case ParamLogProbs:
			x.logProbs, err = boolParam(key, value)
		case ParamTopLogProbs:
			x.topLogProbs, err = intParam(key, value)
		case ParamReasoningEffort:
			x.reasoningEffort, err = stringParam(key, value)
		default:
			ignored = append(ignored, key)
		}
		if err != nil {
			return openAIExtras{}, nil, err
		}
	}
	sort.Strings(ignored)
	return x, ignored, nil
}

type openAIClient struct {
	client   *openaigo.Client
	provider string
	model    string
	params   GenerationParams
	extras   openAIExtras
	logger   *zap.Logger
}

func newOpenAIClient(provider, model string, cfg openaigo.ClientConfig, params GenerationParams, logger *zap.Logger) (*openAIClient, error) {
	extras, ignored, err := parseOpenAIExtras(params.Extra)
	if err != nil {
		return nil, err
	}
	log := logger.Named("OpenAIClient").With(zap.String("provider", provider), zap.String("model", model))
	if len(ignored) > 0 {
		log.Warn("Model parameters not supported by this provider are ignored", zap.Strings("parameters", ignored))
	}
	return &openAIClient{
		client:   openaigo.NewClientWithConfig(cfg),
		provider: provider,
		model:    model,
		params:   params,
		extras:   extras,
		logger:   log,
	}, nil
}

func (c *openAIClient) request(systemPrompt, userInput string, stream bool) openaigo.ChatCompletionRequest {
	req := openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: userInput},
		},
		Temperature:      float32Val(c.params.Temperature),
		TopP:             float32Val(c.params.TopP),
		MaxTokens:        intVal(c.params.MaxTokens),
		Stop:             c.params.Stop,
		Seed:             c.params.Seed,
		PresencePenalty:  float32Val(c.params.PresencePenalty),
		FrequencyPenalty: float32Val(c.params.FrequencyPenalty),
		Stream:           stream,

		N:                   intVal(c.extras.n),
		MaxCompletionTokens: intVal(c.extras.maxCompletionTokens),
		User:                c.extras.user,
		LogProbs:            c.extras.logProbs,
		TopLogProbs:         intVal(c.extras.topLogProbs),
		ReasoningEffort:     c.extras.reasoningEffort,
	}
	if stream {
		req.StreamOptions = &openaigo.StreamOptions{IncludeUsage: true}
	}
	return req
}

func (c *openAIClient) GenerateText(ctx context.Context, systemPrompt, userInput string) (string, UsageInfo, error) {
	var usage UsageInfo

	ctx, cancel := withTimeout(ctx, c.params.Timeout)
	defer cancel()

	startTime := time.Now()
	c.logger.Debug("Sending chat completion request",
		zap.Int("systemPromptBytes", len(systemPrompt)),
		zap.Int("userInputBytes", len(userInput)),
	)

	resp, err := c.client.CreateChatCompletion(ctx, c.request(systemPrompt, userInput, false))
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Error("Chat completion request failed", zap.Duration("duration", duration), zap.Error(err))
		recordAIRequest(c.provider, c.model, "error", duration)
		return "", usage, fmt.Errorf("%w: %v", models.ErrAIGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.logger.Warn("Chat completion returned an empty response", zap.Duration("duration", duration))
		recordAIRequest(c.provider, c.model, "error_empty_response", duration)
		return "", usage, fmt.Errorf("%w: empty response", models.ErrAIGenerationFailed)
	}

	text := resp.Choices[0].Message.Content
	usage = UsageInfo{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.model, systemPrompt, userInput, text)
	}

	recordAIRequest(c.provider, c.model, "success", duration)
	recordAIUsage(c.provider, c.model, usage)
	c.logger.Info("Chat completion received",
		zap.Duration("duration", duration),
		zap.Int("responseLength", len(text)),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
		zap.Bool("estimated", usage.Estimated),
	)
	return text, usage, nil
}

func (c *openAIClient) GenerateTextStream(ctx context.Context, systemPrompt, userInput string, chunkHandler func(string) error) (UsageInfo, error) {
	var usage UsageInfo

	ctx, cancel := withTimeout(ctx, c.params.Timeout)
	defer cancel()

	startTime := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(systemPrompt, userInput, true))
	if err != nil {
		c.logger.Error("Failed to open completion stream", zap.Error(err))
		recordAIRequest(c.provider, c.model, "error_stream_init", time.Since(startTime))
		return usage, fmt.Errorf("%w: %v", models.ErrAIGenerationFailed, err)
	}
	defer stream.Close()

	var text strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.logger.Error("Failed to read completion stream", zap.Error(err))
			recordAIRequest(c.provider, c.model, "error_stream_read", time.Since(startTime))
			return usage, fmt.Errorf("%w: %v", models.ErrAIGenerationFailed, err)
		}

		if response.Usage != nil && response.Usage.TotalTokens > 0 {
			usage = UsageInfo{
				PromptTokens:     response.Usage.PromptTokens,
				CompletionTokens: response.Usage.CompletionTokens,
				TotalTokens:      response.Usage.TotalTokens,
			}
		}
		if len(response.Choices) == 0 || response.Choices[0].Delta.Content == "" {
			continue
		}

		chunk := response.Choices[0].Delta.Content
		text.WriteString(chunk)
		if err := chunkHandler(chunk); err != nil {
			c.logger.Warn("Chunk handler failed, aborting stream", zap.Error(err))
			recordAIRequest(c.provider, c.model, "error_stream_handler", time.Since(startTime))
			return usage, fmt.Errorf("stream handler: %w", err)
		}
	}

	duration := time.Since(startTime)
	if text.Len() == 0 {
		recordAIRequest(c.provider, c.model, "error_empty_response", duration)
		return usage, fmt.Errorf("%w: empty response", models.ErrAIGenerationFailed)
	}
	if usage.TotalTokens == 0 {
		c.logger.Debug("Stream did not report usage, estimating token counts")
		usage = estimateUsage(c.model, systemPrompt, userInput, text.String())
	}

	recordAIRequest(c.provider, c.model, "success_stream", duration)
	recordAIUsage(c.provider, c.model, usage)
	c.logger.Info("Completion stream finished",
		zap.Duration("duration", duration),
		zap.Int("responseLength", text.Len()),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
		zap.Bool("estimated", usage.Estimated),
	)
	return usage, nil
}

// estimateUsage counts tokens locally. Unknown models use cl100k_base;
// when no encoding can be loaded the result stays zero.
func estimateUsage(model, systemPrompt, userInput, completion string) UsageInfo {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		if tke, err = tiktoken.GetEncoding("cl100k_base"); err != nil {
			return UsageInfo{}
		}
	}
	usage := UsageInfo{
		PromptTokens:     len(tke.Encode(systemPrompt, nil, nil)) + len(tke.Encode(userInput, nil, nil)),
		CompletionTokens: len(tke.Encode(completion, nil, nil)),
		Estimated:        true,
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
