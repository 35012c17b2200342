package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"story-server/internal/models"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaClient struct {
	client  *api.Client
	model   string
	options map[string]interface{}
	timeout time.Duration
	logger  *zap.Logger
}

func newOllamaClient(model string, params GenerationParams, httpClient *http.Client, logger *zap.Logger) (AIClient, error) {
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	// api.NewClient expects the server root, not the OpenAI-compatible /v1 prefix.
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL '%s': %w", baseURL, err)
	}

	return &ollamaClient{
		client:  api.NewClient(parsedURL, httpClient),
		model:   model,
		options: ollamaOptions(params),
		timeout: params.Timeout,
		logger:  logger.Named("OllamaClient").With(zap.String("model", model), zap.String("baseURL", baseURL)),
	}, nil
}

// ollamaOptions maps the typed parameters to Ollama option names and
// forwards every unrecognised parameter unchanged.
func ollamaOptions(params GenerationParams) map[string]interface{} {
	opts := make(map[string]interface{}, len(params.Extra)+7)
	for k, v := range params.Extra {
		opts[k] = v
	}
	if params.Temperature != nil {
		opts["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		opts["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		opts["num_predict"] = *params.MaxTokens
	}
	if len(params.Stop) > 0 {
		opts["stop"] = params.Stop
	}
	if params.Seed != nil {
		opts["seed"] = *params.Seed
	}
	if params.PresencePenalty != nil {
		opts["presence_penalty"] = *params.PresencePenalty
	}
	if params.FrequencyPenalty != nil {
		opts["frequency_penalty"] = *params.FrequencyPenalty
	}
	return opts
}

func (c *ollamaClient) chatRequest(systemPrompt, userInput string, stream bool) *api.ChatRequest {
	return &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userInput},
		},
		Stream:  &stream,
		Options: c.options,
	}
}

func (c *ollamaClient) GenerateText(ctx context.Context, systemPrompt, userInput string) (string, UsageInfo, error) {
	var usage UsageInfo

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(ctx, c.chatRequest(systemPrompt, userInput, false), func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Error("Ollama request timed out", zap.Duration("timeout", c.timeout), zap.Error(err))
		} else {
			c.logger.Error("Ollama request failed", zap.Duration("duration", duration), zap.Error(err))
		}
		recordAIRequest(ProviderOllama, c.model, "error", duration)
		return "", usage, fmt.Errorf("%w: %v", models.ErrAIGenerationFailed, err)
	}

	if resp.Message.Content == "" {
		c.logger.Warn("Ollama returned an empty response", zap.Duration("duration", duration))
		recordAIRequest(ProviderOllama, c.model, "error_empty_response", duration)
		return "", usage, fmt.Errorf("%w: empty response", models.ErrAIGenerationFailed)
	}

	usage = UsageInfo{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.model, systemPrompt, userInput, resp.Message.Content)
	}

	recordAIRequest(ProviderOllama, c.model, "success", duration)
	recordAIUsage(ProviderOllama, c.model, usage)
	c.logger.Info("Ollama response received",
		zap.Duration("duration", duration),
		zap.Int("responseLength", len(resp.Message.Content)),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
	)
	return resp.Message.Content, usage, nil
}

func (c *ollamaClient) GenerateTextStream(ctx context.Context, systemPrompt, userInput string, chunkHandler func(string) error) (UsageInfo, error) {
	var usage UsageInfo

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	var text strings.Builder
	var handlerErr error

	err := c.client.Chat(ctx, c.chatRequest(systemPrompt, userInput, true), func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			text.WriteString(resp.Message.Content)
			if err := chunkHandler(resp.Message.Content); err != nil {
				handlerErr = err
				return err
			}
		}
		if resp.Done {
			usage.PromptTokens = resp.PromptEvalCount
			usage.CompletionTokens = resp.EvalCount
			usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
			if resp.DoneReason != "" && resp.DoneReason != "stop" {
				c.logger.Warn("Ollama stream finished early", zap.String("reason", resp.DoneReason))
			}
		}
		return nil
	})
	duration := time.Since(startTime)

	if handlerErr != nil {
		c.logger.Warn("Chunk handler failed, aborting stream", zap.Error(handlerErr))
		recordAIRequest(ProviderOllama, c.model, "error_stream_handler", duration)
		return usage, fmt.Errorf("stream handler: %w", handlerErr)
	}
	if err != nil {
		c.logger.Error("Ollama stream failed", zap.Duration("duration", duration), zap.Error(err))
		recordAIRequest(ProviderOllama, c.model, "error_stream", duration)
		return usage, fmt.Errorf("%w: %v", models.ErrAIGenerationFailed, err)
	}
	if text.Len() == 0 {
		recordAIRequest(ProviderOllama, c.model, "error_empty_response", duration)
		return usage, fmt.Errorf("%w: empty response", models.ErrAIGenerationFailed)
	}
	if usage.TotalTokens == 0 {
		usage = estimateUsage(c.model, systemPrompt, userInput, text.String())
	}

	recordAIRequest(ProviderOllama, c.model, "success_stream", duration)
	recordAIUsage(ProviderOllama, c.model, usage)
	c.logger.Info("Ollama stream finished",
		zap.Duration("duration", duration),
		zap.Int("responseLength", text.Len()),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
	)
	return usage, nil
}
