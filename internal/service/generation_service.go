package service

import (
	"context"
	"time"

	"story-server/internal/models"
	"story-server/internal/prompt"
	"story-server/internal/utils"

	"go.uber.org/zap"
)

const eventPublishTimeout = 5 * time.Second

// Catalog resolves model configs and prompt templates by name.
type Catalog interface {
	LoadModelConfig(name string) (*models.ModelConfig, error)
	ResolvePrompt(promptName string, cfg *models.ModelConfig) (*models.PromptTemplate, error)
	DefaultConfigName() string
	DefaultPromptName() string
}

// GenerationService turns a request payload into model output.
type GenerationService struct {
	catalog        Catalog
	newClient      ClientFactory
	notifier       Notifier
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewGenerationService creates a GenerationService. A nil factory means NewAIClient.
func NewGenerationService(catalog Catalog, newClient ClientFactory, notifier Notifier, defaultTimeout time.Duration, logger *zap.Logger) *GenerationService {
	if newClient == nil {
		newClient = NewAIClient
	}
	if notifier == nil {
		notifier = NewNoopNotifier()
	}
	return &GenerationService{
		catalog:        catalog,
		newClient:      newClient,
		notifier:       notifier,
		defaultTimeout: defaultTimeout,
		logger:         logger.Named("GenerationService"),
	}
}

// DefaultNames returns the config and prompt names used by POST /generate.
func (s *GenerationService) DefaultNames() (string, string) {
	return s.catalog.DefaultConfigName(), s.catalog.DefaultPromptName()
}

// Generate resolves the named config and prompt, assembles the messages and
// returns the model's reply.
func (s *GenerationService) Generate(ctx context.Context, configName, promptName string, payload map[string]interface{}) (string, error) {
	client, msgs, err := s.prepare(configName, promptName, payload)
	if err != nil {
		s.publishGeneration(ctx, configName, promptName, err)
		return "", err
	}

	text, _, err := client.GenerateText(ctx, msgs.System, msgs.User)
	s.publishGeneration(ctx, configName, promptName, err)
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateStream is Generate with the reply delivered in chunks.
func (s *GenerationService) GenerateStream(ctx context.Context, configName, promptName string, payload map[string]interface{}, chunkHandler func(string) error) error {
	client, msgs, err := s.prepare(configName, promptName, payload)
	if err != nil {
		s.publishGeneration(ctx, configName, promptName, err)
		return err
	}

	_, err = client.GenerateTextStream(ctx, msgs.System, msgs.User, chunkHandler)
	s.publishGeneration(ctx, configName, promptName, err)
	return err
}

func (s *GenerationService) prepare(configName, promptName string, payload map[string]interface{}) (AIClient, prompt.Messages, error) {
	log := s.logger.With(zap.String("config", configName), zap.String("prompt", promptName))

	cfg, err := s.catalog.LoadModelConfig(configName)
	if err != nil {
		log.Error("Failed to load model config", zap.Error(err))
		return nil, prompt.Messages{}, err
	}

	tmpl, err := s.catalog.ResolvePrompt(promptName, cfg)
	if err != nil {
		log.Error("Failed to load prompt template", zap.Error(err))
		return nil, prompt.Messages{}, err
	}

	rawParams := make(map[string]interface{}, len(cfg.ModelParameters)+1)
	for k, v := range cfg.ModelParameters {
		rawParams[k] = v
	}
	if cfg.APIKeyFile != "" {
		apiKey, err := utils.ReadSecret(cfg.APIKeyFile)
		if err != nil {
			log.Error("Failed to read API key", zap.String("file", cfg.APIKeyFile), zap.Error(err))
			return nil, prompt.Messages{}, err
		}
		rawParams[ParamAPIKey] = apiKey
	}

	params, err := ParseGenerationParams(rawParams, s.defaultTimeout)
	if err != nil {
		log.Error("Invalid model parameters", zap.Error(err))
		return nil, prompt.Messages{}, err
	}

	msgs, err := prompt.Assemble(tmpl, payload)
	if err != nil {
		log.Warn("Failed to assemble prompt", zap.Error(err))
		return nil, prompt.Messages{}, err
	}

	client, err := s.newClient(cfg.Provider, cfg.ModelName, params, s.logger)
	if err != nil {
		log.Error("Failed to create model client", zap.String("provider", cfg.Provider), zap.Error(err))
		return nil, prompt.Messages{}, err
	}

	log.Debug("Prompt assembled",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.ModelName),
		zap.Int("systemBytes", len(msgs.System)),
		zap.Int("userBytes", len(msgs.User)),
	)
	return client, msgs, nil
}

func (s *GenerationService) publishGeneration(ctx context.Context, configName, promptName string, genErr error) {
	event := models.StoryEvent{
		Event:  models.EventGenerationCompleted,
		Config: configName,
		Prompt: promptName,
		Status: "success",
	}
	if genErr != nil {
		event.Event = models.EventGenerationFailed
		event.Status = "error"
		event.Error = genErr.Error()
	}
	publish(ctx, s.notifier, event, s.logger)
}

// publish sends an event without letting failures reach the caller.
// The request context may already be cancelled, so only its values are kept.
func publish(ctx context.Context, notifier Notifier, event models.StoryEvent, logger *zap.Logger) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := notifier.Notify(pubCtx, event); err != nil {
		logger.Warn("Failed to publish story event", zap.String("event", string(event.Event)), zap.Error(err))
	}
}
