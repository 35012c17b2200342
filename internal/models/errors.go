package models

import "errors"

// Application-wide standard errors
var (
	// Catalog errors
	ErrConfigNotFound  = errors.New("model config not found")
	ErrPromptNotFound  = errors.New("prompt template not found")
	ErrSecretNotFound  = errors.New("secret file specified in config does not exist")
	ErrInvalidDocument = errors.New("invalid document")

	// Prompt assembly errors
	ErrMissingField            = errors.New("missing required field")
	ErrMissingTemplateVariable = errors.New("missing template variable")
	ErrMalformedTemplate       = errors.New("malformed template")

	// Model dispatch errors
	ErrUnknownProvider    = errors.New("unknown model provider")
	ErrAIGenerationFailed = errors.New("AI text generation failed")

	// Story store errors
	ErrInvalidPayload = errors.New("Payload Error")
)
