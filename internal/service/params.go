package service

import (
	"fmt"
	"time"
)

// Keys of model_parameters understood by every client. Anything else lands
// in GenerationParams.Extra: Ollama forwards it as a model option, the
// OpenAI-style client maps the keys it knows and logs the rest.
const (
	ParamAPIKey           = "api_key"
	ParamBaseURL          = "base_url"
	ParamAPIVersion       = "api_version"
	ParamDeployment       = "deployment"
	ParamTemperature      = "temperature"
	ParamTopP             = "top_p"
	ParamMaxTokens        = "max_tokens"
	ParamStop             = "stop"
	ParamSeed             = "seed"
	ParamPresencePenalty  = "presence_penalty"
	ParamFrequencyPenalty = "frequency_penalty"
	ParamTimeout          = "timeout"
)

// GenerationParams are the typed model parameters of a config.
// Pointers distinguish "unset" from zero.
type GenerationParams struct {
	APIKey           string
	BaseURL          string
	APIVersion       string
	Deployment       string
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	Stop             []string
	Seed             *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	Timeout          time.Duration
	// Extra holds the unrecognised parameters.
	Extra map[string]interface{}
}

// ParseGenerationParams converts a config's model_parameters mapping.
// defaultTimeout applies when no timeout parameter is given.
func ParseGenerationParams(raw map[string]interface{}, defaultTimeout time.Duration) (GenerationParams, error) {
	p := GenerationParams{Timeout: defaultTimeout, Extra: make(map[string]interface{})}

	for key, value := range raw {
		var err error
		switch key {
		case ParamAPIKey:
			p.APIKey, err = stringParam(key, value)
		case ParamBaseURL:
			p.BaseURL, err = stringParam(key, value)
		case ParamAPIVersion:
			p.APIVersion, err = stringParam(key, value)
		case ParamDeployment:
			p.Deployment, err = stringParam(key, value)
		case ParamTemperature:
			p.Temperature, err = floatParam(key, value)
		case ParamTopP:
			p.TopP, err = floatParam(key, value)
		case ParamPresencePenalty:
			p.PresencePenalty, err = floatParam(key, value)
		case ParamFrequencyPenalty:
			p.FrequencyPenalty, err = floatParam(key, value)
		case ParamMaxTokens:
			p.MaxTokens, err = intParam(key, value)
		case ParamSeed:
			p.Seed, err = intParam(key, value)
		case ParamStop:
			p.Stop, err = stopParam(value)
		case ParamTimeout:
			var seconds *float64
			if seconds, err = floatParam(key, value); err == nil && seconds != nil && *seconds > 0 {
				p.Timeout = time.Duration(*seconds * float64(time.Second))
			}
		default:
			p.Extra[key] = value
		}
		if err != nil {
			return GenerationParams{}, err
		}
	}
	return p, nil
}

func stringParam(key string, v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	default:
		return "", fmt.Errorf("model parameter %s must be a string, got %T", key, v)
	}
}

func boolParam(key string, v interface{}) (bool, error) {
	switch val := v.(type) {
	case nil:
		return false, nil
	case bool:
		return val, nil
	default:
		return false, fmt.Errorf("model parameter %s must be a boolean, got %T", key, v)
	}
}

func floatParam(key string, v interface{}) (*float64, error) {
	var f float64
	switch val := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint64:
		f = float64(val)
	default:
		return nil, fmt.Errorf("model parameter %s must be a number, got %T", key, v)
	}
	return &f, nil
}

func intParam(key string, v interface{}) (*int, error) {
	var i int
	switch val := v.(type) {
	case nil:
		return nil, nil
	case int:
		i = val
	case int64:
		i = int(val)
	case uint64:
		i = int(val)
	case float64:
		if val != float64(int(val)) {
			return nil, fmt.Errorf("model parameter %s must be an integer, got %v", key, val)
		}
		i = int(val)
	default:
		return nil, fmt.Errorf("model parameter %s must be an integer, got %T", key, v)
	}
	return &i, nil
}

func stopParam(v interface{}) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []string:
		return val, nil
	case []interface{}:
		stops := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("model parameter stop must contain strings, got %T", item)
			}
			stops = append(stops, s)
		}
		return stops, nil
	default:
		return nil, fmt.Errorf("model parameter stop must be a string or a list, got %T", v)
	}
}

// float32Val converts an optional float for go-openai, where zero means unset.
func float32Val(f64 *float64) float32 {
	if f64 == nil {
		return 0
	}
	return float32(*f64)
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
