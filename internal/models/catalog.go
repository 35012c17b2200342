package models

// ModelConfig selects a model provider and its parameters.
// It is read from <configs dir>/<name>.yaml on every request.
type ModelConfig struct {
	ModelName       string                 `yaml:"model_name" json:"model_name"`
	Provider        string                 `yaml:"provider" json:"provider"`
	ModelParameters map[string]interface{} `yaml:"model_parameters" json:"model_parameters"`
	APIKeyFile      string                 `yaml:"api_key_file,omitempty" json:"api_key_file,omitempty"`
	PromptFile      string                 `yaml:"prompt_file,omitempty" json:"prompt_file,omitempty"`
}

// HasPromptFile reports whether the config pins a prompt template.
func (c *ModelConfig) HasPromptFile() bool {
	return c.PromptFile != ""
}

// PromptTemplate holds the system/user message templates of a prompt document.
type PromptTemplate struct {
	System string `yaml:"system" json:"system"`
	User   string `yaml:"user" json:"user"`
	// PreviousScenePrompt is injected as {previous_scene_prompt} when the
	// request continues a previous scene.
	PreviousScenePrompt *string `yaml:"there_is_a_previous_scene_prompt,omitempty" json:"there_is_a_previous_scene_prompt,omitempty"`
}

// HasContinuation reports whether the template defines a continuation fragment.
func (p *PromptTemplate) HasContinuation() bool {
	return p.PreviousScenePrompt != nil
}
