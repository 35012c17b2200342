package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"story-server/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const documentExt = ".yaml"

// Store resolves model configs and prompt templates from two directories.
// Documents are read from disk on every call, so edits take effect
// without a restart.
type Store struct {
	configsDir    string
	promptsDir    string
	defaultConfig string
	defaultPrompt string
	logger        *zap.Logger
}

// NewStore creates a Store. Empty default names mean "default".
func NewStore(configsDir, promptsDir, defaultConfig, defaultPrompt string, logger *zap.Logger) *Store {
	if defaultConfig == "" {
		defaultConfig = "default"
	}
	if defaultPrompt == "" {
		defaultPrompt = "default"
	}
	return &Store{
		configsDir:    configsDir,
		promptsDir:    promptsDir,
		defaultConfig: defaultConfig,
		defaultPrompt: defaultPrompt,
		logger:        logger.Named("CatalogStore"),
	}
}

// DefaultConfigName returns the name used when a config is absent.
func (s *Store) DefaultConfigName() string { return s.defaultConfig }

// DefaultPromptName returns the name used when a prompt is absent.
func (s *Store) DefaultPromptName() string { return s.defaultPrompt }

// LoadModelConfig reads <configs>/<name>.yaml, falling back to the default config.
func (s *Store) LoadModelConfig(name string) (*models.ModelConfig, error) {
	var cfg models.ModelConfig
	if err := s.loadWithFallback(s.configsDir, name, s.defaultConfig, "config", &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrConfigNotFound, name)
		}
		return nil, err
	}
	return &cfg, nil
}

// LoadPrompt reads <prompts>/<name>.yaml, falling back to the default prompt.
func (s *Store) LoadPrompt(name string) (*models.PromptTemplate, error) {
	var tmpl models.PromptTemplate
	if err := s.loadWithFallback(s.promptsDir, name, s.defaultPrompt, "prompt", &tmpl); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrPromptNotFound, name)
		}
		return nil, err
	}
	return &tmpl, nil
}

// LoadPromptFile reads a prompt pinned by a config's prompt_file.
// Unlike LoadPrompt there is no fallback.
func (s *Store) LoadPromptFile(name string) (*models.PromptTemplate, error) {
	path, ok := s.documentPath(s.promptsDir, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrPromptNotFound, name)
	}
	var tmpl models.PromptTemplate
	if err := readYAML(path, &tmpl); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrPromptNotFound, name)
		}
		return nil, err
	}
	return &tmpl, nil
}

// ResolvePrompt picks the template for a generate request.
// A config with prompt_file overrides the "default" URL prompt name.
func (s *Store) ResolvePrompt(promptName string, cfg *models.ModelConfig) (*models.PromptTemplate, error) {
	if promptName == s.defaultPrompt && cfg != nil && cfg.HasPromptFile() {
		return s.LoadPromptFile(cfg.PromptFile)
	}
	return s.LoadPrompt(promptName)
}

// ListModels returns the sorted names of all model configs.
func (s *Store) ListModels() ([]string, error) {
	return listStems(s.configsDir)
}

// ListPrompts returns the sorted names of all prompt templates.
func (s *Store) ListPrompts() ([]string, error) {
	return listStems(s.promptsDir)
}

// Check verifies that both directories and both default documents exist and parse.
func (s *Store) Check() error {
	for _, dir := range []string{s.configsDir, s.promptsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("catalog directory %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("catalog path %s is not a directory", dir)
		}
	}

	var cfg models.ModelConfig
	if err := readYAML(filepath.Join(s.configsDir, s.defaultConfig+documentExt), &cfg); err != nil {
		return fmt.Errorf("default config: %w", err)
	}
	var tmpl models.PromptTemplate
	if err := readYAML(filepath.Join(s.promptsDir, s.defaultPrompt+documentExt), &tmpl); err != nil {
		return fmt.Errorf("default prompt: %w", err)
	}
	return nil
}

func (s *Store) loadWithFallback(dir, name, fallback, kind string, out interface{}) error {
	if path, ok := s.documentPath(dir, name); ok {
		err := readYAML(path, out)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	s.logger.Warn("Document not found, using default",
		zap.String("kind", kind),
		zap.String("requested", name),
		zap.String("default", fallback),
	)
	path, _ := s.documentPath(dir, fallback)
	return readYAML(path, out)
}

// documentPath maps a name to its file. Names that could escape dir are rejected.
func (s *Store) documentPath(dir, name string) (string, bool) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", false
	}
	return filepath.Join(dir, name+documentExt), true
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrInvalidDocument, filepath.Base(path), err)
	}
	return nil
}

func listStems(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != documentExt {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), documentExt))
	}
	sort.Strings(names)
	return names, nil
}
