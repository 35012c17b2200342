package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"story-server/internal/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeLayout(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"configs/default.yaml": "model_name: m\nprovider: openai\nmodel_parameters: {}\n",
		"prompts/default.yaml": "system: s\nuser: u\n",
		"enums.yaml":           "mood: [calm]\n",
		"taxonomies.json":      "{}",
		"db.json":              "{}",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return &config.Config{
		Env:                "test",
		CORSAllowedOrigins: "*",
		ConfigsDir:         filepath.Join(root, "configs"),
		PromptsDir:         filepath.Join(root, "prompts"),
		DefaultConfigName:  "default",
		DefaultPromptName:  "default",
		EnumsPath:          filepath.Join(root, "enums.yaml"),
		TaxonomiesPath:     filepath.Join(root, "taxonomies.json"),
		ReferenceDBPath:    filepath.Join(root, "db.json"),
		SavedStoriesPath:   filepath.Join(root, "saved_stories.json"),
		StoreBackend:       config.StoreBackendFile,
	}
}

func TestStartupCheck(t *testing.T) {
	c := writeLayout(t)
	require.NoError(t, startupCheck(c, zap.NewNop()))

	require.NoError(t, os.Remove(c.EnumsPath))
	require.NoError(t, os.Remove(filepath.Join(c.PromptsDir, "default.yaml")))
	err := startupCheck(c, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enums.yaml")
	assert.Contains(t, err.Error(), "default prompt")
}

func TestNewAppFileBackendAndRouter(t *testing.T) {
	c := writeLayout(t)

	a, err := newApp(context.Background(), c, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	_, err = os.Stat(c.SavedStoriesPath)
	require.NoError(t, err, "story file is created on startup")

	router := newRouter(c, zap.NewNop(), a)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["default"]`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://editor.local")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadPayload(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(`{"previous_scene":"","id":12}`))

	payload, err := readPayload(cmd, "-")
	require.NoError(t, err)
	assert.Equal(t, "", payload["previous_scene"])
	assert.Equal(t, json.Number("12"), payload["id"])

	cmd.SetIn(strings.NewReader(`[1]`))
	_, err = readPayload(cmd, "-")
	assert.Error(t, err)

	cmd.SetIn(strings.NewReader(`null`))
	_, err = readPayload(cmd, "-")
	assert.Error(t, err)
}
