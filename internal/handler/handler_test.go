package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"story-server/internal/catalog"
	"story-server/internal/handler"
	"story-server/internal/mocks"
	"story-server/internal/models"
	"story-server/internal/reference"
	"story-server/internal/repository"
	"story-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	router      *gin.Engine
	client      *mocks.MockAIClient
	storiesPath string
	root        string
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	logger := zap.NewNop()

	write(t, filepath.Join(root, "configs", "default.yaml"), "model_name: m\nprovider: openai\nmodel_parameters: {}\n")
	write(t, filepath.Join(root, "configs", "creative.yaml"), "model_name: m2\nprovider: openai\nmodel_parameters:\n  temperature: 1.2\n")
	write(t, filepath.Join(root, "prompts", "default.yaml"), "system: \"Narrate.\"\nuser: \"Hero: {hero}{previous_scene}\"\n")
	write(t, filepath.Join(root, "enums.yaml"), "mood: [calm, tense]\n")
	write(t, filepath.Join(root, "taxonomies.json"), `{"genres":["noir"]}`)
	write(t, filepath.Join(root, "db.json"), `{"places":["harbor"]}`)

	storiesPath := filepath.Join(root, "saved_stories.json")
	require.NoError(t, repository.EnsureStoryFile(storiesPath))

	store := catalog.NewStore(filepath.Join(root, "configs"), filepath.Join(root, "prompts"), "default", "default", logger)
	client := mocks.NewMockAIClient(t)
	factory := func(string, string, service.GenerationParams, *zap.Logger) (service.AIClient, error) {
		return client, nil
	}
	generator := service.NewGenerationService(store, factory, nil, time.Minute, logger)
	stories := service.NewStoryService(repository.NewFileStoryRepository(storiesPath, logger), nil, logger)
	documents := reference.NewDocuments(
		filepath.Join(root, "db.json"),
		filepath.Join(root, "enums.yaml"),
		filepath.Join(root, "taxonomies.json"),
		logger,
	)

	router := gin.New()
	handler.NewStoryHandler(generator, stories, store, documents, logger).RegisterRoutes(router)
	return &testEnv{router: router, client: client, storiesPath: storiesPath, root: root}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGenerate_Default(t *testing.T) {
	env := newTestEnv(t)
	env.client.On("GenerateText", mock.Anything, "Narrate.", "Hero: Ada").
		Return("Ada <sailed> & won.", service.UsageInfo{}, nil).Once()

	w := env.do(http.MethodPost, "/generate", `{"hero":"Ada","previous_scene":""}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"Ada <sailed> & won."`, strings.TrimSpace(w.Body.String()))
}

func TestGenerate_NamedConfigFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.client.On("GenerateText", mock.Anything, "Narrate.", "Hero: 7").
		Return("ok", service.UsageInfo{}, nil).Once()

	w := env.do(http.MethodPost, "/generate/unknown/also-unknown", `{"hero":7,"previous_scene":""}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"ok"`, strings.TrimSpace(w.Body.String()))
}

func TestGenerate_ErrorsAreJSONStrings(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/generate", `{"hero":"Ada"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var msg string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Contains(t, msg, "previous_scene")

	w = env.do(http.MethodPost, "/generate", `not json`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Contains(t, msg, "invalid JSON payload")

	env.client.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("", service.UsageInfo{}, models.ErrAIGenerationFailed).Once()
	w = env.do(http.MethodPost, "/generate/creative/default", `{"hero":"Ada","previous_scene":""}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, models.ErrAIGenerationFailed.Error(), msg)
}

func TestGenerateStream(t *testing.T) {
	env := newTestEnv(t)
	env.client.On("GenerateTextStream", mock.Anything, "Narrate.", "Hero: Ada", mock.Anything).
		Return([]string{"Once ", "upon ", "a time"}, nil).Once()

	w := env.do(http.MethodPost, "/stream/generate", `{"hero":"Ada","previous_scene":""}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Once upon a time", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestGenerateStream_ErrorBeforeFirstChunk(t *testing.T) {
	env := newTestEnv(t)
	env.client.On("GenerateTextStream", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(service.UsageInfo{}, models.ErrAIGenerationFailed).Once()

	w := env.do(http.MethodPost, "/stream/generate/default/default", `{"hero":"Ada","previous_scene":""}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var msg string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, models.ErrAIGenerationFailed.Error(), msg)
}

func TestListModelsAndPrompts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["creative","default"]`, w.Body.String())

	w = env.do(http.MethodGet, "/prompts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["default"]`, w.Body.String())
}

func TestReferenceDocuments(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/db", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"places":["harbor"]}`, w.Body.String())

	w = env.do(http.MethodGet, "/enums", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"mood":["calm","tense"]}`, w.Body.String())

	w = env.do(http.MethodGet, "/taxonomies", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"genres":["noir"]}`, w.Body.String())

	write(t, filepath.Join(env.root, "taxonomies.json"), `{oops`)
	w = env.do(http.MethodGet, "/taxonomies", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestSaveListDeleteStories(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/save", `{"username":"ada","id":"s1","story":{"title":"Harbor"},"serialized_story":"<harbor/>"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Saved", w.Body.String())

	w = env.do(http.MethodPost, "/save", `{"username":"ada","id":12345678901234567890,"story":"numeric","serialized_story":"n"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/stories/ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[["12345678901234567890","numeric"],["s1",{"title":"Harbor"}]]`, w.Body.String())

	w = env.do(http.MethodGet, "/serialized-stories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ada":[["12345678901234567890","n"],["s1","<harbor/>"]]}`, w.Body.String())

	w = env.do(http.MethodGet, "/stories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ada":[["12345678901234567890","numeric"],["s1",{"title":"Harbor"}]]}`, w.Body.String())

	w = env.do(http.MethodPost, "/delete", `{"username":"ada","id":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Deleted", w.Body.String())

	w = env.do(http.MethodGet, "/serialized-stories/ada", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[["12345678901234567890","n"]]`, w.Body.String())

	w = env.do(http.MethodGet, "/stories/nobody", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSave_LargeNumbersInStoriesAreKept(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/save", `{"username":"alice","id":1,"story":{"seed":12345678901234567891},"serialized_story":"a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodPost, "/save", `{"username":"bob","id":2,"story":"b","serialized_story":"b"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/stories/alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `[["1",{"seed":12345678901234567891}]]`, strings.TrimSpace(w.Body.String()))

	data, err := os.ReadFile(env.storiesPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"seed":12345678901234567891}`)
}

func TestSave_PayloadErrorLeavesFileUntouched(t *testing.T) {
	env := newTestEnv(t)
	before, err := os.ReadFile(env.storiesPath)
	require.NoError(t, err)

	for _, body := range []string{
		`{"username":"ada","story":"s","serialized_story":"x"}`,
		`{"username":"ada","id":"s1","story":"","serialized_story":"x"}`,
		`{"username":"ada","id":0,"story":"s","serialized_story":"x"}`,
		`[1,2]`,
		`garbage`,
	} {
		w := env.do(http.MethodPost, "/save", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Payload Error", w.Body.String(), body)
	}

	w := env.do(http.MethodPost, "/delete", `{"username":"ada"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payload Error", w.Body.String())

	after, err := os.ReadFile(env.storiesPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDelete_UnknownStorySucceeds(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/save", `{"username":"ada","id":"s1","story":"a","serialized_story":"a"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/delete", `{"username":"ada","id":"missing"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Deleted", w.Body.String())

	w = env.do(http.MethodGet, "/serialized-stories/ada", "")
	assert.JSONEq(t, `[["s1","a"]]`, w.Body.String())
}

func TestStories_RepositoryFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := mocks.NewMockStoryRepository(t)
	repo.On("ListAll", mock.Anything).Return(nil, errors.New("disk gone")).Once()
	repo.On("Save", mock.Anything, "ada", "s1", mock.Anything).Return(errors.New("disk gone")).Once()

	router := gin.New()
	stories := service.NewStoryService(repo, nil, zap.NewNop())
	handler.NewStoryHandler(nil, stories, nil, nil, zap.NewNop()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stories", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"disk gone"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/save",
		strings.NewReader(`{"username":"ada","id":"s1","story":"a","serialized_story":"a"}`)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"disk gone"}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(http.MethodHead, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
