package repository_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"story-server/internal/models"
	"story-server/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFileRepo(t *testing.T) (repository.StoryRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saved_stories.json")
	require.NoError(t, repository.EnsureStoryFile(path))
	return repository.NewFileStoryRepository(path, zap.NewNop()), path
}

func TestEnsureStoryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_stories.json")
	require.NoError(t, repository.EnsureStoryFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	require.NoError(t, os.WriteFile(path, []byte(`{"u":{}}`), 0o644))
	require.NoError(t, repository.EnsureStoryFile(path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"u":{}}`, string(data), "existing file must not be replaced")
}

func TestFileStoryRepository_SaveListDelete(t *testing.T) {
	repo, path := newFileRepo(t)
	ctx := context.Background()

	record := models.StoryRecord{Story: map[string]interface{}{"title": "A"}, SerializedStory: "A-ser"}
	require.NoError(t, repo.Save(ctx, "u1", "s1", record))

	stories, err := repo.ListUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]models.StoryRecord{"s1": record}, stories)

	var onDisk map[string]map[string]map[string]interface{}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, "A-ser", onDisk["u1"]["s1"]["serialized_story"])
	assert.Equal(t, map[string]interface{}{"title": "A"}, onDisk["u1"]["s1"]["story"])

	require.NoError(t, repo.Delete(ctx, "u1", "s1"))
	stories, err = repo.ListUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, stories)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, "u1", "user entry stays after the last story is removed")
}

func TestFileStoryRepository_NoTempFilesLeft(t *testing.T) {
	repo, path := newFileRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, "u1", fmt.Sprintf("s%d", i), models.StoryRecord{Story: i, SerializedStory: "x"}))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestFileStoryRepository_InvalidDocument(t *testing.T) {
	repo, path := newFileRepo(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := repo.ListAll(context.Background())
	assert.ErrorIs(t, err, models.ErrInvalidDocument)

	err = repo.Save(context.Background(), "u1", "s1", models.StoryRecord{Story: "a", SerializedStory: "a"})
	assert.ErrorIs(t, err, models.ErrInvalidDocument)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestFileStoryRepository_MissingFile(t *testing.T) {
	repo := repository.NewFileStoryRepository(filepath.Join(t.TempDir(), "absent.json"), zap.NewNop())
	_, err := repo.ListAll(context.Background())
	assert.Error(t, err)
}

func TestFileStoryRepository_ConcurrentWriters(t *testing.T) {
	repo, _ := newFileRepo(t)
	ctx := context.Background()

	const (
		users   = 4
		stories = 10
	)
	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		for s := 0; s < stories; s++ {
			wg.Add(1)
			go func(u, s int) {
				defer wg.Done()
				assert.NoError(t, repo.Save(ctx, fmt.Sprintf("user-%d", u), fmt.Sprintf("story-%d", s),
					models.StoryRecord{Story: s, SerializedStory: "x"}))
			}(u, s)
		}
	}
	// Readers run alongside the writers.
	for r := 0; r < 5; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ListAll(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, users)
	for username, userStories := range all {
		assert.Len(t, userStories, stories, username)
	}
}

func TestFileStoryRepository_OtherUsersKeptVerbatim(t *testing.T) {
	repo, path := newFileRepo(t)
	ctx := context.Background()

	seed := json.Number("12345678901234567891")
	require.NoError(t, repo.Save(ctx, "alice", "1", models.StoryRecord{
		Story:           map[string]interface{}{"seed": seed},
		SerializedStory: "a",
	}))
	require.NoError(t, repo.Save(ctx, "bob", "2", models.StoryRecord{Story: "b", SerializedStory: "b"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"seed":12345678901234567891}`)

	alice, err := repo.ListUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"seed": seed}, alice["1"].Story)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"seed": seed}, all["alice"]["1"].Story)
}

func TestFileStoryRepository_KeepsUnknownRecordKeys(t *testing.T) {
	repo, path := newFileRepo(t)
	ctx := context.Background()

	existing := `{"alice":{"1":{"story":{"n":9007199254740993},"serialized_story":"a","saved_by":"editor"}}}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	require.NoError(t, repo.Save(ctx, "bob", "2", models.StoryRecord{Story: "b", SerializedStory: "b"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"saved_by":"editor"`)
	assert.Contains(t, string(data), `{"n":9007199254740993}`)

	require.NoError(t, repo.Save(ctx, "alice", "1", models.StoryRecord{Story: "rewritten", SerializedStory: "r"}))

	var onDisk map[string]map[string]map[string]interface{}
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, map[string]interface{}{
		"story":            "rewritten",
		"serialized_story": "r",
		"saved_by":         "editor",
	}, onDisk["alice"]["1"])
}

func TestFileStoryRepository_HTMLNotEscaped(t *testing.T) {
	repo, path := newFileRepo(t)

	require.NoError(t, repo.Save(context.Background(), "u1", "s1", models.StoryRecord{Story: "a & b", SerializedStory: "<scene/>"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"serialized_story":"<scene/>"`)
	assert.Contains(t, string(data), `"story":"a & b"`)
}

func TestFileStoryRepository_InvalidSerializedStory(t *testing.T) {
	repo, path := newFileRepo(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"u1":{"s1":{"story":"a","serialized_story":7}}}`), 0o644))

	_, err := repo.ListUser(context.Background(), "u1")
	assert.ErrorIs(t, err, models.ErrInvalidDocument)
}
