package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"story-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Generator produces model output for a request payload.
type Generator interface {
	DefaultNames() (configName, promptName string)
	Generate(ctx context.Context, configName, promptName string, payload map[string]interface{}) (string, error)
	GenerateStream(ctx context.Context, configName, promptName string, payload map[string]interface{}, chunkHandler func(string) error) error
}

// StoryManager lists, saves and deletes user stories.
type StoryManager interface {
	ListAll(ctx context.Context, serialized bool) (map[string][]models.StoryEntry, error)
	ListUser(ctx context.Context, username string, serialized bool) ([]models.StoryEntry, error)
	Save(ctx context.Context, req models.SaveStoryRequest) error
	Delete(ctx context.Context, req models.DeleteStoryRequest) error
}

// CatalogLister lists the available model configs and prompts.
type CatalogLister interface {
	ListModels() ([]string, error)
	ListPrompts() ([]string, error)
}

// ReferenceDocuments serves the static editor documents.
type ReferenceDocuments interface {
	DB() (json.RawMessage, error)
	Enums() (json.RawMessage, error)
	Taxonomies() (json.RawMessage, error)
}

// StoryHandler serves the HTTP API.
type StoryHandler struct {
	generator Generator
	stories   StoryManager
	catalog   CatalogLister
	documents ReferenceDocuments
	logger    *zap.Logger
}

func NewStoryHandler(generator Generator, stories StoryManager, catalog CatalogLister, documents ReferenceDocuments, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		generator: generator,
		stories:   stories,
		catalog:   catalog,
		documents: documents,
		logger:    logger.Named("StoryHandler"),
	}
}

func (h *StoryHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/generate", h.generateDefault)
	router.POST("/generate/:config/:prompt", h.generate)

	streamGroup := router.Group("/stream")
	{
		streamGroup.POST("/generate", h.generateStreamDefault)
		streamGroup.POST("/generate/:config/:prompt", h.generateStream)
	}

	router.GET("/models", h.listModels)
	router.GET("/prompts", h.listPrompts)
	router.GET("/db", h.getDB)
	router.GET("/enums", h.getEnums)
	router.GET("/taxonomies", h.getTaxonomies)

	router.GET("/stories", h.listStories)
	router.GET("/stories/:username", h.listUserStories)
	router.GET("/serialized-stories", h.listSerializedStories)
	router.GET("/serialized-stories/:username", h.listUserSerializedStories)
	router.POST("/save", h.saveStory)
	router.POST("/delete", h.deleteStory)

	router.GET("/health", h.health)
	router.HEAD("/health", h.health)
}

func (h *StoryHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
