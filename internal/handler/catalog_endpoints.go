package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) listModels(c *gin.Context) {
	names, err := h.catalog.ListModels()
	if err != nil {
		h.handleDocumentError(c, "models", err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *StoryHandler) listPrompts(c *gin.Context) {
	names, err := h.catalog.ListPrompts()
	if err != nil {
		h.handleDocumentError(c, "prompts", err)
		return
	}
	c.JSON(http.StatusOK, names)
}

func (h *StoryHandler) getDB(c *gin.Context) {
	h.respondDocument(c, "db", h.documents.DB)
}

func (h *StoryHandler) getEnums(c *gin.Context) {
	h.respondDocument(c, "enums", h.documents.Enums)
}

func (h *StoryHandler) getTaxonomies(c *gin.Context) {
	h.respondDocument(c, "taxonomies", h.documents.Taxonomies)
}

func (h *StoryHandler) respondDocument(c *gin.Context, name string, load func() (json.RawMessage, error)) {
	raw, err := load()
	if err != nil {
		h.handleDocumentError(c, name, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}
