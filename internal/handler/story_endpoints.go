package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"story-server/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *StoryHandler) listStories(c *gin.Context) {
	h.respondAllStories(c, false)
}

func (h *StoryHandler) listSerializedStories(c *gin.Context) {
	h.respondAllStories(c, true)
}

func (h *StoryHandler) listUserStories(c *gin.Context) {
	h.respondUserStories(c, false)
}

func (h *StoryHandler) listUserSerializedStories(c *gin.Context) {
	h.respondUserStories(c, true)
}

func (h *StoryHandler) respondAllStories(c *gin.Context, serialized bool) {
	stories, err := h.stories.ListAll(c.Request.Context(), serialized)
	if err != nil {
		h.handleDocumentError(c, "stories", err)
		return
	}
	c.PureJSON(http.StatusOK, stories)
}

func (h *StoryHandler) respondUserStories(c *gin.Context, serialized bool) {
	entries, err := h.stories.ListUser(c.Request.Context(), c.Param("username"), serialized)
	if err != nil {
		h.handleDocumentError(c, "stories", err)
		return
	}
	c.PureJSON(http.StatusOK, entries)
}

func (h *StoryHandler) saveStory(c *gin.Context) {
	var req models.SaveStoryRequest
	if err := decodeBody(c, &req); err != nil {
		h.handleStoryError(c, "save", err)
		return
	}
	if err := h.stories.Save(c.Request.Context(), req); err != nil {
		h.handleStoryError(c, "save", err)
		return
	}
	storyOperationsTotal.WithLabelValues("save", "success").Inc()
	c.String(http.StatusOK, "Saved")
}

func (h *StoryHandler) deleteStory(c *gin.Context) {
	var req models.DeleteStoryRequest
	if err := decodeBody(c, &req); err != nil {
		h.handleStoryError(c, "delete", err)
		return
	}
	if err := h.stories.Delete(c.Request.Context(), req); err != nil {
		h.handleStoryError(c, "delete", err)
		return
	}
	storyOperationsTotal.WithLabelValues("delete", "success").Inc()
	c.String(http.StatusOK, "Deleted")
}

// decodeBody decodes a JSON request body into out. Any decoding failure is
// reported as models.ErrInvalidPayload.
func decodeBody(c *gin.Context, out interface{}) error {
	body, err := c.GetRawData()
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}
	return nil
}
