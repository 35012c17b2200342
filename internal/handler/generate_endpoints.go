package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	modeSync   = "sync"
	modeStream = "stream"
)

var errPayloadNotObject = errors.New("request body must be a JSON object")

func (h *StoryHandler) generateDefault(c *gin.Context) {
	configName, promptName := h.generator.DefaultNames()
	h.doGenerate(c, configName, promptName)
}

func (h *StoryHandler) generate(c *gin.Context) {
	h.doGenerate(c, c.Param("config"), c.Param("prompt"))
}

func (h *StoryHandler) doGenerate(c *gin.Context, configName, promptName string) {
	payload, err := decodeObject(c)
	if err != nil {
		h.handleGenerateError(c, modeSync, err)
		return
	}

	text, err := h.generator.Generate(c.Request.Context(), configName, promptName, payload)
	if err != nil {
		h.handleGenerateError(c, modeSync, err)
		return
	}

	generateRequestsTotal.WithLabelValues(modeSync, "success").Inc()
	c.PureJSON(http.StatusOK, text)
}

func (h *StoryHandler) generateStreamDefault(c *gin.Context) {
	configName, promptName := h.generator.DefaultNames()
	h.doGenerateStream(c, configName, promptName)
}

func (h *StoryHandler) generateStream(c *gin.Context) {
	h.doGenerateStream(c, c.Param("config"), c.Param("prompt"))
}

// doGenerateStream writes the reply as chunked text/plain. Errors raised
// before the first chunk get the regular 500 response; later errors can
// only end the stream.
func (h *StoryHandler) doGenerateStream(c *gin.Context, configName, promptName string) {
	payload, err := decodeObject(c)
	if err != nil {
		h.handleGenerateError(c, modeStream, err)
		return
	}

	started := false
	ctx := c.Request.Context()
	err = h.generator.GenerateStream(ctx, configName, promptName, payload, func(chunk string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("X-Content-Type-Options", "nosniff")
			c.Header("Cache-Control", "no-cache")
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})

	if err == nil {
		generateRequestsTotal.WithLabelValues(modeStream, "success").Inc()
		return
	}
	if !started {
		h.handleGenerateError(c, modeStream, err)
		return
	}
	generateRequestsTotal.WithLabelValues(modeStream, "interrupted").Inc()
	h.logger.Warn("Stream ended early", zap.String("config", configName), zap.String("prompt", promptName), zap.Error(err))
	_ = c.Error(err)
}

// decodeObject reads the request body as a JSON object. Numbers are kept as
// json.Number so ids and values keep their original text.
func decodeObject(c *gin.Context) (map[string]interface{}, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if payload == nil {
		return nil, errPayloadNotObject
	}
	return payload, nil
}
