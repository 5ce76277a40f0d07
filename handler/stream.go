package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/streamgate/errors"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/server"
)

// Stream serves one window of the video as a 206.
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.gateway.Open(ctx, c.Param("id"), c.GetHeader("Range"))
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrCodeRangeNotSatisfiable {
			if total, ok := appErr.Details["total"]; ok {
				c.Header("Content-Range", fmt.Sprintf("bytes */%v", total))
			}
		}
		respond(c, err)
		return
	}

	header := c.Writer.Header()
	for k, v := range s.Headers() {
		header[k] = v
	}
	c.Status(http.StatusPartialContent)
	c.Writer.WriteHeaderNow()

	// Headers are out, so a failed copy can only end the response early.
	n, err := s.WriteTo(c.Writer)
	if err != nil {
		h.log.WithContext(ctx).Warn("stream interrupted", logger.MergeWithError(map[string]interface{}{
			logger.FieldVideoID:      c.Param("id"),
			logger.FieldRangeStart:   s.Start,
			logger.FieldRangeEnd:     s.End,
			logger.FieldBytesWritten: n,
		}, err))
		_ = c.Error(err)
		c.Abort()
	}
}

// ListVideos returns catalog records, optionally filtered by name.
func (h *Handler) ListVideos(c *gin.Context) {
	records, err := h.query.ListVideos(c.Request.Context(), c.Query("name"))
	if err != nil {
		respond(c, err)
		return
	}
	server.RespondOK(c, gin.H{
		"message": "All Data Fetched Successfully",
		"data":    records,
	})
}
