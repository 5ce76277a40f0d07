// Package handler binds the public HTTP routes to the upload coordinator,
// the streaming gateway and the catalog query.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamgate/catalog"
	apperrors "github.com/kbukum/streamgate/errors"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/server"
	"github.com/kbukum/streamgate/stream"
	"github.com/kbukum/streamgate/upload"
	"github.com/kbukum/streamgate/validation"
)

// VideoHandler is the set of routes the gateway serves.
type VideoHandler interface {
	StartUpload(c *gin.Context)
	UploadChunk(c *gin.Context)
	CompleteUpload(c *gin.Context)
	AbortUpload(c *gin.Context)
	Stream(c *gin.Context)
	ListVideos(c *gin.Context)
}

// Handler implements VideoHandler.
type Handler struct {
	uploads *upload.Coordinator
	gateway *stream.Gateway
	query   *catalog.Query
	log     *logger.Logger
}

var _ VideoHandler = (*Handler)(nil)

// New creates a handler over the three core services.
func New(uploads *upload.Coordinator, gateway *stream.Gateway, query *catalog.Query, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handler{
		uploads: uploads,
		gateway: gateway,
		query:   query,
		log:     log.WithComponent("handler"),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/start-upload", h.StartUpload)
	r.POST("/upload-chunk", h.UploadChunk)
	r.POST("/complete-upload", h.CompleteUpload)
	r.POST("/abort-upload", h.AbortUpload)
	r.GET("/stream/:id", h.Stream)
	r.GET("/get-all-videos", h.ListVideos)
}

// bindJSON decodes and validates the body. An oversized body keeps its
// *http.MaxBytesError so the response is a 413.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return apperrors.Validation("Request body must be valid JSON").WithCause(err)
	}
	return validation.Validate(dst)
}

func respond(c *gin.Context, err error) {
	server.RespondWithError(c, err)
}
