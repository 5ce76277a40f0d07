package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/streamgate/errors"
	"github.com/kbukum/streamgate/objectstore"
	"github.com/kbukum/streamgate/server"
	"github.com/kbukum/streamgate/upload"
)

// StartUploadRequest is the body of POST /start-upload.
type StartUploadRequest struct {
	FileName string `json:"fileName" validate:"required"`
	FileType string `json:"fileType"`
}

// SessionRequest identifies an open upload.
type SessionRequest struct {
	UploadID string `json:"uploadId" validate:"required"`
	FileKey  string `json:"fileKey" validate:"required"`
}

// CompleteUploadRequest is the body of POST /complete-upload.
type CompleteUploadRequest struct {
	SessionRequest
	Parts    []upload.PartReceipt `json:"parts"`
	FileName string               `json:"fileName"`
}

// StartUpload opens a multipart session.
func (h *Handler) StartUpload(c *gin.Context) {
	var req StartUploadRequest
	if err := bindJSON(c, &req); err != nil {
		respond(c, err)
		return
	}
	sess, err := h.uploads.Begin(c.Request.Context(), req.FileName, req.FileType)
	if err != nil {
		respond(c, err)
		return
	}
	server.RespondOK(c, gin.H{"uploadId": sess.UploadID, "fileKey": sess.Key})
}

// UploadChunk stores one multipart form chunk as a part.
func (h *Handler) UploadChunk(c *gin.Context) {
	payload, err := readChunk(c)
	if err != nil {
		respond(c, err)
		return
	}
	if len(payload) == 0 {
		respond(c, apperrors.Validation(upload.EmptyChunkMessage))
		return
	}

	index, err := strconv.Atoi(strings.TrimSpace(c.PostForm("chunkIndex")))
	if err != nil {
		respond(c, apperrors.InvalidInput("chunkIndex", "chunkIndex must be an integer"))
		return
	}

	receipt, err := h.uploads.UploadPart(c.Request.Context(), c.PostForm("uploadId"), c.PostForm("fileKey"), index, payload)
	if err != nil {
		respond(c, err)
		return
	}
	server.RespondOK(c, gin.H{"ETag": receipt.ETag})
}

// readChunk returns the "chunk" file contents. A missing file yields an
// empty payload.
func readChunk(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("chunk")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, apperrors.Validation("Request must be multipart/form-data").WithCause(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// CompleteUpload assembles the session and records the video.
func (h *Handler) CompleteUpload(c *gin.Context) {
	var req CompleteUploadRequest
	if err := bindJSON(c, &req); err != nil {
		respond(c, err)
		return
	}

	parts := make([]objectstore.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		parts = append(parts, objectstore.Part{Number: p.PartNumber, ETag: p.ETag})
	}
	name := req.FileName
	if strings.TrimSpace(name) == "" {
		name = req.FileKey
	}

	res, err := h.uploads.Complete(c.Request.Context(), req.UploadID, req.FileKey, parts, name)
	if err != nil {
		respond(c, err)
		return
	}
	server.RespondOK(c, gin.H{"location": res.Location})
}

// AbortUpload discards an open session.
func (h *Handler) AbortUpload(c *gin.Context) {
	var req SessionRequest
	if err := bindJSON(c, &req); err != nil {
		respond(c, err)
		return
	}
	if err := h.uploads.Abort(c.Request.Context(), req.UploadID, req.FileKey); err != nil {
		respond(c, err)
		return
	}
	server.RespondOK(c, nil)
}
