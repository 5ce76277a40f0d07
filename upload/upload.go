// Package upload coordinates chunked uploads: a session is opened on the
// object store, parts are forwarded one request at a time, and completion
// assembles the object and records it in the catalog.
package upload

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/streamgate/catalog"
	"github.com/kbukum/streamgate/database"
	apperrors "github.com/kbukum/streamgate/errors"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/objectstore"
	"github.com/kbukum/streamgate/observability"
)

// Stage names reported to metrics.
const (
	StageBegin    = "begin"
	StagePart     = "part"
	StageComplete = "complete"
	StageAbort    = "abort"
)

// EmptyChunkMessage is reported for a missing or zero-length part.
const EmptyChunkMessage = "Empty chunk received"

// Session identifies an open multipart upload.
type Session struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"fileKey"`
}

// PartReceipt is returned for each stored part.
type PartReceipt struct {
	PartNumber int32  `json:"PartNumber"`
	ETag       string `json:"ETag"`
}

// CompleteResult is returned after a successful finalize.
type CompleteResult struct {
	Location string
	Record   *catalog.VideoRecord
}

// Options tunes the coordinator.
type Options struct {
	// AbortOnCompleteFailure aborts the session when finalizing fails.
	AbortOnCompleteFailure bool `yaml:"abort_on_complete_failure" mapstructure:"abort_on_complete_failure"`

	Metrics *observability.Metrics `yaml:"-" mapstructure:"-"`
}

// Coordinator drives multipart uploads. It holds no per-session state.
type Coordinator struct {
	store   objectstore.Client
	records catalog.Store
	opts    Options
	log     *logger.Logger
}

// New creates a coordinator.
func New(store objectstore.Client, records catalog.Store, opts Options, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Coordinator{
		store:   store,
		records: records,
		opts:    opts,
		log:     log.WithComponent("upload"),
	}
}

// Begin opens a session whose object key is the trimmed file name.
func (c *Coordinator) Begin(ctx context.Context, fileName, fileType string) (sess Session, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanUploadBegin)
	defer func() {
		c.opts.Metrics.RecordUploadStage(ctx, StageBegin, err)
		observability.EndSpan(span, err)
	}()

	key := strings.TrimSpace(fileName)
	if key == "" {
		return Session{}, apperrors.MissingField("fileName")
	}
	span.SetAttributes(attribute.String(observability.AttrObjectKey, key))

	id, err := c.store.CreateMultipartUpload(ctx, key, fileType)
	if err != nil {
		c.log.WithContext(ctx).Error("failed to begin upload", logger.MergeWithError(map[string]interface{}{
			logger.FieldObjectKey: key,
		}, err))
		return Session{}, apperrors.Upstream("start the upload", err)
	}

	c.log.WithContext(ctx).Info("upload session started", map[string]interface{}{
		logger.FieldObjectKey: key,
		logger.FieldUploadID:  id,
	})
	return Session{UploadID: id, Key: key}, nil
}

// UploadPart stores payload as part partIndex+1. Validation happens before
// any backend call.
func (c *Coordinator) UploadPart(ctx context.Context, uploadID, key string, partIndex int, payload []byte) (receipt PartReceipt, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanUploadPart,
		attribute.String(observability.AttrUploadID, uploadID),
		attribute.Int(observability.AttrPartNumber, partIndex+1),
	)
	defer func() {
		c.opts.Metrics.RecordPart(ctx, len(payload), err)
		observability.EndSpan(span, err)
	}()

	if len(payload) == 0 {
		return PartReceipt{}, apperrors.Validation(EmptyChunkMessage)
	}
	if err := requireSession(uploadID, key); err != nil {
		return PartReceipt{}, err
	}
	if partIndex < 0 {
		return PartReceipt{}, apperrors.InvalidInput("chunkIndex", "chunkIndex must be >= 0")
	}
	// Part numbers are int32 on the wire; a wider index would wrap onto
	// another part.
	if partIndex >= math.MaxInt32 {
		return PartReceipt{}, apperrors.InvalidInput("chunkIndex", fmt.Sprintf("chunkIndex must be < %d", math.MaxInt32))
	}

	number := int32(partIndex + 1)
	etag, err := c.store.UploadPart(ctx, key, uploadID, number, payload)
	if err != nil {
		c.log.WithContext(ctx).Error("failed to upload part", logger.MergeWithError(map[string]interface{}{
			logger.FieldObjectKey:  key,
			logger.FieldUploadID:   uploadID,
			logger.FieldPartNumber: number,
		}, err))
		return PartReceipt{}, apperrors.Upstream("store the part", err)
	}

	c.log.WithContext(ctx).Debug("part stored", map[string]interface{}{
		logger.FieldUploadID:   uploadID,
		logger.FieldPartNumber: number,
		"size":                 len(payload),
	})
	return PartReceipt{PartNumber: number, ETag: etag}, nil
}

// Complete assembles the session's parts in ascending part order and
// records the object in the catalog.
func (c *Coordinator) Complete(ctx context.Context, uploadID, key string, parts []objectstore.Part, displayName string) (res CompleteResult, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanUploadFinish,
		attribute.String(observability.AttrUploadID, uploadID),
		attribute.String(observability.AttrObjectKey, key),
	)
	defer func() {
		c.opts.Metrics.RecordUploadStage(ctx, StageComplete, err)
		observability.EndSpan(span, err)
	}()

	if err := requireSession(uploadID, key); err != nil {
		return CompleteResult{}, err
	}

	sorted := make([]objectstore.Part, len(parts))
	copy(sorted, parts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	log := c.log.WithContext(ctx).WithFields(map[string]interface{}{
		logger.FieldObjectKey: key,
		logger.FieldUploadID:  uploadID,
		logger.FieldPartCount: len(sorted),
	})

	location, err := c.store.CompleteMultipartUpload(ctx, key, uploadID, sorted)
	if err != nil {
		log.Error("failed to complete upload", logger.ErrorFields("complete_upload", err))
		if c.opts.AbortOnCompleteFailure {
			if abortErr := c.store.AbortMultipartUpload(context.WithoutCancel(ctx), key, uploadID); abortErr != nil {
				log.Warn("abort after failed completion also failed", logger.ErrorFields("abort_upload", abortErr))
			} else {
				log.Info("upload aborted after failed completion")
			}
		}
		return CompleteResult{}, apperrors.Upstream("complete the upload", err)
	}

	rec := &catalog.VideoRecord{
		Key:          key,
		Location:     location,
		OriginalName: displayName,
	}
	if err := c.createRecord(ctx, rec); err != nil {
		log.Error("object assembled but catalog write failed", logger.MergeWithError(map[string]interface{}{
			"location": location,
		}, err))
		c.opts.Metrics.RecordCatalogWrite(ctx, err)
		return CompleteResult{}, database.FromDatabase(err, "video")
	}
	c.opts.Metrics.RecordCatalogWrite(ctx, nil)

	log.Info("upload completed", map[string]interface{}{
		logger.FieldVideoID: rec.ID.String(),
		"location":          location,
	})
	return CompleteResult{Location: location, Record: rec}, nil
}

func (c *Coordinator) createRecord(ctx context.Context, rec *catalog.VideoRecord) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanCatalogCreate,
		attribute.String(observability.AttrObjectKey, rec.Key),
	)
	defer func() { observability.EndSpan(span, err) }()
	return c.records.Create(ctx, rec)
}

// Abort discards an open session and its parts.
func (c *Coordinator) Abort(ctx context.Context, uploadID, key string) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanUploadAbort,
		attribute.String(observability.AttrUploadID, uploadID),
	)
	defer func() {
		c.opts.Metrics.RecordUploadStage(ctx, StageAbort, err)
		observability.EndSpan(span, err)
	}()

	if err := requireSession(uploadID, key); err != nil {
		return err
	}
	if err := c.store.AbortMultipartUpload(ctx, key, uploadID); err != nil {
		c.log.WithContext(ctx).Error("failed to abort upload", logger.MergeWithError(map[string]interface{}{
			logger.FieldObjectKey: key,
			logger.FieldUploadID:  uploadID,
		}, err))
		return apperrors.Upstream("abort the upload", err)
	}
	c.log.WithContext(ctx).Info("upload aborted", map[string]interface{}{
		logger.FieldObjectKey: key,
		logger.FieldUploadID:  uploadID,
	})
	return nil
}

func requireSession(uploadID, key string) error {
	if strings.TrimSpace(uploadID) == "" {
		return apperrors.MissingField("uploadId")
	}
	if strings.TrimSpace(key) == "" {
		return apperrors.MissingField("fileKey")
	}
	return nil
}
