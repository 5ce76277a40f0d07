package objectstore

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/streamgate/observability"
)

// Instrument wraps c so every call is traced and timed. metrics may be nil.
func Instrument(c Client, metrics *observability.Metrics) Client {
	if _, ok := c.(*instrumented); ok {
		return c
	}
	return &instrumented{next: c, metrics: metrics}
}

type instrumented struct {
	next    Client
	metrics *observability.Metrics
}

func (i *instrumented) observe(ctx context.Context, op, key string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs,
		attribute.String(observability.AttrOperation, op),
		attribute.String(observability.AttrObjectKey, key),
	)
	ctx, span := observability.StartSpan(ctx, observability.SpanObjectStore+"."+op, attrs...)
	start := time.Now()
	return ctx, func(err error) {
		i.metrics.RecordBackend(ctx, op, time.Since(start), err)
		observability.EndSpan(span, err)
	}
}

func (i *instrumented) CreateMultipartUpload(ctx context.Context, key, contentType string) (id string, err error) {
	ctx, done := i.observe(ctx, "create_multipart_upload", key)
	defer func() { done(err) }()
	return i.next.CreateMultipartUpload(ctx, key, contentType)
}

func (i *instrumented) UploadPart(ctx context.Context, key, uploadID string, number int32, body []byte) (etag string, err error) {
	ctx, done := i.observe(ctx, "upload_part", key,
		attribute.String(observability.AttrUploadID, uploadID),
		attribute.Int(observability.AttrPartNumber, int(number)),
	)
	defer func() { done(err) }()
	return i.next.UploadPart(ctx, key, uploadID, number, body)
}

func (i *instrumented) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []Part) (location string, err error) {
	ctx, done := i.observe(ctx, "complete_multipart_upload", key,
		attribute.String(observability.AttrUploadID, uploadID),
		attribute.Int("upload.part_count", len(parts)),
	)
	defer func() { done(err) }()
	return i.next.CompleteMultipartUpload(ctx, key, uploadID, parts)
}

func (i *instrumented) AbortMultipartUpload(ctx context.Context, key, uploadID string) (err error) {
	ctx, done := i.observe(ctx, "abort_multipart_upload", key,
		attribute.String(observability.AttrUploadID, uploadID),
	)
	defer func() { done(err) }()
	return i.next.AbortMultipartUpload(ctx, key, uploadID)
}

func (i *instrumented) HeadObject(ctx context.Context, key string) (info ObjectInfo, err error) {
	ctx, done := i.observe(ctx, "head_object", key)
	defer func() { done(err) }()
	return i.next.HeadObject(ctx, key)
}

// GetObjectRange's span covers opening the read, not draining the body.
func (i *instrumented) GetObjectRange(ctx context.Context, key string, start, end int64) (body io.ReadCloser, err error) {
	ctx, done := i.observe(ctx, "get_object_range", key,
		attribute.Int64(observability.AttrRangeStart, start),
		attribute.Int64(observability.AttrRangeEnd, end),
	)
	defer func() { done(err) }()
	return i.next.GetObjectRange(ctx, key, start, end)
}

// Ping forwards to the wrapped client when it supports probing.
func (i *instrumented) Ping(ctx context.Context) error {
	if p, ok := i.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
