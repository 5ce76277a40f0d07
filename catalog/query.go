package catalog

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/streamgate/database"
	apperrors "github.com/kbukum/streamgate/errors"
	"github.com/kbukum/streamgate/logger"
	"github.com/kbukum/streamgate/observability"
)

// Query serves catalog listings.
type Query struct {
	records Store
	log     *logger.Logger
}

// NewQuery creates a query service over records.
func NewQuery(records Store, log *logger.Logger) *Query {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Query{records: records, log: log.WithComponent("catalog")}
}

// ListVideos returns every record whose original name contains nameFilter,
// ignoring case. An empty filter lists everything. The result is never nil.
func (q *Query) ListVideos(ctx context.Context, nameFilter string) (_ []VideoRecord, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanCatalogQuery,
		attribute.String(observability.AttrOperation, "list_videos"),
	)
	defer func() { observability.EndSpan(span, err) }()

	records, err := q.records.Find(ctx, Filter{NameContains: nameFilter})
	if err != nil {
		q.log.WithContext(ctx).Error("failed to list videos", logger.ErrorFields("list_videos", err))
		return nil, database.FromDatabase(err, "video")
	}
	if records == nil {
		records = []VideoRecord{}
	}
	return records, nil
}

// Lookup resolves a record by id, mapping a miss to a NotFound AppError.
func Lookup(ctx context.Context, records Store, id string) (*VideoRecord, error) {
	rec, err := records.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NotFound("video", id).WithCause(err)
	}
	if err != nil {
		return nil, database.FromDatabase(err, "video")
	}
	return rec, nil
}
