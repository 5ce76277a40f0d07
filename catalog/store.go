package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("catalog: record not found")

// Filter narrows Find. The zero value matches every record.
type Filter struct {
	// NameContains is a case-insensitive literal substring of OriginalName.
	NameContains string
}

// Store persists video records.
type Store interface {
	Create(ctx context.Context, rec *VideoRecord) error
	FindByID(ctx context.Context, id string) (*VideoRecord, error)
	Find(ctx context.Context, f Filter) ([]VideoRecord, error)
}

// GormStore is a Store over GORM.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a store on db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the video_records table.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&VideoRecord{})
}

// Create inserts rec, assigning its id.
func (s *GormStore) Create(ctx context.Context, rec *VideoRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("catalog: create record: %w", err)
	}
	return nil
}

// FindByID returns ErrNotFound for unknown ids and for ids that are not UUIDs.
func (s *GormStore) FindByID(ctx context.Context, id string) (*VideoRecord, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrNotFound
	}
	var rec VideoRecord
	err = s.db.WithContext(ctx).Where("id = ?", uid).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: find record: %w", err)
	}
	return &rec, nil
}

// Find lists records matching f, oldest first.
func (s *GormStore) Find(ctx context.Context, f Filter) ([]VideoRecord, error) {
	q := s.db.WithContext(ctx).Model(&VideoRecord{})
	if f.NameContains != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.NameContains)) + "%"
		q = q.Where(`name_fold LIKE ? ESCAPE '\'`, pattern)
	}
	records := make([]VideoRecord, 0)
	if err := q.Order("created_at ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("catalog: find records: %w", err)
	}
	return records, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
