package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/kbukum/streamgate/errors"
	"github.com/kbukum/streamgate/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	s := NewGormStore(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seed(t *testing.T, s *GormStore, names ...string) []VideoRecord {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]VideoRecord, 0, len(names))
	for i, name := range names {
		rec := VideoRecord{
			Key:          name,
			Location:     "memory://" + name,
			OriginalName: name,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Create(context.Background(), &rec); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestCreateAssignsID(t *testing.T) {
	s := newTestStore(t)
	recs := seed(t, s, "movie.mp4")
	if recs[0].ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}

	got, err := s.FindByID(context.Background(), recs[0].ID.String())
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Key != "movie.mp4" || got.Location != "memory://movie.mp4" || got.Size != nil {
		t.Errorf("unexpected record %+v", got)
	}
}

func TestFindByIDMisses(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "a")
	for _, id := range []string{uuid.NewString(), "not-a-uuid", ""} {
		if _, err := s.FindByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("id %q: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestFindFilter(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, "ABC trailer.mp4", "holiday.mov", "my abc.mkv", "100%_done.mp4", "1000 done.mp4", "ÉTÉ À PARIS.mp4")

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"ABC trailer.mp4", "holiday.mov", "my abc.mkv", "100%_done.mp4", "1000 done.mp4", "ÉTÉ À PARIS.mp4"}},
		{"abc", []string{"ABC trailer.mp4", "my abc.mkv"}},
		{"HOLIDAY", []string{"holiday.mov"}},
		{"%_", []string{"100%_done.mp4"}},
		{"été à", []string{"ÉTÉ À PARIS.mp4"}},
		{"Été", []string{"ÉTÉ À PARIS.mp4"}},
		{"zzz", []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.filter, func(t *testing.T) {
			got, err := s.Find(context.Background(), Filter{NameContains: tc.filter})
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d records, got %d", len(tc.want), len(got))
			}
			for i, name := range tc.want {
				if got[i].OriginalName != name {
					t.Errorf("record %d: expected %q, got %q", i, name, got[i].OriginalName)
				}
			}
		})
	}
}

func TestListVideos(t *testing.T) {
	s := newTestStore(t)
	q := NewQuery(s, logger.NewNop())

	got, err := q.ListVideos(context.Background(), "")
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}

	seed(t, s, "Abc.mp4", "other.mp4")
	got, err = q.ListVideos(context.Background(), "aBc")
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(got) != 1 || got[0].OriginalName != "Abc.mp4" {
		t.Errorf("unexpected result %+v", got)
	}
}

type failingStore struct{ err error }

func (f failingStore) Create(context.Context, *VideoRecord) error { return f.err }
func (f failingStore) FindByID(context.Context, string) (*VideoRecord, error) {
	return nil, f.err
}
func (f failingStore) Find(context.Context, Filter) ([]VideoRecord, error) { return nil, f.err }

func TestListVideosPersistenceError(t *testing.T) {
	q := NewQuery(failingStore{err: errors.New("disk I/O error")}, logger.NewNop())
	_, err := q.ListVideos(context.Background(), "")
	if !apperrors.HasCode(err, apperrors.ErrCodeDatabaseError) {
		t.Errorf("expected DATABASE_ERROR, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	s := newTestStore(t)
	recs := seed(t, s, "a.mp4")

	got, err := Lookup(context.Background(), s, recs[0].ID.String())
	if err != nil || got.ID != recs[0].ID {
		t.Fatalf("Lookup: %v %+v", err, got)
	}
	if _, err := Lookup(context.Background(), s, "garbage"); !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := Lookup(context.Background(), failingStore{err: errors.New("boom")}, "x"); !apperrors.HasCode(err, apperrors.ErrCodeDatabaseError) {
		t.Errorf("expected DATABASE_ERROR, got %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_a\b`); got != `50\%\_a\\b` {
		t.Errorf("escapeLike = %q", got)
	}
}
