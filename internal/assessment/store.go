package assessment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no assessment record matches.
var ErrNotFound = errors.New("assessment not found")

// Store persists finalized assessments.
type Store interface {
	Save(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Latest(ctx context.Context, vendorID string) (Record, error)
	List(ctx context.Context, vendorID string, limit int) ([]Record, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]Record
	order   []string // ids in insertion order
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) (Record, error) {
	if rec.VendorID == "" {
		return Record{}, errors.New("vendor_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.Answers = rec.Answers.Clone()
	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Latest(ctx context.Context, vendorID string) (Record, error) {
	recs, err := s.List(ctx, vendorID, 1)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNotFound
	}
	return recs[0], nil
}

// List returns the vendor's records, newest first. A non-positive limit
// returns all of them.
func (s *MemoryStore) List(_ context.Context, vendorID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for i := len(s.order) - 1; i >= 0; i-- {
		if rec := s.records[s.order[i]]; rec.VendorID == vendorID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
