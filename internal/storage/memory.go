package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/todys/internal/model"
)

// MemoryStore is a RecordStore kept in process memory. It backs the memory
// storage mode and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]*model.FileRecord
	now   func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[string]*model.FileRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts rec, filling in timestamps the caller left zero.
func (m *MemoryStore) Create(_ context.Context, rec *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = model.StatusUploaded
	}
	stored := *rec
	m.files[rec.ID] = &stored
	return nil
}

// Get returns a copy so callers cannot mutate stored state.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) MarkProcessing(_ context.Context, id string) error {
	return m.update(id, func(rec *model.FileRecord) {
		rec.Status = model.StatusProcessing
		rec.ErrorMessage = nil
	})
}

func (m *MemoryStore) MarkProcessed(_ context.Context, id, transformedPath string) error {
	return m.update(id, func(rec *model.FileRecord) {
		now := m.now()
		rec.Status = model.StatusProcessed
		rec.TransformedPath = &transformedPath
		rec.ProcessedAt = &now
		rec.ErrorMessage = nil
	})
}

func (m *MemoryStore) MarkFailed(_ context.Context, id, msg string) error {
	return m.update(id, func(rec *model.FileRecord) {
		now := m.now()
		rec.Status = model.StatusFailed
		rec.ErrorMessage = &msg
		rec.ProcessedAt = &now
	})
}

// ListExpired returns up to limit records whose expiry is at or before now,
// oldest first.
func (m *MemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]*model.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.FileRecord
	for _, rec := range m.files {
		if rec.Expired(now) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *MemoryStore) update(id string, fn func(*model.FileRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.files[id]
	if !ok {
		return ErrNotFound
	}
	fn(rec)
	rec.UpdatedAt = m.now()
	return nil
}

// MemoryObjects is an ObjectStore kept in process memory.
type MemoryObjects struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryObjects constructs an empty MemoryObjects.
func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{objects: make(map[string][]byte)}
}

func (m *MemoryObjects) EnsureBuckets(context.Context) error { return nil }

func (m *MemoryObjects) Put(_ context.Context, bucket, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryObjects) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryObjects) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}
