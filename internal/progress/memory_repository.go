package progress

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	store map[string]Record // userID -> record
}

// NewMemoryRepository returns an in-memory repository intended for local development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		store: make(map[string]Record),
	}
}

func (r *memoryRepository) Load(_ context.Context, userID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.store[userID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *memoryRepository) Save(_ context.Context, rec Record) error {
	if rec.UserID == "" {
		return ErrMissingUserID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.store[rec.UserID] = rec.Clone()
	return nil
}

func (r *memoryRepository) Update(_ context.Context, userID string, fn UpdateFunc) (Record, error) {
	if userID == "" {
		return Record{}, ErrMissingUserID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.store[userID]
	if ok {
		rec = rec.Clone()
	} else {
		rec = NewRecord(userID)
	}

	if err := fn(&rec); err != nil {
		return Record{}, err
	}
	r.store[userID] = rec.Clone()
	return rec, nil
}

func (r *memoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[userID]; !ok {
		return ErrNotFound
	}
	delete(r.store, userID)
	return nil
}
