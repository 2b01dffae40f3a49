package verification

import (
	"context"
	"sync"
)

type memoryRepository struct {
	codes  map[uint]*Code
	nextID uint
	mu     sync.RWMutex
}

// NewMemoryRepository returns a process-local Repository used by tests and
// by callers that run without a database.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		codes: make(map[uint]*Code),
	}
}

func (r *memoryRepository) Replace(_ context.Context, code *Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.codes {
		if c.UserID == code.UserID && c.Purpose == code.Purpose {
			delete(r.codes, id)
		}
	}

	r.nextID++
	code.ID = r.nextID
	stored := *code
	r.codes[stored.ID] = &stored
	return nil
}

func (r *memoryRepository) Latest(_ context.Context, userID uint, purpose string) (*Code, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Code
	for _, c := range r.codes {
		if c.UserID != userID || c.Purpose != purpose {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) ||
			(c.CreatedAt.Equal(latest.CreatedAt) && c.ID > latest.ID) {
			latest = c
		}
	}
	if latest == nil {
		return nil, ErrCodeNotFound
	}
	found := *latest
	return &found, nil
}

func (r *memoryRepository) IncrementAttempts(_ context.Context, id uint, limit int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codes[id]
	if !ok || c.Attempts >= limit {
		return false, nil
	}
	c.Attempts++
	return true, nil
}

func (r *memoryRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.codes, id)
	return nil
}
