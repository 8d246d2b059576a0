package snapshot

import (
	"context"
	"sync"
)

// MemoryRepository keeps the snapshot slot in process memory. Used by
// tests and single-terminal local runs.
type MemoryRepository struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryRepository constructs an empty in-memory snapshot slot.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Load implements Repository.
func (r *MemoryRepository) Load(_ context.Context) (Snapshot, bool, error) {
	r.mu.Lock()
	data := r.data
	r.mu.Unlock()

	if len(data) == 0 {
		return Snapshot{}, false, nil
	}
	snap, err := Decode(data)
	if err != nil {
		// A corrupt slot reads as absent; losing an unrecoverable draft
		// beats blocking the wizard on a bad record.
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Save implements Repository.
func (r *MemoryRepository) Save(_ context.Context, snap Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}

// Clear implements Repository.
func (r *MemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	r.data = nil
	r.mu.Unlock()
	return nil
}
