package storage

import (
	"context"
	"sync"
)

// Slot is a single persistent key-value slot holding the serialized cart.
// There is no versioning field; schema changes are overwritten on the next
// Save.
type Slot interface {
	// Load returns the stored record, or ok=false if nothing has been saved.
	Load(ctx context.Context) (data []byte, ok bool, err error)

	// Save overwrites the stored record.
	Save(ctx context.Context, data []byte) error
}

// MemorySlot keeps the record in memory. Used in tests and as a fallback
// when no durable backend is configured.
type MemorySlot struct {
	mu   sync.RWMutex
	data []byte
	set  bool
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (s *MemorySlot) Load(ctx context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return nil, false, nil
	}
	data := make([]byte, len(s.data))
	copy(data, s.data)
	return data, true, nil
}

func (s *MemorySlot) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.set = true
	return nil
}
