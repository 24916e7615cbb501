package repository

import (
	"context"
	"sync"
)

// MemoryRepository keeps slots in process memory. State is lost on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]map[Slot][]byte
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]map[Slot][]byte),
	}
}

func (m *MemoryRepository) Get(_ context.Context, sessionID string, slot Slot) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.sessions[sessionID][slot]
	if !ok {
		return nil, ErrSlotNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryRepository) Put(ctx context.Context, sessionID string, slot Slot, data []byte) error {
	return m.Apply(ctx, sessionID, Commit{Writes: map[Slot][]byte{slot: data}})
}

func (m *MemoryRepository) Apply(_ context.Context, sessionID string, commit Commit) error {
	if commit.empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	slots, ok := m.sessions[sessionID]
	if !ok {
		slots = make(map[Slot][]byte)
		m.sessions[sessionID] = slots
	}
	for _, s := range commit.deletes() {
		delete(slots, s)
	}
	for s, data := range commit.Writes {
		stored := make([]byte, len(data))
		copy(stored, data)
		slots[s] = stored
	}
	if len(slots) == 0 {
		delete(m.sessions, sessionID)
	}
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}
