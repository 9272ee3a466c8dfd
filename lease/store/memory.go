// Package store provides in-process lease.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/rent-engine/lease"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[string]lease.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]lease.Record)}
}

func (m *Memory) Create(_ context.Context, rec lease.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; exists {
		return lease.ErrConcurrentModification
	}
	rec.Version = 1
	m.records[rec.ID] = copyRecord(rec)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (lease.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return lease.Record{}, lease.ErrContractNotFound
	}
	return copyRecord(rec), nil
}

func (m *Memory) List(_ context.Context) ([]lease.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]lease.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update compares and swaps on the version.
func (m *Memory) Update(_ context.Context, rec lease.Record, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[rec.ID]
	if !ok {
		return lease.ErrContractNotFound
	}
	if current.Version != expectedVersion {
		return lease.ErrConcurrentModification
	}
	rec.Version = expectedVersion + 1
	rec.CreatedAt = current.CreatedAt
	m.records[rec.ID] = copyRecord(rec)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return lease.ErrContractNotFound
	}
	delete(m.records, id)
	return nil
}

// copyRecord keeps callers from sharing slices with the map.
func copyRecord(rec lease.Record) lease.Record {
	rec.Contract = rec.Contract.Clone()
	return rec
}
