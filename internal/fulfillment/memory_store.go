package fulfillment

import (
	"context"
	"fmt"
	"sync"
)

type recordKey struct {
	provider string
	parcelID int64
}

// MemoryStore keeps status records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]StatusRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]StatusRecord)}
}

// Save stores a copy of rec, replacing any previous record.
func (m *MemoryStore) Save(_ context.Context, rec *StatusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[recordKey{rec.Provider, rec.ParcelID}] = *rec
	return nil
}

// Get returns the record for a parcel or ErrStatusNotFound.
func (m *MemoryStore) Get(_ context.Context, provider string, parcelID int64) (*StatusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{provider, parcelID}]
	if !ok {
		return nil, fmt.Errorf("%w: %s parcel %d", ErrStatusNotFound, provider, parcelID)
	}
	return &rec, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
