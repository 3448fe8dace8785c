// Package memory implements the store.Archiver interface keeping records
// in memory. Useful for testing and for running the service without a
// durable archive.
package memory

import (
	"errors"
	"sync"

	"github.com/ardanlabs/oracle/foundation/oracle/store"
)

// Memory represents the serialization implementation for keeping accepted
// attestations in memory. This implements the store.Archiver interface.
type Memory struct {
	mu      sync.RWMutex
	records []store.Record
	byTime  map[uint64]int
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	m := Memory{
		byTime: make(map[uint64]int),
	}

	return &m, nil
}

// Close in this implementation has nothing to do.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified record and appends it to the in memory archive.
func (m *Memory) Write(rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byTime[rec.Timestamp] = len(m.records)
	m.records = append(m.records, rec)

	return nil
}

// GetRecord returns the record with the specified timestamp.
func (m *Memory) GetRecord(timestamp uint64) (store.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, exists := m.byTime[timestamp]
	if !exists {
		return store.Record{}, errors.New("record not found")
	}

	return m.records[i], nil
}

// ForEach returns an iterator to walk through all the records in the order
// they were accepted.
func (m *Memory) ForEach() store.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]store.Record, len(m.records))
	copy(records, m.records)

	return &memoryIterator{records: records}
}

// Reset will clear out the in memory archive.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = nil
	m.byTime = make(map[uint64]int)

	return nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking through
// a snapshot of the in memory records. This implements the store.Iterator
// interface.
type memoryIterator struct {
	records []store.Record
	current int
	eoa     bool
}

// Next retrieves the next record from the snapshot.
func (mi *memoryIterator) Next() (store.Record, error) {
	if mi.current >= len(mi.records) {
		mi.eoa = true
		return store.Record{}, errors.New("end of archive")
	}

	rec := mi.records[mi.current]
	mi.current++

	return rec, nil
}

// Done returns the end of archive value.
func (mi *memoryIterator) Done() bool {
	return mi.eoa
}
