package store

import "sync"

// HashIndex maps each live key to the byte offset of its most recent
// record in the log, and tracks how many records in the log have been
// superseded since the last compaction.
type HashIndex struct {
	entries map[string]uint64
	stale   uint64
	mutex   sync.RWMutex
}

// NewHashIndex creates an empty hash index.
func NewHashIndex() *HashIndex {
	return &HashIndex{
		entries: make(map[string]uint64),
	}
}

// Put records offset as the live location for key. If the key was
// already present the prior record is now stale; the counter is bumped
// and true is returned.
func (idx *HashIndex) Put(key []byte, offset uint64) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	keyStr := string(key)
	_, displaced := idx.entries[keyStr]
	idx.entries[keyStr] = offset
	if displaced {
		idx.stale++
	}
	return displaced
}

// Get retrieves the live offset for a key.
func (idx *HashIndex) Get(key []byte) (uint64, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	offset, exists := idx.entries[string(key)]
	return offset, exists
}

// Delete removes a key from the index. If the key was present its
// record is now stale; the counter is bumped and true is returned.
func (idx *HashIndex) Delete(key []byte) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	keyStr := string(key)
	if _, exists := idx.entries[keyStr]; !exists {
		return false
	}
	delete(idx.entries, keyStr)
	idx.stale++
	return true
}

// markStale bumps the stale counter without touching the entries. Used
// during replay for a tombstone whose key is already absent: the
// tombstone record itself still occupies the log.
func (idx *HashIndex) markStale() {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.stale++
}

// Len returns the number of live keys.
func (idx *HashIndex) Len() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return len(idx.entries)
}

// StaleCount returns the number of superseded records in the log.
func (idx *HashIndex) StaleCount() uint64 {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return idx.stale
}
