package store

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/ssargent/kvsdb/pkg/codec"
)

// logFilePattern matches log file names: a fixed prefix plus 32
// lowercase hex characters, for a 38-character stem.
var logFilePattern = regexp.MustCompile(`^kvsdb-[0-9a-f]{32}\.log$`)

// newLogFileName mints a fresh log file name.
func newLogFileName() string {
	u := uuid.New()
	return "kvsdb-" + hex.EncodeToString(u[:]) + ".log"
}

// KVStore is a log-structured key-value store over a single append-only
// file. It is safe for use from one goroutine at a time; two instances
// over the same directory are undefined behavior.
type KVStore struct {
	config   KVStoreConfig
	logger   hclog.Logger
	writer   *LogWriter
	reader   *LogReader
	index    *HashIndex
	dataFile string
	mutex    sync.Mutex
	isOpen   bool
}

// NewKVStore creates a new key-value store instance over config.DataDir.
// The directory is created if missing. Call Open before use.
func NewKVStore(config KVStoreConfig) (*KVStore, error) {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, ioError("create data dir", err)
	}

	if config.StaleFraction <= 0 {
		config.StaleFraction = DefaultStaleFraction
	}
	if config.MinRecords == 0 {
		config.MinRecords = DefaultMinRecords
	}
	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &KVStore{
		config: config,
		logger: logger,
		index:  NewHashIndex(),
	}, nil
}

// Open chooses the newest log file in the data directory (minting a new
// one if none exists), opens the file pair, and rebuilds the in-memory
// index by replaying the log from offset 0.
func (kv *KVStore) Open() (*ReplayResult, error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if kv.isOpen {
		return &ReplayResult{LogPath: kv.dataFile, LiveKeys: kv.index.Len()}, nil
	}

	path, err := kv.findLatestLog()
	if err != nil {
		return nil, err
	}
	kv.dataFile = path

	writer, err := NewLogWriter(path, false)
	if err != nil {
		return nil, ioError("open log writer", err)
	}
	kv.writer = writer

	reader, err := NewLogReader(path)
	if err != nil {
		kv.writer.Close()
		return nil, ioError("open log reader", err)
	}
	kv.reader = reader

	result, err := kv.replay()
	if err != nil {
		kv.reader.Close()
		kv.writer.Close()
		return nil, err
	}

	kv.isOpen = true
	kv.logger.Debug("store opened",
		"path", kv.dataFile,
		"live_keys", result.LiveKeys,
		"stale_records", result.StaleRecords)
	storeMetrics.updateStats(kv.index.Len(), kv.index.StaleCount(), kv.writer.Size())
	return result, nil
}

// findLatestLog scans the data directory for log files and returns the
// one with the newest modification time, or a freshly minted path when
// the directory holds none. Orphans left by a compaction that crashed
// before deleting its predecessor lose this race by construction: the
// replacement file is always strictly newer.
func (kv *KVStore) findLatestLog() (string, error) {
	entries, err := os.ReadDir(kv.config.DataDir)
	if err != nil {
		return "", ioError("scan data dir", err)
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || !logFilePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return "", ioError("stat log file", err)
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = entry.Name()
			newestMod = info.ModTime()
		}
	}

	if newest == "" {
		newest = newLogFileName()
	}
	return filepath.Join(kv.config.DataDir, newest), nil
}

// replay walks the log from offset 0 and applies each record to the
// index. Only a clean end-of-log terminates successfully; anything else
// is surfaced as an IO error.
func (kv *KVStore) replay() (*ReplayResult, error) {
	if err := kv.reader.Seek(0); err != nil {
		return nil, ioError("rewind log", err)
	}

	var scanned int64
	for {
		offset := kv.reader.Offset()
		rec, err := kv.reader.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ioError("replay log", err)
		}
		if rec.DBKey != uint64(offset) {
			return nil, &StoreError{
				Code:    CodeIO,
				Message: "replay log: record offset field does not match its position",
			}
		}
		scanned++

		if rec.Tombstone {
			if !kv.index.Delete(rec.Key) {
				kv.index.markStale()
			}
		} else {
			kv.index.Put(rec.Key, rec.DBKey)
		}
	}

	return &ReplayResult{
		RecordsScanned: scanned,
		LiveKeys:       kv.index.Len(),
		StaleRecords:   kv.index.StaleCount(),
		LogPath:        kv.dataFile,
	}, nil
}

// Set stores a value under key, replacing any prior value.
func (kv *KVStore) Set(key, value []byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	start := time.Now()
	err := kv.setLocked(key, value)
	storeMetrics.recordOp("set", err, time.Since(start))
	return err
}

func (kv *KVStore) setLocked(key, value []byte) error {
	if !kv.isOpen {
		return &StoreError{Code: CodeUnknown, Message: "store is not open"}
	}

	rec := codec.NewRecord(key, value)
	offset, err := kv.writer.Append(rec)
	if err != nil {
		return ioError("append record", err)
	}

	kv.index.Put(key, uint64(offset))
	storeMetrics.updateStats(kv.index.Len(), kv.index.StaleCount(), kv.writer.Size())
	return kv.maybeCompact()
}

// Get retrieves the value stored under key. A missing key is not an
// error: found reports whether the key is present.
func (kv *KVStore) Get(key []byte) (value []byte, found bool, err error) {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	start := time.Now()
	value, found, err = kv.getLocked(key)
	storeMetrics.recordOp("get", err, time.Since(start))
	return value, found, err
}

func (kv *KVStore) getLocked(key []byte) ([]byte, bool, error) {
	if !kv.isOpen {
		return nil, false, &StoreError{Code: CodeUnknown, Message: "store is not open"}
	}

	offset, exists := kv.index.Get(key)
	if !exists {
		return nil, false, nil
	}

	// A live-indexed offset must always decode to a write record.
	rec, err := kv.reader.ReadAt(int64(offset))
	if err != nil {
		return nil, false, ioError("read record", err)
	}
	if rec.Tombstone {
		return nil, false, &StoreError{
			Code:    CodeIO,
			Message: "read record: index points at a tombstone",
		}
	}

	return rec.Value, true, nil
}

// Remove deletes key from the store by appending a tombstone. Removing
// an absent key returns ErrKeyNotPresent and appends nothing.
func (kv *KVStore) Remove(key []byte) error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	start := time.Now()
	err := kv.removeLocked(key)
	storeMetrics.recordOp("remove", err, time.Since(start))
	return err
}

func (kv *KVStore) removeLocked(key []byte) error {
	if !kv.isOpen {
		return &StoreError{Code: CodeUnknown, Message: "store is not open"}
	}

	if _, exists := kv.index.Get(key); !exists {
		return ErrKeyNotPresent
	}

	rec := codec.NewTombstone(key)
	if _, err := kv.writer.Append(rec); err != nil {
		return ioError("append tombstone", err)
	}

	kv.index.Delete(key)
	storeMetrics.updateStats(kv.index.Len(), kv.index.StaleCount(), kv.writer.Size())
	return kv.maybeCompact()
}

// Compact forces a compaction cycle regardless of thresholds.
func (kv *KVStore) Compact() error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return &StoreError{Code: CodeUnknown, Message: "store is not open"}
	}
	return kv.compact()
}

// Stats returns store statistics.
func (kv *KVStore) Stats() *StoreStats {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return &StoreStats{}
	}
	return &StoreStats{
		Keys:         kv.index.Len(),
		StaleRecords: kv.index.StaleCount(),
		DataSize:     kv.writer.Size(),
		LogPath:      kv.dataFile,
	}
}

// Path returns the active log file path.
func (kv *KVStore) Path() string {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()
	return kv.dataFile
}

// Close flushes the writer and releases both file handles. Closing an
// unopened store is a no-op.
func (kv *KVStore) Close() error {
	kv.mutex.Lock()
	defer kv.mutex.Unlock()

	if !kv.isOpen {
		return nil
	}
	kv.isOpen = false

	if err := kv.writer.Close(); err != nil {
		kv.reader.Close()
		return ioError("close log writer", err)
	}
	if err := kv.reader.Close(); err != nil {
		return ioError("close log reader", err)
	}
	return nil
}
