package store

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// maybeCompact runs a compaction cycle when enough of the log is dead
// weight: the stale count has reached the configured record floor and
// the stale/live ratio meets the configured fraction. With an empty
// index the ratio test is skipped, so only the record floor applies.
func (kv *KVStore) maybeCompact() error {
	stale := kv.index.StaleCount()
	if stale < kv.config.MinRecords {
		return nil
	}
	if live := kv.index.Len(); live > 0 {
		if float64(stale)/float64(live) < kv.config.StaleFraction {
			return nil
		}
	}
	return kv.compact()
}

// compact rewrites the live portion of the log into a fresh file and
// swaps it in. A failure at any point before the swap leaves the store
// exactly as it was, minus a deleted scratch file.
func (kv *KVStore) compact() error {
	start := time.Now()
	oldPath := kv.dataFile
	oldSize := kv.writer.Size()

	u := uuid.New()
	stem := "kvsdb-" + hex.EncodeToString(u[:])
	compactPath := filepath.Join(kv.config.DataDir, stem+".compact")

	newWriter, newIndex, err := kv.rewriteLive(compactPath)
	if err != nil {
		storeMetrics.recordCompaction(false, 0)
		return err
	}

	// Everything live is in the compact file. Rename it into place
	// (a failure here or on reopen still leaves the store unchanged),
	// then swap the four handles in one step and drop the old log.
	finalPath := filepath.Join(kv.config.DataDir, stem+".log")
	if err := os.Rename(compactPath, finalPath); err != nil {
		newWriter.Close()
		os.Remove(compactPath)
		storeMetrics.recordCompaction(false, 0)
		return ioError("rename compact file", err)
	}

	newReader, err := NewLogReader(finalPath)
	if err != nil {
		newWriter.Close()
		os.Remove(finalPath)
		storeMetrics.recordCompaction(false, 0)
		return ioError("open compacted log", err)
	}

	oldWriter, oldReader := kv.writer, kv.reader
	kv.writer = newWriter
	kv.reader = newReader
	kv.index = newIndex
	kv.dataFile = finalPath
	newWriter.path = finalPath

	oldWriter.Close()
	oldReader.Close()
	if err := os.Remove(oldPath); err != nil {
		// The orphan is harmless: the next Open picks the newer file.
		kv.logger.Warn("compaction: could not delete old log", "path", oldPath, "error", err)
	}

	reclaimed := oldSize - kv.writer.Size()
	kv.logger.Debug("compaction complete",
		"live_keys", kv.index.Len(),
		"reclaimed_bytes", reclaimed,
		"duration", time.Since(start))
	storeMetrics.recordCompaction(true, reclaimed)
	storeMetrics.updateStats(kv.index.Len(), kv.index.StaleCount(), kv.writer.Size())
	return nil
}

// rewriteLive walks every record of the current log and copies the
// live ones into a fresh log at path, restamping each record's offset
// field. It returns the new writer and the index describing the new
// file; on error the scratch file is deleted and the current store
// state is untouched.
func (kv *KVStore) rewriteLive(path string) (*LogWriter, *HashIndex, error) {
	newWriter, err := NewLogWriter(path, true)
	if err != nil {
		return nil, nil, ioError("create compact file", err)
	}
	newIndex := NewHashIndex()

	discard := func(cause error, msg string) (*LogWriter, *HashIndex, error) {
		newWriter.Close()
		os.Remove(path)
		if sErr, ok := cause.(*StoreError); ok {
			return nil, nil, sErr
		}
		return nil, nil, ioError(msg, cause)
	}

	if err := kv.reader.Seek(0); err != nil {
		return discard(err, "rewind log")
	}
	for {
		offset := kv.reader.Offset()
		rec, err := kv.reader.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return discard(err, "read record during compaction")
		}
		if rec.Tombstone {
			// Tombstones never carry forward; the deletion is already
			// reflected by the key's absence from the index.
			continue
		}
		live, ok := kv.index.Get(rec.Key)
		if !ok || live != uint64(offset) {
			continue
		}

		newOffset, err := newWriter.Append(rec)
		if err != nil {
			return discard(err, "write record during compaction")
		}
		newIndex.Put(rec.Key, uint64(newOffset))
	}

	return newWriter, newIndex, nil
}
