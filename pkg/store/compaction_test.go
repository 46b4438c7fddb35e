package store

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ssargent/kvsdb/pkg/codec"
)

// readAllRecords decodes every record in the log at path and returns
// them with the offset each was found at.
func readAllRecords(t *testing.T, path string) ([]*codec.Record, []int64) {
	t.Helper()

	reader, err := NewLogReader(path)
	if err != nil {
		t.Fatalf("open log for scan: %v", err)
	}
	defer reader.Close()

	var records []*codec.Record
	var offsets []int64
	for {
		offset := reader.Offset()
		rec, err := reader.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("scan log: %v", err)
		}
		records = append(records, rec)
		offsets = append(offsets, offset)
	}
	return records, offsets
}

func TestCompaction_TriggeredByOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	store := openTestStore(t, KVStoreConfig{
		DataDir:       tmpDir,
		MinRecords:    4,
		StaleFraction: 0.5,
	})
	defer store.Close()

	for _, v := range []string{"v1", "v2", "v3", "v4", "v5"} {
		if err := store.Set([]byte("k"), []byte(v)); err != nil {
			t.Fatalf("set k=%s: %v", v, err)
		}
	}

	// The fifth set (the fourth overwrite) trips the thresholds; only
	// the live record survives on disk.
	records, offsets := readAllRecords(t, store.Path())
	if len(records) != 1 {
		t.Fatalf("records on disk after compaction: got %d, want 1", len(records))
	}
	if records[0].DBKey != uint64(offsets[0]) {
		t.Errorf("rewritten DBKey: got %d, want %d", records[0].DBKey, offsets[0])
	}
	if !bytes.Equal(records[0].Value, []byte("v5")) {
		t.Errorf("surviving value: got %q, want v5", records[0].Value)
	}

	stats := store.Stats()
	if stats.StaleRecords != 0 {
		t.Errorf("stale records after compaction: got %d, want 0", stats.StaleRecords)
	}
	if filepath.Ext(store.Path()) != ".log" {
		t.Errorf("store path after compaction: %s, want a .log file", store.Path())
	}

	value, found, err := store.Get([]byte("k"))
	if err != nil || !found {
		t.Fatalf("get k after compaction: (%v, %v)", found, err)
	}
	if !bytes.Equal(value, []byte("v5")) {
		t.Errorf("k after compaction: got %q, want v5", value)
	}
}

func TestCompaction_NotTriggeredBelowThresholds(t *testing.T) {
	store := openTestStore(t, KVStoreConfig{
		DataDir:       t.TempDir(),
		MinRecords:    4,
		StaleFraction: 0.5,
	})
	defer store.Close()

	originalPath := store.Path()
	for _, v := range []string{"v1", "v2", "v3"} {
		if err := store.Set([]byte("k"), []byte(v)); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	if store.Path() != originalPath {
		t.Error("compaction ran below the stale record floor")
	}
	if stats := store.Stats(); stats.StaleRecords != 2 {
		t.Errorf("stale records: got %d, want 2", stats.StaleRecords)
	}
}

func TestCompaction_Forced(t *testing.T) {
	tmpDir := t.TempDir()
	store := openTestStore(t, KVStoreConfig{DataDir: tmpDir})
	defer store.Close()

	if err := store.Set([]byte("keep"), []byte("live")); err != nil {
		t.Fatalf("set keep: %v", err)
	}
	if err := store.Set([]byte("drop"), []byte("dead")); err != nil {
		t.Fatalf("set drop: %v", err)
	}
	if err := store.Set([]byte("keep"), []byte("live2")); err != nil {
		t.Fatalf("overwrite keep: %v", err)
	}
	if err := store.Remove([]byte("drop")); err != nil {
		t.Fatalf("remove drop: %v", err)
	}
	oldPath := store.Path()

	if err := store.Compact(); err != nil {
		t.Fatalf("forced compaction: %v", err)
	}

	if store.Path() == oldPath {
		t.Error("compaction did not rotate the log file")
	}
	if _, err := NewLogReader(oldPath); err == nil {
		t.Error("old log file still exists after compaction")
	}

	// One live key; tombstones and superseded records are gone.
	records, offsets := readAllRecords(t, store.Path())
	if len(records) != 1 {
		t.Fatalf("records after forced compaction: got %d, want 1", len(records))
	}
	for i, rec := range records {
		if rec.Tombstone {
			t.Error("tombstone survived compaction")
		}
		if rec.DBKey != uint64(offsets[i]) {
			t.Errorf("record %d: DBKey %d does not match offset %d", i, rec.DBKey, offsets[i])
		}
	}

	value, found, err := store.Get([]byte("keep"))
	if err != nil || !found {
		t.Fatalf("get keep: (%v, %v)", found, err)
	}
	if !bytes.Equal(value, []byte("live2")) {
		t.Errorf("keep: got %q, want live2", value)
	}
	_, found, err = store.Get([]byte("drop"))
	if err != nil {
		t.Fatalf("get drop: %v", err)
	}
	if found {
		t.Error("removed key resurfaced after compaction")
	}
}

func TestCompaction_PreservesAllLiveKeys(t *testing.T) {
	tmpDir := t.TempDir()
	store := openTestStore(t, KVStoreConfig{
		DataDir:       tmpDir,
		MinRecords:    10,
		StaleFraction: 0.25,
	})

	keys := make([]string, 50)
	for i := range keys {
		keys[i] = "key-" + strings.Repeat("x", i%7) + string(rune('a'+i%26))
	}
	want := make(map[string]string)
	for i, key := range keys {
		v := "v-" + key
		if err := store.Set([]byte(key), []byte(v)); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
		want[key] = v
		// Overwrite every other key to build stale pressure.
		if i%2 == 0 {
			v2 := v + "-final"
			if err := store.Set([]byte(key), []byte(v2)); err != nil {
				t.Fatalf("overwrite %s: %v", key, err)
			}
			want[key] = v2
		}
	}

	stats := store.Stats()
	records, _ := readAllRecords(t, store.Path())
	if len(records) != stats.Keys+int(stats.StaleRecords) {
		t.Errorf("log holds %d records, index accounts for %d live + %d stale",
			len(records), stats.Keys, stats.StaleRecords)
	}

	verify := func(s *KVStore) {
		t.Helper()
		for key, v := range want {
			value, found, err := s.Get([]byte(key))
			if err != nil || !found {
				t.Fatalf("get %s: (%v, %v)", key, found, err)
			}
			if !bytes.Equal(value, []byte(v)) {
				t.Errorf("%s: got %q, want %q", key, value, v)
			}
		}
	}

	verify(store)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, KVStoreConfig{DataDir: tmpDir})
	defer reopened.Close()
	verify(reopened)
}

func TestCompaction_EmptyIndexYieldsEmptyLog(t *testing.T) {
	store := openTestStore(t, KVStoreConfig{DataDir: t.TempDir()})
	defer store.Close()

	if err := store.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Remove([]byte("a")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Compact(); err != nil {
		t.Fatalf("compact: %v", err)
	}

	records, _ := readAllRecords(t, store.Path())
	if len(records) != 0 {
		t.Errorf("records in compacted empty store: got %d, want 0", len(records))
	}
	if stats := store.Stats(); stats.DataSize != 0 {
		t.Errorf("data size: got %d, want 0", stats.DataSize)
	}
}
